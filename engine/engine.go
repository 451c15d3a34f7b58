package engine

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	jsbridge "github.com/wippyai/js-bridge"
	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
	"github.com/wippyai/js-bridge/resource"
)

const terminatedMessage = "execution terminated"

// Engine owns a set of script contexts that share one execution lock.
type Engine struct {
	log      *zap.Logger
	contexts map[int32]*Context
	handles  *resource.UnifiedTable
	registry *require.Registry
	proxies  proxyTable
	cfg      Config
	lock     execLock
	mu       sync.RWMutex
	disposed atomic.Bool
}

// engineObject is the value stored behind object and function handles.
type engineObject struct {
	ctx *Context
	obj *goja.Object
}

// New creates an engine configured by opts.
func New(opts ...Option) (*Engine, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewWithConfig(&cfg)
}

// NewWithConfig creates an engine with custom configuration
func NewWithConfig(cfg *Config) (*Engine, error) {
	e := &Engine{
		contexts: make(map[int32]*Context),
		handles:  resource.NewTable(),
	}
	if cfg != nil {
		e.cfg = *cfg
	}
	e.proxies.init()

	e.log = e.cfg.Logger
	if e.log == nil {
		e.log = Logger()
	}

	if e.cfg.ModuleDir != "" {
		info, err := os.Stat(e.cfg.ModuleDir)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseCompile, errors.KindInvalidInput, err, "module directory")
		}
		if !info.IsDir() {
			return nil, errors.InvalidInput(errors.PhaseCompile,
				fmt.Sprintf("module path %q is not a directory", e.cfg.ModuleDir))
		}
		e.registry = require.NewRegistry(require.WithGlobalFolders(e.cfg.ModuleDir))
	} else if e.cfg.Console {
		e.registry = new(require.Registry)
	}
	if e.cfg.Console {
		e.registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(&consolePrinter{log: e.log}))
	}

	e.log.Debug("engine created",
		zap.Stringer("marshal_mode", e.cfg.MarshalMode),
		zap.Int("max_call_stack", e.cfg.MaxCallStackSize),
		zap.Bool("console", e.cfg.Console),
		zap.String("module_dir", e.cfg.ModuleDir))
	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// MarshalMode returns the engine's default marshal mode.
func (e *Engine) MarshalMode() jsbridge.MarshalMode {
	return e.cfg.MarshalMode
}

// Register creates a context bound to host under contextID.
func (e *Engine) Register(contextID int32, host jsbridge.Host) (*Context, error) {
	if e.disposed.Load() {
		return nil, errors.Disposed(errors.PhaseHost, "engine")
	}
	if host == nil {
		return nil, errors.InvalidInput(errors.PhaseHost, "host cannot be nil")
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.contexts[contextID]; exists {
		return nil, errors.InvalidInput(errors.PhaseHost,
			fmt.Sprintf("context %d already registered", contextID))
	}

	c, err := newContext(e, contextID, host)
	if err != nil {
		return nil, err
	}
	e.contexts[contextID] = c
	e.log.Debug("context registered", zap.Int32("context", contextID))
	return c, nil
}

// Context returns the registered context for contextID.
func (e *Engine) Context(contextID int32) (*Context, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.contexts[contextID]
	return c, ok
}

func (e *Engine) context(contextID int32, phase errors.Phase) (*Context, *errors.Error) {
	if e.disposed.Load() {
		return nil, errors.Disposed(phase, "engine")
	}
	c, ok := e.Context(contextID)
	if !ok {
		return nil, errors.NotFound(phase, "context", strconv.Itoa(int(contextID)))
	}
	return c, nil
}

// Unregister detaches every proxy of the context, drops its handles and
// forgets it. Unknown IDs are ignored.
func (e *Engine) Unregister(contextID int32) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.mu.Lock()
	c, ok := e.contexts[contextID]
	delete(e.contexts, contextID)
	e.mu.Unlock()
	if !ok {
		return
	}
	e.closeContext(c)
	e.log.Debug("context unregistered", zap.Int32("context", contextID))
}

func (e *Engine) closeContext(c *Context) {
	c.closed.Store(true)
	for _, h := range e.proxies.snapshot(c) {
		h.release()
	}

	var owned []resource.Handle
	e.handles.Each(0, func(h resource.Handle, v any) bool {
		if eo, ok := v.(*engineObject); ok && eo.ctx == c {
			owned = append(owned, h)
		}
		return true
	})
	for _, h := range owned {
		e.handles.Remove(h)
	}
}

// Terminate interrupts script execution in every context. The interrupted
// run returns UnknownError "execution terminated".
func (e *Engine) Terminate() {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, c := range e.contexts {
		c.rt.Interrupt(terminatedMessage)
	}
	e.log.Debug("terminate requested", zap.Int("contexts", len(e.contexts)))
}

// Dispose tears the engine down: proxies are detached, handles and scripts
// are released and every context is closed. Safe to call more than once.
func (e *Engine) Dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.mu.Lock()
	contexts := e.contexts
	e.contexts = make(map[int32]*Context)
	e.mu.Unlock()

	for _, c := range contexts {
		e.closeContext(c)
	}
	for _, h := range e.proxies.snapshot(nil) {
		h.release()
	}
	e.handles.Clear()
	_ = e.handles.Close()

	e.log.Debug("engine disposed", zap.Int("contexts", len(contexts)))
}

// Disposed reports whether Dispose has been called.
func (e *Engine) Disposed() bool {
	return e.disposed.Load()
}

// RetainHandle implements jsvalue.Owner.
func (e *Engine) RetainHandle(h resource.Handle) bool {
	return e.handles.Retain(h)
}

// DisposeHandle drops one reference to an engine object handle.
func (e *Engine) DisposeHandle(h resource.Handle) {
	if e.handles.Release(h) {
		debugf("handle %d freed", h)
	}
}

func (e *Engine) newRef(c *Context, typeID uint32, obj *goja.Object) *jsvalue.Ref {
	h := e.handles.Insert(typeID, &engineObject{ctx: c, obj: obj})
	if h == 0 {
		return nil
	}
	return jsvalue.NewRef(e, h)
}

func (e *Engine) object(h resource.Handle) (*engineObject, bool) {
	v, ok := e.handles.Get(h)
	if !ok {
		return nil, false
	}
	eo, ok := v.(*engineObject)
	if !ok || eo.ctx.closed.Load() {
		return nil, false
	}
	return eo, true
}

// disposedValue is the error value returned by operations on a disposed
// engine or closed context.
func disposedValue(phase errors.Phase, what string) jsvalue.Value {
	return jsvalue.UnknownError{Message: errors.Disposed(phase, what).Error()}
}

func errorValue(err *errors.Error) jsvalue.Value {
	return jsvalue.UnknownError{Message: err.Error()}
}
