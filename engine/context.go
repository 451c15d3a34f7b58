package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"go.uber.org/zap"

	jsbridge "github.com/wippyai/js-bridge"
	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
)

// Context is one script global environment bound to a host.
type Context struct {
	engine    *Engine
	host      jsbridge.Host
	rt        *goja.Runtime
	proto     *goja.Object
	dateCtor  goja.Value
	errorCtor goja.Value
	log       *zap.Logger
	id        int32
	closed    atomic.Bool
}

func newContext(e *Engine, id int32, host jsbridge.Host) (*Context, error) {
	rt := goja.New()
	if e.cfg.MaxCallStackSize > 0 {
		rt.SetMaxCallStackSize(e.cfg.MaxCallStackSize)
	}

	c := &Context{
		engine:    e,
		host:      host,
		rt:        rt,
		id:        id,
		dateCtor:  rt.Get("Date"),
		errorCtor: rt.Get("Error"),
		log:       e.log.With(zap.Int32("context", id)),
	}

	if err := c.initProxyPrototype(); err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindEngine, err, "init proxy prototype")
	}

	if e.registry != nil {
		e.registry.Enable(rt)
		if e.cfg.Console {
			console.Enable(rt)
		}
	}
	return c, nil
}

// ID returns the context ID.
func (c *Context) ID() int32 {
	return c.id
}

// Engine returns the owning engine.
func (c *Context) Engine() *Engine {
	return c.engine
}

// Runtime exposes the underlying goja runtime. Use it only while holding
// the engine lock, e.g. from a host callback.
func (c *Context) Runtime() *goja.Runtime {
	return c.rt
}

// Host returns the host the context is bound to.
func (c *Context) Host() jsbridge.Host {
	return c.host
}

// Closed reports whether the context was unregistered.
func (c *Context) Closed() bool {
	return c.closed.Load()
}

func (c *Context) enter(phase errors.Phase) (jsvalue.Value, bool) {
	if c.engine.disposed.Load() {
		return disposedValue(phase, "engine"), false
	}
	if c.closed.Load() {
		return disposedValue(phase, "context"), false
	}
	return nil, true
}

// guard turns a stray panic from a host callback into an error value.
func (c *Context) guard(result *jsvalue.Value) {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(goja.Value); ok {
		*result = c.thrownValue(v, c.engine.cfg.MarshalMode)
		return
	}
	c.log.Error("panic during script operation", zap.Any("panic", r))
	*result = jsvalue.UnknownError{Message: fmt.Sprint(r)}
}

func (c *Context) run(p *goja.Program) (result jsvalue.Value) {
	if v, ok := c.enter(errors.PhaseExecute); !ok {
		return v
	}
	c.engine.lock.Lock()
	defer c.engine.lock.Unlock()
	defer c.guard(&result)

	if c.engine.lock.outermost() {
		c.rt.ClearInterrupt()
	}
	mode := c.engine.cfg.MarshalMode
	v, err := c.rt.RunProgram(p)
	if err != nil {
		return c.errorFrom(err, mode)
	}
	return c.fromEngine(v, nil, mode, nil)
}

// Run executes a compiled script in this context.
func (c *Context) Run(s *Script) jsvalue.Value {
	p := s.program()
	if p == nil {
		return disposedValue(errors.PhaseExecute, "script")
	}
	return c.run(p)
}

// Execute compiles and runs source. resourceName labels error locations.
func (c *Context) Execute(source, resourceName string) jsvalue.Value {
	p, detail := compile(source, resourceName)
	if detail != nil {
		return detail
	}
	return c.run(p)
}

// SetVariable assigns a global. The value is consumed. Returns Empty or an
// error value.
func (c *Context) SetVariable(name string, tv jsvalue.Value) (result jsvalue.Value) {
	if v, ok := c.enter(errors.PhaseMaterialize); !ok {
		jsvalue.Dispose(tv)
		return v
	}
	c.engine.lock.Lock()
	defer c.engine.lock.Unlock()
	defer c.guard(&result)

	v := c.toEngine(tv)
	jsvalue.Dispose(tv)
	if v == nil {
		v = goja.Undefined()
	}
	if err := c.rt.Set(name, v); err != nil {
		return c.errorFrom(err, c.engine.cfg.MarshalMode)
	}
	return jsvalue.Empty{}
}

// GetVariable reads a global. Missing globals convert to Null.
func (c *Context) GetVariable(name string) (result jsvalue.Value) {
	if v, ok := c.enter(errors.PhaseConvert); !ok {
		return v
	}
	c.engine.lock.Lock()
	defer c.engine.lock.Unlock()
	defer c.guard(&result)

	return c.fromEngine(c.rt.Get(name), nil, c.engine.cfg.MarshalMode, nil)
}

// call invokes fn with this and materialized args.
func (c *Context) call(fn goja.Callable, this goja.Value, args jsvalue.Value) jsvalue.Value {
	var argv []goja.Value
	if args != nil {
		if _, empty := args.(jsvalue.Empty); !empty {
			if _, isArray := args.(jsvalue.Array); !isArray {
				jsvalue.Dispose(args)
				return errorValue(errors.InvalidArgumentShape(args.Kind().String()))
			}
			argv = make([]goja.Value, args.Length())
			n, _ := c.argumentList(args, argv)
			argv = argv[:n]
		}
	}
	jsvalue.Dispose(args)

	mode := c.engine.cfg.MarshalMode
	v, err := fn(this, argv...)
	if err != nil {
		return c.errorFrom(err, mode)
	}
	return c.fromEngine(v, nil, mode, nil)
}
