package runtime

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/js-bridge/engine"
	"github.com/wippyai/js-bridge/errors"
)

// Option configures the underlying engine.
type Option = engine.Option

type Runtime struct {
	engine   *engine.Engine
	log      *zap.Logger
	contexts map[int32]*Context
	nextID   atomic.Int32
	mu       sync.Mutex
	closed   bool
}

func New(opts ...Option) (*Runtime, error) {
	eng, err := engine.New(opts...)
	if err != nil {
		return nil, err
	}

	log := eng.Config().Logger
	if log == nil {
		log = engine.Logger()
	}

	return &Runtime{
		engine:   eng,
		log:      log,
		contexts: make(map[int32]*Context),
	}, nil
}

// Engine returns the engine the runtime drives.
func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}

// NewContext allocates a context ID and registers a fresh Context as the
// engine's host for it.
func (r *Runtime) NewContext() (*Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.Disposed(errors.PhaseHost, "runtime")
	}

	id := r.nextID.Add(1)
	c := newContext(r, id)
	ec, err := r.engine.Register(id, c)
	if err != nil {
		return nil, err
	}
	c.ec = ec
	r.contexts[id] = c
	return c, nil
}

// Compile compiles source once for use in any context of this runtime.
func (r *Runtime) Compile(source, resourceName string) (*engine.Script, error) {
	s, errv := r.engine.Compile(source, resourceName)
	if s == nil {
		return nil, valueError(nil, errv)
	}
	return s, nil
}

// Terminate interrupts whatever script is running in any context.
func (r *Runtime) Terminate() {
	r.engine.Terminate()
}

func (r *Runtime) forget(id int32) {
	r.mu.Lock()
	delete(r.contexts, id)
	r.mu.Unlock()
}

// Close releases all runtime resources. Contexts still open are closed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	contexts := make([]*Context, 0, len(r.contexts))
	for _, c := range r.contexts {
		contexts = append(contexts, c)
	}
	r.mu.Unlock()

	for _, c := range contexts {
		_ = c.Close()
	}
	r.engine.Dispose()
	r.log.Debug("runtime closed", zap.Int("contexts", len(contexts)))
	return nil
}
