package runtime

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/js-bridge/engine"
	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
	"github.com/wippyai/js-bridge/resource"
)

const anonymousResource = "<anonymous>"

// Context is a script global environment plus the store that keeps Go
// values alive while the engine references them. It implements
// jsbridge.Host for its own context ID.
type Context struct {
	runtime *Runtime
	ec      *engine.Context
	keep    *resource.UnifiedTable
	log     *zap.Logger
	id      int32
	depth   atomic.Int32
	closed  atomic.Bool

	// pinned holds extra references on host errors thrown into the engine
	// until the outermost call has converted its result.
	pinned   []resource.Handle
	pinnedMu sync.Mutex
}

func newContext(r *Runtime, id int32) *Context {
	c := &Context{
		runtime: r,
		keep:    resource.NewTable(),
		log:     r.log.With(zap.Int32("context", id)),
		id:      id,
	}
	c.keep.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventDropped {
			c.log.Debug("host object dropped", zap.Uint32("object", uint32(e.Handle)), zap.String("type", fmt.Sprintf("%T", e.Value)))
		}
	}))
	return c
}

// ID returns the engine context ID.
func (c *Context) ID() int32 {
	return c.id
}

// Engine returns the engine-side context.
func (c *Context) Engine() *engine.Context {
	return c.ec
}

// KeepAlive returns the number of Go values currently referenced by the
// engine.
func (c *Context) KeepAlive() int {
	return c.keep.Len()
}

func (c *Context) enter() error {
	if c.closed.Load() {
		return errors.Disposed(errors.PhaseExecute, "context")
	}
	c.depth.Add(1)
	return nil
}

func (c *Context) leave() {
	if c.depth.Add(-1) == 0 {
		c.unpin()
	}
}

// Execute runs source and converts its completion value.
func (c *Context) Execute(source string) (any, error) {
	return c.ExecuteNamed(source, anonymousResource)
}

// ExecuteNamed runs source with resourceName used in error locations.
func (c *Context) ExecuteNamed(source, resourceName string) (any, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	return c.FromJsValue(c.ec.Execute(source, resourceName))
}

// ExecuteScript runs a compiled script.
func (c *Context) ExecuteScript(s *engine.Script) (any, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	return c.FromJsValue(c.ec.Run(s))
}

// Compile compiles source against this context's engine.
func (c *Context) Compile(source, resourceName string) (*engine.Script, error) {
	return c.runtime.Compile(source, resourceName)
}

// SetVariable assigns a global.
func (c *Context) SetVariable(name string, value any) error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	r := c.ec.SetVariable(name, c.ToJsValue(value))
	if r.Kind().IsError() {
		return valueError(c, r)
	}
	return nil
}

// GetVariable reads a global. Missing globals read as nil.
func (c *Context) GetVariable(name string) (any, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	return c.FromJsValue(c.ec.GetVariable(name))
}

// Close unregisters the context from the engine and drops every kept value.
// Safe to call more than once.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.runtime.engine.Unregister(c.id)
	c.runtime.forget(c.id)

	c.pinnedMu.Lock()
	c.pinned = nil
	c.pinnedMu.Unlock()

	c.keep.Clear()
	err := c.keep.Close()
	c.log.Debug("context closed")
	return err
}

// keepAlive stores v and returns its host object id.
func (c *Context) keepAlive(v any) int32 {
	return int32(c.keep.Insert(resource.TypeHostObject, v))
}

func (c *Context) kept(id int32) (any, bool) {
	return c.keep.GetTyped(resource.Handle(id), resource.TypeHostObject)
}

func (c *Context) pin(id int32) {
	h := resource.Handle(id)
	if !c.keep.Retain(h) {
		return
	}
	c.pinnedMu.Lock()
	c.pinned = append(c.pinned, h)
	c.pinnedMu.Unlock()
}

func (c *Context) unpin() {
	c.pinnedMu.Lock()
	pinned := c.pinned
	c.pinned = nil
	c.pinnedMu.Unlock()
	for _, h := range pinned {
		c.keep.Release(h)
	}
}

func notFound(id int32) error {
	return errors.NotFound(errors.PhaseHost, "host object", strconv.Itoa(int(id)))
}
