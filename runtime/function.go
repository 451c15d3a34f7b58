package runtime

import (
	goruntime "runtime"
	"sync/atomic"

	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
)

// Function is a script function, optionally bound to the receiver it was
// read from.
type Function struct {
	ctx      *Context
	fn       jsvalue.Function
	disposed atomic.Bool
}

func newFunction(c *Context, fn jsvalue.Function) *Function {
	f := &Function{ctx: c, fn: fn}
	goruntime.AddCleanup(f, func(fn jsvalue.Function) { jsvalue.Dispose(fn) }, fn)
	return f
}

// Bound reports whether the function carries a receiver.
func (f *Function) Bound() bool {
	return f.fn.Receiver != nil
}

func (f *Function) value() jsvalue.Value {
	if f.disposed.Load() {
		return jsvalue.Null{}
	}
	callable := f.fn.Callable.Clone()
	if callable == nil {
		return jsvalue.Null{}
	}
	return jsvalue.Function{Callable: callable, Receiver: f.fn.Receiver.Clone()}
}

// Call invokes the function with args.
func (f *Function) Call(args ...any) (any, error) {
	if err := f.ctx.enter(); err != nil {
		return nil, err
	}
	defer f.ctx.leave()
	if f.disposed.Load() {
		return nil, errors.Disposed(errors.PhaseExecute, "function")
	}
	return f.ctx.FromJsValue(f.ctx.runtime.engine.Call(f.fn, f.ctx.arguments(args)))
}

// Dispose releases the function and its receiver. Safe to call more than
// once.
func (f *Function) Dispose() {
	if f.disposed.CompareAndSwap(false, true) {
		jsvalue.Dispose(f.fn)
	}
}
