package runtime

import (
	goruntime "runtime"
	"sync/atomic"

	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
	"github.com/wippyai/js-bridge/resource"
)

// Object is a script object held by handle. The handle is released by
// Dispose, or by the garbage collector once the Object is unreachable.
type Object struct {
	ctx      *Context
	ref      *jsvalue.Ref
	disposed atomic.Bool
}

func newObject(c *Context, ref *jsvalue.Ref) *Object {
	o := &Object{ctx: c, ref: ref}
	goruntime.AddCleanup(o, (*jsvalue.Ref).Dispose, ref)
	return o
}

// Handle returns the engine handle, 0 once disposed.
func (o *Object) Handle() resource.Handle {
	if o.disposed.Load() {
		return 0
	}
	return o.ref.Handle()
}

func (o *Object) value() jsvalue.Value {
	if o.disposed.Load() {
		return jsvalue.Null{}
	}
	r := o.ref.Clone()
	if r == nil {
		return jsvalue.Null{}
	}
	return jsvalue.Wrapped{Ref: r}
}

func (o *Object) call(fn func() jsvalue.Value) (any, error) {
	if err := o.ctx.enter(); err != nil {
		return nil, err
	}
	defer o.ctx.leave()
	return o.ctx.FromJsValue(fn())
}

// Get reads a property. Functions come back bound to the object.
func (o *Object) Get(name string) (any, error) {
	return o.call(func() jsvalue.Value {
		return o.ctx.runtime.engine.GetProperty(o.Handle(), name)
	})
}

// Set assigns a property.
func (o *Object) Set(name string, value any) error {
	_, err := o.call(func() jsvalue.Value {
		return o.ctx.runtime.engine.SetProperty(o.Handle(), name, o.ctx.ToJsValue(value))
	})
	return err
}

// Invoke calls the method name with the object as receiver.
func (o *Object) Invoke(name string, args ...any) (any, error) {
	return o.call(func() jsvalue.Value {
		return o.ctx.runtime.engine.InvokeProperty(o.Handle(), name, o.ctx.arguments(args))
	})
}

// Keys lists the object's own enumerable property names.
func (o *Object) Keys() ([]string, error) {
	v, err := o.call(func() jsvalue.Value {
		return o.ctx.runtime.engine.PropertyNames(o.Handle())
	})
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseConvert, nil, "[]any", "")
	}
	keys := make([]string, 0, len(items))
	for _, k := range items {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}

// Dispose releases the handle. Safe to call more than once.
func (o *Object) Dispose() {
	if o.disposed.CompareAndSwap(false, true) {
		o.ref.Dispose()
	}
}

func (c *Context) arguments(args []any) jsvalue.Array {
	out := make(jsvalue.Array, len(args))
	for i, a := range args {
		out[i] = c.ToJsValue(a)
	}
	return out
}
