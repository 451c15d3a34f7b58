package engine

import (
	"github.com/dop251/goja"

	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
	"github.com/wippyai/js-bridge/resource"
)

// Run executes a compiled script in the given context.
func (e *Engine) Run(contextID int32, s *Script) jsvalue.Value {
	c, err := e.context(contextID, errors.PhaseExecute)
	if err != nil {
		return errorValue(err)
	}
	return c.Run(s)
}

// Execute compiles and runs source in the given context.
func (e *Engine) Execute(contextID int32, source, resourceName string) jsvalue.Value {
	c, err := e.context(contextID, errors.PhaseExecute)
	if err != nil {
		return errorValue(err)
	}
	return c.Execute(source, resourceName)
}

// SetVariable assigns a global in the given context.
func (e *Engine) SetVariable(contextID int32, name string, tv jsvalue.Value) jsvalue.Value {
	c, err := e.context(contextID, errors.PhaseMaterialize)
	if err != nil {
		jsvalue.Dispose(tv)
		return errorValue(err)
	}
	return c.SetVariable(name, tv)
}

// GetVariable reads a global from the given context.
func (e *Engine) GetVariable(contextID int32, name string) jsvalue.Value {
	c, err := e.context(contextID, errors.PhaseConvert)
	if err != nil {
		return errorValue(err)
	}
	return c.GetVariable(name)
}

func (e *Engine) objectOp(h resource.Handle, phase errors.Phase, fn func(eo *engineObject) jsvalue.Value) (result jsvalue.Value) {
	if e.disposed.Load() {
		return disposedValue(phase, "engine")
	}
	e.lock.Lock()
	defer e.lock.Unlock()

	eo, ok := e.object(h)
	if !ok {
		return disposedValue(phase, "handle")
	}
	defer eo.ctx.guard(&result)
	return fn(eo)
}

// GetProperty reads a property of a wrapped object. Functions read this way
// carry the object as their receiver.
func (e *Engine) GetProperty(h resource.Handle, name string) jsvalue.Value {
	return e.objectOp(h, errors.PhaseConvert, func(eo *engineObject) jsvalue.Value {
		return eo.ctx.fromEngine(eo.obj.Get(name), eo.obj, e.cfg.MarshalMode, nil)
	})
}

// SetProperty assigns a property of a wrapped object. The value is consumed.
func (e *Engine) SetProperty(h resource.Handle, name string, tv jsvalue.Value) jsvalue.Value {
	defer jsvalue.Dispose(tv)
	return e.objectOp(h, errors.PhaseMaterialize, func(eo *engineObject) jsvalue.Value {
		v := eo.ctx.toEngine(tv)
		if v == nil {
			v = goja.Undefined()
		}
		if err := eo.obj.Set(name, v); err != nil {
			return eo.ctx.errorFrom(err, e.cfg.MarshalMode)
		}
		return jsvalue.Empty{}
	})
}

// InvokeProperty calls obj[name](...args) with obj as the receiver.
func (e *Engine) InvokeProperty(h resource.Handle, name string, args jsvalue.Value) jsvalue.Value {
	return e.objectOp(h, errors.PhaseExecute, func(eo *engineObject) jsvalue.Value {
		fn, ok := goja.AssertFunction(eo.obj.Get(name))
		if !ok {
			jsvalue.Dispose(args)
			return errorValue(errors.New(errors.PhaseExecute, errors.KindTypeMismatch).
				Path(name).
				JSType("non-callable").
				Detail("property is not a function").
				Build())
		}
		return eo.ctx.call(fn, eo.obj, args)
	})
}

// PropertyNames lists the own enumerable keys of a wrapped object.
func (e *Engine) PropertyNames(h resource.Handle) jsvalue.Value {
	return e.objectOp(h, errors.PhaseConvert, func(eo *engineObject) jsvalue.Value {
		keys := eo.obj.Keys()
		out := make(jsvalue.Array, len(keys))
		for i, k := range keys {
			out[i] = jsvalue.StringOf(k)
		}
		return out
	})
}

// Call invokes a function value. The receiver bound at conversion time is
// used as this; an unbound function is called with undefined.
func (e *Engine) Call(fn jsvalue.Function, args jsvalue.Value) jsvalue.Value {
	return e.objectOp(fn.Callable.Handle(), errors.PhaseExecute, func(eo *engineObject) jsvalue.Value {
		callable, ok := goja.AssertFunction(eo.obj)
		if !ok {
			jsvalue.Dispose(args)
			return errorValue(errors.TypeMismatch(errors.PhaseExecute, nil, "", eo.obj.ClassName()))
		}
		var this goja.Value = goja.Undefined()
		if fn.Receiver != nil {
			recv, ok := e.object(fn.Receiver.Handle())
			if ok && recv.ctx == eo.ctx {
				this = recv.obj
			}
		}
		return eo.ctx.call(callable, this, args)
	})
}
