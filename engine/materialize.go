package engine

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
)

// ToEngine materializes tv in the given context. The value is consumed.
// Empty yields nil, the "no value" marker; callers omit the slot.
func (e *Engine) ToEngine(tv jsvalue.Value, contextID int32) goja.Value {
	c, err := e.context(contextID, errors.PhaseMaterialize)
	if err != nil {
		jsvalue.Dispose(tv)
		return nil
	}
	return c.ToEngine(tv)
}

// ToEngine materializes tv. The value is consumed.
func (c *Context) ToEngine(tv jsvalue.Value) goja.Value {
	c.engine.lock.Lock()
	defer c.engine.lock.Unlock()
	defer jsvalue.Dispose(tv)
	return c.toEngine(tv)
}

// ArgumentList materializes an Array into out and returns the count.
// Empty elements become undefined.
func (c *Context) ArgumentList(tv jsvalue.Value, out []goja.Value) (int, error) {
	c.engine.lock.Lock()
	defer c.engine.lock.Unlock()
	defer jsvalue.Dispose(tv)
	return c.argumentList(tv, out)
}

// ArgumentList materializes an argument Array in the given context.
func (e *Engine) ArgumentList(tv jsvalue.Value, contextID int32, out []goja.Value) (int, error) {
	c, err := e.context(contextID, errors.PhaseMaterialize)
	if err != nil {
		jsvalue.Dispose(tv)
		return 0, err
	}
	return c.ArgumentList(tv, out)
}

func (c *Context) argumentList(tv jsvalue.Value, out []goja.Value) (int, error) {
	arr, ok := tv.(jsvalue.Array)
	if !ok {
		return 0, errors.InvalidArgumentShape(jsvalue.OrEmpty(tv).Kind().String())
	}
	if len(arr) > len(out) {
		return 0, errors.OutOfBounds(errors.PhaseMaterialize, []string{"args"}, len(arr), len(out))
	}
	for i, el := range arr {
		v := c.toEngine(el)
		if v == nil {
			v = goja.Undefined()
		}
		out[i] = v
	}
	return len(arr), nil
}

// toEngine does not dispose refs; the public entry points do.
func (c *Context) toEngine(tv jsvalue.Value) goja.Value {
	switch x := tv.(type) {
	case nil, jsvalue.Empty:
		return nil
	case jsvalue.Null:
		return goja.Null()
	case jsvalue.Bool:
		return c.rt.ToValue(bool(x))
	case jsvalue.Integer:
		return c.rt.ToValue(int64(x))
	case jsvalue.Index:
		return c.rt.ToValue(int64(x))
	case jsvalue.Number:
		return c.rt.ToValue(float64(x))
	case jsvalue.String:
		return goja.StringFromUTF16(x)
	case jsvalue.Date:
		d, err := c.rt.New(c.dateCtor, c.rt.ToValue(float64(x)))
		if err != nil {
			return goja.Null()
		}
		return d
	case jsvalue.Array:
		items := make([]any, len(x))
		for i, el := range x {
			v := c.toEngine(el)
			if v == nil {
				v = goja.Undefined()
			}
			items[i] = v
		}
		return c.rt.NewArray(items...)
	case jsvalue.Dict:
		obj := c.rt.NewObject()
		for _, p := range x {
			v := c.toEngine(p.Value)
			if v == nil {
				v = goja.Undefined()
			}
			_ = obj.Set(c.keyString(p.Key), v)
		}
		return obj
	case jsvalue.Wrapped:
		return c.handleObject(x.Ref)
	case jsvalue.Function:
		return c.handleObject(x.Callable)
	case jsvalue.Managed:
		return c.newProxy(int32(x))
	case jsvalue.ManagedError:
		return c.newProxy(int32(x))
	case *jsvalue.ErrorDetail:
		return c.errorObject(x)
	}
	return goja.Null()
}

func (c *Context) keyString(k jsvalue.Value) string {
	if s, ok := k.(jsvalue.String); ok {
		return s.String()
	}
	v := c.toEngine(k)
	if v == nil {
		return "undefined"
	}
	return v.String()
}

// handleObject returns the engine object behind a ref, or null when the
// handle is gone or belongs to another context.
func (c *Context) handleObject(r *jsvalue.Ref) goja.Value {
	eo, ok := c.engine.object(r.Handle())
	if !ok || eo.ctx != c {
		return goja.Null()
	}
	return eo.obj
}

func (c *Context) errorObject(d *jsvalue.ErrorDetail) goja.Value {
	if d == nil {
		return goja.Null()
	}
	msg := strings.TrimPrefix(jsvalue.Text(d.Message), uncaughtPrefix)
	if ex, ok := d.Exception.(jsvalue.String); ok && len(ex) > 0 {
		msg = ex.String()
	}
	obj, err := c.rt.New(c.errorCtor, c.rt.ToValue(msg))
	if err != nil {
		return goja.Null()
	}
	if d.Exception != nil {
		if _, empty := d.Exception.(jsvalue.Empty); !empty {
			if v := c.toEngine(d.Exception); v != nil {
				_ = obj.Set("exception", v)
			}
		}
	}
	if d.Line > 0 {
		_ = obj.Set("lineNumber", int64(d.Line))
		_ = obj.Set("columnNumber", int64(d.Column))
	}
	if name := jsvalue.Text(d.Resource); name != "" {
		_ = obj.Set("fileName", name)
	}
	return obj
}
