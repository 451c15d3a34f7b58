package runtime

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
	"github.com/wippyai/js-bridge/resource"
)

// hostCall resolves objectID and runs fn against the kept value. A panic or
// error raised by fn is thrown back into the engine as a ManagedError that
// carries the original error value.
func (c *Context) hostCall(op string, objectID int32, fn func(v any) (jsvalue.Value, error)) (result jsvalue.Value) {
	defer func() {
		if r := recover(); r != nil {
			result = c.throw(op, panicError(r))
		}
	}()

	v, ok := c.kept(objectID)
	if !ok {
		return c.throw(op, notFound(objectID))
	}
	result, err := fn(v)
	if err != nil {
		return c.throw(op, err)
	}
	return result
}

func (c *Context) throw(op string, err error) jsvalue.Value {
	c.log.Debug("host operation failed", zap.String("op", op), zap.Error(err))
	id := c.keepAlive(err)
	c.pin(id)
	return jsvalue.ManagedError(id)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &errors.HostError{Value: r}
}

func (c *Context) GetPropertyValue(_, objectID int32, name string) jsvalue.Value {
	return c.hostCall("get", objectID, func(v any) (jsvalue.Value, error) {
		m, found, err := getMember(v, name)
		if err != nil || !found {
			return jsvalue.Empty{}, err
		}
		return c.ToJsValue(m), nil
	})
}

func (c *Context) SetPropertyValue(_, objectID int32, name string, value jsvalue.Value) jsvalue.Value {
	return c.hostCall("set", objectID, func(v any) (jsvalue.Value, error) {
		return jsvalue.Empty{}, setMember(v, name, c.fromValue(value))
	})
}

func (c *Context) DeleteProperty(_, objectID int32, name string) (deleted bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug("host delete failed", zap.String("name", name), zap.Any("panic", r))
			deleted = false
		}
	}()
	v, ok := c.kept(objectID)
	return ok && deleteMember(v, name)
}

func (c *Context) EnumerateProperties(_, objectID int32) (keys []string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug("host enumerate failed", zap.Any("panic", r))
			keys = nil
		}
	}()
	v, ok := c.kept(objectID)
	if !ok {
		return nil
	}
	return memberKeys(v)
}

func (c *Context) Invoke(_, objectID int32, args jsvalue.Array) jsvalue.Value {
	return c.hostCall("invoke", objectID, func(v any) (jsvalue.Value, error) {
		fn := reflect.ValueOf(v)
		if fn.Kind() != reflect.Func {
			return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
				GoType(fmt.Sprintf("%T", v)).
				Detail("host object is not callable").
				Build()
		}
		in := make([]any, len(args))
		for i, a := range args {
			in[i] = c.fromValue(a)
		}
		out, err := callFunc(fn, in)
		if err != nil {
			return nil, err
		}
		return c.ToJsValue(out), nil
	})
}

// GetValueOf returns the primitive form of a kept value: numbers, strings
// and booleans as themselves, Stringers through String, anything else
// through its default formatting.
func (c *Context) GetValueOf(_, objectID int32) jsvalue.Value {
	return c.hostCall("valueOf", objectID, func(v any) (jsvalue.Value, error) {
		rv := reflect.ValueOf(v)
		switch {
		case rv.Kind() == reflect.Bool, rv.Kind() == reflect.String, isNumber(rv.Kind()):
			return c.ToJsValue(v), nil
		}
		if s, ok := v.(fmt.Stringer); ok {
			return jsvalue.StringOf(s.String()), nil
		}
		if err, ok := v.(error); ok {
			return jsvalue.StringOf(err.Error()), nil
		}
		return jsvalue.StringOf(fmt.Sprint(v)), nil
	})
}

func (c *Context) Release(_, objectID int32) {
	c.keep.Release(resource.Handle(objectID))
}
