package runtime

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
)

var timeType = reflect.TypeFor[time.Time]()

// ToJsValue converts a Go value for the engine. Values with no direct
// script counterpart (structs, pointers, maps, funcs, errors) are kept
// alive in the context and cross as managed references.
func (c *Context) ToJsValue(v any) jsvalue.Value {
	switch x := v.(type) {
	case nil:
		return jsvalue.Null{}
	case jsvalue.Value:
		return x
	case *Object:
		if x == nil {
			return jsvalue.Null{}
		}
		return x.value()
	case *Function:
		if x == nil {
			return jsvalue.Null{}
		}
		return x.value()
	case time.Time:
		return jsvalue.DateOf(x)
	case string:
		return jsvalue.StringOf(x)
	case []uint16:
		return jsvalue.String(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return jsvalue.Bool(rv.Bool())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		if rv.CanInt() {
			return jsvalue.Integer(int32(rv.Int()))
		}
		return jsvalue.Integer(int32(rv.Uint()))
	case reflect.Int:
		n := rv.Int()
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return jsvalue.Integer(int32(n))
		}
		return jsvalue.Number(float64(n))
	case reflect.Uint32:
		return jsvalue.Index(uint32(rv.Uint()))
	case reflect.Int64:
		return jsvalue.Number(float64(rv.Int()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return jsvalue.Number(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return jsvalue.Number(rv.Float())
	case reflect.String:
		return jsvalue.StringOf(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return jsvalue.Null{}
		}
		out := make(jsvalue.Array, rv.Len())
		for i := range out {
			out[i] = c.ToJsValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Pointer, reflect.Map, reflect.Func:
		if rv.IsNil() {
			return jsvalue.Null{}
		}
	}
	if rv.Type().ConvertibleTo(timeType) && rv.Kind() == reflect.Struct {
		return jsvalue.DateOf(rv.Convert(timeType).Interface().(time.Time))
	}
	return jsvalue.Managed(c.keepAlive(v))
}

// FromJsValue converts an engine value to Go. The value is consumed: engine
// handles it carries move into the returned *Object and *Function values.
// Error kinds are returned as the error.
func (c *Context) FromJsValue(v jsvalue.Value) (any, error) {
	if v != nil && v.Kind().IsError() {
		return nil, valueError(c, v)
	}
	return c.fromValue(v), nil
}

// fromValue converts v, returning nested error kinds as error values.
func (c *Context) fromValue(v jsvalue.Value) any {
	switch x := v.(type) {
	case nil, jsvalue.Empty, jsvalue.Null:
		return nil
	case jsvalue.Bool:
		return bool(x)
	case jsvalue.Integer:
		return int32(x)
	case jsvalue.Index:
		return uint32(x)
	case jsvalue.Number:
		return float64(x)
	case jsvalue.String:
		return x.String()
	case jsvalue.Date:
		return x.Time()
	case jsvalue.Array:
		return lo.Map(x, func(e jsvalue.Value, _ int) any {
			return c.fromValue(e)
		})
	case jsvalue.Dict:
		out := make(map[string]any, len(x))
		for _, p := range x {
			out[keyText(p.Key)] = c.fromValue(p.Value)
		}
		return out
	case jsvalue.Wrapped:
		if c == nil {
			x.Ref.Dispose()
			return nil
		}
		return newObject(c, x.Ref)
	case jsvalue.Function:
		if c == nil {
			jsvalue.Dispose(x)
			return nil
		}
		return newFunction(c, x)
	case jsvalue.Managed:
		if c == nil {
			return nil
		}
		kept, _ := c.kept(int32(x))
		return kept
	default:
		return valueError(c, v)
	}
}

// valueError converts an error kind to a Go error.
func valueError(c *Context, v jsvalue.Value) error {
	switch x := v.(type) {
	case jsvalue.ManagedError:
		var kept any
		if c != nil {
			kept, _ = c.kept(int32(x))
		}
		if err, ok := kept.(error); ok {
			return err
		}
		return &errors.HostError{Value: kept}
	case *jsvalue.ErrorDetail:
		if x == nil {
			return errors.Unknown(errors.PhaseExecute, "")
		}
		return &errors.ScriptError{
			Value:       c.fromValue(x.Exception),
			Resource:    jsvalue.Text(x.Resource),
			Message:     jsvalue.Text(x.Message),
			Constructor: jsvalue.Text(x.Constructor),
			Line:        int(x.Line),
			Column:      int(x.Column),
		}
	case jsvalue.UnknownError:
		return errors.Unknown(errors.PhaseExecute, x.Message)
	}
	return errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
		JSType(v.Kind().String()).
		Detail("not an error value").
		Build()
}

func keyText(k jsvalue.Value) string {
	switch x := k.(type) {
	case jsvalue.String:
		return x.String()
	case jsvalue.Integer:
		return strconv.FormatInt(int64(x), 10)
	case jsvalue.Index:
		return strconv.FormatUint(uint64(x), 10)
	}
	return fmt.Sprint(k)
}
