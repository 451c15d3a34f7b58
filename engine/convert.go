package engine

import (
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/dop251/goja"

	jsbridge "github.com/wippyai/js-bridge"
	"github.com/wippyai/js-bridge/jsvalue"
	"github.com/wippyai/js-bridge/resource"
)

// FromEngine converts an engine value. receiver, when non-nil, is recorded
// as the bound receiver of a function value. The conversion never fails;
// unrecognized values become UnknownError.
func (c *Context) FromEngine(v goja.Value, receiver *goja.Object, mode jsbridge.MarshalMode) (result jsvalue.Value) {
	c.engine.lock.Lock()
	defer c.engine.lock.Unlock()
	defer c.guard(&result)
	return c.fromEngine(v, receiver, mode, nil)
}

// ArgumentsFrom converts a call's argument list to an Array. Function
// arguments are bound to receiver.
func (c *Context) ArgumentsFrom(args []goja.Value, receiver *goja.Object) jsvalue.Array {
	c.engine.lock.Lock()
	defer c.engine.lock.Unlock()
	return c.argumentsFrom(args, receiver)
}

func (c *Context) argumentsFrom(args []goja.Value, receiver *goja.Object) jsvalue.Array {
	mode := c.engine.cfg.MarshalMode
	out := make(jsvalue.Array, len(args))
	for i, a := range args {
		out[i] = c.fromEngine(a, receiver, mode, nil)
	}
	return out
}

// fromEngine converts v. path holds the objects being flattened above v in
// dictionary mode.
func (c *Context) fromEngine(v goja.Value, receiver *goja.Object, mode jsbridge.MarshalMode, path []*goja.Object) jsvalue.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return jsvalue.Null{}
	}

	switch x := v.(type) {
	case *goja.Object:
		return c.objectFromEngine(x, receiver, mode, path)
	case *goja.Symbol:
		return jsvalue.StringOf(x.String())
	case goja.String:
		units := make(jsvalue.String, x.Length())
		for i := range units {
			units[i] = x.CharAt(i)
		}
		return units
	}

	switch x := v.Export().(type) {
	case bool:
		return jsvalue.Bool(x)
	case int64:
		return numberValue(float64(x))
	case float64:
		return numberValue(x)
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return jsvalue.Number(f)
	}
	return jsvalue.UnknownError{Message: "unsupported engine value " + v.String()}
}

// maxArrayLength bounds the arrays converted element by element. A script
// can set length far beyond the elements it holds.
const maxArrayLength = 1 << 24

// numberValue classifies a double: int32 values (excluding -0) are Integer,
// uint32 values above the int32 range are Index, anything else is Number.
func numberValue(f float64) jsvalue.Value {
	if f == math.Trunc(f) {
		if f >= math.MinInt32 && f <= math.MaxInt32 && !(f == 0 && math.Signbit(f)) {
			return jsvalue.Integer(int32(f))
		}
		if f > math.MaxInt32 && f <= math.MaxUint32 {
			return jsvalue.Index(uint32(f))
		}
	}
	return jsvalue.Number(f)
}

func (c *Context) objectFromEngine(obj *goja.Object, receiver *goja.Object, mode jsbridge.MarshalMode, path []*goja.Object) jsvalue.Value {
	// A proxy is also callable, so the identity check comes first.
	if h := c.engine.proxies.lookup(obj); h != nil {
		return jsvalue.Managed(h.id)
	}

	switch obj.ClassName() {
	case "Date":
		if t, ok := obj.Export().(time.Time); ok {
			return jsvalue.Date(t.UnixMilli())
		}
		return jsvalue.Date(math.NaN())
	case "Array":
		n := obj.Get("length").ToInteger()
		if n > maxArrayLength {
			return jsvalue.UnknownError{Message: "array length " + strconv.FormatInt(n, 10) + " exceeds conversion limit"}
		}
		out := make(jsvalue.Array, n)
		for i := range out {
			out[i] = c.fromEngine(obj.Get(strconv.Itoa(i)), nil, mode, path)
		}
		return out
	}

	if _, ok := goja.AssertFunction(obj); ok {
		fn := jsvalue.Function{Callable: c.engine.newRef(c, resource.TypeEngineFunction, obj)}
		if receiver != nil {
			fn.Receiver = c.engine.newRef(c, resource.TypeEngineObject, receiver)
		}
		return fn
	}

	if mode == jsbridge.MarshalDictionary && !onPath(path, obj) {
		return c.dictFromEngine(obj, mode, append(path, obj))
	}
	return jsvalue.Wrapped{Ref: c.engine.newRef(c, resource.TypeEngineObject, obj)}
}

func (c *Context) dictFromEngine(obj *goja.Object, mode jsbridge.MarshalMode, path []*goja.Object) jsvalue.Value {
	keys := obj.Keys()
	out := make(jsvalue.Dict, len(keys))
	for i, k := range keys {
		out[i] = jsvalue.Pair{
			Key:   jsvalue.StringOf(k),
			Value: c.fromEngine(obj.Get(k), nil, mode, path),
		}
	}
	return out
}

func onPath(path []*goja.Object, obj *goja.Object) bool {
	for _, p := range path {
		if p == obj {
			return true
		}
	}
	return false
}
