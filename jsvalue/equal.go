package jsvalue

import "math"

// Equal reports structural equality. Numbers and dates compare by bit
// pattern, so NaN equals NaN and 0 differs from -0. Refs compare by handle.
func Equal(a, b Value) bool {
	a, b = OrEmpty(a), OrEmpty(b)
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Empty, Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Integer:
		return x == b.(Integer)
	case Index:
		return x == b.(Index)
	case Number:
		return math.Float64bits(float64(x)) == math.Float64bits(float64(b.(Number)))
	case Date:
		return math.Float64bits(float64(x)) == math.Float64bits(float64(b.(Date)))
	case String:
		y := b.(String)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Dict:
		y := b.(Dict)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i].Key, y[i].Key) || !Equal(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	case Wrapped:
		return x.Ref.Handle() == b.(Wrapped).Ref.Handle()
	case Function:
		y := b.(Function)
		return x.Callable.Handle() == y.Callable.Handle() && x.Receiver.Handle() == y.Receiver.Handle()
	case Managed:
		return x == b.(Managed)
	case ManagedError:
		return x == b.(ManagedError)
	case UnknownError:
		return x == b.(UnknownError)
	case *ErrorDetail:
		y := b.(*ErrorDetail)
		if x == nil || y == nil {
			return x == y
		}
		return x.Line == y.Line && x.Column == y.Column &&
			Equal(x.Resource, y.Resource) && Equal(x.Message, y.Message) &&
			Equal(x.Constructor, y.Constructor) && Equal(x.Exception, y.Exception)
	}
	return false
}
