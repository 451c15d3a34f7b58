package jsvalue

import (
	"math"
	"time"
	"unicode/utf16"
)

// Value is a tagged value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	// Length is the wire length field: code units, element or pair count,
	// or host object id, depending on the kind.
	Length() int32
	isValue()
}

// Empty is the "no value" marker, used to omit an argument or field.
type Empty struct{}

// Null stands for both null and undefined.
type Null struct{}

type Bool bool

type Integer int32

// Index is an unsigned 32-bit integer, kept apart from Integer because hosts
// often have a distinct unsigned type for it.
type Index uint32

type Number float64

// String holds UTF-16 code units verbatim, including unpaired surrogates.
type String []uint16

// Date is milliseconds since the Unix epoch.
type Date float64

type Array []Value

// Pair is one key/value entry of a flattened dictionary.
type Pair struct {
	Key   Value
	Value Value
}

// Dict is an object flattened to its own enumerable properties, in the
// engine's enumeration order.
type Dict []Pair

// Wrapped is an opaque handle to an engine object.
type Wrapped struct {
	Ref *Ref
}

// Function is a callable engine object together with the receiver it was
// read from. Receiver is nil when the function was not bound.
type Function struct {
	Callable *Ref
	Receiver *Ref
}

// Managed references a host object by id.
type Managed int32

// ErrorDetail describes an exception raised by script code.
type ErrorDetail struct {
	Resource    Value
	Message     Value
	Constructor Value
	Exception   Value
	Line        int32
	Column      int32
}

// ManagedError is a host object that was thrown through the engine.
type ManagedError int32

// UnknownError reports a failure with no recognizable exception state.
type UnknownError struct {
	Message string
}

func (Empty) Kind() Kind        { return KindEmpty }
func (Null) Kind() Kind         { return KindNull }
func (Bool) Kind() Kind         { return KindBoolean }
func (Integer) Kind() Kind      { return KindInteger }
func (Index) Kind() Kind        { return KindIndex }
func (Number) Kind() Kind       { return KindNumber }
func (String) Kind() Kind       { return KindString }
func (Date) Kind() Kind         { return KindDate }
func (Array) Kind() Kind        { return KindArray }
func (Dict) Kind() Kind         { return KindDict }
func (Wrapped) Kind() Kind      { return KindWrapped }
func (Function) Kind() Kind     { return KindFunction }
func (Managed) Kind() Kind      { return KindManaged }
func (*ErrorDetail) Kind() Kind { return KindError }
func (ManagedError) Kind() Kind { return KindManagedError }
func (UnknownError) Kind() Kind { return KindUnknownError }

func (Empty) Length() int32          { return 0 }
func (Null) Length() int32           { return 0 }
func (Bool) Length() int32           { return 0 }
func (Integer) Length() int32        { return 0 }
func (Index) Length() int32          { return 0 }
func (Number) Length() int32         { return 0 }
func (s String) Length() int32       { return int32(len(s)) }
func (Date) Length() int32           { return 0 }
func (a Array) Length() int32        { return int32(len(a)) }
func (d Dict) Length() int32         { return int32(len(d)) }
func (Wrapped) Length() int32        { return 0 }
func (Function) Length() int32       { return 0 }
func (m Managed) Length() int32      { return int32(m) }
func (*ErrorDetail) Length() int32   { return 0 }
func (m ManagedError) Length() int32 { return int32(m) }
func (UnknownError) Length() int32   { return 0 }

func (Empty) isValue()        {}
func (Null) isValue()         {}
func (Bool) isValue()         {}
func (Integer) isValue()      {}
func (Index) isValue()        {}
func (Number) isValue()       {}
func (String) isValue()       {}
func (Date) isValue()         {}
func (Array) isValue()        {}
func (Dict) isValue()         {}
func (Wrapped) isValue()      {}
func (Function) isValue()     {}
func (Managed) isValue()      {}
func (*ErrorDetail) isValue() {}
func (ManagedError) isValue() {}
func (UnknownError) isValue() {}

// StringOf encodes s as UTF-16.
func StringOf(s string) String {
	return String(utf16.Encode([]rune(s)))
}

// String decodes the code units. Unpaired surrogates become U+FFFD.
func (s String) String() string {
	return string(utf16.Decode(s))
}

// DateOf converts t to epoch milliseconds.
func DateOf(t time.Time) Date {
	return Date(t.UnixMilli())
}

// Time converts d back to a UTC time. Invalid dates (NaN) yield the zero time.
func (d Date) Time() time.Time {
	if math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
		return time.Time{}
	}
	return time.UnixMilli(int64(d)).UTC()
}

// Flatten returns the dictionary as alternating key/value slots.
func (d Dict) Flatten() []Value {
	out := make([]Value, 0, 2*len(d))
	for _, p := range d {
		out = append(out, p.Key, p.Value)
	}
	return out
}

// Get returns the value for a string key.
func (d Dict) Get(key string) (Value, bool) {
	for _, p := range d {
		if k, ok := p.Key.(String); ok && k.String() == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Error formats the detail the way script engines print uncaught exceptions.
func (e *ErrorDetail) Error() string {
	if s, ok := e.Message.(String); ok && len(s) > 0 {
		return s.String()
	}
	if s, ok := e.Exception.(String); ok {
		return s.String()
	}
	return "script error"
}

// Text returns v as a Go string when it is a String, "" otherwise.
func Text(v Value) string {
	if s, ok := v.(String); ok {
		return s.String()
	}
	return ""
}

// OrEmpty maps a nil interface to Empty.
func OrEmpty(v Value) Value {
	if v == nil {
		return Empty{}
	}
	return v
}
