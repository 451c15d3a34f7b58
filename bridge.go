package jsbridge

import (
	"fmt"

	"github.com/wippyai/js-bridge/jsvalue"
)

// Host answers requests that managed proxies forward out of the engine.
// Every operation is keyed by the context the proxy was materialized in and
// the host object id it wraps.
//
// Values passed in to SetPropertyValue and Invoke are owned by the host, which
// disposes them (jsvalue.Dispose) once it no longer needs them.
//
// Implementations report failures by returning a jsvalue.ManagedError (or a
// *jsvalue.ErrorDetail); the engine re-throws it as a script exception.
type Host interface {
	GetPropertyValue(contextID, objectID int32, name string) jsvalue.Value
	SetPropertyValue(contextID, objectID int32, name string, value jsvalue.Value) jsvalue.Value
	DeleteProperty(contextID, objectID int32, name string) bool
	EnumerateProperties(contextID, objectID int32) []string
	Invoke(contextID, objectID int32, args jsvalue.Array) jsvalue.Value
	GetValueOf(contextID, objectID int32) jsvalue.Value

	// Release is called exactly once per proxy, when the engine no longer
	// references it.
	Release(contextID, objectID int32)
}

// MarshalMode selects how plain engine objects leave the engine.
type MarshalMode uint8

const (
	// MarshalHandle defers objects behind an opaque engine handle.
	MarshalHandle MarshalMode = iota
	// MarshalDictionary flattens own enumerable properties eagerly.
	MarshalDictionary
)

func (m MarshalMode) String() string {
	switch m {
	case MarshalHandle:
		return "handle"
	case MarshalDictionary:
		return "dictionary"
	default:
		return fmt.Sprintf("MarshalMode(%d)", uint8(m))
	}
}

// ParseMarshalMode accepts "handle" or "dictionary" (and the short forms
// "h", "dict", "d").
func ParseMarshalMode(s string) (MarshalMode, error) {
	switch s {
	case "handle", "h", "transparent":
		return MarshalHandle, nil
	case "dictionary", "dict", "d":
		return MarshalDictionary, nil
	}
	return 0, fmt.Errorf("unknown marshal mode %q", s)
}
