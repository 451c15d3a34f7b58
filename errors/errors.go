package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConvert     Phase = "convert"     // engine to tagged value
	PhaseMaterialize Phase = "materialize" // tagged value to engine
	PhaseCompile     Phase = "compile"     // script compilation
	PhaseExecute     Phase = "execute"     // script execution
	PhaseHost        Phase = "host"        // host collaborator callbacks
	PhaseDispose     Phase = "dispose"     // handle and engine teardown
	PhaseEncode      Phase = "encode"      // tagged value to wire bytes
	PhaseDecode      Phase = "decode"      // wire bytes to tagged value
)

// Kind categorizes the error
type Kind string

const (
	KindHostOriginated       Kind = "host_originated"
	KindEngine               Kind = "engine"
	KindUnknown              Kind = "unknown"
	KindInvalidArgumentShape Kind = "invalid_argument_shape"
	KindDisposed             Kind = "disposed"
	KindNotFound             Kind = "not_found"
	KindInvalidInput         Kind = "invalid_input"
	KindTypeMismatch         Kind = "type_mismatch"
	KindOutOfBounds          Kind = "out_of_bounds"
	KindInvalidData          Kind = "invalid_data"
	KindUnsupported          Kind = "unsupported"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	JSType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.JSType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.JSType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", JS type ")
			b.WriteString(e.JSType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("JS type ")
			b.WriteString(e.JSType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.JSType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the property path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// JSType sets the JS type name
func (b *Builder) JSType(t string) *Builder {
	b.err.JSType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidArgumentShape reports an argument list that is not an array
func InvalidArgumentShape(gotKind string) *Error {
	return &Error{
		Phase:  PhaseMaterialize,
		Kind:   KindInvalidArgumentShape,
		JSType: gotKind,
		Detail: "argument list must be an array",
	}
}

// Unknown creates an error for a failure with no recognizable exception state
func Unknown(phase Phase, reason string) *Error {
	if reason == "" {
		reason = "unknown error without reason"
	}
	return &Error{
		Phase:  phase,
		Kind:   KindUnknown,
		Detail: reason,
	}
}

// Disposed creates an error for use of a released engine, context or handle
func Disposed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDisposed,
		Detail: fmt.Sprintf("%s already disposed", what),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, jsType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		JSType: jsType,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ScriptError is an exception raised by script code.
type ScriptError struct {
	// Value is the thrown value converted to Go.
	Value       any
	Resource    string
	Message     string
	Constructor string
	Line        int
	Column      int
}

func (e *ScriptError) Error() string {
	var b strings.Builder
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Constructor != "":
		b.WriteString(e.Constructor)
	default:
		b.WriteString("script error")
	}
	if e.Resource != "" || e.Line > 0 {
		b.WriteString(" (")
		if e.Resource != "" {
			b.WriteString(e.Resource)
		} else {
			b.WriteString("<anonymous>")
		}
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// Is reports whether target is the engine kind marker.
func (e *ScriptError) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == KindEngine
	}
	_, ok := target.(*ScriptError)
	return ok
}

// HostError carries a host value that was thrown through the engine but does
// not implement error itself.
type HostError struct {
	Value any
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host exception: %v", e.Value)
}

// Is reports whether target is the host-originated kind marker.
func (e *HostError) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == KindHostOriginated
	}
	_, ok := target.(*HostError)
	return ok
}

// Sentinels for errors.Is matching by kind alone.
var (
	ErrEngine               = &Error{Kind: KindEngine}
	ErrHostOriginated       = &Error{Kind: KindHostOriginated}
	ErrUnknown              = &Error{Kind: KindUnknown}
	ErrInvalidArgumentShape = &Error{Kind: KindInvalidArgumentShape}
	ErrDisposed             = &Error{Kind: KindDisposed}
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }
