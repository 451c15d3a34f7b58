// Package errors provides structured error types for the js-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries a property path, the Go and JS type names
// involved, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMaterialize, errors.KindInvalidArgumentShape).
//		GoType("jsvalue.String").
//		JSType("Array").
//		Detail("argument list must be an array").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidArgumentShape("string")
//	err := errors.Disposed(errors.PhaseExecute, "engine")
//
// Script failures surfaced at the execution boundary use two dedicated types:
//
//	*ScriptError  an exception raised by script code, with location and value
//	*HostError    a host value (not a Go error) thrown through the engine
//
// A host-originated Go error is returned unchanged, never wrapped, so callers
// can compare it by identity.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
