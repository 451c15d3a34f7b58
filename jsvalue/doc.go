// Package jsvalue defines the tagged value protocol used to move values
// between the engine and the host.
//
// A Value is a closed sum type. Each Kind has exactly one concrete payload
// type, so the compiler rules out reading the wrong arm:
//
//	Kind          Go type          Length()
//	──────────────────────────────────────────────────────
//	Empty         Empty            0
//	Null          Null             0
//	Boolean       Bool             0
//	Integer       Integer          0
//	Index         Index            0
//	Number        Number           0
//	String        String           UTF-16 code units
//	Date          Date             0
//	Array         Array            element count
//	Dict          Dict             key/value pair count
//	Wrapped       Wrapped          0
//	Function      Function         0
//	Managed       Managed          host object id
//	Error         *ErrorDetail     0
//	ManagedError  ManagedError     host object id
//	UnknownError  UnknownError     0
//
// # Ownership
//
// Strings, arrays and error records are plain Go values. Engine objects are
// carried by *Ref, a single-owner handle: whoever receives a value owns its
// refs and calls Dispose (or Ref.Dispose) once it has copied what it needs.
// Dispose is idempotent.
//
// # Wire Format
//
// Marshal flattens a value into the fixed 16-byte slot layout
//
//	┌──────────┬──────────┬───────────────────┐
//	│ kind i32 │ len  i32 │ payload (8 bytes) │
//	└──────────┴──────────┴───────────────────┘
//
// with strings, nested slot arrays and error records stored out of line and
// addressed by byte offset. Unmarshal rebuilds refs against an Owner.
package jsvalue
