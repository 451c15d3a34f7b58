// Package runtime provides the high-level Go API over the script engine.
//
// # Quick Start
//
//	rt, err := runtime.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	ctx, err := rt.NewContext()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Expose a Go value
//	ctx.SetVariable("m", &Counter{})
//	ctx.Execute("m.value = 42; m.print('answer:')")
//
//	// Read results back
//	v, err := ctx.Execute("[1, 'two', new Date(0)]")
//	// v == []any{int32(1), "two", time.Unix(0, 0).UTC()}
//
// # Type Mapping
//
// Go values crossing into the engine:
//
//	Go Type                        Script Type
//	─────────────────────────────────────────────
//	nil                            null
//	bool                           boolean
//	int8..int32, uint8, uint16     number (integer)
//	uint32                         number (index)
//	int, int64, uint64, floats     number
//	string                         string
//	time.Time                      Date
//	[]T, [N]T                      Array
//	*Object, *Function             the original script object
//	anything else                  managed proxy
//
// Script values read back:
//
//	Script Type        Go Type
//	─────────────────────────────
//	null, undefined    nil
//	integer            int32
//	index              uint32
//	number             float64
//	string             string
//	Date               time.Time (UTC)
//	Array              []any
//	plain object       *Object, or map[string]any in dictionary mode
//	function           *Function
//	managed proxy      the original Go value
//
// # Managed Values
//
// Structs, pointers, maps and funcs cross as proxies. Property access on a
// proxy resolves, in order: methods (Go name, then lower camel case), struct
// fields (js tag, lower camel case, then Go name), map keys, and slice
// indexes plus length. Struct fields can only be assigned when the value was
// passed by pointer.
//
// Calling a proxied func converts each argument to the parameter type.
// A returned non-nil error, or a panic, is thrown as a script exception.
// If the script does not catch it, the same error value comes back out of
// Execute:
//
//	ctx.SetVariable("open", func(name string) (*File, error) { return nil, ErrNotFound })
//	_, err := ctx.Execute("open('x')")
//	// err == ErrNotFound
//
// # Thread Safety
//
// Runtime and Context are safe for concurrent use; execution is serialized
// by the engine. Host callbacks run on the goroutine that entered the engine
// and may call back into any Context.
//
// # Resource Management
//
// Object and Function hold engine handles. Dispose releases them early;
// otherwise they are released once garbage collected. Closing a Context
// releases every Go value the engine still references. A kept value that
// implements resource.Dropper has Drop called when the engine lets go of it.
package runtime
