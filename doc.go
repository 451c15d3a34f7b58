// Package jsbridge marshals values and object lifetimes between a JavaScript
// engine and a Go host.
//
// Values cross the boundary as tagged values (package jsvalue): a closed sum
// type of scalars, UTF-16 strings, arrays, flattened dictionaries, opaque
// engine handles, host object references and error records. Host objects
// handed to the engine become managed proxies that forward property access,
// enumeration, deletion, calls and primitive coercion back to the host.
//
// # Architecture Overview
//
//	jsbridge/            Root package with the Host contract and MarshalMode
//	├── jsvalue/         Tagged value protocol and flat wire codec
//	├── engine/          goja-backed engine, converters and managed proxies
//	├── runtime/         Host side: contexts, keep-alive store, Go conversion
//	├── resource/        Handle tables with observers and reference counts
//	├── errors/          Structured error types
//	└── cmd/jsbridge/    Sandbox CLI and interactive REPL
//
// # Quick Start
//
//	rt, err := runtime.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	ctx := rt.NewContext()
//	defer ctx.Close()
//
//	ctx.SetVariable("user", &User{Name: "ada"})
//	v, err := ctx.Execute(`user.Name.toUpperCase()`)
//	fmt.Println(v) // "ADA"
//
// # Identity
//
// A host object that travels into the engine and back is the same Go value,
// not a copy. This holds for errors too: a Go error thrown by a host method,
// propagated through script code and returned from Execute compares equal to
// the original error.
//
// # Thread Safety
//
// Every engine has a single execution lock. All conversions and proxy
// callbacks run on the goroutine holding it. Host callbacks may re-enter the
// engine from the same goroutine; other goroutines block until the lock is
// released.
package jsbridge
