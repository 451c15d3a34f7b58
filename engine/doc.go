// Package engine embeds a JavaScript engine and converts values across the
// boundary between it and a host.
//
// The engine is backed by goja. Each registered context owns one goja
// runtime; all contexts of an Engine share a single re-entrant execution
// lock, so at most one goroutine touches any of their heaps at a time while
// host callbacks may call back into the engine on the same goroutine.
//
// # Architecture
//
//	Engine
//	├── Context (one per contextID, bound to a jsbridge.Host)
//	│   ├── goja.Runtime
//	│   └── proxy prototype (valueOf hook)
//	├── handle table (engine objects, functions, scripts)
//	└── proxy side table (weak proxy → holder)
//
// # Conversions
//
// FromEngine turns a goja value into a jsvalue.Value and ToEngine does the
// reverse. Conversions never fail with a Go error; failures are reported
// through the error kinds of jsvalue. Only the boundary operations (Compile,
// Run, Execute, Call and friends) inspect pending exceptions.
//
//	goja value              jsvalue
//	──────────────────────────────────────────────
//	null, undefined         Null
//	boolean                 Boolean
//	int32 number            Integer
//	uint32 number > int32   Index
//	other number            Number
//	string                  String (UTF-16 verbatim)
//	Date                    Date
//	Array                   Array
//	managed proxy           Managed (checked first)
//	function                Function
//	other object            Wrapped or Dict, by MarshalMode
//
// # Managed Proxies
//
// A Managed or ManagedError value becomes a goja Proxy whose traps forward
// property get, set, delete, enumeration and calls to the host. Proxies are
// tracked in a weak side table. When goja drops a proxy, a runtime cleanup
// releases the host reference exactly once. Detach releases it eagerly.
//
// # Usage
//
//	eng, err := engine.New(engine.WithConsole(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Dispose()
//
//	ctx, err := eng.Register(1, host)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v := ctx.Execute("1 + 2", "sum.js") // jsvalue.Integer(3)
package engine
