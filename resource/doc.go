// Package resource provides handle tables for values that cross the engine
// boundary.
//
// A table maps small integer handles to Go values. The engine keeps one for
// engine objects and compiled scripts handed to the host; every host context
// keeps one as the keep-alive store for host objects referenced by managed
// proxies inside the engine.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle with one reference
//	h := table.Insert(resource.TypeHostObject, obj)
//
//	// Retrieve value by handle
//	value, ok := table.Get(h)
//
//	// Take and drop references
//	table.Retain(h)
//	table.Release(h) // still alive
//	table.Release(h) // dropped
//
// # Type Safety
//
// Handles are typed. Each kind of stored value gets a type ID:
//
//	value, ok := table.GetTyped(h, resource.TypeHostObject) // ok
//	value, ok := table.GetTyped(h, resource.TypeScript)     // !ok
//
// # Observers
//
// Register observers to track handle lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventDropped {
//	        log.Printf("handle %d dropped", e.Handle)
//	    }
//	}))
//
// # Memory Management
//
// Handles keep their values reachable until released. Values implementing
// Dropper are notified when their last reference goes away or the table is
// closed.
package resource
