package resource

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Type IDs for values stored by the bridge.
const (
	TypeHostObject uint32 = iota + 1
	TypeEngineObject
	TypeEngineFunction
	TypeScript
)

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventRetained
	EventReleased
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	}
	return "unknown"
}

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Refs   uint32
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

// Backend provides the underlying storage mechanism for handles.
type Backend interface {
	// Create stores a value with one reference and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Retain adds a reference to a live handle.
	Retain(handle Handle) (uint32, bool)

	// Release drops one reference. It returns the value and true when the
	// last reference went away and the handle was freed.
	Release(handle Handle) (any, uint32, bool)

	// Drop frees a handle regardless of its reference count.
	Drop(handle Handle) (any, bool)

	// Close releases all values held by the backend.
	Close() error
}

// Table manages handles with type information and observer support.
type Table interface {
	// Insert adds a value and returns its handle.
	Insert(typeID uint32, value any) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// GetTyped retrieves a value only if it matches the expected type.
	GetTyped(handle Handle, typeID uint32) (any, bool)

	// Retain adds a reference to a handle.
	Retain(handle Handle) bool

	// Release drops a reference and reports whether the handle was freed.
	Release(handle Handle) bool

	// Remove frees a handle and returns (value, true) if found.
	Remove(handle Handle) (any, bool)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Unsubscribe removes an observer.
	Unsubscribe(Observer)

	// Len returns the number of live handles.
	Len() int

	// Clear frees all handles.
	Clear()

	// Close releases all values and stops accepting operations.
	Close() error
}

// Dropper is optionally implemented by values that need cleanup when their
// handle is freed.
type Dropper interface {
	Drop()
}
