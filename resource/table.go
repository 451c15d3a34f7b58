package resource

import (
	"reflect"
	"sync"
)

// UnifiedTable implements the Table interface on a LocalBackend.
type UnifiedTable struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new unified table with a LocalBackend.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle.
func (t *UnifiedTable) Insert(typeID uint32, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Refs:   1,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *UnifiedTable) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Retain adds a reference to a handle.
func (t *UnifiedTable) Retain(handle Handle) bool {
	refs, ok := t.backend.Retain(handle)
	if !ok {
		return false
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{
		Type:   EventRetained,
		Handle: handle,
		TypeID: typeID,
		Refs:   refs,
	})
	return true
}

// Release drops a reference and reports whether the handle was freed.
func (t *UnifiedTable) Release(handle Handle) bool {
	typeID, ok := t.backend.TypeID(handle)
	if !ok {
		return false
	}
	value, refs, freed := t.backend.Release(handle)
	if !freed {
		t.notify(Event{
			Type:   EventReleased,
			Handle: handle,
			TypeID: typeID,
			Refs:   refs,
		})
		return false
	}
	t.dropped(handle, typeID, value)
	return true
}

// Remove frees a handle and returns (value, true) if found.
func (t *UnifiedTable) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}
	t.dropped(handle, typeID, value)
	return value, true
}

func (t *UnifiedTable) dropped(handle Handle, typeID uint32, value any) {
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. Observers of non-comparable types (such
// as ObserverFunc) cannot be removed.
func (t *UnifiedTable) Unsubscribe(o Observer) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return
	}
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if reflect.TypeOf(obs).Comparable() && obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live handles.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Each iterates over all live handles of the given type (0 matches all).
func (t *UnifiedTable) Each(typeID uint32, fn func(Handle, any) bool) {
	t.backend.Each(func(h Handle, tid uint32, value any) bool {
		if typeID != 0 && tid != typeID {
			return true
		}
		return fn(h, value)
	})
}

// Clear frees all handles.
func (t *UnifiedTable) Clear() {
	// Collect handles first to avoid holding the backend lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, typeID uint32, value any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases all values and stops accepting operations.
func (t *UnifiedTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
