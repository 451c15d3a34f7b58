package jsvalue

import (
	"sync"

	"github.com/wippyai/js-bridge/resource"
)

// Owner holds the engine objects that refs point at.
type Owner interface {
	// RetainHandle adds a reference to h. It reports false if h is gone.
	RetainHandle(h resource.Handle) bool
	// DisposeHandle drops one reference to h.
	DisposeHandle(h resource.Handle)
}

// Ref is a single-owner handle to an engine object. The zero value and a nil
// *Ref are both inert.
type Ref struct {
	owner  Owner
	handle resource.Handle
	once   sync.Once
}

// NewRef wraps a handle that already carries one reference for the caller.
func NewRef(owner Owner, h resource.Handle) *Ref {
	return &Ref{owner: owner, handle: h}
}

// Handle returns the handle number, or 0 for a nil ref.
func (r *Ref) Handle() resource.Handle {
	if r == nil {
		return 0
	}
	return r.handle
}

// Owner returns the owner the ref was created against.
func (r *Ref) Owner() Owner {
	if r == nil {
		return nil
	}
	return r.owner
}

// Clone returns a second independent ref to the same object, or nil when
// the object is no longer held.
func (r *Ref) Clone() *Ref {
	if r == nil || r.owner == nil || r.handle == 0 {
		return nil
	}
	if !r.owner.RetainHandle(r.handle) {
		return nil
	}
	return NewRef(r.owner, r.handle)
}

// Dispose releases the reference. Safe to call more than once.
func (r *Ref) Dispose() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		if r.owner != nil && r.handle != 0 {
			r.owner.DisposeHandle(r.handle)
		}
	})
}

// Dispose releases every ref reachable from v.
func Dispose(v Value) {
	switch x := v.(type) {
	case Wrapped:
		x.Ref.Dispose()
	case Function:
		x.Callable.Dispose()
		x.Receiver.Dispose()
	case Array:
		for _, e := range x {
			Dispose(e)
		}
	case Dict:
		for _, p := range x {
			Dispose(p.Key)
			Dispose(p.Value)
		}
	case *ErrorDetail:
		if x == nil {
			return
		}
		Dispose(x.Resource)
		Dispose(x.Message)
		Dispose(x.Constructor)
		Dispose(x.Exception)
	}
}
