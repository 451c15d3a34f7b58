package jsvalue

import (
	"sync"
	"testing"

	"github.com/wippyai/js-bridge/resource"
)

type countingOwner struct {
	mu       sync.Mutex
	live     map[resource.Handle]int
	disposed []resource.Handle
}

func newCountingOwner(handles ...resource.Handle) *countingOwner {
	o := &countingOwner{live: make(map[resource.Handle]int)}
	for _, h := range handles {
		o.live[h] = 1
	}
	return o
}

func (o *countingOwner) RetainHandle(h resource.Handle) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.live[h] == 0 {
		return false
	}
	o.live[h]++
	return true
}

func (o *countingOwner) DisposeHandle(h resource.Handle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disposed = append(o.disposed, h)
	if o.live[h] > 0 {
		o.live[h]--
	}
}

func TestRef_DisposeIdempotent(t *testing.T) {
	o := newCountingOwner(3)
	r := NewRef(o, 3)
	r.Dispose()
	r.Dispose()
	if len(o.disposed) != 1 {
		t.Fatalf("disposed %d times, want 1", len(o.disposed))
	}

	var nilRef *Ref
	nilRef.Dispose()
	if nilRef.Handle() != 0 {
		t.Error("nil ref should report handle 0")
	}
}

func TestRef_Clone(t *testing.T) {
	o := newCountingOwner(5)
	r := NewRef(o, 5)
	c := r.Clone()
	if c == nil || c.Handle() != 5 {
		t.Fatalf("Clone() = %v", c)
	}
	if o.live[5] != 2 {
		t.Errorf("refs = %d, want 2", o.live[5])
	}

	r.Dispose()
	c.Dispose()
	if o.live[5] != 0 {
		t.Errorf("refs = %d, want 0", o.live[5])
	}
	if NewRef(o, 5).Clone() != nil {
		t.Error("Clone of a released handle should be nil")
	}
}

func TestDispose_Walk(t *testing.T) {
	o := newCountingOwner(1, 2, 3, 4)
	v := Array{
		Wrapped{Ref: NewRef(o, 1)},
		Dict{{StringOf("f"), Function{Callable: NewRef(o, 2), Receiver: NewRef(o, 3)}}},
		&ErrorDetail{Exception: Wrapped{Ref: NewRef(o, 4)}},
		Integer(1),
	}
	Dispose(v)
	Dispose(v)
	if len(o.disposed) != 4 {
		t.Fatalf("disposed %v, want 4 handles", o.disposed)
	}
	for h, n := range o.live {
		if n != 0 {
			t.Errorf("handle %d still has %d refs", h, n)
		}
	}
}
