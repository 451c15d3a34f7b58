package engine

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// execLock is a goroutine-owned re-entrant mutex. A host callback running
// under the lock may re-enter the engine on the same goroutine; any other
// goroutine blocks until the outermost holder unlocks.
type execLock struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

func (l *execLock) Lock() {
	id := goid.Get()
	if l.owner.Load() == id {
		l.depth++
		return
	}
	l.mu.Lock()
	l.owner.Store(id)
	l.depth = 1
}

func (l *execLock) Unlock() {
	if l.owner.Load() != goid.Get() {
		panic("engine: unlock of execution lock not held by this goroutine")
	}
	l.depth--
	if l.depth == 0 {
		l.owner.Store(0)
		l.mu.Unlock()
	}
}

// outermost reports whether the caller holds the lock exactly once.
// Only meaningful for the owning goroutine.
func (l *execLock) outermost() bool {
	return l.owner.Load() == goid.Get() && l.depth == 1
}
