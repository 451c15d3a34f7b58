package resource

import (
	"errors"
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	handle, err := b.Create(TypeHostObject, "test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := b.Get(handle)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	val, ok = b.Drop(handle)
	if !ok {
		t.Fatal("Drop failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	if _, ok = b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
}

func TestLocalBackend_RefCounting(t *testing.T) {
	b := NewLocalBackend()

	h, _ := b.Create(TypeEngineObject, "obj")
	if refs, _ := b.Refs(h); refs != 1 {
		t.Fatalf("Expected 1 ref after Create, got %d", refs)
	}

	if refs, ok := b.Retain(h); !ok || refs != 2 {
		t.Fatalf("Retain = (%d, %v), want (2, true)", refs, ok)
	}

	if _, refs, freed := b.Release(h); freed || refs != 1 {
		t.Fatalf("first Release freed=%v refs=%d, want false 1", freed, refs)
	}
	if _, ok := b.Get(h); !ok {
		t.Fatal("handle should survive while referenced")
	}

	val, _, freed := b.Release(h)
	if !freed {
		t.Fatal("last Release should free the handle")
	}
	if val != "obj" {
		t.Fatalf("Release returned %v, want obj", val)
	}

	if _, _, freed := b.Release(h); freed {
		t.Fatal("Release on freed handle must be a no-op")
	}
	if _, ok := b.Retain(h); ok {
		t.Fatal("Retain on freed handle must fail")
	}
}

func TestLocalBackend_HandleReuse(t *testing.T) {
	b := NewLocalBackend()

	h1, _ := b.Create(TypeHostObject, 1)
	h2, _ := b.Create(TypeHostObject, 2)
	h3, _ := b.Create(TypeHostObject, 3)

	b.Drop(h2)
	b.Drop(h1)

	h4, _ := b.Create(TypeHostObject, 4)
	h5, _ := b.Create(TypeHostObject, 5)

	if h4 != h1 && h4 != h2 {
		t.Fatalf("h4 = %d, expected a reused slot", h4)
	}

	for _, h := range []Handle{h3, h4, h5} {
		if _, ok := b.Get(h); !ok {
			t.Fatalf("handle %d should be valid", h)
		}
	}
	if v, _ := b.Get(h5); v == 3 {
		t.Fatal("h5 must not alias h3")
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()

	d := &dropCounter{}
	b.Create(TypeHostObject, d)
	b.Create(TypeHostObject, 2)

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.count != 1 {
		t.Fatalf("Expected Drop on close, got %d", d.count)
	}

	_, err := b.Create(TypeHostObject, "test")
	if !errors.Is(err, ErrClosed) {
		t.Fatal("Expected ErrClosed after Close")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h, _ := b.Create(TypeHostObject, id)
			b.Retain(h)
			b.Release(h)
			b.Release(h)
		}(i)
	}

	wg.Wait()

	if b.Len() != 0 {
		t.Fatalf("Expected all handles released, %d left", b.Len())
	}
}

func TestLocalBackend_Len(t *testing.T) {
	b := NewLocalBackend()

	if b.Len() != 0 {
		t.Fatal("Expected Len() == 0 initially")
	}

	h1, _ := b.Create(TypeHostObject, "a")
	h2, _ := b.Create(TypeHostObject, "b")
	b.Create(TypeHostObject, "c")

	if b.Len() != 3 {
		t.Fatalf("Expected Len() == 3, got %d", b.Len())
	}

	b.Drop(h1)
	if b.Len() != 2 {
		t.Fatalf("Expected Len() == 2, got %d", b.Len())
	}

	b.Drop(h2)
	if b.Len() != 1 {
		t.Fatalf("Expected Len() == 1, got %d", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()

	b.Create(TypeHostObject, "a")
	b.Create(TypeScript, "b")
	b.Create(TypeHostObject, "c")

	count := 0
	b.Each(func(h Handle, typeID uint32, value any) bool {
		count++
		return true
	})
	if count != 3 {
		t.Fatalf("Expected to iterate over 3 items, got %d", count)
	}

	count = 0
	b.Each(func(h Handle, typeID uint32, value any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Expected to iterate over 1 item (early term), got %d", count)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend()

	if _, ok := b.Get(0); ok {
		t.Fatal("Handle 0 should be invalid")
	}
	if _, ok := b.TypeID(0); ok {
		t.Fatal("Handle 0 should be invalid for TypeID")
	}
	if _, ok := b.Retain(0); ok {
		t.Fatal("Handle 0 should fail Retain")
	}
	if _, _, ok := b.Release(0); ok {
		t.Fatal("Handle 0 should fail Release")
	}
	if _, ok := b.Drop(0); ok {
		t.Fatal("Handle 0 should fail Drop")
	}
	if _, ok := b.Get(999); ok {
		t.Fatal("Non-existent handle should be invalid")
	}
}
