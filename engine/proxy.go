package engine

import (
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/js-bridge/jsvalue"
)

// holder binds a proxy to its host object. It is released exactly once,
// either by Detach, by context or engine teardown, or by the cleanup that
// runs after goja drops the proxy.
type holder struct {
	ctx      *Context
	key      weak.Pointer[goja.Object]
	keys     map[string]struct{}
	id       int32
	released atomic.Bool
}

func (h *holder) detached() bool {
	return h.released.Load()
}

func (h *holder) release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	e := h.ctx.engine
	e.proxies.remove(h)

	e.lock.Lock()
	defer e.lock.Unlock()
	defer func() {
		if r := recover(); r != nil {
			h.ctx.log.Error("host release panicked", zap.Int32("object", h.id), zap.Any("panic", r))
		}
	}()
	h.ctx.host.Release(h.ctx.id, h.id)
	debugf("proxy released: context=%d object=%d", h.ctx.id, h.id)
}

// proxyTable maps live proxies to their holders without keeping them alive.
type proxyTable struct {
	entries map[weak.Pointer[goja.Object]]*holder
	mu      sync.Mutex
}

func (t *proxyTable) init() {
	t.entries = make(map[weak.Pointer[goja.Object]]*holder)
}

func (t *proxyTable) add(obj *goja.Object, h *holder) {
	h.key = weak.Make(obj)
	t.mu.Lock()
	t.entries[h.key] = h
	t.mu.Unlock()
}

func (t *proxyTable) lookup(obj *goja.Object) *holder {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) == 0 {
		return nil
	}
	return t.entries[weak.Make(obj)]
}

func (t *proxyTable) remove(h *holder) {
	t.mu.Lock()
	if t.entries[h.key] == h {
		delete(t.entries, h.key)
	}
	t.mu.Unlock()
}

// snapshot returns the holders of c, or all holders when c is nil.
func (t *proxyTable) snapshot(c *Context) []*holder {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*holder, 0, len(t.entries))
	for _, h := range t.entries {
		if c == nil || h.ctx == c {
			out = append(out, h)
		}
	}
	return out
}

func (t *proxyTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// initProxyPrototype builds the prototype shared by all proxy targets of the
// context. It inherits Function.prototype and carries the valueOf hook.
func (c *Context) initProxyPrototype() error {
	proto := c.rt.NewObject()
	if fn, ok := c.rt.Get("Function").(*goja.Object); ok {
		if fp, ok := fn.Get("prototype").(*goja.Object); ok {
			if err := proto.SetPrototype(fp); err != nil {
				return err
			}
		}
	}
	if err := proto.DefineDataProperty("valueOf", c.rt.ToValue(c.valueOf), goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return err
	}
	if err := proto.DefineDataProperty("toString", c.rt.ToValue(c.toString), goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return err
	}
	c.proto = proto
	return nil
}

// targetOnly names members of the proxy target and Function.prototype that
// describe the native function behind the proxy, not the host object.
var targetOnly = map[string]struct{}{
	"name":      {},
	"length":    {},
	"arguments": {},
	"caller":    {},
}

// protoMember resolves a member the host does not have through the shared
// prototype. It returns nil when there is none.
func (c *Context) protoMember(name string) goja.Value {
	if _, ok := targetOnly[name]; ok {
		return nil
	}
	return c.proto.Get(name)
}

func (c *Context) valueOf(call goja.FunctionCall) goja.Value {
	obj, ok := call.This.(*goja.Object)
	if !ok {
		return goja.Undefined()
	}
	h := c.engine.proxies.lookup(obj)
	if h == nil || h.detached() {
		return goja.Undefined()
	}
	h.keys = nil
	return c.hostResult(c.host.GetValueOf(c.id, h.id))
}

func (c *Context) toString(call goja.FunctionCall) goja.Value {
	v := c.valueOf(call)
	if s, ok := v.(goja.String); ok {
		return s
	}
	return c.rt.ToValue(v.String())
}

// newProxy materializes a host object reference.
func (c *Context) newProxy(id int32) goja.Value {
	h := &holder{ctx: c, id: id}

	target, ok := c.rt.ToValue(func(goja.FunctionCall) goja.Value {
		return goja.Undefined()
	}).(*goja.Object)
	if !ok {
		return goja.Null()
	}
	if err := target.SetPrototype(c.proto); err != nil {
		return goja.Null()
	}

	proxy := c.rt.NewProxy(target, c.traps(h))
	obj, ok := c.rt.ToValue(proxy).(*goja.Object)
	if !ok {
		return goja.Null()
	}

	c.engine.proxies.add(obj, h)
	runtime.AddCleanup(obj, func(h *holder) { h.release() }, h)
	return obj
}

// Detach releases the host reference of a proxy now. Later traps return
// undefined without calling the host. It reports whether v was a live proxy.
func (e *Engine) Detach(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	if !ok {
		return false
	}
	h := e.proxies.lookup(obj)
	if h == nil || h.detached() {
		return false
	}
	h.release()
	return true
}

func (c *Context) traps(h *holder) *goja.ProxyTrapConfig {
	return &goja.ProxyTrapConfig{
		Get: func(_ *goja.Object, name string, _ goja.Value) goja.Value {
			if h.detached() {
				return goja.Undefined()
			}
			h.keys = nil
			r := c.host.GetPropertyValue(c.id, h.id, name)
			if _, empty := jsvalue.OrEmpty(r).(jsvalue.Empty); empty {
				if v := c.protoMember(name); v != nil {
					return v
				}
				return goja.Undefined()
			}
			return c.hostResult(r)
		},

		Has: func(_ *goja.Object, name string) bool {
			if h.detached() {
				return false
			}
			h.keys = nil
			if slices.Contains(c.host.EnumerateProperties(c.id, h.id), name) {
				return true
			}
			r := jsvalue.OrEmpty(c.host.GetPropertyValue(c.id, h.id, name))
			jsvalue.Dispose(r)
			if _, empty := r.(jsvalue.Empty); !empty && !r.Kind().IsError() {
				return true
			}
			return c.protoMember(name) != nil
		},

		Set: func(_ *goja.Object, name string, value goja.Value, _ goja.Value) bool {
			if h.detached() {
				return true
			}
			h.keys = nil
			tv := c.fromEngine(value, nil, c.engine.cfg.MarshalMode, nil)
			r := c.host.SetPropertyValue(c.id, h.id, name, tv)
			c.throwIfError(r)
			jsvalue.Dispose(r)
			return true
		},

		DeleteProperty: func(_ *goja.Object, name string) bool {
			if h.detached() {
				return true
			}
			h.keys = nil
			return c.host.DeleteProperty(c.id, h.id, name)
		},

		OwnKeys: func(_ *goja.Object) *goja.Object {
			if h.detached() {
				return c.rt.NewArray()
			}
			names := c.host.EnumerateProperties(c.id, h.id)
			h.keys = make(map[string]struct{}, len(names))
			items := make([]any, len(names))
			for i, n := range names {
				h.keys[n] = struct{}{}
				items[i] = n
			}
			return c.rt.NewArray(items...)
		},

		GetOwnPropertyDescriptor: func(_ *goja.Object, name string) goja.PropertyDescriptor {
			if h.detached() {
				return goja.PropertyDescriptor{}
			}
			// Keys listed by the enumeration in progress are used once each;
			// any other query asks the host again.
			if _, ok := h.keys[name]; ok {
				delete(h.keys, name)
			} else if !slices.Contains(c.host.EnumerateProperties(c.id, h.id), name) {
				return goja.PropertyDescriptor{}
			}
			return goja.PropertyDescriptor{
				Value:        c.hostResult(c.host.GetPropertyValue(c.id, h.id, name)),
				Writable:     goja.FLAG_TRUE,
				Enumerable:   goja.FLAG_TRUE,
				Configurable: goja.FLAG_TRUE,
			}
		},

		Apply: func(_ *goja.Object, this goja.Value, args []goja.Value) goja.Value {
			if h.detached() {
				return goja.Undefined()
			}
			h.keys = nil
			recv, _ := this.(*goja.Object)
			r := c.host.Invoke(c.id, h.id, c.argumentsFrom(args, recv))
			return c.hostResult(r)
		},
	}
}

// hostResult materializes a host callback result. Error results are thrown
// into the engine; a ManagedError is thrown as its proxy so the host object
// keeps its identity.
func (c *Context) hostResult(r jsvalue.Value) goja.Value {
	c.throwIfError(r)
	defer jsvalue.Dispose(r)
	if v := c.toEngine(r); v != nil {
		return v
	}
	return goja.Undefined()
}

func (c *Context) throwIfError(r jsvalue.Value) {
	switch x := r.(type) {
	case jsvalue.ManagedError, *jsvalue.ErrorDetail:
		v := c.toEngine(x)
		jsvalue.Dispose(x)
		panic(v)
	case jsvalue.UnknownError:
		ex, err := c.rt.New(c.errorCtor, c.rt.ToValue(x.Message))
		if err != nil {
			panic(c.rt.NewTypeError(x.Message))
		}
		panic(ex)
	}
}
