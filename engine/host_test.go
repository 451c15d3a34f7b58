package engine

import (
	"sync"
	"testing"

	"github.com/wippyai/js-bridge/jsvalue"
)

type hostCall struct {
	op     string
	name   string
	value  jsvalue.Value
	ctx    int32
	object int32
}

// recordingHost is a scripted jsbridge.Host that records every call.
type recordingHost struct {
	props    map[int32]map[string]jsvalue.Value
	keys     map[int32][]string
	valueOf  map[int32]jsvalue.Value
	invoke   func(object int32, args jsvalue.Array) jsvalue.Value
	released map[int32]int
	calls    []hostCall
	mu       sync.Mutex
}

func newRecordingHost() *recordingHost {
	return &recordingHost{
		props:    make(map[int32]map[string]jsvalue.Value),
		keys:     make(map[int32][]string),
		valueOf:  make(map[int32]jsvalue.Value),
		released: make(map[int32]int),
	}
}

func (h *recordingHost) record(c hostCall) {
	h.mu.Lock()
	h.calls = append(h.calls, c)
	h.mu.Unlock()
}

func (h *recordingHost) setProp(object int32, name string, v jsvalue.Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.props[object] == nil {
		h.props[object] = make(map[string]jsvalue.Value)
	}
	h.props[object][name] = v
}

func (h *recordingHost) GetPropertyValue(ctx, object int32, name string) jsvalue.Value {
	h.record(hostCall{op: "get", ctx: ctx, object: object, name: name})
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.props[object][name]; ok {
		return v
	}
	return jsvalue.Empty{}
}

func (h *recordingHost) SetPropertyValue(ctx, object int32, name string, v jsvalue.Value) jsvalue.Value {
	h.record(hostCall{op: "set", ctx: ctx, object: object, name: name, value: v})
	h.setProp(object, name, v)
	return jsvalue.Empty{}
}

func (h *recordingHost) DeleteProperty(ctx, object int32, name string) bool {
	h.record(hostCall{op: "delete", ctx: ctx, object: object, name: name})
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.props[object][name]
	delete(h.props[object], name)
	return ok
}

func (h *recordingHost) EnumerateProperties(ctx, object int32) []string {
	h.record(hostCall{op: "enumerate", ctx: ctx, object: object})
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keys[object]
}

func (h *recordingHost) Invoke(ctx, object int32, args jsvalue.Array) jsvalue.Value {
	h.record(hostCall{op: "invoke", ctx: ctx, object: object, value: args})
	if h.invoke != nil {
		return h.invoke(object, args)
	}
	return jsvalue.Null{}
}

func (h *recordingHost) GetValueOf(ctx, object int32) jsvalue.Value {
	h.record(hostCall{op: "valueOf", ctx: ctx, object: object})
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.valueOf[object]; ok {
		return v
	}
	return jsvalue.Null{}
}

func (h *recordingHost) Release(ctx, object int32) {
	h.record(hostCall{op: "release", ctx: ctx, object: object})
	h.mu.Lock()
	h.released[object]++
	h.mu.Unlock()
}

func (h *recordingHost) count(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (h *recordingHost) callsOf(op string) []hostCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []hostCall
	for _, c := range h.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (h *recordingHost) releases(object int32) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released[object]
}

func (h *recordingHost) reset() {
	h.mu.Lock()
	h.calls = nil
	h.mu.Unlock()
}

func newTestContext(t *testing.T, opts ...Option) (*Engine, *Context, *recordingHost) {
	t.Helper()
	eng, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(eng.Dispose)

	host := newRecordingHost()
	ctx, err := eng.Register(1, host)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return eng, ctx, host
}

func mustExecute(t *testing.T, ctx *Context, src string) jsvalue.Value {
	t.Helper()
	v := ctx.Execute(src, "test.js")
	if v.Kind().IsError() {
		t.Fatalf("Execute(%q) = %#v", src, v)
	}
	return v
}
