package runtime

import (
	stderrors "errors"
	"math"
	goruntime "runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	jsbridge "github.com/wippyai/js-bridge"
	"github.com/wippyai/js-bridge/engine"
	"github.com/wippyai/js-bridge/errors"
)

type Counter struct {
	printed []string
	Value   int
}

func (c *Counter) PrintValue(msg string) {
	c.printed = append(c.printed, msg+" "+strconv.Itoa(c.Value))
}

func (c *Counter) Add(n int) int {
	c.Value += n
	return c.Value
}

type Temperature struct {
	Degrees float64
}

func (t *Temperature) String() string {
	return strconv.Itoa(int(t.Degrees)) + "C"
}

type Point struct {
	X, Y int
}

func newTestContext(t *testing.T, opts ...Option) (*Runtime, *Context) {
	t.Helper()
	rt, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	ctx, err := rt.NewContext()
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return rt, ctx
}

func mustExecute(t *testing.T, ctx *Context, src string) any {
	t.Helper()
	v, err := ctx.Execute(src)
	if err != nil {
		t.Fatalf("Execute(%q): %v", src, err)
	}
	return v
}

func TestExecute_Scalars(t *testing.T) {
	_, ctx := newTestContext(t)

	tests := []struct {
		src  string
		want any
	}{
		{"null", nil},
		{"undefined", nil},
		{"true", true},
		{"-7", int32(-7)},
		{"4294967295", uint32(math.MaxUint32)},
		{"1.5", 1.5},
		{"Math.pow(2, 40)", float64(1 << 40)},
		{"'hé\\u0000llo'", "hé\x00llo"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := mustExecute(t, ctx, tt.src); got != tt.want {
				t.Errorf("Execute(%q) = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestExecute_DateAndArray(t *testing.T) {
	_, ctx := newTestContext(t)

	got := mustExecute(t, ctx, "[1, 'two', new Date(86400000), null]")
	items, ok := got.([]any)
	if !ok || len(items) != 4 {
		t.Fatalf("got %#v", got)
	}
	if items[0] != int32(1) || items[1] != "two" || items[3] != nil {
		t.Errorf("items = %#v", items)
	}
	want := time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)
	if d, ok := items[2].(time.Time); !ok || !d.Equal(want) {
		t.Errorf("date = %#v, want %v", items[2], want)
	}
}

func TestSetVariable_GoValues(t *testing.T) {
	_, ctx := newTestContext(t)

	when := time.Date(1999, 2, 2, 0, 0, 0, 0, time.UTC)
	vars := map[string]any{
		"i8":   int8(-5),
		"u16":  uint16(234),
		"u32":  uint32(23),
		"i64":  int64(-65),
		"f32":  float32(0.5),
		"str":  "stringvalue",
		"when": when,
		"xs":   []int{1, 2, 3},
		"none": nil,
	}
	for name, v := range vars {
		if err := ctx.SetVariable(name, v); err != nil {
			t.Fatalf("SetVariable(%s): %v", name, err)
		}
	}

	tests := []struct {
		src  string
		want any
	}{
		{"i8", int32(-5)},
		{"u16", int32(234)},
		{"u32", int32(23)},
		{"i64", int32(-65)},
		{"f32", 0.5},
		{"str.toUpperCase()", "STRINGVALUE"},
		{"when.getUTCFullYear()", int32(1999)},
		{"Array.isArray(xs) && xs.length", int32(3)},
		{"none === null", true},
	}
	for _, tt := range tests {
		if got := mustExecute(t, ctx, tt.src); got != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.src, got, tt.want)
		}
	}
}

func TestManagedStruct(t *testing.T) {
	_, ctx := newTestContext(t)

	m := &Counter{}
	if err := ctx.SetVariable("m", m); err != nil {
		t.Fatal(err)
	}

	mustExecute(t, ctx, "m.value = 42")
	mustExecute(t, ctx, "m.printValue('And the answer is:')")
	if m.Value != 42 {
		t.Errorf("Value = %d, want 42", m.Value)
	}
	if len(m.printed) != 1 || m.printed[0] != "And the answer is: 42" {
		t.Errorf("printed = %q", m.printed)
	}

	if got := mustExecute(t, ctx, "m.Add(8)"); got != int32(50) {
		t.Errorf("m.Add(8) = %#v", got)
	}
	if got := mustExecute(t, ctx, "m.Value"); got != int32(50) {
		t.Errorf("m.Value = %#v", got)
	}
	if got := mustExecute(t, ctx, "JSON.stringify(Object.keys(m))"); got != `["value"]` {
		t.Errorf("keys = %#v", got)
	}
	if got := mustExecute(t, ctx, "m === m"); got != true {
		t.Error("proxy is not identical to itself")
	}
	if got := mustExecute(t, ctx, "m.missing"); got != nil {
		t.Errorf("m.missing = %#v", got)
	}

	back, err := ctx.GetVariable("m")
	if err != nil {
		t.Fatal(err)
	}
	if back != m {
		t.Errorf("GetVariable returned %#v, want the original pointer", back)
	}
}

func TestManagedStruct_ByValue(t *testing.T) {
	_, ctx := newTestContext(t)

	ctx.SetVariable("p", Point{X: 1, Y: 2})
	if got := mustExecute(t, ctx, "p.x + p.y"); got != int32(3) {
		t.Errorf("p.x + p.y = %#v", got)
	}

	_, err := ctx.Execute("p.x = 5")
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindUnsupported {
		t.Errorf("assigning a field of a struct kept by value: %v", err)
	}
}

func TestManagedStruct_Tags(t *testing.T) {
	type tagged struct {
		Name   string `js:"title"`
		Secret string `js:"-"`
		ID     int
	}
	_, ctx := newTestContext(t)

	ctx.SetVariable("t", &tagged{Name: "x", Secret: "s", ID: 7})
	if got := mustExecute(t, ctx, "JSON.stringify(Object.keys(t))"); got != `["title","id"]` {
		t.Errorf("keys = %#v", got)
	}
	if got := mustExecute(t, ctx, "t.title + t.id"); got != "x7" {
		t.Errorf("t.title + t.id = %#v", got)
	}
	if got := mustExecute(t, ctx, "t.secret"); got != nil {
		t.Errorf("hidden field visible: %#v", got)
	}
}

func TestManagedMap(t *testing.T) {
	_, ctx := newTestContext(t)

	cfg := map[string]any{"b": 2, "a": "one"}
	ctx.SetVariable("cfg", cfg)

	if got := mustExecute(t, ctx, "JSON.stringify(Object.keys(cfg))"); got != `["a","b"]` {
		t.Errorf("keys = %#v", got)
	}
	if got := mustExecute(t, ctx, "cfg.a + cfg.b"); got != "one2" {
		t.Errorf("cfg.a + cfg.b = %#v", got)
	}
	mustExecute(t, ctx, "cfg.c = 'x'; delete cfg.a")
	if cfg["c"] != "x" {
		t.Errorf("cfg[c] = %#v", cfg["c"])
	}
	if _, ok := cfg["a"]; ok {
		t.Error("cfg[a] not deleted")
	}
}

func TestManagedSlicePointer(t *testing.T) {
	_, ctx := newTestContext(t)

	xs := []string{"a", "b"}
	ctx.SetVariable("xs", &xs)
	if got := mustExecute(t, ctx, "xs.length + xs[1]"); got != "2b" {
		t.Errorf("got %#v", got)
	}
	mustExecute(t, ctx, "xs[0] = 'z'")
	if xs[0] != "z" {
		t.Errorf("xs[0] = %q", xs[0])
	}
}

func TestManagedFunc(t *testing.T) {
	_, ctx := newTestContext(t)

	ctx.SetVariable("add", func(a, b int) int { return a + b })
	ctx.SetVariable("sum", func(xs ...float64) float64 {
		var s float64
		for _, x := range xs {
			s += x
		}
		return s
	})
	ctx.SetVariable("pair", func() (string, int) { return "n", 1 })
	ctx.SetVariable("join", func(parts []string, sep string) string { return strings.Join(parts, sep) })

	tests := []struct {
		src  string
		want any
	}{
		{"add(2, 3)", int32(5)},
		{"add(2)", int32(2)},
		{"sum(1, 2, 3.5)", 6.5},
		{"sum()", int32(0)},
		{"JSON.stringify(pair())", `["n",1]`},
		{"join(['a', 'b'], '-')", "a-b"},
		{"typeof add", "function"},
	}
	for _, tt := range tests {
		if got := mustExecute(t, ctx, tt.src); got != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.src, got, tt.want)
		}
	}

	_, err := ctx.Execute("add('x', 1)")
	if !errors.Is(err, &errors.Error{Kind: errors.KindTypeMismatch}) {
		t.Errorf("bad argument: %v", err)
	}
}

func TestValueOf(t *testing.T) {
	_, ctx := newTestContext(t)

	ctx.SetVariable("temp", &Temperature{Degrees: 21})
	if got := mustExecute(t, ctx, "'now ' + temp"); got != "now 21C" {
		t.Errorf("got %#v", got)
	}
}

var errNotFound = stderrors.New("not found")

func TestHostErrorIdentity(t *testing.T) {
	_, ctx := newTestContext(t)

	ctx.SetVariable("fail", func(name string) (int, error) { return 0, errNotFound })
	ctx.SetVariable("boom", func() { panic("boom") })
	m := &Counter{}
	ctx.SetVariable("m", m)

	_, err := ctx.Execute("fail('x')")
	if err != errNotFound {
		t.Errorf("err = %v, want the original error", err)
	}

	_, err = ctx.Execute("try { fail('x') } catch (e) { throw e }")
	if err != errNotFound {
		t.Errorf("rethrown err = %v, want the original error", err)
	}

	if got := mustExecute(t, ctx, "var msg; try { fail('x') } catch (e) { msg = e.message } msg"); got != "not found" {
		t.Errorf("message = %#v", got)
	}

	_, err = ctx.Execute("boom()")
	var he *errors.HostError
	if !errors.As(err, &he) || he.Value != "boom" {
		t.Errorf("panic err = %#v", err)
	}

	_, err = ctx.Execute("throw m")
	if !errors.As(err, &he) || he.Value != m {
		t.Errorf("thrown host object err = %#v", err)
	}
	if !errors.Is(err, errors.ErrHostOriginated) {
		t.Error("thrown host object should be host originated")
	}
}

func TestScriptError(t *testing.T) {
	_, ctx := newTestContext(t)

	_, err := ctx.ExecuteNamed("var a = 1;\nnull.x", "main.js")
	var se *errors.ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("err = %#v, want *ScriptError", err)
	}
	if se.Constructor != "TypeError" || se.Resource != "main.js" || se.Line != 2 {
		t.Errorf("ScriptError = %+v", se)
	}
	if !errors.Is(err, errors.ErrEngine) {
		t.Error("ScriptError should match ErrEngine")
	}

	_, err = ctx.Execute("throw 'plain'")
	if !errors.As(err, &se) || se.Value != "plain" || se.Message != "Uncaught plain" {
		t.Errorf("thrown string = %#v", err)
	}
}

func TestObject(t *testing.T) {
	_, ctx := newTestContext(t)

	v := mustExecute(t, ctx, "var o = {a: 1, greet: function (n) { return 'hi ' + n + this.a }}; o")
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("got %#v, want *Object", v)
	}

	if got, err := obj.Get("a"); err != nil || got != int32(1) {
		t.Errorf("Get(a) = %#v, %v", got, err)
	}
	if err := obj.Set("b", "x"); err != nil {
		t.Fatal(err)
	}
	if got := mustExecute(t, ctx, "o.b"); got != "x" {
		t.Errorf("o.b = %#v", got)
	}
	keys, err := obj.Keys()
	if err != nil || strings.Join(keys, ",") != "a,greet,b" {
		t.Errorf("Keys() = %v, %v", keys, err)
	}
	if got, err := obj.Invoke("greet", "bob"); err != nil || got != "hi bob1" {
		t.Errorf("Invoke = %#v, %v", got, err)
	}

	fv, err := obj.Get("greet")
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := fv.(*Function)
	if !ok || !fn.Bound() {
		t.Fatalf("Get(greet) = %#v, want bound *Function", fv)
	}
	if got, err := fn.Call("amy"); err != nil || got != "hi amy1" {
		t.Errorf("Call = %#v, %v", got, err)
	}

	ctx.SetVariable("same", obj)
	if got := mustExecute(t, ctx, "same === o"); got != true {
		t.Error("object lost identity on the way back")
	}

	obj.Dispose()
	obj.Dispose()
	if _, err := obj.Get("a"); err == nil {
		t.Error("Get after Dispose should fail")
	}
	fn.Dispose()
	if _, err := fn.Call(); err == nil {
		t.Error("Call after Dispose should fail")
	}
}

func TestFunction(t *testing.T) {
	_, ctx := newTestContext(t)

	v := mustExecute(t, ctx, "(function (a, b) { return a * b })")
	fn, ok := v.(*Function)
	if !ok {
		t.Fatalf("got %#v, want *Function", v)
	}
	defer fn.Dispose()
	if fn.Bound() {
		t.Error("free function reported as bound")
	}
	if got, err := fn.Call(6, 7); err != nil || got != int32(42) {
		t.Errorf("Call(6, 7) = %#v, %v", got, err)
	}

	ctx.SetVariable("mul", fn)
	if got := mustExecute(t, ctx, "mul(3, 3)"); got != int32(9) {
		t.Errorf("mul(3, 3) = %#v", got)
	}
}

func TestDictionaryMode(t *testing.T) {
	_, ctx := newTestContext(t, engine.WithMarshalMode(jsbridge.MarshalDictionary))

	got := mustExecute(t, ctx, "({a: 1, b: 'x', nested: {c: [true]}})")
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("got %#v, want map", got)
	}
	if m["a"] != int32(1) || m["b"] != "x" {
		t.Errorf("m = %#v", m)
	}
	nested, ok := m["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested = %#v", m["nested"])
	}
	if c, ok := nested["c"].([]any); !ok || len(c) != 1 || c[0] != true {
		t.Errorf("nested.c = %#v", nested["c"])
	}
}

func TestReentrantHostCall(t *testing.T) {
	_, ctx := newTestContext(t)

	ctx.SetVariable("inner", func() (any, error) {
		return ctx.Execute("40 + 2")
	})
	if got := mustExecute(t, ctx, "inner() + 1"); got != int32(43) {
		t.Errorf("inner() + 1 = %#v", got)
	}
}

func TestCompileShared(t *testing.T) {
	rt, ctx1 := newTestContext(t)
	ctx2, err := rt.NewContext()
	if err != nil {
		t.Fatal(err)
	}

	s, err := rt.Compile("typeof seen === 'undefined' ? (seen = 1) : ++seen", "count.js")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Dispose()

	for i, want := range []int32{1, 2} {
		if got, err := ctx1.ExecuteScript(s); err != nil || got != want {
			t.Errorf("ctx1 run %d = %#v, %v", i, got, err)
		}
	}
	if got, err := ctx2.ExecuteScript(s); err != nil || got != int32(1) {
		t.Errorf("ctx2 = %#v, %v", got, err)
	}

	_, err = ctx1.Compile("var = 1", "bad.js")
	var se *errors.ScriptError
	if !errors.As(err, &se) || se.Constructor != "SyntaxError" || se.Resource != "bad.js" {
		t.Errorf("syntax error = %#v", err)
	}
}

func TestKeepAliveReleasedByCollector(t *testing.T) {
	_, ctx := newTestContext(t)

	ctx.SetVariable("tmp", &Counter{})
	if n := ctx.KeepAlive(); n != 1 {
		t.Fatalf("KeepAlive = %d, want 1", n)
	}
	mustExecute(t, ctx, "tmp = null")

	deadline := time.Now().Add(5 * time.Second)
	for ctx.KeepAlive() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("KeepAlive = %d after collection", ctx.KeepAlive())
		}
		goruntime.GC()
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClose(t *testing.T) {
	rt, ctx := newTestContext(t)

	ctx.SetVariable("m", &Counter{})
	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if n := ctx.KeepAlive(); n != 0 {
		t.Errorf("KeepAlive after Close = %d", n)
	}
	if _, err := ctx.Execute("1"); !errors.Is(err, errors.ErrDisposed) {
		t.Errorf("Execute after Close: %v", err)
	}

	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.NewContext(); !errors.Is(err, errors.ErrDisposed) {
		t.Errorf("NewContext after Close: %v", err)
	}
}

func TestClose_LogsDroppedValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, ctx := newTestContext(t, engine.WithLogger(zap.New(core)))

	if err := ctx.SetVariable("m", &Counter{}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}

	dropped := logs.FilterMessage("host object dropped").All()
	if len(dropped) == 0 {
		t.Fatal("no drop logged for the kept counter")
	}
	if typ := dropped[0].ContextMap()["type"]; typ != "*runtime.Counter" {
		t.Errorf("dropped type = %v", typ)
	}
}
