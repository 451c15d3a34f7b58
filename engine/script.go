package engine

import (
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"

	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
	"github.com/wippyai/js-bridge/resource"
)

// Script is a compiled program. It is not tied to a context and may be run
// in any context of the engine that compiled it.
type Script struct {
	engine *Engine
	prg    atomic.Pointer[goja.Program]
	name   string
	handle resource.Handle
}

// Name returns the resource name the script was compiled with.
func (s *Script) Name() string {
	return s.name
}

func (s *Script) program() *goja.Program {
	if s == nil {
		return nil
	}
	return s.prg.Load()
}

// Dispose releases the compiled program. Safe to call more than once.
func (s *Script) Dispose() {
	if s == nil || s.prg.Swap(nil) == nil {
		return
	}
	s.engine.handles.Remove(s.handle)
}

// Drop implements resource.Dropper so engine teardown releases scripts.
func (s *Script) Drop() {
	s.prg.Store(nil)
}

// Compile parses and compiles source. On failure the script is nil and the
// second result carries the error; on success it is Empty.
func (e *Engine) Compile(source, resourceName string) (*Script, jsvalue.Value) {
	if e.disposed.Load() {
		return nil, disposedValue(errors.PhaseCompile, "engine")
	}
	p, detail := compile(source, resourceName)
	if detail != nil {
		return nil, detail
	}

	s := &Script{engine: e, name: resourceName}
	s.prg.Store(p)
	s.handle = e.handles.Insert(resource.TypeScript, s)
	return s, jsvalue.Empty{}
}

func compile(source, resourceName string) (*goja.Program, *jsvalue.ErrorDetail) {
	ast, err := parser.ParseFile(nil, resourceName, source, 0)
	if err != nil {
		return nil, syntaxDetail(resourceName, err)
	}
	p, err := goja.CompileAST(ast, false)
	if err != nil {
		return nil, syntaxDetail(resourceName, err)
	}
	return p, nil
}
