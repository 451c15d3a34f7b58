package engine

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"

	jsbridge "github.com/wippyai/js-bridge"
	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/jsvalue"
)

const uncaughtPrefix = "Uncaught "

// ErrorFrom converts an error returned by goja into an error value.
// A thrown managed proxy yields ManagedError with its host object id.
func (c *Context) ErrorFrom(err error, mode jsbridge.MarshalMode) (result jsvalue.Value) {
	c.engine.lock.Lock()
	defer c.engine.lock.Unlock()
	defer c.guard(&result)
	return c.errorFrom(err, mode)
}

func (c *Context) errorFrom(err error, mode jsbridge.MarshalMode) jsvalue.Value {
	if err == nil {
		return jsvalue.UnknownError{Message: errors.Unknown(errors.PhaseExecute, "").Detail}
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return jsvalue.UnknownError{Message: fmt.Sprint(interrupted.Value())}
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		return c.exceptionFrom(ex, mode)
	}

	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return syntaxDetail("", err)
	}

	return jsvalue.UnknownError{Message: err.Error()}
}

func (c *Context) exceptionFrom(ex *goja.Exception, mode jsbridge.MarshalMode) jsvalue.Value {
	val := ex.Value()
	if val == nil {
		return jsvalue.UnknownError{Message: ex.Error()}
	}
	if obj, ok := val.(*goja.Object); ok {
		if h := c.engine.proxies.lookup(obj); h != nil {
			return jsvalue.ManagedError(h.id)
		}
	}

	detail := c.detailFrom(val, mode)
	for _, f := range ex.Stack() {
		pos := f.Position()
		if pos.Line == 0 {
			continue
		}
		detail.Line = int32(pos.Line)
		detail.Column = int32(pos.Column)
		name := pos.Filename
		if name == "" {
			name = f.SrcName()
		}
		detail.Resource = jsvalue.StringOf(name)
		break
	}
	return detail
}

// thrownValue converts a value thrown outside of a goja call frame, such as
// a trap panic escaping a Go-side property access.
func (c *Context) thrownValue(val goja.Value, mode jsbridge.MarshalMode) jsvalue.Value {
	if obj, ok := val.(*goja.Object); ok {
		if h := c.engine.proxies.lookup(obj); h != nil {
			return jsvalue.ManagedError(h.id)
		}
	}
	return c.detailFrom(val, mode)
}

func (c *Context) detailFrom(val goja.Value, mode jsbridge.MarshalMode) *jsvalue.ErrorDetail {
	detail := &jsvalue.ErrorDetail{
		Resource:    jsvalue.Empty{},
		Message:     jsvalue.StringOf(uncaughtPrefix + safeString(val)),
		Constructor: jsvalue.Empty{},
		Exception:   c.fromEngine(val, nil, mode, nil),
	}
	if obj, ok := val.(*goja.Object); ok {
		if name := constructorName(obj); name != "" {
			detail.Constructor = jsvalue.StringOf(name)
		}
	}
	return detail
}

func constructorName(obj *goja.Object) (name string) {
	defer func() {
		if recover() != nil {
			name = ""
		}
	}()
	ctor, ok := obj.Get("constructor").(*goja.Object)
	if !ok {
		return ""
	}
	if n := ctor.Get("name"); n != nil && !goja.IsUndefined(n) {
		return n.String()
	}
	return ""
}

// safeString stringifies v, tolerating a throwing toString.
func safeString(v goja.Value) (s string) {
	defer func() {
		if recover() != nil {
			s = "[object]"
		}
	}()
	return v.String()
}

// syntaxDetail builds a SyntaxError detail from a parser or compiler error.
func syntaxDetail(resourceName string, err error) *jsvalue.ErrorDetail {
	msg := err.Error()
	var pos file.Position

	var list parser.ErrorList
	var single *parser.Error
	var compiler *goja.CompilerSyntaxError
	switch {
	case errors.As(err, &list) && len(list) > 0:
		msg = list[0].Message
		pos = list[0].Position
	case errors.As(err, &single):
		msg = single.Message
		pos = single.Position
	case errors.As(err, &compiler):
		msg = compiler.Message
		if compiler.File != nil {
			pos = compiler.File.Position(compiler.Offset)
		}
	}

	if pos.Filename != "" {
		resourceName = pos.Filename
	}
	text := "SyntaxError: " + msg
	return &jsvalue.ErrorDetail{
		Line:        int32(pos.Line),
		Column:      int32(pos.Column),
		Resource:    jsvalue.StringOf(resourceName),
		Message:     jsvalue.StringOf(uncaughtPrefix + text),
		Constructor: jsvalue.StringOf("SyntaxError"),
		Exception:   jsvalue.StringOf(text),
	}
}
