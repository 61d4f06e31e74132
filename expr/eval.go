// Package expr evaluates position expressions.
//
// An expression is a single Lua expression over a fixed set of names:
//
//	get_time(pattern)           current time formatted with pattern
//	text_width(font, text)      rendered width of text (alias width_of)
//	text_height(font, text)     rendered height of text (alias height_of)
//	<font name>                 every name in the layout's font table
//	<field name>, self          field tables with font, format, text,
//	                            width and height
//
// Expressions are checked before they run: only constants, names, field
// access, calls to named functions and operators are accepted. The VM has no
// standard library loaded.
package expr

import (
	"context"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/drake/clocklet/host"
	"github.com/drake/clocklet/layout"
)

// EvaluationError reports a malformed or failing expression.
type EvaluationError struct {
	Source string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Source, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// ErrNotNumber is returned when an expression yields something other than
// a finite number.
var ErrNotNumber = errors.New("result is not a finite number")

const fieldTypeName = "field"

// Evaluator resolves positions. It owns a Lua state and is not safe for
// concurrent use.
type Evaluator struct {
	L      *lua.LState
	host   host.Host
	times  layout.TimeSource
	protos *lru.Cache[string, *compiled]

	// Names installed for the bound layout
	bound  *layout.Layout
	names  map[string]bool
	fields []*lua.LTable

	// Go error behind the last error raised from a builtin
	cause error
}

// New creates an Evaluator measuring text on h and reading time from times.
func New(h host.Host, times layout.TimeSource) *Evaluator {
	cache, _ := lru.New[string, *compiled](256)
	e := &Evaluator{
		L:      lua.NewState(lua.Options{SkipOpenLibs: true}),
		host:   h,
		times:  times,
		protos: cache,
	}
	e.registerBuiltins()
	return e
}

// Close releases the Lua state.
func (e *Evaluator) Close() {
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}

// Resolve returns the coordinate for pos. Literals come back unchanged;
// expressions are evaluated against l with field bound to self.
func (e *Evaluator) Resolve(ctx context.Context, pos layout.Position, field *layout.Field, l *layout.Layout) (float64, error) {
	if v, ok := pos.Literal(); ok {
		return v, nil
	}
	src, _ := pos.Expression()
	return e.Eval(ctx, src, field, l)
}

// Eval evaluates src against l. field may be nil.
func (e *Evaluator) Eval(ctx context.Context, src string, field *layout.Field, l *layout.Layout) (float64, error) {
	fail := func(err error) (float64, error) {
		return 0, &EvaluationError{Source: src, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	c, err := e.prepare(src, l)
	if err != nil {
		return fail(err)
	}
	e.setSelf(field, l)

	top := e.L.GetTop()
	defer e.L.SetTop(top)

	e.cause = nil
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	e.L.Push(e.L.NewFunctionFromProto(c.proto))
	if err := e.L.PCall(0, 1, nil); err != nil {
		if e.cause != nil {
			return fail(e.cause)
		}
		return fail(err)
	}

	ret := e.L.Get(-1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return fail(fmt.Errorf("%w: got %s", ErrNotNumber, ret.Type()))
	}
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fail(fmt.Errorf("%w: got %v", ErrNotNumber, v))
	}
	return v, nil
}

// Check compiles src and verifies every name it uses exists in l.
func (e *Evaluator) Check(src string, l *layout.Layout) error {
	if _, err := e.prepare(src, l); err != nil {
		return &EvaluationError{Source: src, Err: err}
	}
	return nil
}

func (e *Evaluator) prepare(src string, l *layout.Layout) (*compiled, error) {
	if err := e.bind(l); err != nil {
		return nil, err
	}
	c, ok := e.protos.Get(src)
	if !ok {
		var err error
		if c, err = compile(src); err != nil {
			return nil, err
		}
		e.protos.Add(src, c)
	}
	for _, name := range c.idents {
		if !e.names[name] {
			return nil, fmt.Errorf("unknown name %q", name)
		}
	}
	return c, nil
}

// bind installs the font and field names of l as globals, removing those of
// the previously bound layout.
func (e *Evaluator) bind(l *layout.Layout) error {
	if l == e.bound {
		return nil
	}
	for name := range e.names {
		e.L.SetGlobal(name, lua.LNil)
	}
	e.registerBuiltins()
	e.bound = nil

	for name, id := range l.Fonts {
		if e.names[name] {
			return fmt.Errorf("font name %q shadows another name", name)
		}
		e.names[name] = true
		e.L.SetGlobal(name, lua.LString(id))
	}

	e.fields = make([]*lua.LTable, len(l.Fields))
	for i := range l.Fields {
		f := &l.Fields[i]
		tbl := e.newFieldTable(f, l)
		e.fields[i] = tbl
		if f.Name == "" {
			continue
		}
		if e.names[f.Name] {
			return fmt.Errorf("field name %q shadows another name", f.Name)
		}
		e.names[f.Name] = true
		e.L.SetGlobal(f.Name, tbl)
	}
	e.bound = l
	return nil
}

func (e *Evaluator) setSelf(field *layout.Field, l *layout.Layout) {
	self := lua.LValue(lua.LNil)
	for i := range l.Fields {
		if &l.Fields[i] == field {
			self = e.fields[i]
			break
		}
	}
	e.L.SetGlobal("self", self)
}

func (e *Evaluator) newFieldTable(f *layout.Field, l *layout.Layout) *lua.LTable {
	tbl := e.L.NewTable()
	tbl.RawSetString("name", lua.LString(f.Name))
	tbl.RawSetString("font", lua.LString(l.FontID(f.Font)))
	tbl.RawSetString("format", lua.LString(f.Format))
	e.L.SetMetatable(tbl, e.L.GetTypeMetatable(fieldTypeName))
	return tbl
}

// raise records err as the cause and raises a Lua error. It does not return.
func (e *Evaluator) raise(L *lua.LState, fn string, err error) {
	e.cause = fmt.Errorf("%s: %w", fn, err)
	L.RaiseError("%s: %v", fn, err)
}

func (e *Evaluator) fontID(name string) string {
	if e.bound == nil {
		return name
	}
	return e.bound.FontID(name)
}
