package expr

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/drake/clocklet/layout"
	"github.com/drake/clocklet/metrics"
)

// registerBuiltins installs the builtin functions and resets the set of
// known names to them.
func (e *Evaluator) registerBuiltins() {
	e.names = map[string]bool{"self": true}
	for _, name := range layout.Builtins {
		e.names[name] = true
	}

	L := e.L
	L.SetGlobal("self", lua.LNil)

	// get_time(pattern): current time formatted with a strftime pattern
	L.SetGlobal("get_time", L.NewFunction(func(L *lua.LState) int {
		pattern := L.CheckString(1)
		text, err := e.times.Format(pattern)
		if err != nil {
			e.raise(L, "get_time", err)
			return 0
		}
		L.Push(lua.LString(text))
		return 1
	}))

	width := L.NewFunction(func(L *lua.LState) int {
		return e.measure(L, "text_width", false)
	})
	height := L.NewFunction(func(L *lua.LState) int {
		return e.measure(L, "text_height", true)
	})

	// text_width(font, text) / text_height(font, text)
	L.SetGlobal("text_width", width)
	L.SetGlobal("text_height", height)
	L.SetGlobal("width_of", width)
	L.SetGlobal("height_of", height)

	// Field tables compute text, width and height on access
	mt := L.NewTypeMetatable(fieldTypeName)
	L.SetField(mt, "__index", L.NewFunction(e.fieldIndex))
}

func (e *Evaluator) measure(L *lua.LState, fn string, height bool) int {
	font := L.CheckString(1)
	text := L.CheckString(2)
	sz, err := metrics.Measure(e.host, e.fontID(font), text)
	if err != nil {
		e.raise(L, fn, err)
		return 0
	}
	if height {
		L.Push(lua.LNumber(sz.Height))
	} else {
		L.Push(lua.LNumber(sz.Width))
	}
	return 1
}

// fieldIndex resolves the computed keys of a field table.
//
//	field.text    get_time(field.format)
//	field.width   text_width(field.font, field.text)
//	field.height  text_height(field.font, field.text)
func (e *Evaluator) fieldIndex(L *lua.LState) int {
	tbl := L.CheckTable(1)
	key := L.CheckString(2)

	switch key {
	case "text", "width", "height":
	default:
		L.Push(lua.LNil)
		return 1
	}

	text, err := e.times.Format(lua.LVAsString(tbl.RawGetString("format")))
	if err != nil {
		e.raise(L, "get_time", err)
		return 0
	}
	if key == "text" {
		L.Push(lua.LString(text))
		return 1
	}

	sz, err := metrics.Measure(e.host, lua.LVAsString(tbl.RawGetString("font")), text)
	if err != nil {
		e.raise(L, "field."+key, err)
		return 0
	}
	if key == "width" {
		L.Push(lua.LNumber(sz.Width))
	} else {
		L.Push(lua.LNumber(sz.Height))
	}
	return 1
}
