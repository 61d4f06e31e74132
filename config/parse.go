package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/drake/clocklet/layout"
	"github.com/drake/clocklet/rgb"
)

// loadTimeout bounds running a configuration chunk.
const loadTimeout = time.Second

// MaxSize bounds the widget width and height.
const MaxSize = 16384

// Parse runs src as a Lua chunk and decodes the table it returns. The chunk
// runs without any standard library. name is used in error messages.
func Parse(name string, src []byte) (*Display, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	L.SetContext(ctx)

	fn, err := L.Load(strings.NewReader(string(src)), name)
	if err != nil {
		return nil, &Error{Err: err}
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, &Error{Err: err}
	}
	tbl, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, &Error{Err: fmt.Errorf("%s must return a table, got %s", name, L.Get(-1).Type())}
	}
	return decode(tbl)
}

func decode(tbl *lua.LTable) (*Display, error) {
	d := &Display{}
	var err error

	if d.Color, err = colorKey(tbl, "color"); err != nil {
		return nil, err
	}
	alpha, err := intKey(tbl, "alpha", 0, 255)
	if err != nil {
		return nil, err
	}
	d.Alpha = uint8(alpha)
	if d.Caps, err = boolKey(tbl, "caps"); err != nil {
		return nil, err
	}
	if d.Width, err = intKey(tbl, "width", 1, MaxSize); err != nil {
		return nil, err
	}
	if d.Height, err = intKey(tbl, "height", 1, MaxSize); err != nil {
		return nil, err
	}
	if d.Layout.Fonts, err = fontsKey(tbl, "fonts"); err != nil {
		return nil, err
	}
	if d.Layout.Fields, err = displaysKey(tbl, "displays"); err != nil {
		return nil, err
	}
	if err := checkNames(&d.Layout); err != nil {
		return nil, err
	}
	return d, nil
}

// checkNames rejects font and field names that expressions could not tell
// apart: builtins, names used twice, and fields named like fonts.
func checkNames(l *layout.Layout) error {
	for _, name := range slices.Sorted(maps.Keys(l.Fonts)) {
		if layout.Reserved(name) {
			return &Error{Key: "fonts." + name, Err: fmt.Errorf("name %q is reserved", name)}
		}
	}
	seen := make(map[string]int)
	for i, f := range l.Fields {
		if f.Name == "" {
			continue
		}
		key := fmt.Sprintf("displays[%d].name", i+1)
		if j, dup := seen[f.Name]; dup {
			return &Error{Key: key, Err: fmt.Errorf("name %q already used by displays[%d]", f.Name, j+1)}
		}
		if layout.Reserved(f.Name) {
			return &Error{Key: key, Err: fmt.Errorf("name %q is reserved", f.Name)}
		}
		if _, ok := l.Fonts[f.Name]; ok {
			return &Error{Key: key, Err: fmt.Errorf("name %q already names a font", f.Name)}
		}
		seen[f.Name] = i
	}
	return nil
}

func required(tbl *lua.LTable, key string) (lua.LValue, error) {
	v := tbl.RawGetString(key)
	if v == lua.LNil {
		return nil, &Error{Key: key, Err: ErrMissing}
	}
	return v, nil
}

func colorKey(tbl *lua.LTable, key string) (rgb.Color, error) {
	v, err := required(tbl, key)
	if err != nil {
		return rgb.Color{}, err
	}
	s, ok := v.(lua.LString)
	if !ok {
		return rgb.Color{}, &Error{Key: key, Err: fmt.Errorf("want string, got %s", v.Type())}
	}
	c, err := rgb.Parse(string(s))
	if err != nil {
		return rgb.Color{}, &Error{Key: key, Err: err}
	}
	return c, nil
}

func intKey(tbl *lua.LTable, key string, min, max int) (int, error) {
	v, err := required(tbl, key)
	if err != nil {
		return 0, err
	}
	n, ok := v.(lua.LNumber)
	if !ok || float64(n) != math.Trunc(float64(n)) {
		return 0, &Error{Key: key, Err: fmt.Errorf("want integer, got %s", v)}
	}
	i := int(n)
	if i < min || i > max {
		return 0, &Error{Key: key, Err: fmt.Errorf("%d out of range %d-%d", i, min, max)}
	}
	return i, nil
}

func boolKey(tbl *lua.LTable, key string) (bool, error) {
	v, err := required(tbl, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(lua.LBool)
	if !ok {
		return false, &Error{Key: key, Err: fmt.Errorf("want boolean, got %s", v.Type())}
	}
	return bool(b), nil
}

// fontsKey decodes the optional font table.
func fontsKey(tbl *lua.LTable, key string) (map[string]string, error) {
	v := tbl.RawGetString(key)
	if v == lua.LNil {
		return nil, nil
	}
	ft, ok := v.(*lua.LTable)
	if !ok {
		return nil, &Error{Key: key, Err: fmt.Errorf("want table, got %s", v.Type())}
	}

	fonts := make(map[string]string)
	var errs []error
	ft.ForEach(func(k, v lua.LValue) {
		name, ok1 := k.(lua.LString)
		id, ok2 := v.(lua.LString)
		if !ok1 || !ok2 {
			errs = append(errs, &Error{Key: fmt.Sprintf("%s.%s", key, k), Err: errors.New("want name = \"Face/Size\"")})
			return
		}
		fonts[string(name)] = string(id)
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return fonts, nil
}

var fieldKeys = map[string]bool{"name": true, "format": true, "x_pos": true, "y_pos": true, "font": true}

func displaysKey(tbl *lua.LTable, key string) ([]layout.Field, error) {
	v, err := required(tbl, key)
	if err != nil {
		return nil, err
	}
	dt, ok := v.(*lua.LTable)
	if !ok {
		return nil, &Error{Key: key, Err: fmt.Errorf("want table, got %s", v.Type())}
	}

	n := dt.Len()
	fields := make([]layout.Field, 0, n)
	for i := 1; i <= n; i++ {
		where := fmt.Sprintf("%s[%d]", key, i)
		ft, ok := dt.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, &Error{Key: where, Err: errors.New("want table")}
		}
		f, err := decodeField(ft, where)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func decodeField(ft *lua.LTable, where string) (layout.Field, error) {
	var f layout.Field

	var unknown []string
	ft.ForEach(func(k, _ lua.LValue) {
		if !fieldKeys[k.String()] {
			unknown = append(unknown, k.String())
		}
	})
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return f, &Error{Key: where, Err: fmt.Errorf("unknown keys %s", strings.Join(unknown, ", "))}
	}

	var err error
	if f.Format, err = stringKey(ft, "format", where); err != nil {
		return f, err
	}
	if f.Font, err = stringKey(ft, "font", where); err != nil {
		return f, err
	}
	if name := ft.RawGetString("name"); name != lua.LNil {
		s, ok := name.(lua.LString)
		if !ok {
			return f, &Error{Key: where + ".name", Err: errors.New("want string")}
		}
		f.Name = string(s)
	}
	if f.X, err = positionKey(ft, "x_pos", where); err != nil {
		return f, err
	}
	if f.Y, err = positionKey(ft, "y_pos", where); err != nil {
		return f, err
	}
	return f, nil
}

func stringKey(ft *lua.LTable, key, where string) (string, error) {
	v := ft.RawGetString(key)
	s, ok := v.(lua.LString)
	if !ok {
		if v == lua.LNil {
			return "", &Error{Key: where + "." + key, Err: ErrMissing}
		}
		return "", &Error{Key: where + "." + key, Err: fmt.Errorf("want string, got %s", v.Type())}
	}
	return string(s), nil
}

// positionKey decodes a number as a literal and a string as an expression.
func positionKey(ft *lua.LTable, key, where string) (layout.Position, error) {
	switch v := ft.RawGetString(key).(type) {
	case lua.LNumber:
		return layout.Literal(float64(v)), nil
	case lua.LString:
		return layout.Expression(string(v)), nil
	case *lua.LNilType:
		return layout.Position{}, &Error{Key: where + "." + key, Err: ErrMissing}
	default:
		return layout.Position{}, &Error{Key: where + "." + key, Err: fmt.Errorf("want number or expression, got %s", v.Type())}
	}
}
