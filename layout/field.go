// Package layout holds the widget face description and paints it.
//
// A Layout is an ordered list of Fields. Each field shows the current time
// in some strftime format, in some font, at an (x, y) position. Positions
// are either literal numbers or expressions that can measure other fields,
// so "put the weekday right of the clock" is written as
// text_width(large_text, get_time('%l:%M')) and re-evaluated every tick.
package layout

import (
	"fmt"
	"slices"
	"strconv"
)

// Builtins are the functions every expression can call.
var Builtins = []string{"get_time", "text_width", "text_height", "width_of", "height_of"}

// Reserved reports whether expressions already define name, so a font or
// field cannot use it.
func Reserved(name string) bool {
	return name == "self" || slices.Contains(Builtins, name)
}

// Position is a coordinate rule: a literal number or an expression.
type Position struct {
	src    string
	value  float64
	isExpr bool
}

// Literal returns a fixed coordinate.
func Literal(v float64) Position {
	return Position{value: v}
}

// Expression returns a coordinate computed from src at draw time.
func Expression(src string) Position {
	return Position{src: src, isExpr: true}
}

// Literal returns the coordinate and true when p is a literal.
func (p Position) Literal() (float64, bool) {
	return p.value, !p.isExpr
}

// Expression returns the source and true when p is an expression.
func (p Position) Expression() (string, bool) {
	return p.src, p.isExpr
}

func (p Position) String() string {
	if p.isExpr {
		return strconv.Quote(p.src)
	}
	return strconv.FormatFloat(p.value, 'g', -1, 64)
}

// Field is one displayed piece of text.
type Field struct {
	Name   string // optional; lets expressions refer to the field
	Format string // strftime pattern
	X, Y   Position
	Font   string // font table name or host font identifier
}

func (f *Field) String() string {
	if f.Name != "" {
		return fmt.Sprintf("%s (%q)", f.Name, f.Format)
	}
	return strconv.Quote(f.Format)
}

// Layout is the ordered set of fields making up the widget face.
type Layout struct {
	// Fonts maps names usable in expressions to host font identifiers.
	Fonts  map[string]string
	Fields []Field
}

// FontID resolves a field font to a host font identifier. Names declared in
// the font table map to their identifier; anything else is taken literally.
func (l *Layout) FontID(font string) string {
	if id, ok := l.Fonts[font]; ok {
		return id
	}
	return font
}

// Field returns the field called name.
func (l *Layout) Field(name string) (*Field, bool) {
	if name == "" {
		return nil, false
	}
	for i := range l.Fields {
		if l.Fields[i].Name == name {
			return &l.Fields[i], true
		}
	}
	return nil, false
}
