package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/drake/clocklet/layout"
	"github.com/drake/clocklet/rgb"
)

func TestParseDefault(t *testing.T) {
	d, err := Parse("default", []byte(DefaultSource))
	if err != nil {
		t.Fatal(err)
	}

	if d.Color != rgb.White || d.Alpha != 255 || !d.Caps || d.Width != 290 || d.Height != 120 {
		t.Errorf("display = %+v", d)
	}
	if got := d.Layout.Fonts["large_text"]; got != "PixelFont/75" {
		t.Errorf("large_text = %q", got)
	}

	var formats []string
	for _, f := range d.Layout.Fields {
		formats = append(formats, f.Format)
	}
	if diff := cmp.Diff([]string{"%l:%M", "%a", "%b", "%d", "%Y", "%p"}, formats); diff != "" {
		t.Errorf("field order (-want +got):\n%s", diff)
	}

	first := d.Layout.Fields[0]
	if x, ok := first.X.Literal(); !ok || x != 0 {
		t.Errorf("first x = %v", first.X)
	}
	second := d.Layout.Fields[1]
	if src, ok := second.X.Expression(); !ok || src != "text_width(large_text, get_time('%l:%M'))" {
		t.Errorf("second x = %v", second.X)
	}
	if y, ok := second.Y.Literal(); !ok || y != 5 {
		t.Errorf("second y = %v", second.Y)
	}

	// Every text measurement in the default face measures formatted time.
	for i, f := range d.Layout.Fields {
		for _, p := range []layout.Position{f.X, f.Y} {
			if src, ok := p.Expression(); ok && strings.Contains(src, ", '%") {
				t.Errorf("field %d measures a raw pattern: %s", i, src)
			}
		}
	}
}

func TestParseField(t *testing.T) {
	src := `return {
		color = "#1A2B3C", alpha = 128, caps = false, width = 100, height = 50,
		displays = {
			{ name = "year", format = "%Y", x_pos = 1.5, y_pos = "year.height", font = "Mono/12" },
		},
	}`
	d, err := Parse("test", []byte(src))
	if err != nil {
		t.Fatal(err)
	}

	want := layout.Field{
		Name:   "year",
		Format: "%Y",
		X:      layout.Literal(1.5),
		Y:      layout.Expression("year.height"),
		Font:   "Mono/12",
	}
	if diff := cmp.Diff(want, d.Layout.Fields[0], cmp.AllowUnexported(layout.Position{})); diff != "" {
		t.Errorf("field (-want +got):\n%s", diff)
	}
	if d.Color != (rgb.Color{R: 0x1A, G: 0x2B, B: 0x3C}) || d.Alpha != 128 || d.Caps {
		t.Errorf("display = %+v", d)
	}
	if d.Layout.Fonts != nil {
		t.Errorf("fonts = %v, want none", d.Layout.Fonts)
	}
}

func TestParseErrors(t *testing.T) {
	base := map[string]string{
		"color":    `"#FFFFFF"`,
		"alpha":    `255`,
		"caps":     `true`,
		"width":    `290`,
		"height":   `120`,
		"fonts":    `{ big = "F/10" }`,
		"displays": `{ { format = "%Y", x_pos = 0, y_pos = 0, font = "F/10" } }`,
	}
	build := func(override map[string]string) string {
		var b strings.Builder
		b.WriteString("return {\n")
		for k, v := range base {
			if o, ok := override[k]; ok {
				v = o
			}
			if v == "" {
				continue
			}
			b.WriteString(k + " = " + v + ",\n")
		}
		b.WriteString("}")
		return b.String()
	}

	tests := []struct {
		name     string
		override map[string]string
		key      string
	}{
		{"missing color", map[string]string{"color": ""}, "color"},
		{"color without marker", map[string]string{"color": `"1A2B3C"`}, "color"},
		{"color not hex", map[string]string{"color": `"#ZZZZZZ"`}, "color"},
		{"color not string", map[string]string{"color": `255`}, "color"},
		{"alpha too big", map[string]string{"alpha": `256`}, "alpha"},
		{"alpha fraction", map[string]string{"alpha": `1.5`}, "alpha"},
		{"caps not bool", map[string]string{"caps": `"yes"`}, "caps"},
		{"zero width", map[string]string{"width": `0`}, "width"},
		{"missing height", map[string]string{"height": ""}, "height"},
		{"missing displays", map[string]string{"displays": ""}, "displays"},
		{"display not table", map[string]string{"displays": `{ 1 }`}, "displays[1]"},
		{"missing format", map[string]string{"displays": `{ { x_pos = 0, y_pos = 0, font = "F" } }`}, "displays[1].format"},
		{"missing y", map[string]string{"displays": `{ { format = "%Y", x_pos = 0, font = "F" } }`}, "displays[1].y_pos"},
		{"bad position", map[string]string{"displays": `{ { format = "%Y", x_pos = true, y_pos = 0, font = "F" } }`}, "displays[1].x_pos"},
		{"unknown key", map[string]string{"displays": `{ { format = "%Y", x = 0, x_pos = 0, y_pos = 0, font = "F" } }`}, "displays[1]"},
		{"fonts not table", map[string]string{"fonts": `"F/10"`}, "fonts"},
		{"huge width", map[string]string{"width": `2147483647`}, "width"},
		{"height over limit", map[string]string{"height": `16385`}, "height"},
		{"font named like builtin", map[string]string{"fonts": `{ get_time = "F/10" }`}, "fonts.get_time"},
		{"font named self", map[string]string{"fonts": `{ self = "F/10" }`}, "fonts.self"},
		{"duplicate field names", map[string]string{"displays": `{
			{ name = "a", format = "%Y", x_pos = 0, y_pos = 0, font = "F" },
			{ name = "a", format = "%m", x_pos = 0, y_pos = 0, font = "F" } }`}, "displays[2].name"},
		{"field named like font", map[string]string{"displays": `{ { name = "big", format = "%Y", x_pos = 0, y_pos = 0, font = "F" } }`}, "displays[1].name"},
		{"field named like builtin", map[string]string{"displays": `{ { name = "width_of", format = "%Y", x_pos = 0, y_pos = 0, font = "F" } }`}, "displays[1].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test", []byte(build(tt.override)))
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if ce.Key != tt.key {
				t.Errorf("Key = %q, want %q (%v)", ce.Key, tt.key, err)
			}
		})
	}
}

func TestParseColorErrorWrapsMalformed(t *testing.T) {
	src := strings.Replace(DefaultSource, `"#FFFFFF"`, `"#GG0000"`, 1)
	_, err := Parse("test", []byte(src))
	if !errors.Is(err, rgb.ErrMalformed) {
		t.Errorf("err = %v, want rgb.ErrMalformed", err)
	}
}

func TestParseChunkErrors(t *testing.T) {
	for name, src := range map[string]string{
		"syntax":       "return {",
		"not a table":  "return 42",
		"runtime":      "return nosuch.field",
		"no libraries": "return { color = string.format('#%06x', 0) }",
		"endless loop": "while true do end",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("test", []byte(src))
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *Error", err)
			}
		})
	}
}

func TestFileLoaderWritesDefault(t *testing.T) {
	dir := t.TempDir()
	path := File(filepath.Join(dir, "widget"))

	d, err := FileLoader{Path: path}.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Layout.Fields) != 6 {
		t.Errorf("fields = %d, want 6", len(d.Layout.Fields))
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default not written: %v", err)
	}
	if string(written) != DefaultSource {
		t.Error("written file differs from DefaultSource")
	}
}

func TestFileLoaderReadsExisting(t *testing.T) {
	dir := t.TempDir()
	path := File(dir)
	src := `return { color = "#000000", alpha = 10, caps = false, width = 10, height = 10, displays = {} }`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := FileLoader{Path: path}.Load()
	if err != nil {
		t.Fatal(err)
	}
	if d.Alpha != 10 || len(d.Layout.Fields) != 0 {
		t.Errorf("display = %+v", d)
	}
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("APPDATA", "/tmp/appdata")
	got := Dir()
	if filepath.Base(got) != "clocklet" {
		t.Errorf("Dir() = %q", got)
	}
}

func TestFile(t *testing.T) {
	if got := File(""); got != FileName {
		t.Errorf("File(\"\") = %q", got)
	}
}
