package layout

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Checker compiles an expression without running it.
type Checker interface {
	Check(src string, l *Layout) error
}

// Check validates l without drawing anything: names must be unique and
// free, every field needs a font, and every expression must compile.
// Expressions are only compiled once the names are valid.
func Check(l *Layout, c Checker) error {
	if err := checkNames(l); err != nil {
		return err
	}

	var errs []error
	for i := range l.Fields {
		f := &l.Fields[i]
		fail := func(err error) {
			errs = append(errs, &FieldError{Index: i, Field: f.String(), Err: err})
		}

		if f.Font == "" {
			fail(errors.New("no font"))
		}
		for _, axis := range []struct {
			name string
			pos  Position
		}{{"x", f.X}, {"y", f.Y}} {
			if src, ok := axis.pos.Expression(); ok {
				if err := c.Check(src, l); err != nil {
					fail(fmt.Errorf("%s: %w", axis.name, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func checkNames(l *Layout) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(l.Fonts)) {
		if Reserved(name) {
			errs = append(errs, fmt.Errorf("font %q: name is reserved", name))
		}
	}

	seen := make(map[string]int)
	for i := range l.Fields {
		f := &l.Fields[i]
		if f.Name == "" {
			continue
		}
		var err error
		if j, dup := seen[f.Name]; dup {
			err = fmt.Errorf("name %q already used by field %d", f.Name, j)
		} else if Reserved(f.Name) {
			err = fmt.Errorf("name %q is reserved", f.Name)
		} else if _, ok := l.Fonts[f.Name]; ok {
			err = fmt.Errorf("name %q already names a font", f.Name)
		}
		if err != nil {
			errs = append(errs, &FieldError{Index: i, Field: f.String(), Err: err})
			continue
		}
		seen[f.Name] = i
	}
	return errors.Join(errs...)
}
