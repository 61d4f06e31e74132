// Package metrics measures rendered text through the host font API.
//
// Every call acquires its font, uses it, and releases it before returning.
// Nothing is held across calls, so the host's context font is unspecified
// afterwards.
package metrics

import (
	"errors"

	"github.com/drake/clocklet/host"
)

// Size is the rendered size of a piece of text in pixels.
type Size struct {
	Width, Height int
}

// WithFont loads font, makes it the context font and runs fn. The font is
// freed exactly once on every path out, including a failing fn; a failure to
// free is joined into the returned error.
func WithFont(h host.Host, font string, fn func(host.Font) error) (err error) {
	f, err := h.LoadFont(font)
	if err != nil {
		return host.Wrap("load_font", err)
	}
	defer func() {
		if ferr := h.FreeFont(f); ferr != nil {
			err = errors.Join(err, host.Wrap("free_font", ferr))
		}
	}()

	if err := h.SetFont(f); err != nil {
		return host.Wrap("context_set_font", err)
	}
	return fn(f)
}

// Measure returns the size of text rendered with font.
func Measure(h host.Host, font, text string) (Size, error) {
	var sz Size
	err := WithFont(h, font, func(host.Font) error {
		w, ht, err := h.TextSize(text)
		if err != nil {
			return host.Wrap("get_text_size", err)
		}
		sz = Size{Width: w, Height: ht}
		return nil
	})
	if err != nil {
		return Size{}, err
	}
	return sz, nil
}

// WidthOf returns the rendered width of text.
func WidthOf(h host.Host, font, text string) (int, error) {
	sz, err := Measure(h, font, text)
	return sz.Width, err
}

// HeightOf returns the rendered height of text.
func HeightOf(h host.Host, font, text string) (int, error) {
	sz, err := Measure(h, font, text)
	return sz.Height, err
}
