// Package rgb parses HTML-style hex colors.
package rgb

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrMalformed is returned for strings that are not of the form #RRGGBB.
var ErrMalformed = errors.New("malformed color")

// Color is an opaque 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// White is the default text color.
var White = Color{0xFF, 0xFF, 0xFF}

// Parse decodes a "#RRGGBB" string. Anything else, including the short
// "#RGB" form, is rejected.
func Parse(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("%w: %q: want #RRGGBB", ErrMalformed, s)
	}
	for i := 1; i < len(s); i++ {
		if !isHex(s[i]) {
			return Color{}, fmt.Errorf("%w: %q: bad hex digit %q", ErrMalformed, s, s[i])
		}
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// String returns the color in #rrggbb form.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NRGBA returns c with the given alpha.
func (c Color) NRGBA(alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

// Colorful converts c for blending.
func (c Color) Colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}
