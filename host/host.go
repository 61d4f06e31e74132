// Package host defines the drawing and windowing surface the widget runs on.
//
// The widget never touches pixels or font files itself. Everything goes
// through a Host: fonts and images are opaque handles, and drawing happens
// against a small piece of context state (current image, font, color, alpha,
// blend mode) in the manner of imlib2.
package host

import "image"

// Font is a handle to a loaded font. It is only valid between LoadFont and
// FreeFont.
type Font int

// Image is a handle to an image owned by the host.
type Image int

// WindowImage is the handle of the visible window surface. It always exists
// once the window has been sized and can never be freed.
const WindowImage Image = 0

// Host provides fonts, off-screen images and drawing.
// All drawing calls act on the context image selected with SetImage.
type Host interface {
	// Fonts. name is a host font identifier such as "PixelFont/20".
	LoadFont(name string) (Font, error)
	FreeFont(f Font) error
	SetFont(f Font) error
	// TextSize measures text rendered with the context font.
	TextSize(text string) (width, height int, err error)

	// Images
	CreateImage(width, height int) (Image, error)
	FreeImage(img Image) error
	SetImage(img Image) error
	// ImageSize reports the size of the context image.
	ImageSize() (width, height int, err error)

	// Context state
	SetColor(r, g, b uint8) error
	SetAlpha(a uint8) error
	SetBlend(blend bool) error
	SetAntiAlias(aa bool) error

	// DrawText draws text with its top-left corner at (x, y) on the context
	// image using the context font and color.
	DrawText(x, y int, text string) error

	// BlendImage composites region sr of src onto region dr of the context
	// image, honoring the context blend flag.
	BlendImage(src Image, sr, dr image.Rectangle) error
}

// Window is the visible surface of the widget.
type Window interface {
	Resize(width, height int) error
	SetTransparency(transparent bool) error
	Show() error
}
