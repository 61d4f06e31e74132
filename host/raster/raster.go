// Package raster is an in-memory host.Host drawing into RGBA images with
// golang.org/x/image fonts.
//
// Font identifiers are "Face/Size": Face is looked up as Face.ttf or
// Face.otf in the configured font directories (or one of the builtin Go
// faces goregular, gobold, goitalic, gomono) and Size is in pixels.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/drake/clocklet/host"
)

// ErrNoWindow is returned when drawing on the window before it was sized.
var ErrNoWindow = errors.New("window not sized")

// ErrImageSize is returned for image and window sizes the host cannot allocate.
var ErrImageSize = errors.New("unsupported image size")

// MaxImageSide bounds each side of an image or the window.
const MaxImageSide = 16384

func newImage(width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 || width > MaxImageSide || height > MaxImageSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageSize, width, height)
	}
	return image.NewNRGBA(image.Rect(0, 0, width, height)), nil
}

// Options configures a Host.
type Options struct {
	// FontDirs are searched in order for Face.ttf / Face.otf.
	FontDirs []string
	// Fallback is the face used when a face cannot be found. Empty makes
	// missing faces an error.
	Fallback string
}

// Host implements host.Host and host.Window over in-memory images.
// It is not safe for concurrent use.
type Host struct {
	fonts *fontSet

	faces     map[host.Font]font.Face
	images    map[host.Image]*image.NRGBA
	nextFont  host.Font
	nextImage host.Image

	// Context state
	curImage  host.Image
	curFont   host.Font
	color     color.NRGBA
	blend     bool
	antiAlias bool

	// Window state
	transparent bool
	shown       bool
}

var (
	_ host.Host   = (*Host)(nil)
	_ host.Window = (*Host)(nil)
)

// New creates a raster host.
func New(opts Options) *Host {
	return &Host{
		fonts:     newFontSet(opts.FontDirs, opts.Fallback),
		faces:     make(map[host.Font]font.Face),
		images:    make(map[host.Image]*image.NRGBA),
		color:     color.NRGBA{A: 0xFF},
		blend:     true,
		antiAlias: true,
	}
}

// --- Fonts ---

// LoadFont implements host.Host.
func (h *Host) LoadFont(name string) (host.Font, error) {
	face, err := h.fonts.face(name)
	if err != nil {
		return 0, err
	}
	h.nextFont++
	h.faces[h.nextFont] = face
	return h.nextFont, nil
}

// FreeFont implements host.Host.
func (h *Host) FreeFont(f host.Font) error {
	face, ok := h.faces[f]
	if !ok {
		return fmt.Errorf("font %d: %w", f, host.ErrUnknownHandle)
	}
	delete(h.faces, f)
	if h.curFont == f {
		h.curFont = 0
	}
	return face.Close()
}

// SetFont implements host.Host.
func (h *Host) SetFont(f host.Font) error {
	if _, ok := h.faces[f]; !ok {
		return fmt.Errorf("font %d: %w", f, host.ErrUnknownHandle)
	}
	h.curFont = f
	return nil
}

func (h *Host) face() (font.Face, error) {
	face, ok := h.faces[h.curFont]
	if !ok {
		return nil, host.ErrNoFont
	}
	return face, nil
}

// TextSize implements host.Host. The height is ascent plus descent.
func (h *Host) TextSize(text string) (int, int, error) {
	face, err := h.face()
	if err != nil {
		return 0, 0, err
	}
	m := face.Metrics()
	return font.MeasureString(face, text).Ceil(), m.Ascent.Ceil() + m.Descent.Ceil(), nil
}

// --- Images ---

// CreateImage implements host.Host. New images are fully transparent.
func (h *Host) CreateImage(width, height int) (host.Image, error) {
	img, err := newImage(width, height)
	if err != nil {
		return 0, err
	}
	h.nextImage++
	h.images[h.nextImage] = img
	return h.nextImage, nil
}

// FreeImage implements host.Host.
func (h *Host) FreeImage(img host.Image) error {
	if img == host.WindowImage {
		return errors.New("cannot free the window image")
	}
	if _, ok := h.images[img]; !ok {
		return fmt.Errorf("image %d: %w", img, host.ErrUnknownHandle)
	}
	delete(h.images, img)
	if h.curImage == img {
		h.curImage = host.WindowImage
	}
	return nil
}

// SetImage implements host.Host.
func (h *Host) SetImage(img host.Image) error {
	if _, ok := h.images[img]; !ok {
		if img == host.WindowImage {
			return ErrNoWindow
		}
		return fmt.Errorf("image %d: %w", img, host.ErrUnknownHandle)
	}
	h.curImage = img
	return nil
}

func (h *Host) target() (*image.NRGBA, error) {
	img, ok := h.images[h.curImage]
	if !ok {
		if h.curImage == host.WindowImage {
			return nil, ErrNoWindow
		}
		return nil, fmt.Errorf("image %d: %w", h.curImage, host.ErrUnknownHandle)
	}
	return img, nil
}

// ImageSize implements host.Host.
func (h *Host) ImageSize() (int, int, error) {
	img, err := h.target()
	if err != nil {
		return 0, 0, err
	}
	sz := img.Bounds().Size()
	return sz.X, sz.Y, nil
}

// --- Context state ---

// SetColor implements host.Host.
func (h *Host) SetColor(r, g, b uint8) error {
	h.color.R, h.color.G, h.color.B = r, g, b
	return nil
}

// SetAlpha implements host.Host.
func (h *Host) SetAlpha(a uint8) error {
	h.color.A = a
	return nil
}

// SetBlend implements host.Host.
func (h *Host) SetBlend(blend bool) error {
	h.blend = blend
	return nil
}

// SetAntiAlias implements host.Host.
func (h *Host) SetAntiAlias(aa bool) error {
	h.antiAlias = aa
	return nil
}

// --- Drawing ---

// DrawText implements host.Host.
func (h *Host) DrawText(x, y int, text string) error {
	dst, err := h.target()
	if err != nil {
		return err
	}
	face, err := h.face()
	if err != nil {
		return err
	}

	dot := fixed.P(x, y+face.Metrics().Ascent.Ceil())
	src := image.NewUniform(h.color)
	if h.antiAlias {
		d := font.Drawer{Dst: dst, Src: src, Face: face, Dot: dot}
		d.DrawString(text)
		return nil
	}

	// Without anti-aliasing, coverage is thresholded to fully on or off.
	mask := image.NewAlpha(dst.Bounds())
	d := font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: dot}
	d.DrawString(text)
	for i, a := range mask.Pix {
		if a >= 0x80 {
			mask.Pix[i] = 0xFF
		} else {
			mask.Pix[i] = 0
		}
	}
	draw.DrawMask(dst, dst.Bounds(), src, image.Point{}, mask, dst.Bounds().Min, draw.Over)
	return nil
}

// BlendImage implements host.Host. With blending off the source replaces
// the destination, alpha included. Regions of different size are scaled.
func (h *Host) BlendImage(src host.Image, sr, dr image.Rectangle) error {
	dst, err := h.target()
	if err != nil {
		return err
	}
	s, ok := h.images[src]
	if !ok {
		return fmt.Errorf("image %d: %w", src, host.ErrUnknownHandle)
	}

	op := draw.Over
	if !h.blend {
		op = draw.Src
	}
	if sr.Size() == dr.Size() {
		draw.Draw(dst, dr, s, sr.Min, op)
		return nil
	}
	draw.ApproxBiLinear.Scale(dst, dr, s, sr, op, nil)
	return nil
}

// --- Window ---

// Resize implements host.Window. The window surface is recreated empty.
func (h *Host) Resize(width, height int) error {
	win, err := newImage(width, height)
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}
	h.images[host.WindowImage] = win
	h.clearWindow()
	return nil
}

// SetTransparency implements host.Window. An opaque window is black where
// nothing was drawn.
func (h *Host) SetTransparency(transparent bool) error {
	h.transparent = transparent
	h.clearWindow()
	return nil
}

func (h *Host) clearWindow() {
	win, ok := h.images[host.WindowImage]
	if !ok {
		return
	}
	bg := image.Transparent
	if !h.transparent {
		bg = image.NewUniform(color.NRGBA{A: 0xFF})
	}
	draw.Draw(win, win.Bounds(), bg, image.Point{}, draw.Src)
}

// Show implements host.Window.
func (h *Host) Show() error {
	if _, ok := h.images[host.WindowImage]; !ok {
		return ErrNoWindow
	}
	h.shown = true
	return nil
}

// Shown reports whether Show was called.
func (h *Host) Shown() bool { return h.shown }

// Transparent reports the window transparency flag.
func (h *Host) Transparent() bool { return h.transparent }

// Surface returns a copy of the window surface, or nil before Resize.
func (h *Host) Surface() *image.NRGBA {
	win, ok := h.images[host.WindowImage]
	if !ok {
		return nil
	}
	out := image.NewNRGBA(win.Bounds())
	copy(out.Pix, win.Pix)
	return out
}
