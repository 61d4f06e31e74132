// Package fakehost provides a recording host.Host and host.Window for tests.
package fakehost

import (
	"fmt"
	"image"
	"sync"
	"unicode/utf8"

	"github.com/drake/clocklet/host"
)

// Draw is one recorded DrawText call.
type Draw struct {
	Image host.Image
	Font  string
	X, Y  int
	Text  string
}

// Blend is one recorded BlendImage call.
type Blend struct {
	Src, Dst host.Image
	Blended  bool
	SR, DR   image.Rectangle
}

// Host implements host.Host and host.Window, recording every call.
type Host struct {
	mu sync.Mutex

	// Metrics returns the size of text rendered with font. Defaults to
	// 10 px per rune and 20 px height.
	Metrics func(font, text string) (int, int)

	// Fail makes the named operation (e.g. "load_font", "text_size") fail.
	Fail map[string]error

	// Captured calls
	Draws       []Draw
	Blends      []Blend
	FontLoads   map[string]int
	FontFrees   map[string]int
	ImagesMade  []host.Image
	ImagesFreed []host.Image
	Calls       []string

	// Context state
	CurImage    host.Image
	CurFont     host.Font
	Color       [3]uint8
	Alpha       uint8
	Blending    bool
	AntiAlias   bool
	WindowSize  image.Point
	Transparent bool
	Shown       bool

	// MaxLive is the highest number of off-screen images alive at once.
	MaxLive int

	fonts     map[host.Font]string
	images    map[host.Image]image.Point
	nextFont  host.Font
	nextImage host.Image
}

// New creates a fake host with default metrics.
func New() *Host {
	return &Host{
		Fail:      make(map[string]error),
		FontLoads: make(map[string]int),
		FontFrees: make(map[string]int),
		Blending:  true,
		fonts:     make(map[host.Font]string),
		images:    make(map[host.Image]image.Point),
	}
}

func (h *Host) fail(op string) error {
	h.Calls = append(h.Calls, op)
	if err, ok := h.Fail[op]; ok {
		return err
	}
	return nil
}

// LoadFont implements host.Host.
func (h *Host) LoadFont(name string) (host.Font, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("load_font"); err != nil {
		return 0, err
	}
	h.nextFont++
	h.fonts[h.nextFont] = name
	h.FontLoads[name]++
	return h.nextFont, nil
}

// FreeFont implements host.Host.
func (h *Host) FreeFont(f host.Font) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	name, ok := h.fonts[f]
	if !ok {
		return fmt.Errorf("free font %d: %w", f, host.ErrUnknownHandle)
	}
	delete(h.fonts, f)
	h.FontFrees[name]++
	if h.CurFont == f {
		h.CurFont = 0
	}
	return h.fail("free_font")
}

// SetFont implements host.Host.
func (h *Host) SetFont(f host.Font) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("set_font"); err != nil {
		return err
	}
	if _, ok := h.fonts[f]; !ok {
		return fmt.Errorf("set font %d: %w", f, host.ErrUnknownHandle)
	}
	h.CurFont = f
	return nil
}

// TextSize implements host.Host.
func (h *Host) TextSize(text string) (int, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("text_size"); err != nil {
		return 0, 0, err
	}
	name, ok := h.fonts[h.CurFont]
	if !ok {
		return 0, 0, host.ErrNoFont
	}
	w, ht := h.measure(name, text)
	return w, ht, nil
}

func (h *Host) measure(font, text string) (int, int) {
	if h.Metrics != nil {
		return h.Metrics(font, text)
	}
	return 10 * utf8.RuneCountInString(text), 20
}

// CreateImage implements host.Host.
func (h *Host) CreateImage(width, height int) (host.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("create_image"); err != nil {
		return 0, err
	}
	h.nextImage++
	h.images[h.nextImage] = image.Pt(width, height)
	h.ImagesMade = append(h.ImagesMade, h.nextImage)
	if n := len(h.images); n > h.MaxLive {
		h.MaxLive = n
	}
	return h.nextImage, nil
}

// FreeImage implements host.Host.
func (h *Host) FreeImage(img host.Image) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("free_image"); err != nil {
		return err
	}
	if _, ok := h.images[img]; !ok {
		return fmt.Errorf("free image %d: %w", img, host.ErrUnknownHandle)
	}
	delete(h.images, img)
	h.ImagesFreed = append(h.ImagesFreed, img)
	return nil
}

// SetImage implements host.Host.
func (h *Host) SetImage(img host.Image) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("set_image"); err != nil {
		return err
	}
	if _, ok := h.images[img]; !ok && img != host.WindowImage {
		return fmt.Errorf("set image %d: %w", img, host.ErrUnknownHandle)
	}
	h.CurImage = img
	return nil
}

// ImageSize implements host.Host.
func (h *Host) ImageSize() (int, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("image_size"); err != nil {
		return 0, 0, err
	}
	if h.CurImage == host.WindowImage {
		return h.WindowSize.X, h.WindowSize.Y, nil
	}
	sz := h.images[h.CurImage]
	return sz.X, sz.Y, nil
}

// SetColor implements host.Host.
func (h *Host) SetColor(r, g, b uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Color = [3]uint8{r, g, b}
	return h.fail("set_color")
}

// SetAlpha implements host.Host.
func (h *Host) SetAlpha(a uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Alpha = a
	return h.fail("set_alpha")
}

// SetBlend implements host.Host.
func (h *Host) SetBlend(blend bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Blending = blend
	return h.fail("set_blend")
}

// SetAntiAlias implements host.Host.
func (h *Host) SetAntiAlias(aa bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.AntiAlias = aa
	return h.fail("set_anti_alias")
}

// DrawText implements host.Host.
func (h *Host) DrawText(x, y int, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("draw_text"); err != nil {
		return err
	}
	name, ok := h.fonts[h.CurFont]
	if !ok {
		return host.ErrNoFont
	}
	h.Draws = append(h.Draws, Draw{Image: h.CurImage, Font: name, X: x, Y: y, Text: text})
	return nil
}

// BlendImage implements host.Host.
func (h *Host) BlendImage(src host.Image, sr, dr image.Rectangle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("blend_image"); err != nil {
		return err
	}
	if _, ok := h.images[src]; !ok {
		return fmt.Errorf("blend image %d: %w", src, host.ErrUnknownHandle)
	}
	h.Blends = append(h.Blends, Blend{Src: src, Dst: h.CurImage, Blended: h.Blending, SR: sr, DR: dr})
	return nil
}

// Resize implements host.Window.
func (h *Host) Resize(width, height int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.WindowSize = image.Pt(width, height)
	return h.fail("window_resize")
}

// SetTransparency implements host.Window.
func (h *Host) SetTransparency(transparent bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Transparent = transparent
	return h.fail("window_set_transparency")
}

// Show implements host.Window.
func (h *Host) Show() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Shown = true
	return h.fail("window_show")
}

// Helper methods for tests

// OpenFonts returns the number of fonts loaded and not yet freed.
func (h *Host) OpenFonts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fonts)
}

// LiveImages returns the off-screen images that have not been freed.
func (h *Host) LiveImages() []host.Image {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []host.Image
	for _, img := range h.ImagesMade {
		if _, ok := h.images[img]; ok {
			out = append(out, img)
		}
	}
	return out
}

// DrainDraws returns and clears the recorded draws.
func (h *Host) DrainDraws() []Draw {
	h.mu.Lock()
	defer h.mu.Unlock()
	draws := h.Draws
	h.Draws = nil
	return draws
}
