package raster

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/drake/clocklet/host"
)

var red = color.NRGBA{R: 0xFF, A: 0xFF}

func mustFont(t *testing.T, h *Host, name string) host.Font {
	t.Helper()
	f, err := h.LoadFont(name)
	if err != nil {
		t.Fatalf("LoadFont(%q): %v", name, err)
	}
	if err := h.SetFont(f); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestTextSize(t *testing.T) {
	h := New(Options{})
	mustFont(t, h, "goregular/20")

	w1, h1, err := h.TextSize("1")
	if err != nil {
		t.Fatal(err)
	}
	w2, h2, err := h.TextSize("12:45")
	if err != nil {
		t.Fatal(err)
	}
	if w1 <= 0 || w2 <= w1 {
		t.Errorf("widths %d, %d", w1, w2)
	}
	if h1 != h2 || h1 < 20 {
		t.Errorf("heights %d, %d", h1, h2)
	}

	w0, _, _ := h.TextSize("")
	if w0 != 0 {
		t.Errorf("empty width = %d", w0)
	}
}

func TestTextSizeWithoutFont(t *testing.T) {
	h := New(Options{})
	if _, _, err := h.TextSize("x"); !errors.Is(err, host.ErrNoFont) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadFontNames(t *testing.T) {
	h := New(Options{})
	for _, name := range []string{"goregular", "goregular/", "/12", "goregular/abc", "goregular/-3"} {
		if _, err := h.LoadFont(name); err == nil {
			t.Errorf("LoadFont(%q) succeeded", name)
		}
	}
	if _, err := h.LoadFont("PixelFont/75"); !errors.Is(err, ErrFontNotFound) {
		t.Errorf("err = %v, want ErrFontNotFound", err)
	}

	fb := New(Options{Fallback: "gomono"})
	if _, err := fb.LoadFont("PixelFont/75"); err != nil {
		t.Errorf("fallback: %v", err)
	}
}

func TestLoadFontFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "PixelFont.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	h := New(Options{FontDirs: []string{filepath.Join(dir, "missing"), dir}})
	mustFont(t, h, "PixelFont/15")
}

func TestFreeFont(t *testing.T) {
	h := New(Options{})
	f := mustFont(t, h, "gobold/12")
	if err := h.FreeFont(f); err != nil {
		t.Fatal(err)
	}
	if err := h.FreeFont(f); !errors.Is(err, host.ErrUnknownHandle) {
		t.Errorf("double free err = %v", err)
	}
	if _, _, err := h.TextSize("x"); !errors.Is(err, host.ErrNoFont) {
		t.Errorf("freed font still current: %v", err)
	}
}

func drawRed(t *testing.T, h *Host, aa bool) *image.NRGBA {
	t.Helper()
	img, err := h.CreateImage(60, 30)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.SetImage(img); err != nil {
		t.Fatal(err)
	}
	mustFont(t, h, "goregular/24")
	h.SetColor(0xFF, 0, 0)
	h.SetAlpha(0xFF)
	h.SetAntiAlias(aa)
	if err := h.DrawText(2, 0, "HI"); err != nil {
		t.Fatal(err)
	}
	return h.images[img]
}

func TestDrawTextAntiAliased(t *testing.T) {
	h := New(Options{})
	img := drawRed(t, h, true)

	var full, partial int
	for i := 0; i < len(img.Pix); i += 4 {
		switch a := img.Pix[i+3]; {
		case a == 0xFF:
			full++
		case a > 0:
			partial++
		}
	}
	if full == 0 {
		t.Error("no fully covered pixels")
	}
	if partial == 0 {
		t.Error("no anti-aliased edge pixels")
	}
}

func TestDrawTextAliased(t *testing.T) {
	h := New(Options{})
	img := drawRed(t, h, false)

	var drawn int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			switch c {
			case red:
				drawn++
			case color.NRGBA{}:
			default:
				t.Fatalf("pixel (%d,%d) = %v, want red or transparent", x, y, c)
			}
		}
	}
	if drawn == 0 {
		t.Error("nothing drawn")
	}
}

func TestDrawTextStartsAtTop(t *testing.T) {
	h := New(Options{})
	img := drawRed(t, h, true)

	// Text drawn at y=0 must land inside the image, not above it.
	var lowest int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A > 0 {
				lowest = y
			}
		}
	}
	if lowest < 10 {
		t.Errorf("glyphs end at row %d", lowest)
	}
}

func TestBlendImage(t *testing.T) {
	for _, blend := range []bool{true, false} {
		h := New(Options{})
		drawRed(t, h, false)
		src := h.nextImage

		if err := h.Resize(60, 30); err != nil {
			t.Fatal(err)
		}
		if err := h.SetTransparency(false); err != nil {
			t.Fatal(err)
		}
		if err := h.SetImage(host.WindowImage); err != nil {
			t.Fatal(err)
		}
		h.SetBlend(blend)
		r := image.Rect(0, 0, 60, 30)
		if err := h.BlendImage(src, r, r); err != nil {
			t.Fatal(err)
		}

		win := h.Surface()
		corner := win.NRGBAAt(59, 29)
		want := color.NRGBA{A: 0xFF}
		if !blend {
			want = color.NRGBA{}
		}
		if corner != want {
			t.Errorf("blend=%v: untouched corner = %v, want %v", blend, corner, want)
		}
	}
}

func TestBlendImageScales(t *testing.T) {
	h := New(Options{})
	drawRed(t, h, true)
	src := h.nextImage
	h.Resize(120, 60)
	h.SetImage(host.WindowImage)
	if err := h.BlendImage(src, image.Rect(0, 0, 60, 30), image.Rect(0, 0, 120, 60)); err != nil {
		t.Fatal(err)
	}
}

func TestImageHandles(t *testing.T) {
	h := New(Options{})
	if err := h.SetImage(host.WindowImage); !errors.Is(err, ErrNoWindow) {
		t.Errorf("window before resize: %v", err)
	}
	if err := h.Show(); !errors.Is(err, ErrNoWindow) {
		t.Errorf("show before resize: %v", err)
	}
	if err := h.FreeImage(42); !errors.Is(err, host.ErrUnknownHandle) {
		t.Errorf("free unknown: %v", err)
	}
	if _, err := h.CreateImage(0, 10); err == nil {
		t.Error("zero-width image created")
	}

	img, _ := h.CreateImage(7, 3)
	h.SetImage(img)
	w, ht, err := h.ImageSize()
	if err != nil || w != 7 || ht != 3 {
		t.Errorf("ImageSize = %d, %d, %v", w, ht, err)
	}
	if err := h.FreeImage(img); err != nil {
		t.Fatal(err)
	}
	if err := h.DrawText(0, 0, "x"); !errors.Is(err, ErrNoWindow) {
		t.Errorf("draw after freeing current image: %v", err)
	}
	if err := h.FreeImage(host.WindowImage); err == nil {
		t.Error("freed the window image")
	}
}

func TestWindow(t *testing.T) {
	h := New(Options{})
	if h.Surface() != nil {
		t.Error("surface before resize")
	}
	h.Resize(4, 2)
	h.SetTransparency(true)
	if err := h.Show(); err != nil {
		t.Fatal(err)
	}
	if !h.Shown() || !h.Transparent() {
		t.Error("window state not recorded")
	}
	if c := h.Surface().NRGBAAt(0, 0); c != (color.NRGBA{}) {
		t.Errorf("transparent window pixel = %v", c)
	}
}

func TestImageSizeLimits(t *testing.T) {
	h := New(Options{})
	for _, tc := range []struct{ w, h int }{
		{0, 10},
		{-1, 10},
		{MaxImageSide + 1, 1},
		{math.MaxInt32, math.MaxInt32},
	} {
		if _, err := h.CreateImage(tc.w, tc.h); !errors.Is(err, ErrImageSize) {
			t.Errorf("CreateImage(%d, %d) = %v", tc.w, tc.h, err)
		}
		if err := h.Resize(tc.w, tc.h); !errors.Is(err, ErrImageSize) {
			t.Errorf("Resize(%d, %d) = %v", tc.w, tc.h, err)
		}
	}
	if h.Surface() != nil {
		t.Error("window sized by a rejected Resize")
	}
	if _, err := h.CreateImage(MaxImageSide, 1); err != nil {
		t.Errorf("CreateImage at the limit: %v", err)
	}
}
