// Package ui holds what the terminal presenters share: sampling the widget's
// window surface into half-block cells.
package ui

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// HalfBlock is the glyph drawn in every cell: the foreground color paints
// the top pixel and the background color the bottom one.
const HalfBlock = '▀'

// Cell is one terminal cell showing two vertically stacked pixels.
type Cell struct {
	Top, Bottom colorful.Color
}

// Grid is a block of cells, row by row.
type Grid [][]Cell

// Fit returns the pixel size of b scaled to fit cols x rows cells, keeping
// its aspect ratio. Each cell holds two pixels vertically. Images are never
// enlarged.
func Fit(b image.Rectangle, cols, rows int) image.Point {
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || cols <= 0 || rows <= 0 {
		return image.Point{}
	}
	scale := math.Min(float64(cols)/float64(w), float64(2*rows)/float64(h))
	if scale > 1 {
		scale = 1
	}
	return image.Pt(
		max(1, int(math.Round(float64(w)*scale))),
		max(1, int(math.Round(float64(h)*scale))),
	)
}

// Sample scales img into at most cols x rows cells, blending translucent
// pixels over backdrop. A nil image yields no cells.
func Sample(img image.Image, cols, rows int, backdrop colorful.Color) Grid {
	if img == nil {
		return nil
	}
	sz := Fit(img.Bounds(), cols, rows)
	if sz.X == 0 {
		return nil
	}

	dst := image.NewNRGBA(image.Rectangle{Max: sz})
	if sz == img.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	}

	grid := make(Grid, (sz.Y+1)/2)
	for cy := range grid {
		row := make([]Cell, sz.X)
		for x := range row {
			row[x].Top = Blend(dst.NRGBAAt(x, 2*cy), backdrop)
			row[x].Bottom = backdrop
			if 2*cy+1 < sz.Y {
				row[x].Bottom = Blend(dst.NRGBAAt(x, 2*cy+1), backdrop)
			}
		}
		grid[cy] = row
	}
	return grid
}

// Blend composites c over backdrop.
func Blend(c color.NRGBA, backdrop colorful.Color) colorful.Color {
	fg := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
	return backdrop.BlendRgb(fg, float64(c.A)/255)
}
