package report

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultGridColor is used when Style.GridColor is empty.
const DefaultGridColor = "#FF0000"

// gridBlend is the weight of the grid colour over the underlying pixel.
const gridBlend = 0.5

// Grid draws a pixel coordinate grid every spacing pixels, blended over the
// image. With labels, each intersection is tagged "x,y".
func Grid(img *image.RGBA, spacing int, hex string, labels bool) error {
	if spacing <= 0 {
		return fmt.Errorf("grid spacing must be positive, got %d", spacing)
	}
	if hex == "" {
		hex = DefaultGridColor
	}
	rgba, err := ParseColor(hex)
	if err != nil {
		return err
	}
	grid, _ := colorful.MakeColor(rgba)

	blend := func(x, y int) {
		under, ok := colorful.MakeColor(img.RGBAAt(x, y))
		if !ok {
			return
		}
		r, g, b := under.BlendRgb(grid, gridBlend).Clamped().RGB255()
		img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	for x := spacing; x < w; x += spacing {
		for y := 0; y < h; y++ {
			blend(x, y)
		}
	}
	for y := spacing; y < h; y += spacing {
		for x := 0; x < w; x++ {
			if x%spacing != 0 {
				blend(x, y)
			}
		}
	}

	if labels {
		for y := spacing; y < h; y += spacing {
			for x := spacing; x < w; x += spacing {
				drawLabel(img, x+2, y-2, fmt.Sprintf("%d,%d", x, y), rgba)
			}
		}
	}
	return nil
}
