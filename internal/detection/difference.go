package detection

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

// Difference returns |ref - cmp| pixel by pixel, with ref's dimensions.
//
// When cmp has a different size it is first resampled to exactly ref's
// width and height with the named filter (empty selects bilinear). The
// result is symmetric in its arguments whenever both already share a size.
//
// # Errors
//
//   - either image nil or zero-area
//   - unknown resample filter
func Difference(ref, cmp *image.Gray, filter string) (*image.Gray, error) {
	if err := imaging.CheckGray("reference frame", ref); err != nil {
		return nil, err
	}
	if err := imaging.CheckGray("comparison frame", cmp); err != nil {
		return nil, err
	}
	if _, err := imaging.ParseFilter(filter); err != nil {
		return nil, err
	}

	a, _ := imaging.ToGray(ref)
	b, _ := imaging.ToGray(cmp)
	w, h := a.Rect.Dx(), a.Rect.Dy()

	if b.Rect.Dx() != w || b.Rect.Dy() != h {
		resized, err := imaging.ResizeGray(b, w, h, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to resample comparison frame: %w", err)
		}
		b = resized
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			ra, rb, out := imaging.Row(a, y), imaging.Row(b, y), imaging.Row(dst, y)
			for x := range out {
				if ra[x] > rb[x] {
					out[x] = ra[x] - rb[x]
				} else {
					out[x] = rb[x] - ra[x]
				}
			}
		}
	})
	return dst, nil
}
