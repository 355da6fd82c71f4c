package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

const (
	// DefaultThreshold is the difference level above which a pixel counts as changed.
	DefaultThreshold = 30

	// DefaultCloseRadius selects a 3x3 structuring element for the closing step.
	DefaultCloseRadius = 1
)

// ErrThresholdRange is returned for thresholds outside [0,255].
var ErrThresholdRange = errors.New("threshold must be in [0,255]")

// Threshold produces a binary mask: 255 where d > threshold, 0 elsewhere.
func Threshold(d *image.Gray, threshold int) (*image.Gray, error) {
	if err := imaging.CheckGray("threshold", d); err != nil {
		return nil, err
	}
	if threshold < 0 || threshold > 255 {
		return nil, fmt.Errorf("%w, got %d", ErrThresholdRange, threshold)
	}
	src, _ := imaging.ToGray(d)
	return binarize(src, uint8(threshold)), nil
}

// binarize maps samples above level to 255 and the rest to 0.
func binarize(src *image.Gray, level uint8) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			in, out := imaging.Row(src, y), imaging.Row(dst, y)
			for x, v := range in {
				if v > level {
					out[x] = 255
				}
			}
		}
	})
	return dst
}

// Close applies a morphological closing (dilation followed by erosion) with a
// square structuring element of side 2*radius+1. A radius of 0 returns an
// unchanged copy.
//
// Small gaps between fragments of one object are filled so that they are
// extracted as a single region.
func Close(mask *image.Gray, radius int) (*image.Gray, error) {
	if err := imaging.CheckGray("close", mask); err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, fmt.Errorf("closing radius must be non-negative, got %d", radius)
	}
	src, _ := imaging.ToGray(mask)
	if radius == 0 {
		return imaging.CloneGray(src), nil
	}

	dilated := effect.Dilate(src, float64(radius))
	closed := effect.Erode(dilated, float64(radius))

	g, err := imaging.ToGray(closed)
	if err != nil {
		return nil, fmt.Errorf("failed to convert closed mask: %w", err)
	}
	return binarize(g, 0), nil
}

// ChangeMask thresholds a difference image and closes the result.
func ChangeMask(d *image.Gray, threshold, closeRadius int) (*image.Gray, error) {
	m, err := Threshold(d, threshold)
	if err != nil {
		return nil, err
	}
	return Close(m, closeRadius)
}
