package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// GrayRange returns the smallest and largest sample of img.
func GrayRange(img *image.Gray) (lo, hi uint8) {
	lo, hi = 255, 0
	for y := 0; y < img.Rect.Dy(); y++ {
		for _, v := range Row(img, y) {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// NormalizeBrightness stretches the intensities of img linearly so that its
// darkest sample maps to 0 and its brightest to 255.
//
// A constant image has no range to stretch and maps to all zeros.
// Results are rounded to the nearest integer.
func NormalizeBrightness(img *image.Gray) (*image.Gray, error) {
	if err := CheckGray("normalize", img); err != nil {
		return nil, err
	}
	src, _ := ToGray(img)
	lo, hi := GrayRange(src)

	scale := 0.0
	if hi > lo {
		scale = 255.0 / float64(hi-lo)
	}

	var lut [256]uint8
	for v := range lut {
		n := math.Round((float64(v) - float64(lo)) * scale)
		lut[v] = uint8(math.Max(0, math.Min(255, n)))
	}

	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			in, out := Row(src, y), Row(dst, y)
			for x, v := range in {
				out[x] = lut[v]
			}
		}
	})
	return dst, nil
}
