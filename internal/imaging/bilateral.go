package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// Bilateral filter defaults used by the optional frame pre-filter.
const (
	DefaultBilateralDiameter   = 9
	DefaultBilateralSigmaColor = 75.0
	DefaultBilateralSigmaSpace = 75.0
)

// BilateralFilter smooths img while keeping edges, weighting each neighbor by
// both its distance and its intensity difference from the center pixel.
//
// Parameters:
//   - img: the gray frame to filter
//   - d: neighborhood diameter; only pixels within d/2 of the center count
//   - sigmaColor: spread of the intensity weight
//   - sigmaSpace: spread of the distance weight
//
// Returns:
//   - *image.Gray: a new image the size of img
//   - error: when an argument is out of range
//
// Border pixels are extended. Results are rounded to the nearest integer.
//
// # Example Usage
//
//	smooth, err := imaging.BilateralFilter(frame,
//		imaging.DefaultBilateralDiameter,
//		imaging.DefaultBilateralSigmaColor,
//		imaging.DefaultBilateralSigmaSpace)
func BilateralFilter(img *image.Gray, d int, sigmaColor, sigmaSpace float64) (*image.Gray, error) {
	if err := CheckGray("bilateral", img); err != nil {
		return nil, err
	}
	if d < 1 {
		return nil, fmt.Errorf("bilateral diameter must be positive, got %d", d)
	}
	if sigmaColor <= 0 || sigmaSpace <= 0 {
		return nil, fmt.Errorf("bilateral sigmas must be positive, got color=%v space=%v", sigmaColor, sigmaSpace)
	}
	src, _ := ToGray(img)
	radius := d / 2
	if radius == 0 {
		return CloneGray(src), nil
	}

	var colorWeight [256]float64
	for i := range colorWeight {
		colorWeight[i] = math.Exp(-float64(i*i) / (2 * sigmaColor * sigmaColor))
	}

	type tap struct {
		dx, dy int
		w      float64
	}
	var taps []tap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := dx*dx + dy*dy
			if r2 > radius*radius {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(-float64(r2) / (2 * sigmaSpace * sigmaSpace))})
		}
	}

	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			out := Row(dst, y)
			for x := range out {
				center := int(src.Pix[y*src.Stride+x])
				var sum, norm float64
				for _, t := range taps {
					nx := clamp(x+t.dx, 0, w-1)
					ny := clamp(y+t.dy, 0, h-1)
					v := int(src.Pix[ny*src.Stride+nx])
					diff := v - center
					if diff < 0 {
						diff = -diff
					}
					wt := t.w * colorWeight[diff]
					sum += wt * float64(v)
					norm += wt
				}
				out[x] = uint8(math.Max(0, math.Min(255, math.Round(sum/norm))))
			}
		}
	})
	return dst, nil
}
