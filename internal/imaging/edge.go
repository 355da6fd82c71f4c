package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// Canny thresholds used by the frame analysis pipeline.
const (
	DefaultCannyLow  = 50
	DefaultCannyHigh = 150
)

// gradient holds the Sobel response of a gray image, row-major.
type gradient struct {
	width, height int
	gx, gy        []float64
	mag           []float64
}

// sobel computes horizontal and vertical Sobel derivatives of img on the
// 0-255 scale. Border pixels are replicated.
func sobel(img *image.Gray) *gradient {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	g := &gradient{
		width:  w,
		height: h,
		gx:     make([]float64, w*h),
		gy:     make([]float64, w*h),
		mag:    make([]float64, w*h),
	}

	at := func(x, y int) float64 {
		return float64(img.Pix[clamp(y, 0, h-1)*img.Stride+clamp(x, 0, w-1)])
	}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				gx := -at(x-1, y-1) + at(x+1, y-1) -
					2*at(x-1, y) + 2*at(x+1, y) -
					at(x-1, y+1) + at(x+1, y+1)
				gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
					at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
				i := y*w + x
				g.gx[i] = gx
				g.gy[i] = gy
				g.mag[i] = math.Sqrt(gx*gx + gy*gy)
			}
		}
	})
	return g
}

// SobelMagnitude returns the gradient magnitude of img, saturated to 255.
func SobelMagnitude(img *image.Gray) (*image.Gray, error) {
	if err := CheckGray("sobel", img); err != nil {
		return nil, err
	}
	src, _ := ToGray(img)
	g := sobel(src)

	dst := image.NewGray(image.Rect(0, 0, g.width, g.height))
	for i, m := range g.mag {
		dst.Pix[i] = uint8(math.Min(255, math.Round(m)))
	}
	return dst, nil
}

// Canny produces a binary edge map of img (edges 255, background 0).
//
// The input is expected to be smoothed already; no blur is applied here.
// Thresholds are on the 0-255 gradient scale:
//
//  1. Gradient computation: Sobel operators, magnitude = sqrt(Gx² + Gy²)
//  2. Non-maximum suppression along the quantized gradient direction
//  3. Hysteresis: pixels above high are strong edges, pixels above low are
//     kept only when 8-connected to a strong edge
//
// # Errors
//
//   - low must be non-negative and not greater than high
//   - img must be non-nil with non-zero area
func Canny(img *image.Gray, low, high float64) (*image.Gray, error) {
	if err := CheckGray("canny", img); err != nil {
		return nil, err
	}
	if low < 0 || high < low {
		return nil, fmt.Errorf("invalid canny thresholds: low=%v high=%v", low, high)
	}
	src, _ := ToGray(img)
	g := sobel(src)
	w, h := g.width, g.height

	// Non-maximum suppression
	suppressed := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			mag := g.mag[i]
			if mag <= low {
				continue
			}
			angle := math.Atan2(g.gy[i], g.gx[i])

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = g.mag[i-1], g.mag[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = g.mag[i-w-1], g.mag[i+w+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = g.mag[i-w], g.mag[i+w]
			default:
				n1, n2 = g.mag[i-w+1], g.mag[i+w-1]
			}

			if mag >= n1 && mag > n2 {
				suppressed[i] = mag
			}
		}
	}

	// Edge tracking by hysteresis
	result := image.NewGray(image.Rect(0, 0, w, h))
	var stack []int
	for i, v := range suppressed {
		if v > high && result.Pix[i] == 0 {
			result.Pix[i] = 255
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%w, p/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := px+dx, py+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if result.Pix[n] == 0 && suppressed[n] > low {
						result.Pix[n] = 255
						stack = append(stack, n)
					}
				}
			}
		}
	}

	return result, nil
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
