package detection

import (
	"fmt"
	"image"
	"math"
	"math/cmplx"

	"github.com/anthonynsimon/bild/parallel"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

// Shift is an integer translation between two frames.
//
// A shift of (DX, DY) means the comparison frame shows the reference content
// moved DX pixels right and DY pixels down.
type Shift struct {
	DX int `json:"dx"`
	DY int `json:"dy"`

	// Response is the normalized correlation peak in [0,1] for phase
	// correlation, or the RANSAC inlier fraction for feature alignment.
	Response float64 `json:"response"`

	// Homography is the row-major 3x3 matrix mapping comparison pixels onto
	// the reference, set only by feature based alignment.
	Homography []float64 `json:"homography,omitempty"`
}

// EstimateShift measures the translation of cmp relative to ref by phase
// correlation. Both frames must have the same dimensions.
func EstimateShift(ref, cmp *image.Gray) (Shift, error) {
	if err := imaging.CheckGray("reference frame", ref); err != nil {
		return Shift{}, err
	}
	if err := imaging.CheckGray("comparison frame", cmp); err != nil {
		return Shift{}, err
	}
	a, _ := imaging.ToGray(ref)
	b, _ := imaging.ToGray(cmp)
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if b.Rect.Dx() != w || b.Rect.Dy() != h {
		return Shift{}, fmt.Errorf("frames differ in size: %dx%d vs %dx%d", w, h, b.Rect.Dx(), b.Rect.Dy())
	}

	fa := spectrum(a)
	fb := spectrum(b)

	cross := make([]complex128, w*h)
	for i := range cross {
		c := fb[i] * cmplx.Conj(fa[i])
		if m := cmplx.Abs(c); m > 1e-12 {
			cross[i] = c / complex(m, 0)
		}
	}
	corr := transform2D(cross, w, h, true)

	best, bestVal := 0, math.Inf(-1)
	for i, v := range corr {
		if real(v) > bestVal {
			best, bestVal = i, real(v)
		}
	}

	dx, dy := best%w, best/w
	if dx > w/2 {
		dx -= w
	}
	if dy > h/2 {
		dy -= h
	}
	return Shift{DX: dx, DY: dy, Response: bestVal / float64(w*h)}, nil
}

// spectrum returns the 2-D Fourier coefficients of img with its mean removed.
func spectrum(img *image.Gray) []complex128 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	mean, _ := imaging.GrayMeanStdDev(img)
	data := make([]complex128, w*h)
	for y := 0; y < h; y++ {
		for x, v := range imaging.Row(img, y) {
			data[y*w+x] = complex(float64(v)-mean, 0)
		}
	}
	return transform2D(data, w, h, false)
}

// transform2D applies a row-column FFT in place. The inverse is unnormalized.
func transform2D(data []complex128, w, h int, inverse bool) []complex128 {
	apply := func(t *fourier.CmplxFFT, buf []complex128) {
		if inverse {
			t.Sequence(buf, buf)
		} else {
			t.Coefficients(buf, buf)
		}
	}

	parallel.Line(h, func(start, end int) {
		t := fourier.NewCmplxFFT(w)
		for y := start; y < end; y++ {
			apply(t, data[y*w:(y+1)*w])
		}
	})

	parallel.Line(w, func(start, end int) {
		t := fourier.NewCmplxFFT(h)
		col := make([]complex128, h)
		for x := start; x < end; x++ {
			for y := 0; y < h; y++ {
				col[y] = data[y*w+x]
			}
			apply(t, col)
			for y := 0; y < h; y++ {
				data[y*w+x] = col[y]
			}
		}
	})
	return data
}

// Translate moves img by (dx, dy). Uncovered pixels replicate the nearest edge.
func Translate(img *image.Gray, dx, dy int) (*image.Gray, error) {
	if err := imaging.CheckGray("translate", img); err != nil {
		return nil, err
	}
	src, _ := imaging.ToGray(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			sy := clampInt(y-dy, 0, h-1)
			in, out := imaging.Row(src, sy), imaging.Row(dst, y)
			for x := range out {
				out[x] = in[clampInt(x-dx, 0, w-1)]
			}
		}
	})
	return dst, nil
}

// Align estimates the shift of cmp against ref and returns cmp moved back
// onto ref. The frames must share dimensions.
func Align(ref, cmp *image.Gray) (*image.Gray, Shift, error) {
	s, err := EstimateShift(ref, cmp)
	if err != nil {
		return nil, Shift{}, err
	}
	aligned, err := Translate(cmp, -s.DX, -s.DY)
	if err != nil {
		return nil, Shift{}, err
	}
	return aligned, s, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
