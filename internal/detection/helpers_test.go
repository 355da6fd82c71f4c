package detection

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// newGray creates a width x height gray image filled with v.
func newGray(width, height int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// fillRect paints r on img with v.
func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

// maskFromRows builds a mask from rows of '#' (foreground) and '.' characters.
func maskFromRows(rows ...string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}

// randomGray returns a reproducible noise image.
func randomGray(seed int64, width, height int) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// twoSquareFrames returns the black reference frame and the comparison frame
// with two white squares of side size at (a,a) and (b,b).
func twoSquareFrames(dim, a, b, size int) (*image.Gray, *image.Gray) {
	ref := newGray(dim, dim, 0)
	cmp := newGray(dim, dim, 0)
	fillRect(cmp, image.Rect(a, a, a+size, a+size), 255)
	fillRect(cmp, image.Rect(b, b, b+size, b+size), 255)
	return ref, cmp
}

func countForeground(img *image.Gray) int {
	n := 0
	for _, v := range img.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func assertBoxNear(t *testing.T, got, want BoundingBox, tol int) {
	t.Helper()
	if abs(got.X-want.X) > tol || abs(got.Y-want.Y) > tol ||
		abs(got.Width-want.Width) > tol || abs(got.Height-want.Height) > tol {
		t.Errorf("box %v not within ±%d of %v", got, tol, want)
	}
}
