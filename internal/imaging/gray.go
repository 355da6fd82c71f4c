package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

var (
	// ErrNilImage is returned when an operation receives a nil image.
	ErrNilImage = errors.New("image is nil")

	// ErrEmptyImage is returned when an operation receives an image with zero area.
	ErrEmptyImage = errors.New("image has zero area")
)

// CheckGray validates that img is usable as pipeline input.
// The name is used to label the returned error.
func CheckGray(name string, img *image.Gray) error {
	if img == nil {
		return fmt.Errorf("%s: %w", name, ErrNilImage)
	}
	if img.Bounds().Empty() {
		return fmt.Errorf("%s: %w", name, ErrEmptyImage)
	}
	return nil
}

// ToGray converts any decoded image into an origin-anchored *image.Gray.
//
// Color images are converted with the standard library luminance weights
// (color.GrayModel). An *image.Gray that is already anchored at the origin
// is returned as-is; callers must treat it as read-only.
func ToGray(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g, nil
	}

	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}

// CloneGray returns an origin-anchored copy of img.
func CloneGray(img *image.Gray) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], src[:b.Dx()])
	}
	return dst
}

// Row returns the pixel samples of row y of an origin-anchored gray image.
func Row(img *image.Gray, y int) []uint8 {
	start := y * img.Stride
	return img.Pix[start : start+img.Rect.Dx()]
}
