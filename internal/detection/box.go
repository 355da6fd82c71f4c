package detection

import (
	"fmt"
	"image"
)

// BoundingBox is the minimal axis-aligned rectangle enclosing one region.
//
// X and Y address the top-left pixel (inclusive); Width and Height are
// always positive for boxes produced by this package.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the box as an image.Rectangle (exclusive Max).
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area returns Width * Height.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Contains reports whether pixel (x, y) lies inside the box.
func (b BoundingBox) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Exceeds reports whether both sides of the box are strictly larger than min.
// Every box exceeds a min of zero or less.
func (b BoundingBox) Exceeds(min int) bool {
	return b.Width > min && b.Height > min
}

// Valid reports whether the box satisfies x,y >= 0 and width,height > 0.
func (b BoundingBox) Valid() bool {
	return b.X >= 0 && b.Y >= 0 && b.Width > 0 && b.Height > 0
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.X, b.Y, b.Width, b.Height)
}

// BoxFromRect converts an image.Rectangle to a BoundingBox.
func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// FilterMinSize returns the boxes whose width and height both exceed min,
// preserving order. The input slice is not modified.
func FilterMinSize(boxes []BoundingBox, min int) []BoundingBox {
	out := make([]BoundingBox, 0, len(boxes))
	for _, b := range boxes {
		if b.Exceeds(min) {
			out = append(out, b)
		}
	}
	return out
}
