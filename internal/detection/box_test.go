package detection

import (
	"image"
	"testing"
)

func TestBoundingBox(t *testing.T) {
	b := BoundingBox{X: 2, Y: 3, Width: 4, Height: 5}

	if b.Rect() != image.Rect(2, 3, 6, 8) {
		t.Errorf("Rect: got %v", b.Rect())
	}
	if b.Area() != 20 {
		t.Errorf("Area: got %d", b.Area())
	}
	if !b.Contains(2, 3) || !b.Contains(5, 7) || b.Contains(6, 7) || b.Contains(5, 8) {
		t.Error("Contains does not treat the box as inclusive-exclusive")
	}
	if BoxFromRect(b.Rect()) != b {
		t.Error("BoxFromRect does not invert Rect")
	}
	if !b.Valid() || (BoundingBox{Width: 0, Height: 1}).Valid() {
		t.Error("Valid misclassified a box")
	}
	if b.String() != "(2,3,4,5)" {
		t.Errorf("String: got %s", b.String())
	}
}

func TestFilterMinSize(t *testing.T) {
	boxes := []BoundingBox{
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 1, Y: 1, Width: 5, Height: 10},
		{X: 2, Y: 2, Width: 6, Height: 6},
		{X: 3, Y: 3, Width: 10, Height: 5},
	}

	tests := []struct {
		min  int
		want int
	}{
		{0, 4},
		{-1, 4},
		{4, 3},
		{5, 1},
		{6, 0},
	}
	for _, tt := range tests {
		got := FilterMinSize(boxes, tt.min)
		if len(got) != tt.want {
			t.Errorf("min %d: got %d boxes, want %d", tt.min, len(got), tt.want)
		}
	}

	kept := FilterMinSize(boxes, 5)
	if kept[0] != boxes[2] {
		t.Errorf("min 5 kept %v, want %v", kept[0], boxes[2])
	}
	if len(boxes) != 4 {
		t.Error("input slice modified")
	}
}
