package detection

import (
	"image"
	"testing"
)

func TestEstimateShift(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy int
	}{
		{"none", 0, 0},
		{"right down", 5, 3},
		{"left up", -4, -7},
		{"horizontal", 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := newGray(64, 64, 0)
			fillRect(ref, image.Rect(24, 24, 32, 34), 200)
			fillRect(ref, image.Rect(40, 12, 43, 15), 120)
			cmp, err := Translate(ref, tt.dx, tt.dy)
			if err != nil {
				t.Fatal(err)
			}

			s, err := EstimateShift(ref, cmp)
			if err != nil {
				t.Fatalf("EstimateShift failed: %v", err)
			}
			if s.DX != tt.dx || s.DY != tt.dy {
				t.Errorf("shift: got (%d,%d), want (%d,%d)", s.DX, s.DY, tt.dx, tt.dy)
			}
			if s.Response <= 0 || s.Response > 1+1e-9 {
				t.Errorf("response out of range: %v", s.Response)
			}
		})
	}
}

func TestEstimateShift_SizeMismatch(t *testing.T) {
	if _, err := EstimateShift(newGray(8, 8, 0), newGray(4, 8, 0)); err == nil {
		t.Error("frames of different size should fail")
	}
}

func TestTranslate(t *testing.T) {
	img := maskFromRows(
		"#...",
		"....",
		"....",
	)
	out, err := Translate(img, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if out.GrayAt(2, 1).Y != 255 {
		t.Error("pixel did not move to (2,1)")
	}
	if out.GrayAt(0, 0).Y != 255 {
		t.Error("uncovered corner should replicate the edge")
	}
	if out.GrayAt(3, 2).Y != 0 {
		t.Error("unexpected foreground at (3,2)")
	}
}

func TestAlign(t *testing.T) {
	ref := newGray(48, 48, 0)
	fillRect(ref, image.Rect(10, 10, 20, 16), 255)
	cmp, _ := Translate(ref, 3, 2)

	aligned, s, err := Align(ref, cmp)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if s.DX != 3 || s.DY != 2 {
		t.Errorf("shift: got %+v", s)
	}
	for i := range ref.Pix {
		if aligned.Pix[i] != ref.Pix[i] {
			t.Fatalf("aligned frame differs from reference at %d", i)
		}
	}
}
