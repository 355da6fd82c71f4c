package imaging

import (
	"image"
	"testing"
)

func TestNormalizeBrightness(t *testing.T) {
	img := newGray(4, 1, 0)
	copy(img.Pix, []uint8{50, 100, 150, 200})

	out, err := NormalizeBrightness(img)
	if err != nil {
		t.Fatalf("NormalizeBrightness failed: %v", err)
	}

	want := []uint8{0, 85, 170, 255}
	for i, w := range want {
		if out.Pix[i] != w {
			t.Errorf("pixel %d: got %d, want %d", i, out.Pix[i], w)
		}
	}
	if img.Pix[0] != 50 {
		t.Error("input was modified")
	}
}

func TestNormalizeBrightness_Constant(t *testing.T) {
	out, err := NormalizeBrightness(newGray(5, 5, 123))
	if err != nil {
		t.Fatalf("NormalizeBrightness failed: %v", err)
	}
	if n := countNonZero(out); n != 0 {
		t.Errorf("constant image: %d non-zero pixels, want 0", n)
	}
}

func TestNormalizeBrightness_FullRange(t *testing.T) {
	img := newGray(10, 10, 0)
	fillRect(img, image.Rect(0, 0, 5, 10), 255)

	out, err := NormalizeBrightness(img)
	if err != nil {
		t.Fatalf("NormalizeBrightness failed: %v", err)
	}
	for i := range img.Pix {
		if out.Pix[i] != img.Pix[i] {
			t.Fatalf("full range image changed at %d: %d -> %d", i, img.Pix[i], out.Pix[i])
		}
	}
}

func TestGrayRange(t *testing.T) {
	img := newGray(3, 3, 40)
	img.Pix[4] = 10
	img.Pix[8] = 220
	lo, hi := GrayRange(img)
	if lo != 10 || hi != 220 {
		t.Errorf("GrayRange: got (%d,%d), want (10,220)", lo, hi)
	}
}
