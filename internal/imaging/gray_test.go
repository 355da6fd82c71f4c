package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestCheckGray(t *testing.T) {
	if err := CheckGray("x", nil); !errors.Is(err, ErrNilImage) {
		t.Errorf("nil image: got %v, want ErrNilImage", err)
	}
	empty := image.NewGray(image.Rect(0, 0, 0, 10))
	if err := CheckGray("x", empty); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("empty image: got %v, want ErrEmptyImage", err)
	}
	if err := CheckGray("x", newGray(2, 2, 0)); err != nil {
		t.Errorf("valid image: unexpected error %v", err)
	}
}

func TestToGray_Color(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}

	g, err := ToGray(img)
	if err != nil {
		t.Fatalf("ToGray failed: %v", err)
	}
	if g.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Errorf("bounds: got %v", g.Bounds())
	}
	if v := g.GrayAt(2, 1).Y; v != 200 {
		t.Errorf("gray value: got %d, want 200", v)
	}
}

func TestToGray_OffsetBounds(t *testing.T) {
	src := newGray(10, 10, 0)
	fillRect(src, image.Rect(5, 5, 10, 10), 99)
	sub := src.SubImage(image.Rect(5, 5, 10, 10))

	g, err := ToGray(sub)
	if err != nil {
		t.Fatalf("ToGray failed: %v", err)
	}
	if g.Bounds().Min != (image.Point{}) {
		t.Errorf("result not anchored at origin: %v", g.Bounds())
	}
	if v := g.GrayAt(0, 0).Y; v != 99 {
		t.Errorf("gray value: got %d, want 99", v)
	}
}

func TestToGray_Errors(t *testing.T) {
	if _, err := ToGray(nil); !errors.Is(err, ErrNilImage) {
		t.Errorf("nil: got %v", err)
	}
	if _, err := ToGray(image.NewRGBA(image.Rectangle{})); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("empty: got %v", err)
	}
}

func TestCloneGray(t *testing.T) {
	src := newGray(3, 3, 7)
	dst := CloneGray(src)
	dst.Pix[0] = 0
	if src.Pix[0] != 7 {
		t.Error("CloneGray shares pixels with its source")
	}
}
