package detection

import (
	"image"
	"testing"
)

func TestAnalyzeFrame_Square(t *testing.T) {
	img := newGray(60, 60, 20)
	square := image.Rect(20, 20, 40, 40)
	fillRect(img, square, 200)

	a, err := AnalyzeFrame(img, DefaultFrameOptions())
	if err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}

	for name, stage := range map[string]*image.Gray{
		"original":   a.Original,
		"normalized": a.Normalized,
		"blurred":    a.Blurred,
		"edges":      a.Edges,
	} {
		if stage == nil || stage.Bounds() != img.Bounds() {
			t.Errorf("%s stage: unexpected bounds", name)
		}
	}

	if a.Normalized.GrayAt(0, 0).Y != 0 || a.Normalized.GrayAt(30, 30).Y != 255 {
		t.Error("normalization did not stretch to the full range")
	}
	if len(a.Regions) == 0 {
		t.Fatal("no regions found around the square")
	}

	near := square.Inset(-3)
	for _, b := range a.Boxes() {
		if !b.Rect().In(near) {
			t.Errorf("region box %v strays from the square", b)
		}
	}
}

func TestAnalyzeFrame_Flat(t *testing.T) {
	a, err := AnalyzeFrame(newGray(32, 32, 90), DefaultFrameOptions())
	if err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}
	if len(a.Regions) != 0 {
		t.Errorf("flat frame produced %d regions", len(a.Regions))
	}
}

func TestAnalyzeFrame_Errors(t *testing.T) {
	if _, err := AnalyzeFrame(nil, DefaultFrameOptions()); err == nil {
		t.Error("nil frame should fail")
	}
	opts := DefaultFrameOptions()
	opts.BlurKernel = 4
	if _, err := AnalyzeFrame(newGray(8, 8, 0), opts); err == nil {
		t.Error("even blur kernel should fail")
	}
	opts = DefaultFrameOptions()
	opts.CannyLow, opts.CannyHigh = 200, 100
	if _, err := AnalyzeFrame(newGray(8, 8, 0), opts); err == nil {
		t.Error("inverted canny thresholds should fail")
	}
}

func TestAnalyzeFrame_BilateralPrefilter(t *testing.T) {
	img := newGray(60, 60, 20)
	square := image.Rect(20, 20, 40, 40)
	fillRect(img, square, 200)

	plain, err := AnalyzeFrame(img, DefaultFrameOptions())
	if err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}
	if plain.Filtered != nil {
		t.Error("filtered stage should be nil when the pre-filter is off")
	}

	opts := DefaultFrameOptions()
	opts.Bilateral.Enabled = true
	a, err := AnalyzeFrame(img, opts)
	if err != nil {
		t.Fatalf("AnalyzeFrame with bilateral failed: %v", err)
	}
	if a.Filtered == nil || a.Filtered.Bounds() != img.Bounds() {
		t.Fatal("filtered stage missing")
	}
	// A sharp two-level frame passes the bilateral filter unchanged.
	if a.Filtered.GrayAt(0, 0).Y != 20 || a.Filtered.GrayAt(30, 30).Y != 200 {
		t.Errorf("flat areas changed: got %d and %d", a.Filtered.GrayAt(0, 0).Y, a.Filtered.GrayAt(30, 30).Y)
	}
	if len(a.Regions) == 0 {
		t.Fatal("no regions found around the square")
	}
	near := square.Inset(-3)
	for _, b := range a.Boxes() {
		if !b.Rect().In(near) {
			t.Errorf("region box %v strays from the square", b)
		}
	}

	opts.Bilateral.Diameter = 0
	if _, err := AnalyzeFrame(img, opts); err == nil {
		t.Error("zero bilateral diameter should fail when enabled")
	}
}
