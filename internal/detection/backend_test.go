package detection

import (
	"image"
	"testing"
)

func TestNewBackend_Native(t *testing.T) {
	for _, name := range []string{"", BackendNative} {
		b, err := NewBackend(name)
		if err != nil {
			t.Fatalf("NewBackend(%q) failed: %v", name, err)
		}
		if b.Name() != BackendNative {
			t.Errorf("NewBackend(%q).Name() = %q", name, b.Name())
		}
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	if _, err := NewBackend("vulkan"); err == nil {
		t.Error("unknown backend should fail")
	}
}

// stubBackend reports a single fixed region for any mask.
type stubBackend struct{ nativeBackend }

func (stubBackend) Name() string { return "stub" }

func (stubBackend) ExternalRegions(*image.Gray) ([]Region, error) {
	return []Region{{Box: BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}, Area: 5}}, nil
}

func TestRegisterBackend(t *testing.T) {
	RegisterBackend("stub", func() Backend { return stubBackend{} })

	found := false
	for _, name := range Backends() {
		found = found || name == "stub"
	}
	if !found {
		t.Fatalf("registered backend missing from %v", Backends())
	}

	opts := DefaultOptions()
	opts.Backend = "stub"
	d, err := NewMotionDetector(opts)
	if err != nil {
		t.Fatal(err)
	}
	res, err := d.Detect(newGray(10, 10, 0), newGray(10, 10, 0))
	if err != nil {
		t.Fatal(err)
	}
	if res.Backend != "stub" || len(res.Regions) != 1 {
		t.Errorf("detector did not use the registered backend: %+v", res)
	}
}

func TestNativeBackend_Align(t *testing.T) {
	b, err := NewBackend(BackendNative)
	if err != nil {
		t.Fatal(err)
	}
	ref := newGray(48, 48, 0)
	fillRect(ref, image.Rect(10, 12, 22, 18), 255)
	cmp, _ := Translate(ref, -4, 3)

	aligned, s, err := b.Align(ref, cmp)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if s.DX != -4 || s.DY != 3 {
		t.Errorf("shift: got (%d,%d), want (-4,3)", s.DX, s.DY)
	}
	if s.Homography != nil {
		t.Error("phase correlation should not report a homography")
	}
	for i := range ref.Pix {
		if aligned.Pix[i] != ref.Pix[i] {
			t.Fatalf("aligned frame differs from reference at %d", i)
		}
	}
}
