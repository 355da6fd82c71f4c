package imaging

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.Len() != 0 {
		t.Errorf("new cache holds %d images", cache.Len())
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	path := writePNG(t, t.TempDir(), "frame.png", newGray(100, 80, 10))

	img1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img1.Bounds(); b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x80", b.Dx(), b.Dy())
	}

	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_Errors(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load("/nonexistent/path/to/image.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(bad); err == nil {
		t.Error("Load should fail for invalid image data")
	}
}

func TestImageCache_LoadGray(t *testing.T) {
	cache := NewImageCache()
	src := newGray(10, 10, 0)
	fillRect(src, image.Rect(0, 0, 10, 5), 200)
	path := writePNG(t, t.TempDir(), "g.png", src)

	g, err := cache.LoadGray(path)
	if err != nil {
		t.Fatalf("LoadGray failed: %v", err)
	}
	if g.GrayAt(3, 2).Y != 200 || g.GrayAt(3, 7).Y != 0 {
		t.Error("LoadGray returned wrong samples")
	}
	again, _ := cache.LoadGray(path)
	if again != g {
		t.Error("LoadGray did not reuse the cached conversion")
	}
}

func TestImageCache_EvictAndClear(t *testing.T) {
	cache := NewImageCache()
	dir := t.TempDir()
	p1 := writePNG(t, dir, "a.png", newGray(5, 5, 1))
	p2 := writePNG(t, dir, "b.png", newGray(5, 5, 2))

	if _, err := cache.LoadGray(p1); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(p2); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", cache.Len())
	}

	cache.Evict(p1)
	cache.mu.RLock()
	_, img := cache.images[p1]
	_, gray := cache.grays[p1]
	cache.mu.RUnlock()
	if img || gray {
		t.Error("Evict did not remove image from cache")
	}
	cache.Evict("/nonexistent/path")

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear left %d images", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	path := writePNG(t, t.TempDir(), "c.png", newGray(50, 50, 128))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.LoadGray(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent load failed: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	src := newGray(10, 10, 0)
	fillRect(src, image.Rect(0, 0, 10, 5), 200)
	path := writePNG(t, t.TempDir(), "info.png", src)

	info, err := LoadImageInfo(NewImageCache(), path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}
	if info.Width != 10 || info.Height != 10 {
		t.Errorf("dimensions: got %dx%d", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %q", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("file size not reported")
	}
	if info.Min != 0 || info.Max != 200 {
		t.Errorf("range: got (%d,%d), want (0,200)", info.Min, info.Max)
	}
	if math.Abs(info.Mean-100) > 1e-9 || math.Abs(info.StdDev-100) > 1e-9 {
		t.Errorf("stats: mean %v std %v, want 100/100", info.Mean, info.StdDev)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"a.png":  "png",
		"b.JPG":  "jpeg",
		"c.jpeg": "jpeg",
		"d.gif":  "gif",
		"e.fits": "unknown",
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
