package source

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

func TestFetchPair(t *testing.T) {
	var calls atomic.Int32
	p := ProviderFunc(func(ctx context.Context, k Key) (image.Image, error) {
		calls.Add(1)
		return image.NewGray(image.Rect(0, 0, int(k.RA), int(k.Dec))), nil
	})

	a, b, err := FetchPair(context.Background(), p, SkyKey(10, 20), SkyKey(30, 40))
	if err != nil {
		t.Fatalf("FetchPair failed: %v", err)
	}
	if a.Bounds().Dx() != 10 || b.Bounds().Dx() != 30 {
		t.Errorf("frames swapped: %v %v", a.Bounds(), b.Bounds())
	}
	if calls.Load() != 2 {
		t.Errorf("provider called %d times", calls.Load())
	}
}

func TestFetchPair_Error(t *testing.T) {
	boom := errors.New("boom")
	p := ProviderFunc(func(ctx context.Context, k Key) (image.Image, error) {
		if k.RA == 2 {
			return nil, boom
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, _, err := FetchPair(context.Background(), p, SkyKey(1, 1), SkyKey(2, 2))
	if !errors.Is(err, boom) {
		t.Errorf("expected the failing fetch's error, got %v", err)
	}
}

func TestRouter(t *testing.T) {
	tag := func(name string) Provider {
		return ProviderFunc(func(context.Context, Key) (image.Image, error) {
			return image.NewGray(image.Rect(0, 0, len(name), 1)), nil
		})
	}
	r := &Router{Sky: tag("s"), APOD: tag("ap"), Files: tag("fil")}

	tests := []struct {
		key   Key
		width int
	}{
		{SkyKey(1, 2), 1},
		{Key{Date: "2024-01-01"}, 2},
		{FileKey("x.png"), 3},
	}
	for _, tt := range tests {
		img, err := r.Fetch(context.Background(), tt.key)
		if err != nil {
			t.Fatalf("%s: %v", tt.key, err)
		}
		if img.Bounds().Dx() != tt.width {
			t.Errorf("%s routed to the wrong provider", tt.key)
		}
	}

	if _, err := (&Router{}).Fetch(context.Background(), SkyKey(1, 1)); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("missing provider: got %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	if err := imaging.SaveImage(image.NewGray(image.Rect(0, 0, 12, 7)), path); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(nil)
	img, err := p.Fetch(context.Background(), FileKey(path))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 7 {
		t.Errorf("size: got %v", img.Bounds())
	}
	if p.Cache().Len() != 1 {
		t.Errorf("frame not cached")
	}

	if _, err := p.Fetch(context.Background(), Key{}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("empty path: got %v", err)
	}
	if _, err := p.Fetch(context.Background(), FileKey(filepath.Join(dir, "missing.png"))); err == nil {
		t.Error("missing file should fail")
	}
}
