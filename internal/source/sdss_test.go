package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSDSSProvider_CutoutURL(t *testing.T) {
	p := &SDSSProvider{BaseURL: "http://example.test/getjpeg"}

	u, err := p.CutoutURL(SkyKey(180, 0.5))
	if err != nil {
		t.Fatalf("CutoutURL failed: %v", err)
	}
	parsed, _ := url.Parse(u)
	q := parsed.Query()
	want := map[string]string{
		"ra":     "180",
		"dec":    "0.5",
		"scale":  "0.2",
		"width":  "512",
		"height": "512",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}

	u, err = p.CutoutURL(Key{RA: 10, Dec: -5, Scale: 1, Width: 64, Height: 32})
	if err != nil {
		t.Fatal(err)
	}
	parsed, _ = url.Parse(u)
	if parsed.Query().Get("scale") != "1" || parsed.Query().Get("height") != "32" {
		t.Errorf("explicit geometry not used: %s", u)
	}
}

func TestSDSSProvider_CutoutURL_InvalidKey(t *testing.T) {
	p := NewSDSSProvider("")
	tests := []Key{
		{RA: -1},
		{RA: 361},
		{Dec: 91},
		{Dec: -91},
		{Scale: -0.2},
		{Width: -5},
	}
	for _, k := range tests {
		if _, err := p.CutoutURL(k); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("key %+v: expected ErrInvalidKey, got %v", k, err)
		}
	}
}

func TestSDSSProvider_Fetch(t *testing.T) {
	payload := jpegBytes(t, 64, 48)
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	p := &SDSSProvider{BaseURL: srv.URL, Client: srv.Client(), RawDir: dir}

	img, err := p.Fetch(context.Background(), SkyKey(180, 0))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("decoded size: got %v", b)
	}
	if gotQuery.Get("ra") != "180" || gotQuery.Get("dec") != "0" {
		t.Errorf("unexpected query: %v", gotQuery)
	}

	saved, err := os.ReadFile(filepath.Join(dir, "sdss_180_0.jpg"))
	if err != nil {
		t.Fatalf("raw cutout not saved: %v", err)
	}
	if len(saved) != len(payload) {
		t.Errorf("saved %d bytes, want %d", len(saved), len(payload))
	}
}

func TestSDSSProvider_Fetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "coordinates out of footprint", http.StatusBadRequest)
	}))
	defer srv.Close()

	dir := t.TempDir()
	p := &SDSSProvider{BaseURL: srv.URL, Client: srv.Client(), RawDir: dir}

	_, err := p.Fetch(context.Background(), SkyKey(1, 1))
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if herr.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d", herr.StatusCode)
	}
	if !strings.Contains(herr.Body, "footprint") {
		t.Errorf("body excerpt missing: %q", herr.Body)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed fetch left %d files behind", len(entries))
	}
}

func TestSDSSProvider_Fetch_NotAnImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	p := &SDSSProvider{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := p.Fetch(context.Background(), SkyKey(1, 1)); err == nil {
		t.Error("non-image payload should fail to decode")
	}
}

func TestGet_PayloadLimit(t *testing.T) {
	old := maxBodyBytes
	maxBodyBytes = 64
	t.Cleanup(func() { maxBodyBytes = old })

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"under limit", 63, false},
		{"at limit", 64, false},
		{"one over", 65, true},
		{"far over", 4096, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(strings.Repeat("x", tt.size)))
			}))
			defer srv.Close()

			body, err := get(context.Background(), srv.Client(), srv.URL)
			if tt.wantErr {
				if !errors.Is(err, ErrPayloadTooLarge) {
					t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(body) != tt.size {
				t.Errorf("body length: got %d, want %d", len(body), tt.size)
			}
		})
	}
}

func TestSDSSProvider_Fetch_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &SDSSProvider{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := p.Fetch(ctx, SkyKey(1, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestKey_String(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{SkyKey(180, -0.25), "sky:180,-0.25"},
		{Key{Date: "2024-01-02"}, "apod:2024-01-02"},
		{FileKey("a/b.png"), "file:a/b.png"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
