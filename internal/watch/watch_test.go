package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ironsheep/astro-tools-mcp/internal/detection"
	"github.com/ironsheep/astro-tools-mcp/internal/logging"
	"github.com/ironsheep/astro-tools-mcp/internal/pipeline"
	"github.com/ironsheep/astro-tools-mcp/internal/source"
)

func fakeProcess(ctx context.Context, ref, cmp source.Key) (*pipeline.MotionRun, error) {
	return &pipeline.MotionRun{
		Reference:  ref.String(),
		Comparison: cmp.String(),
		Result:     &detection.MotionResult{},
	}, nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("frame"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func nextResult(t *testing.T, w *Watcher) Result {
	t.Helper()
	select {
	case r, ok := <-w.Results:
		if !ok {
			t.Fatal("results channel closed")
		}
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a comparison")
	}
	return Result{}
}

func startWatcher(t *testing.T, dir string, opts Options) (*Watcher, context.CancelFunc, chan error) {
	t.Helper()
	if opts.Settle == 0 {
		opts.Settle = 20 * time.Millisecond
	}
	opts.Logger = logging.NewWithWriter(io.Discard, "debug", "text")
	w, err := New(dir, fakeProcess, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return w, cancel, done
}

func TestWatcher_ComparesConsecutiveFrames(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	var released []string
	w, cancel, done := startWatcher(t, dir, Options{
		Release: func(p string) {
			mu.Lock()
			released = append(released, p)
			mu.Unlock()
		},
	})

	f1 := filepath.Join(dir, "frame1.png")
	f2 := filepath.Join(dir, "frame2.PNG")
	f3 := filepath.Join(dir, "frame3.jpg")

	touch(t, f1)
	time.Sleep(100 * time.Millisecond)
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, f2)

	r := nextResult(t, w)
	if r.Err != nil || r.Reference != f1 || r.Comparison != f2 {
		t.Fatalf("first comparison: %+v", r)
	}
	if r.Run.Reference != "file:"+f1 {
		t.Errorf("process got key %q", r.Run.Reference)
	}

	touch(t, f3)
	r = nextResult(t, w)
	if r.Reference != f2 || r.Comparison != f3 {
		t.Fatalf("second comparison: %+v", r)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if _, ok := <-w.Results; ok {
		t.Error("results channel should be closed after Run returns")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(released) != 2 || released[0] != f1 || released[1] != f2 {
		t.Errorf("released frames: %v", released)
	}
}

func TestWatcher_SeedLatest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.png")
	older := filepath.Join(dir, "older.png")
	touch(t, older)
	touch(t, old)
	past := time.Now().Add(-time.Hour)
	os.Chtimes(older, past, past)

	w, cancel, done := startWatcher(t, dir, Options{SeedLatest: true})
	defer func() {
		cancel()
		<-done
	}()

	fresh := filepath.Join(dir, "fresh.png")
	touch(t, fresh)
	r := nextResult(t, w)
	if r.Reference != old || r.Comparison != fresh {
		t.Errorf("expected %s -> %s, got %+v", old, fresh, r)
	}
}

func TestWatcher_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	w, cancel, done := startWatcher(t, dir, Options{Extensions: []string{"fits", ".tif"}})
	defer func() {
		cancel()
		<-done
	}()

	touch(t, filepath.Join(dir, "a.png"))
	touch(t, filepath.Join(dir, "a.fits"))
	time.Sleep(100 * time.Millisecond)
	touch(t, filepath.Join(dir, "b.TIF"))

	r := nextResult(t, w)
	if filepath.Ext(r.Reference) != ".fits" || filepath.Ext(r.Comparison) != ".TIF" {
		t.Errorf("unexpected pair: %+v", r)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(t.TempDir(), nil, Options{}); err == nil {
		t.Error("nil process function should fail")
	}
	if _, err := New(filepath.Join(t.TempDir(), "absent"), fakeProcess, Options{}); err == nil {
		t.Error("missing directory should fail")
	}
	file := filepath.Join(t.TempDir(), "file.png")
	touch(t, file)
	if _, err := New(file, fakeProcess, Options{}); err == nil {
		t.Error("plain file should fail")
	}
}

func TestWatcher_ReferenceWhileRunning(t *testing.T) {
	dir := t.TempDir()
	w, cancel, done := startWatcher(t, dir, Options{})
	defer func() {
		cancel()
		<-done
	}()

	stop := make(chan struct{})
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for {
			select {
			case <-stop:
				return
			default:
				_ = w.Reference()
				time.Sleep(time.Millisecond)
			}
		}
	}()

	f1 := filepath.Join(dir, "a.png")
	f2 := filepath.Join(dir, "b.png")
	touch(t, f1)
	time.Sleep(100 * time.Millisecond)
	touch(t, f2)
	nextResult(t, w)

	close(stop)
	<-polled
	if got := w.Reference(); got != f2 {
		t.Errorf("reference: got %q, want %q", got, f2)
	}
}
