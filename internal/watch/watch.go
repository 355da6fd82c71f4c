// Package watch compares frames as they arrive in a directory.
//
// Each new image file is treated as the next frame of a sequence: once it
// has settled (no writes for the settle period) it is compared against the
// previous frame with motion detection, and then becomes the reference for
// the frame after it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ironsheep/astro-tools-mcp/internal/pipeline"
	"github.com/ironsheep/astro-tools-mcp/internal/source"
)

// ProcessFunc compares two frames on disk.
type ProcessFunc func(ctx context.Context, ref, cmp source.Key) (*pipeline.MotionRun, error)

// Result reports one comparison.
type Result struct {
	Reference  string
	Comparison string
	Run        *pipeline.MotionRun
	Err        error
}

// Options configures a Watcher.
type Options struct {
	// Extensions are matched case-insensitively; empty means common image types.
	Extensions []string
	// Settle is the quiet period before a new file is read.
	Settle time.Duration
	// SeedLatest uses the newest image already in the directory as the
	// first reference frame.
	SeedLatest bool
	// Release, when set, is called with a frame path once it is no longer
	// needed as a reference.
	Release func(path string)
	Logger  *slog.Logger
}

const defaultSettle = 500 * time.Millisecond

var defaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// Watcher monitors one directory.
type Watcher struct {
	dir     string
	process ProcessFunc
	opts    Options
	exts    map[string]bool
	logger  *slog.Logger

	watcher *fsnotify.Watcher
	Results chan Result

	pending map[string]time.Time

	// prev is written only by Run; mu guards it for Reference.
	mu   sync.RWMutex
	prev string
}

// New creates a watcher over dir. Call Run to start it.
func New(dir string, process ProcessFunc, opts Options) (*Watcher, error) {
	if process == nil {
		return nil, errors.New("watch: nil process function")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to watch %s: not a directory", dir)
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = defaultExtensions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:     dir,
		process: process,
		opts:    opts,
		exts:    exts,
		logger:  opts.Logger,
		watcher: fw,
		Results: make(chan Result, 16),
		pending: make(map[string]time.Time),
	}
	if opts.SeedLatest {
		w.prev = w.latestFrame()
	}
	return w, nil
}

// Reference returns the frame the next arrival will be compared against.
// It is safe to call while Run is active.
func (w *Watcher) Reference() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.prev
}

func (w *Watcher) setReference(path string) {
	w.mu.Lock()
	w.prev = path
	w.mu.Unlock()
}

// Run processes events until ctx is cancelled or the watcher fails. It
// closes Results before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.Results)
	defer w.watcher.Close()

	w.logger.Info("watching directory", "dir", w.dir, "settle", w.opts.Settle, "reference", w.prev)

	tick := time.NewTicker(w.opts.Settle / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.isFrame(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				w.pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(w.pending, event.Name)
				if event.Name == w.prev {
					w.logger.Warn("reference frame removed", "path", event.Name)
					w.setReference("")
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("filesystem watcher error", "error", err)

		case now := <-tick.C:
			w.flush(ctx, now)
		}
	}
}

// flush handles every pending file that has been quiet for the settle
// period, oldest first.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.opts.Settle {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := w.pending[ready[i]], w.pending[ready[j]]
		if a.Equal(b) {
			return ready[i] < ready[j]
		}
		return a.Before(b)
	})
	for _, path := range ready {
		delete(w.pending, path)
		w.arrive(ctx, path)
	}
}

// arrive compares path against the previous frame and makes it the new
// reference.
func (w *Watcher) arrive(ctx context.Context, path string) {
	if w.prev == "" || w.prev == path {
		w.logger.Info("reference frame", "path", path)
		w.setReference(path)
		return
	}

	ref := w.prev
	run, err := w.process(ctx, source.FileKey(ref), source.FileKey(path))
	if err != nil {
		w.logger.Error("frame comparison failed", "reference", ref, "frame", path, "error", err)
	} else {
		w.logger.Info("frame compared", "reference", ref, "frame", path, "regions", len(run.Result.Regions))
	}

	if w.opts.Release != nil {
		w.opts.Release(ref)
	}
	w.setReference(path)

	select {
	case w.Results <- Result{Reference: ref, Comparison: path, Run: run, Err: err}:
	default:
		w.logger.Warn("result buffer full, dropping result", "frame", path)
	}
}

func (w *Watcher) isFrame(path string) bool {
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

// latestFrame returns the most recently modified frame in the directory.
func (w *Watcher) latestFrame() string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTime time.Time
	for _, e := range entries {
		if e.IsDir() || !w.isFrame(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(w.dir, e.Name())
			bestTime = info.ModTime()
		}
	}
	return best
}
