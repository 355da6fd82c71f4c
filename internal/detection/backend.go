package detection

import (
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"
)

// Backend names.
const (
	BackendNative = "native"
	BackendOpenCV = "opencv"
)

// Backend implements the three stages of the motion pipeline plus frame
// alignment. Implementations must be deterministic and must not modify their
// inputs.
type Backend interface {
	Name() string
	Difference(ref, cmp *image.Gray, filter string) (*image.Gray, error)
	ChangeMask(d *image.Gray, threshold, closeRadius int) (*image.Gray, error)
	ExternalRegions(mask *image.Gray) ([]Region, error)

	// Align maps cmp onto ref's pixel grid. Both frames have ref's size.
	// The returned Shift summarizes the translation part of the mapping.
	Align(ref, cmp *image.Gray) (*image.Gray, Shift, error)
}

var (
	backendsMu sync.RWMutex
	backends   = map[string]func() Backend{
		BackendNative: func() Backend { return nativeBackend{} },
	}
)

// RegisterBackend makes a backend available under name. Registering the same
// name twice replaces the earlier constructor.
func RegisterBackend(name string, constructor func() Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = constructor
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend returns the backend registered under name. An empty name selects
// the pure Go implementation.
func NewBackend(name string) (Backend, error) {
	if name == "" {
		name = BackendNative
	}
	backendsMu.RLock()
	constructor, ok := backends[name]
	backendsMu.RUnlock()
	if ok {
		return constructor(), nil
	}
	if name == BackendOpenCV {
		return nil, fmt.Errorf("backend %q is not compiled in (rebuild with -tags gocv)", name)
	}
	return nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(Backends(), ", "))
}

// nativeBackend is the pure Go pipeline.
type nativeBackend struct{}

func (nativeBackend) Name() string { return BackendNative }

func (nativeBackend) Difference(ref, cmp *image.Gray, filter string) (*image.Gray, error) {
	return Difference(ref, cmp, filter)
}

func (nativeBackend) ChangeMask(d *image.Gray, threshold, closeRadius int) (*image.Gray, error) {
	return ChangeMask(d, threshold, closeRadius)
}

func (nativeBackend) ExternalRegions(mask *image.Gray) ([]Region, error) {
	return ExternalRegions(mask)
}

func (nativeBackend) Align(ref, cmp *image.Gray) (*image.Gray, Shift, error) {
	return Align(ref, cmp)
}
