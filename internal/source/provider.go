package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
)

// Provider fetches a single frame.
type Provider interface {
	Fetch(ctx context.Context, key Key) (image.Image, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, key Key) (image.Image, error)

// Fetch calls f(ctx, key).
func (f ProviderFunc) Fetch(ctx context.Context, key Key) (image.Image, error) {
	return f(ctx, key)
}

// Key addresses a frame. Which fields are used depends on the provider:
// SDSS reads the sky position and cut-out geometry, APOD reads Date and the
// file provider reads Path.
type Key struct {
	RA     float64 `json:"ra,omitempty"`
	Dec    float64 `json:"dec,omitempty"`
	Scale  float64 `json:"scale,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	Date   string  `json:"date,omitempty"`
	Path   string  `json:"path,omitempty"`
}

// ErrInvalidKey is returned when a key cannot address a frame.
var ErrInvalidKey = errors.New("invalid source key")

// SkyKey returns a key for the given sky position with default geometry.
func SkyKey(ra, dec float64) Key {
	return Key{RA: ra, Dec: dec}
}

// FileKey returns a key for a frame on disk.
func FileKey(path string) Key {
	return Key{Path: path}
}

// String renders the key for logs and catalog rows.
func (k Key) String() string {
	switch {
	case k.Path != "":
		return "file:" + k.Path
	case k.Date != "":
		return "apod:" + k.Date
	default:
		return fmt.Sprintf("sky:%s,%s", formatCoord(k.RA), formatCoord(k.Dec))
	}
}

// ValidateSky checks that the key holds a usable equatorial position.
func (k Key) ValidateSky() error {
	if k.RA < 0 || k.RA > 360 {
		return fmt.Errorf("%w: ra %v outside [0,360]", ErrInvalidKey, k.RA)
	}
	if k.Dec < -90 || k.Dec > 90 {
		return fmt.Errorf("%w: dec %v outside [-90,90]", ErrInvalidKey, k.Dec)
	}
	if k.Scale < 0 {
		return fmt.Errorf("%w: negative scale %v", ErrInvalidKey, k.Scale)
	}
	if k.Width < 0 || k.Height < 0 {
		return fmt.Errorf("%w: negative size %dx%d", ErrInvalidKey, k.Width, k.Height)
	}
	return nil
}

// formatCoord prints a coordinate with the shortest exact representation,
// so 180 stays "180" and 0.5 stays "0.5".
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
