package source

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

// FileProvider loads frames from disk through a shared decode cache.
type FileProvider struct {
	cache *imaging.ImageCache
}

// NewFileProvider creates a provider backed by cache. A nil cache gets a
// private one.
func NewFileProvider(cache *imaging.ImageCache) *FileProvider {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	return &FileProvider{cache: cache}
}

// Cache returns the decode cache used by the provider.
func (p *FileProvider) Cache() *imaging.ImageCache {
	return p.cache
}

// Fetch loads key.Path.
func (p *FileProvider) Fetch(ctx context.Context, key Key) (image.Image, error) {
	if key.Path == "" {
		return nil, fmt.Errorf("%w: file key without path", ErrInvalidKey)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.cache.Load(key.Path)
}
