package source

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"
)

// FetchPair fetches the reference and comparison frames concurrently. The
// first failure cancels the other fetch.
func FetchPair(ctx context.Context, p Provider, ref, cmp Key) (image.Image, image.Image, error) {
	var a, b image.Image
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := p.Fetch(ctx, ref)
		if err != nil {
			return fmt.Errorf("reference frame %s: %w", ref, err)
		}
		a = img
		return nil
	})
	g.Go(func() error {
		img, err := p.Fetch(ctx, cmp)
		if err != nil {
			return fmt.Errorf("comparison frame %s: %w", cmp, err)
		}
		b = img
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Router dispatches keys to providers: keys with a Path go to Files, keys
// with a Date go to APOD and everything else goes to Sky.
type Router struct {
	Sky   Provider
	APOD  Provider
	Files Provider
}

// Fetch implements Provider.
func (r *Router) Fetch(ctx context.Context, key Key) (image.Image, error) {
	var p Provider
	switch {
	case key.Path != "":
		p = r.Files
	case key.Date != "":
		p = r.APOD
	default:
		p = r.Sky
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no provider for %s", ErrInvalidKey, key)
	}
	return p.Fetch(ctx, key)
}
