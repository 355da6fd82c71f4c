package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

const (
	// DefaultSDSSURL is the DR17 JPEG cut-out endpoint.
	DefaultSDSSURL = "https://skyserver.sdss.org/dr17/SkyServerWS/ImgCutout/getjpeg"

	// DefaultSDSSScale is the cut-out scale in arcsec per pixel.
	DefaultSDSSScale = 0.2

	// DefaultSDSSSize is the default cut-out width and height in pixels.
	DefaultSDSSSize = 512
)

// SDSSProvider fetches JPEG cut-outs centred on a sky position.
type SDSSProvider struct {
	// BaseURL overrides DefaultSDSSURL.
	BaseURL string
	// Client defaults to an http.Client with DefaultTimeout.
	Client *http.Client
	// RawDir, when set, receives each download as sdss_<ra>_<dec>.jpg.
	RawDir string
	Logger *slog.Logger
}

// NewSDSSProvider creates a provider that saves raw cut-outs under rawDir.
func NewSDSSProvider(rawDir string) *SDSSProvider {
	return &SDSSProvider{BaseURL: DefaultSDSSURL, RawDir: rawDir}
}

// CutoutURL builds the request URL for key, applying the default scale and
// size to zero fields.
func (p *SDSSProvider) CutoutURL(key Key) (string, error) {
	if err := key.ValidateSky(); err != nil {
		return "", err
	}
	base := p.BaseURL
	if base == "" {
		base = DefaultSDSSURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid sdss url %q: %w", base, err)
	}

	scale := key.Scale
	if scale == 0 {
		scale = DefaultSDSSScale
	}
	w, h := key.Width, key.Height
	if w == 0 {
		w = DefaultSDSSSize
	}
	if h == 0 {
		h = DefaultSDSSSize
	}

	q := u.Query()
	q.Set("ra", formatCoord(key.RA))
	q.Set("dec", formatCoord(key.Dec))
	q.Set("scale", formatCoord(scale))
	q.Set("width", strconv.Itoa(w))
	q.Set("height", strconv.Itoa(h))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RawName is the file name a cut-out for key is saved under.
func RawName(key Key) string {
	return fmt.Sprintf("sdss_%s_%s.jpg", formatCoord(key.RA), formatCoord(key.Dec))
}

// Fetch downloads and decodes the cut-out for key.
func (p *SDSSProvider) Fetch(ctx context.Context, key Key) (image.Image, error) {
	u, err := p.CutoutURL(key)
	if err != nil {
		return nil, err
	}
	log := p.logger()
	log.Debug("fetching sdss cutout", "key", key.String(), "url", u)

	data, err := get(ctx, p.Client, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sdss cutout: %w", err)
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	path, err := saveRaw(p.RawDir, RawName(key), data)
	if err != nil {
		return nil, err
	}
	if path != "" {
		log.Info("saved sdss cutout", "path", path, "bytes", len(data))
	}
	return img, nil
}

func (p *SDSSProvider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
