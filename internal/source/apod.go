package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultAPODURL is the NASA APOD metadata endpoint.
const DefaultAPODURL = "https://api.nasa.gov/planetary/apod"

var (
	// ErrMissingAPIKey is returned when APOD is used without an API key.
	ErrMissingAPIKey = errors.New("nasa api key is not configured")

	// ErrNotImage is returned when the picture of the day is not an image
	// (APOD regularly publishes videos).
	ErrNotImage = errors.New("apod entry is not an image")
)

// APODEntry is the metadata NASA publishes for one day.
type APODEntry struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Explanation string `json:"explanation,omitempty"`
	MediaType   string `json:"media_type"`
	URL         string `json:"url"`
	HDURL       string `json:"hdurl,omitempty"`
	Copyright   string `json:"copyright,omitempty"`
}

// APODProvider fetches the Astronomy Picture of the Day.
type APODProvider struct {
	APIKey string
	// BaseURL overrides DefaultAPODURL.
	BaseURL string
	Client  *http.Client
	// RawDir, when set, receives each image as apod_<date|today>.jpg.
	RawDir string
	Logger *slog.Logger
}

// NewAPODProvider creates a provider using apiKey.
func NewAPODProvider(apiKey, rawDir string) *APODProvider {
	return &APODProvider{APIKey: apiKey, BaseURL: DefaultAPODURL, RawDir: rawDir}
}

// ValidateDate accepts an empty date (today) or YYYY-MM-DD.
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidKey, date)
	}
	return nil
}

// Metadata returns the entry for date, or today's entry when date is empty.
func (p *APODProvider) Metadata(ctx context.Context, date string) (*APODEntry, error) {
	if p.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	base := p.BaseURL
	if base == "" {
		base = DefaultAPODURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid apod url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("api_key", p.APIKey)
	if date != "" {
		q.Set("date", date)
	}
	u.RawQuery = q.Encode()

	data, err := get(ctx, p.Client, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch apod metadata: %w", err)
	}

	var entry APODEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse apod metadata: %w", err)
	}
	return &entry, nil
}

// Fetch downloads the image for key.Date.
func (p *APODProvider) Fetch(ctx context.Context, key Key) (image.Image, error) {
	img, _, err := p.FetchEntry(ctx, key.Date)
	return img, err
}

// FetchEntry downloads the image for date together with its metadata.
func (p *APODProvider) FetchEntry(ctx context.Context, date string) (image.Image, *APODEntry, error) {
	entry, err := p.Metadata(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	if entry.MediaType != "image" {
		return nil, entry, fmt.Errorf("%w: media type %q", ErrNotImage, entry.MediaType)
	}
	if entry.URL == "" {
		return nil, entry, fmt.Errorf("%w: entry has no url", ErrNotImage)
	}

	log := p.logger()
	log.Debug("fetching apod image", "date", entry.Date, "url", entry.URL)

	data, err := get(ctx, p.Client, entry.URL)
	if err != nil {
		return nil, entry, fmt.Errorf("failed to fetch apod image: %w", err)
	}
	img, err := decode(data)
	if err != nil {
		return nil, entry, err
	}

	path, err := saveRaw(p.RawDir, APODName(date), data)
	if err != nil {
		return nil, entry, err
	}
	if path != "" {
		log.Info("saved apod image", "path", path, "title", entry.Title)
	}
	return img, entry, nil
}

// APODName is the file name the image for date is saved under.
func APODName(date string) string {
	if date == "" {
		date = "today"
	}
	return "apod_" + date + ".jpg"
}

func (p *APODProvider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
