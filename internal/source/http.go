package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

const (
	// DefaultTimeout bounds a single request when no client is supplied.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody is the length of the body excerpt kept in HTTPError.
	maxErrorBody = 512
)

// maxBodyBytes caps downloaded payloads.
var maxBodyBytes int64 = 32 << 20

// ErrPayloadTooLarge is returned when a response body exceeds the download cap.
var ErrPayloadTooLarge = errors.New("payload too large")

// HTTPError reports a non-200 response from a remote service.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request to %s failed: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: status %d: %s", e.URL, e.StatusCode, e.Body)
}

func defaultClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// redact hides credentials carried in the query string.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has("api_key") {
		return raw
	}
	q.Set("api_key", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}

// get performs a GET and returns the body of a 200 response.
func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = defaultClient()
	}
	shown := redact(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = shown
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", shown, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", shown, err)
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrPayloadTooLarge, shown, maxBodyBytes)
	}
	if resp.StatusCode != http.StatusOK {
		excerpt := bytes.TrimSpace(body)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, &HTTPError{URL: shown, StatusCode: resp.StatusCode, Body: string(excerpt)}
	}
	return body, nil
}

// decode turns a downloaded payload into an image.
func decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// saveRaw stores the undecoded payload as dir/name. An empty dir disables
// saving and returns an empty path.
func saveRaw(dir, name string, data []byte) (string, error) {
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}
