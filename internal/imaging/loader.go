package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"
)

// ImageCache provides thread-safe caching of decoded frames to avoid
// redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path, plus
// the grayscale conversion once it has been requested. Different paths to the
// same file (relative vs absolute) result in separate entries.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). The frame watcher evicts each frame once it has been compared.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	grays  map[string]*image.Gray
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
		grays:  make(map[string]*image.Gray),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Parameters:
//   - path: File path to a downloaded or watched frame. Supported formats are
//     PNG, JPEG, and GIF. JPEG orientation tags are honoured.
//
// Returns:
//   - image.Image: The decoded frame, shared with the cache. Callers must not
//     modify it.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// The cache key is the exact path string, so a relative and an absolute path
// to the same frame are decoded twice.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("data/raw/sdss_150.5_2.25.jpg")
//	if err != nil {
//	    return err
//	}
//	gray, _ := imaging.ToGray(img)
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadGray loads path and returns its grayscale conversion.
// The returned image is shared with the cache and must not be modified.
func (c *ImageCache) LoadGray(path string) (*image.Gray, error) {
	c.mu.RLock()
	if g, ok := c.grays[path]; ok {
		c.mu.RUnlock()
		return g, nil
	}
	c.mu.RUnlock()

	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	g, err := ToGray(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to grayscale: %w", path, err)
	}

	c.mu.Lock()
	c.grays[path] = g
	c.mu.Unlock()

	return g, nil
}

// Len reports the number of decoded images held by the cache.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.grays = make(map[string]*image.Gray)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	delete(c.grays, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about an image file and the brightness
// statistics of its grayscale conversion.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// ColorModel is "gray" for single-channel images, "color" otherwise.
	ColorModel string `json:"color_model"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Gray level statistics.
	Min    uint8   `json:"min"`
	Max    uint8   `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// FormatFromPath derives the image format from the file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	}
	return "unknown"
}

// LoadImageInfo loads an image through cache and describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	gray, err := cache.LoadGray(path)
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	model := "color"
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		model = "gray"
	}

	lo, hi := GrayRange(gray)
	mean, std := GrayMeanStdDev(gray)
	b := img.Bounds()

	return &ImageInfo{
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        FormatFromPath(path),
		ColorModel:    model,
		FileSizeBytes: st.Size(),
		Min:           lo,
		Max:           hi,
		Mean:          mean,
		StdDev:        std,
	}, nil
}

// GrayMeanStdDev returns the mean and population standard deviation of the
// samples of img.
func GrayMeanStdDev(img *image.Gray) (mean, std float64) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	samples := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		for _, v := range Row(img, y) {
			samples = append(samples, float64(v))
		}
	}
	if len(samples) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(samples, nil)
}
