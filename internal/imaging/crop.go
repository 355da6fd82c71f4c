package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped image data
type CropResult struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropRegion cuts the rectangle r out of img, grown by padding pixels on each
// side and clipped to the image bounds.
//
// Parameters:
//   - img: The frame to cut from.
//   - r: The region of interest, usually a detection box's Rect().
//   - padding: Pixels of context added on every side. Must be non-negative.
//   - scale: Resize factor for the cut-out. Values other than 1 use a Lanczos
//     filter so that small detections can be inspected.
//
// Returns:
//   - *CropResult: The cut-out as base64 PNG. X and Y report the top-left
//     corner actually used, in image coordinates, after padding and clipping.
//   - error: Non-nil if an argument is invalid or r lies outside img.
//
// # Example Usage
//
//	box := run.Displayed[0]
//	crop, err := imaging.CropRegion(frame, box.Rect(), 8, 4.0)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(crop.Width, crop.Height, crop.MimeType)
func CropRegion(img image.Image, r image.Rectangle, padding int, scale float64) (*CropResult, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	if padding < 0 {
		return nil, fmt.Errorf("padding must be non-negative, got %d", padding)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %v", scale)
	}
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: width and height must be positive", r)
	}

	bounds := img.Bounds()
	region := r.Inset(-padding).Intersect(bounds)
	if region.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}

	cropped := imaging.Crop(img, region)

	if scale != 1.0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	encoded, err := EncodePNGBase64(cropped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X:           region.Min.X - bounds.Min.X,
		Y:           region.Min.Y - bounds.Min.Y,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}
