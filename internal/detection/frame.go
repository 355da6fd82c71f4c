package detection

import (
	"fmt"
	"image"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

// FrameOptions configures single-frame analysis.
type FrameOptions struct {
	BlurKernel int     `json:"blur_kernel" yaml:"blur_kernel"`
	CannyLow   float64 `json:"canny_low" yaml:"canny_low"`
	CannyHigh  float64 `json:"canny_high" yaml:"canny_high"`

	// Bilateral is an optional edge-preserving pre-filter applied before
	// normalization.
	Bilateral BilateralOptions `json:"bilateral" yaml:"bilateral"`
}

// BilateralOptions configures the frame pre-filter.
type BilateralOptions struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Diameter   int     `json:"diameter" yaml:"diameter"`
	SigmaColor float64 `json:"sigma_color" yaml:"sigma_color"`
	SigmaSpace float64 `json:"sigma_space" yaml:"sigma_space"`
}

// DefaultFrameOptions returns a 5x5 blur and Canny thresholds 50/150. The
// bilateral pre-filter is off, with a 9 pixel diameter and sigmas of 75.
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{
		BlurKernel: imaging.DefaultBlurKernel,
		CannyLow:   imaging.DefaultCannyLow,
		CannyHigh:  imaging.DefaultCannyHigh,
		Bilateral: BilateralOptions{
			Diameter:   imaging.DefaultBilateralDiameter,
			SigmaColor: imaging.DefaultBilateralSigmaColor,
			SigmaSpace: imaging.DefaultBilateralSigmaSpace,
		},
	}
}

// FrameAnalysis holds every stage of a single-frame run, in pipeline order.
type FrameAnalysis struct {
	Original   *image.Gray
	// Filtered is nil unless the bilateral pre-filter ran.
	Filtered   *image.Gray
	Normalized *image.Gray
	Blurred    *image.Gray
	Edges      *image.Gray
	Regions    []Region
}

// Boxes returns the bounding boxes of the detected regions.
func (a *FrameAnalysis) Boxes() []BoundingBox {
	return Boxes(a.Regions)
}

// AnalyzeFrame normalizes brightness, blurs, finds Canny edges and reports the
// external regions of the edge map. When opts.Bilateral is enabled the frame
// is bilateral-filtered before normalization.
func AnalyzeFrame(img *image.Gray, opts FrameOptions) (*FrameAnalysis, error) {
	if err := imaging.CheckGray("frame", img); err != nil {
		return nil, err
	}

	input := img
	var filtered *image.Gray
	if b := opts.Bilateral; b.Enabled {
		f, err := imaging.BilateralFilter(img, b.Diameter, b.SigmaColor, b.SigmaSpace)
		if err != nil {
			return nil, fmt.Errorf("failed to filter frame: %w", err)
		}
		input, filtered = f, f
	}

	normalized, err := imaging.NormalizeBrightness(input)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize frame: %w", err)
	}
	blurred, err := imaging.GaussianBlur(normalized, opts.BlurKernel)
	if err != nil {
		return nil, fmt.Errorf("failed to blur frame: %w", err)
	}
	edges, err := imaging.Canny(blurred, opts.CannyLow, opts.CannyHigh)
	if err != nil {
		return nil, fmt.Errorf("failed to detect edges: %w", err)
	}
	regions, err := ExternalRegions(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to extract regions: %w", err)
	}

	original, _ := imaging.ToGray(img)
	return &FrameAnalysis{
		Original:   original,
		Filtered:   filtered,
		Normalized: normalized,
		Blurred:    blurred,
		Edges:      edges,
		Regions:    regions,
	}, nil
}
