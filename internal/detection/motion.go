package detection

import (
	"fmt"
	"image"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

// Options configures a MotionDetector.
type Options struct {
	// Threshold is the difference level above which a pixel is changed, in [0,255].
	Threshold int `json:"threshold" yaml:"threshold"`

	// CloseRadius sets the closing element to (2r+1)x(2r+1); 0 disables closing.
	CloseRadius int `json:"close_radius" yaml:"close_radius"`

	// ResampleFilter is used when the frames differ in size.
	ResampleFilter string `json:"resample_filter" yaml:"resample_filter"`

	// Align shifts the comparison frame onto the reference before differencing.
	Align bool `json:"align" yaml:"align"`

	// Backend selects the implementation ("native" or "opencv").
	Backend string `json:"backend" yaml:"backend"`
}

// DefaultOptions returns threshold 30, a 3x3 closing, bilinear resampling,
// no alignment and the native backend.
func DefaultOptions() Options {
	return Options{
		Threshold:      DefaultThreshold,
		CloseRadius:    DefaultCloseRadius,
		ResampleFilter: imaging.DefaultResampleFilter,
		Backend:        BackendNative,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.Threshold < 0 || o.Threshold > 255 {
		return fmt.Errorf("%w, got %d", ErrThresholdRange, o.Threshold)
	}
	if o.CloseRadius < 0 {
		return fmt.Errorf("closing radius must be non-negative, got %d", o.CloseRadius)
	}
	if _, err := imaging.ParseFilter(o.ResampleFilter); err != nil {
		return err
	}
	return nil
}

// MotionResult carries every intermediate product of one detection.
type MotionResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Difference is |ref - cmp| after resampling and optional alignment.
	Difference *image.Gray `json:"-"`

	// Mask is the thresholded and closed change mask.
	Mask *image.Gray `json:"-"`

	Regions []Region  `json:"regions"`
	Stats   DiffStats `json:"stats"`

	// Shift is set when alignment ran.
	Shift *Shift `json:"shift,omitempty"`

	Backend string `json:"backend"`
}

// Boxes returns the bounding boxes of all regions.
func (r *MotionResult) Boxes() []BoundingBox {
	return Boxes(r.Regions)
}

// MotionDetector finds regions that changed between two frames.
// It holds no mutable state and is safe for concurrent use.
type MotionDetector struct {
	opts    Options
	backend Backend
}

// NewMotionDetector validates opts and resolves the backend.
func NewMotionDetector(opts Options) (*MotionDetector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b, err := NewBackend(opts.Backend)
	if err != nil {
		return nil, err
	}
	return &MotionDetector{opts: opts, backend: b}, nil
}

// Options returns the detector configuration.
func (d *MotionDetector) Options() Options {
	return d.opts
}

// Detect differences cmp against ref, builds the change mask and extracts the
// external regions. The result has ref's dimensions.
func (d *MotionDetector) Detect(ref, cmp *image.Gray) (*MotionResult, error) {
	if err := imaging.CheckGray("reference frame", ref); err != nil {
		return nil, err
	}
	if err := imaging.CheckGray("comparison frame", cmp); err != nil {
		return nil, err
	}
	w, h := ref.Bounds().Dx(), ref.Bounds().Dy()

	result := &MotionResult{Width: w, Height: h, Backend: d.backend.Name()}

	if d.opts.Align {
		other := cmp
		if cmp.Bounds().Dx() != w || cmp.Bounds().Dy() != h {
			resized, err := imaging.ResizeGray(cmp, w, h, d.opts.ResampleFilter)
			if err != nil {
				return nil, fmt.Errorf("failed to resample comparison frame: %w", err)
			}
			other = resized
		}
		aligned, s, err := d.backend.Align(ref, other)
		if err != nil {
			return nil, fmt.Errorf("failed to align frames: %w", err)
		}
		cmp = aligned
		result.Shift = &s
	}

	diff, err := d.backend.Difference(ref, cmp, d.opts.ResampleFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to difference frames: %w", err)
	}
	mask, err := d.backend.ChangeMask(diff, d.opts.Threshold, d.opts.CloseRadius)
	if err != nil {
		return nil, fmt.Errorf("failed to build change mask: %w", err)
	}
	regions, err := d.backend.ExternalRegions(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to extract regions: %w", err)
	}
	stats, err := ComputeDiffStats(diff, d.opts.Threshold)
	if err != nil {
		return nil, err
	}

	result.Difference = diff
	result.Mask = mask
	result.Regions = regions
	result.Stats = stats
	return result, nil
}

// DetectMovingObjects runs the default pipeline with the given threshold and
// returns the boxes of all changed regions together with the cleaned mask.
func DetectMovingObjects(ref, cmp *image.Gray, threshold int) ([]BoundingBox, *image.Gray, error) {
	opts := DefaultOptions()
	opts.Threshold = threshold
	d, err := NewMotionDetector(opts)
	if err != nil {
		return nil, nil, err
	}
	res, err := d.Detect(ref, cmp)
	if err != nil {
		return nil, nil, err
	}
	return res.Boxes(), res.Mask, nil
}
