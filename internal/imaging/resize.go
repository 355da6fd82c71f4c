package imaging

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultResampleFilter is used when two frames of different sizes are compared.
const DefaultResampleFilter = "linear"

var resampleFilters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"box":        imaging.Box,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// FilterNames lists the accepted resample filter names in sorted order.
func FilterNames() []string {
	names := make([]string, 0, len(resampleFilters))
	for name := range resampleFilters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFilter maps a filter name to a resample filter.
// An empty name selects DefaultResampleFilter.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	if name == "" {
		name = DefaultResampleFilter
	}
	f, ok := resampleFilters[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q (valid: %s)",
			name, strings.Join(FilterNames(), ", "))
	}
	return f, nil
}

// ResizeGray resamples img to exactly width x height using the named filter.
// Resampling is deterministic: the same input always yields the same output.
func ResizeGray(img *image.Gray, width, height int, filter string) (*image.Gray, error) {
	if err := CheckGray("resize", img); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize target %dx%d", width, height)
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return CloneGray(img), nil
	}

	resized := imaging.Resize(img, width, height, f)
	return ToGray(resized)
}
