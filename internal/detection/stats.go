package detection

import (
	"image"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

// DiffStats summarizes a difference image.
type DiffStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Max    uint8   `json:"max"`

	// ChangedFraction is the share of pixels above the detection threshold.
	ChangedFraction float64 `json:"changed_fraction"`
}

// ComputeDiffStats reports mean, population standard deviation, maximum and
// the fraction of samples strictly above threshold.
func ComputeDiffStats(d *image.Gray, threshold int) (DiffStats, error) {
	if err := imaging.CheckGray("stats", d); err != nil {
		return DiffStats{}, err
	}
	src, _ := imaging.ToGray(d)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	samples := make([]float64, 0, w*h)
	var peak uint8
	changed := 0
	for y := 0; y < h; y++ {
		for _, v := range imaging.Row(src, y) {
			samples = append(samples, float64(v))
			if v > peak {
				peak = v
			}
			if int(v) > threshold {
				changed++
			}
		}
	}

	mean, std := stat.PopMeanStdDev(samples, nil)
	return DiffStats{
		Mean:            mean,
		StdDev:          std,
		Max:             peak,
		ChangedFraction: float64(changed) / float64(len(samples)),
	}, nil
}
