//go:build gocv

package detection

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

func init() {
	RegisterBackend(BackendOpenCV, func() Backend { return opencvBackend{} })
}

// opencvBackend runs the pipeline through OpenCV. Region areas count every
// foreground pixel inside the box, and regions are ordered by box position.
type opencvBackend struct{}

var interpolations = map[string]gocv.InterpolationFlags{
	"nearest":    gocv.InterpolationNearestNeighbor,
	"box":        gocv.InterpolationArea,
	"linear":     gocv.InterpolationLinear,
	"catmullrom": gocv.InterpolationCubic,
	"lanczos":    gocv.InterpolationLanczos4,
}

func (opencvBackend) Name() string { return BackendOpenCV }

func toMat(name string, img *image.Gray) (gocv.Mat, error) {
	if err := imaging.CheckGray(name, img); err != nil {
		return gocv.NewMat(), err
	}
	src, _ := imaging.ToGray(img)
	m, err := gocv.ImageGrayToMatGray(imaging.CloneGray(src))
	if err != nil {
		return m, fmt.Errorf("%s: failed to convert to mat: %w", name, err)
	}
	return m, nil
}

func fromMat(m gocv.Mat) (*image.Gray, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert mat to image: %w", err)
	}
	return imaging.ToGray(img)
}

func (opencvBackend) Difference(ref, cmp *image.Gray, filter string) (*image.Gray, error) {
	if _, err := imaging.ParseFilter(filter); err != nil {
		return nil, err
	}
	if filter == "" {
		filter = imaging.DefaultResampleFilter
	}

	a, err := toMat("reference frame", ref)
	defer a.Close()
	if err != nil {
		return nil, err
	}
	b, err := toMat("comparison frame", cmp)
	defer b.Close()
	if err != nil {
		return nil, err
	}

	other := b
	if b.Cols() != a.Cols() || b.Rows() != a.Rows() {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(b, &resized, image.Pt(a.Cols(), a.Rows()), 0, 0, interpolations[strings.ToLower(filter)])
		other = resized
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, other, &diff)
	return fromMat(diff)
}

func (opencvBackend) ChangeMask(d *image.Gray, threshold, closeRadius int) (*image.Gray, error) {
	if threshold < 0 || threshold > 255 {
		return nil, fmt.Errorf("%w, got %d", ErrThresholdRange, threshold)
	}
	if closeRadius < 0 {
		return nil, fmt.Errorf("closing radius must be non-negative, got %d", closeRadius)
	}
	src, err := toMat("threshold", d)
	defer src.Close()
	if err != nil {
		return nil, err
	}

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(src, &mask, float32(threshold), 255, gocv.ThresholdBinary)
	if closeRadius == 0 {
		return fromMat(mask)
	}

	side := 2*closeRadius + 1
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(side, side))
	defer kernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(mask, &closed, gocv.MorphClose, kernel)
	return fromMat(closed)
}

func (opencvBackend) ExternalRegions(mask *image.Gray) ([]Region, error) {
	m, err := toMat("regions", mask)
	defer m.Close()
	if err != nil {
		return nil, err
	}

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		roi := m.Region(r)
		area := gocv.CountNonZero(roi)
		roi.Close()
		regions = append(regions, Region{Box: BoxFromRect(r), Area: area})
	}

	sort.SliceStable(regions, func(i, j int) bool {
		bi, bj := regions[i].Box, regions[j].Box
		if bi.Y != bj.Y {
			return bi.Y < bj.Y
		}
		return bi.X < bj.X
	})
	return regions, nil
}

// Feature alignment parameters.
const (
	minMatches       = 4
	ransacReprojErr  = 5.0
	ransacMaxIters   = 2000
	ransacConfidence = 0.995
)

// Align matches ORB keypoints between the frames with a cross-checked
// Hamming brute-force matcher, fits a RANSAC homography from cmp to ref and
// warps cmp onto ref's grid.
func (opencvBackend) Align(ref, cmp *image.Gray) (*image.Gray, Shift, error) {
	a, err := toMat("reference frame", ref)
	defer a.Close()
	if err != nil {
		return nil, Shift{}, err
	}
	b, err := toMat("comparison frame", cmp)
	defer b.Close()
	if err != nil {
		return nil, Shift{}, err
	}

	orb := gocv.NewORB()
	defer orb.Close()
	noMask := gocv.NewMat()
	defer noMask.Close()

	kpA, descA := orb.DetectAndCompute(a, noMask)
	defer descA.Close()
	kpB, descB := orb.DetectAndCompute(b, noMask)
	defer descB.Close()
	if descA.Empty() || descB.Empty() {
		return nil, Shift{}, errors.New("no ORB keypoints found")
	}

	bf := gocv.NewBFMatcherWithParams(gocv.NormHamming, true)
	defer bf.Close()
	matches := bf.Match(descA, descB)
	if len(matches) < minMatches {
		return nil, Shift{}, fmt.Errorf("only %d keypoint matches, need %d", len(matches), minMatches)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	// query keypoints belong to ref, train keypoints to cmp
	src := gocv.NewMatWithSize(len(matches), 1, gocv.MatTypeCV64FC2)
	defer src.Close()
	dst := gocv.NewMatWithSize(len(matches), 1, gocv.MatTypeCV64FC2)
	defer dst.Close()
	for i, m := range matches {
		from, to := kpB[m.TrainIdx], kpA[m.QueryIdx]
		src.SetDoubleAt(i, 0, from.X)
		src.SetDoubleAt(i, 1, from.Y)
		dst.SetDoubleAt(i, 0, to.X)
		dst.SetDoubleAt(i, 1, to.Y)
	}

	inliers := gocv.NewMat()
	defer inliers.Close()
	h := gocv.FindHomography(src, &dst, gocv.HomograpyMethodRANSAC, ransacReprojErr, &inliers, ransacMaxIters, ransacConfidence)
	defer h.Close()
	if h.Empty() {
		return nil, Shift{}, errors.New("failed to fit a homography")
	}

	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpPerspective(b, &warped, h, image.Pt(a.Cols(), a.Rows()))
	aligned, err := fromMat(warped)
	if err != nil {
		return nil, Shift{}, err
	}

	matrix := make([]float64, 0, 9)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			matrix = append(matrix, h.GetDoubleAt(r, c))
		}
	}
	// h maps cmp onto ref, so its translation is the negated shift
	return aligned, Shift{
		DX:         -int(math.Round(matrix[2])),
		DY:         -int(math.Round(matrix[5])),
		Response:   float64(gocv.CountNonZero(inliers)) / float64(len(matches)),
		Homography: matrix,
	}, nil
}
