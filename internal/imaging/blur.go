package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// DefaultBlurKernel is the kernel size used by the frame analysis pipeline.
const DefaultBlurKernel = 5

// GaussianSigma returns the standard deviation OpenCV derives for a kernel
// of the given size when no sigma is supplied.
func GaussianSigma(ksize int) float64 {
	return 0.3*(float64(ksize-1)*0.5-1) + 0.8
}

// gaussianKernel builds a normalized 1-D Gaussian kernel of length ksize.
func gaussianKernel(ksize int) convolution.Matrix {
	sigma := GaussianSigma(ksize)
	k := convolution.NewKernel(ksize, 1)
	half := ksize / 2
	for i := 0; i < ksize; i++ {
		x := float64(i - half)
		k.Matrix[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
	}
	return k.Normalized()
}

// GaussianBlur smooths img with a ksize x ksize Gaussian kernel.
//
// The kernel is applied separably (rows, then columns). Border pixels are
// extended, and each pass rounds to the nearest integer so that a uniform
// image is left unchanged.
//
// # Errors
//
//   - ksize must be odd and at least 1
//   - img must be non-nil with non-zero area
func GaussianBlur(img *image.Gray, ksize int) (*image.Gray, error) {
	if err := CheckGray("blur", img); err != nil {
		return nil, err
	}
	if ksize < 1 || ksize%2 == 0 {
		return nil, fmt.Errorf("blur kernel size must be a positive odd number, got %d", ksize)
	}
	src, _ := ToGray(img)
	if ksize == 1 {
		return CloneGray(src), nil
	}

	k := gaussianKernel(ksize)
	opts := &convolution.Options{Bias: 0.5, Wrap: false, KeepAlpha: true}
	horizontal := convolution.Convolve(src, k, opts)
	blurred := convolution.Convolve(horizontal, k.Transposed(), opts)

	return ToGray(blurred)
}
