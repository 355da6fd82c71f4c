package detection

import (
	"image"

	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
)

// Region is one external connected component of a binary mask.
type Region struct {
	// Box is the minimal rectangle enclosing every pixel of the component.
	Box BoundingBox `json:"box"`

	// Area is the number of foreground pixels in the component.
	Area int `json:"area"`
}

// Boxes returns the bounding boxes of regions in order.
func Boxes(regions []Region) []BoundingBox {
	out := make([]BoundingBox, len(regions))
	for i, r := range regions {
		out[i] = r.Box
	}
	return out
}

// ExternalRegions finds the outermost connected components of mask.
//
// Foreground is any non-zero sample, grouped with 8-connectivity; background
// is grouped with 4-connectivity. A component is external when it touches the
// image frame or borders the background that is connected to the frame.
// Components sitting inside a hole of another component are not reported.
//
// Regions are returned in raster order of their first pixel. No size filter
// is applied, so single-pixel specks are included. A mask without foreground
// yields an empty, non-nil slice.
func ExternalRegions(mask *image.Gray) ([]Region, error) {
	if err := imaging.CheckGray("regions", mask); err != nil {
		return nil, err
	}
	src, _ := imaging.ToGray(mask)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x, v := range imaging.Row(src, y) {
			fg[y*w+x] = v != 0
		}
	}

	outer := outerBackground(fg, w, h)
	labeled := make([]bool, w*h)
	regions := make([]Region, 0)

	var stack []int
	for start := range fg {
		if !fg[start] || labeled[start] {
			continue
		}

		minX, minY := w, h
		maxX, maxY := -1, -1
		area := 0
		external := false

		labeled[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p%w, p/w
			area++
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				external = true
			}

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if fg[n] {
						if !labeled[n] {
							labeled[n] = true
							stack = append(stack, n)
						}
					} else if (dx == 0 || dy == 0) && outer[n] {
						external = true
					}
				}
			}
		}

		if external {
			regions = append(regions, Region{
				Box:  BoundingBox{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1},
				Area: area,
			})
		}
	}

	return regions, nil
}

// outerBackground marks the background pixels 4-connected to the image frame.
func outerBackground(fg []bool, w, h int) []bool {
	outer := make([]bool, w*h)
	var queue []int

	seed := func(x, y int) {
		i := y*w + x
		if !fg[i] && !outer[i] {
			outer[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 0; y < h; y++ {
		seed(0, y)
		seed(w-1, y)
	}

	for head := 0; head < len(queue); head++ {
		p := queue[head]
		x, y := p%w, p/w
		if x > 0 {
			seed(x-1, y)
		}
		if x < w-1 {
			seed(x+1, y)
		}
		if y > 0 {
			seed(x, y-1)
		}
		if y < h-1 {
			seed(x, y+1)
		}
	}
	return outer
}
