package report

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/astro-tools-mcp/internal/detection"
)

const (
	// DefaultBoxColor is the annotation colour.
	DefaultBoxColor = "#00FF00"

	// DefaultThickness is the outline width in pixels.
	DefaultThickness = 2
)

// Style controls box annotation.
type Style struct {
	// Color is a hex colour such as "#00FF00" or "#0f0".
	Color     string `json:"color" yaml:"color"`
	Thickness int    `json:"thickness" yaml:"thickness"`
	// Labels draws each box's index above its top-left corner.
	Labels bool `json:"labels" yaml:"labels"`

	// Grid, when positive, overlays a coordinate grid with this spacing.
	Grid       int    `json:"grid,omitempty" yaml:"grid"`
	GridColor  string `json:"grid_color,omitempty" yaml:"grid_color"`
	GridLabels bool   `json:"grid_labels,omitempty" yaml:"grid_labels"`
}

// DefaultStyle returns 2 px green outlines without labels.
func DefaultStyle() Style {
	return Style{Color: DefaultBoxColor, Thickness: DefaultThickness}
}

// ParseColor converts a hex colour string to an opaque colour.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		// colorful only accepts the 3 and 6 digit forms with a leading '#'
		c, err = colorful.Hex("#" + hex)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
		}
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Render draws the boxes on a colour copy of img.
//
// Parameters:
//   - img: The frame to annotate. It is not modified.
//   - boxes: Detections in img's pixel coordinates.
//   - style: Outline colour and thickness, optional index labels and grid.
//     An empty Color or a non-positive Thickness falls back to the defaults.
//
// Returns:
//   - *image.RGBA: An origin-anchored copy of img with the boxes drawn.
//   - error: Non-nil if img is nil or a colour cannot be parsed.
//
// Outlines run along the box edges and grow outward, so the boxed pixels stay
// visible; the corners are (x,y) and (x+w,y+h).
//
// # Example Usage
//
//	style := report.DefaultStyle()
//	style.Labels = true
//	annotated, err := report.Render(frame, run.Displayed, style)
//	if err != nil {
//	    return err
//	}
//	err = imaging.SaveImage(annotated, "annotated.png")
func Render(img image.Image, boxes []detection.BoundingBox, style Style) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("render: nil image")
	}
	if style.Color == "" {
		style.Color = DefaultBoxColor
	}
	if style.Thickness <= 0 {
		style.Thickness = DefaultThickness
	}
	col, err := ParseColor(style.Color)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)

	if style.Grid > 0 {
		if err := Grid(out, style.Grid, style.GridColor, style.GridLabels); err != nil {
			return nil, err
		}
	}

	for i, b := range boxes {
		for t := 0; t < style.Thickness; t++ {
			outline(out, b.X-t, b.Y-t, b.X+b.Width+t, b.Y+b.Height+t, col)
		}
		if style.Labels {
			drawLabel(out, b.X, b.Y-style.Thickness-1, strconv.Itoa(i+1), col)
		}
	}
	return out, nil
}

// outline draws the one pixel border of the inclusive rectangle
// (x0,y0)-(x1,y1), clipped to the image.
func outline(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		setClipped(img, x, y0, c)
		setClipped(img, x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		setClipped(img, x0, y, c)
		setClipped(img, x1, y, c)
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetRGBA(x, y, c)
	}
}

// drawLabel writes text with its baseline at y, moved inside the image
// when it would be cut off.
func drawLabel(img draw.Image, x, y int, text string, c color.Color) {
	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()
	if y < ascent {
		y = ascent
	}
	if x < 0 {
		x = 0
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
