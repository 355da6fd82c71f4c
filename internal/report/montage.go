package report

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	// DefaultPanelHeight is the height every montage panel is scaled to.
	DefaultPanelHeight = 256

	titleHeight = 18
	panelGap    = 8
)

// Panel is one titled image of a montage.
type Panel struct {
	Title string
	Image image.Image
}

// ErrNoPanels is returned by Montage when there is nothing to lay out.
var ErrNoPanels = errors.New("montage needs at least one panel")

var (
	montageBackground = color.NRGBA{R: 24, G: 24, B: 24, A: 255}
	montageText       = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
)

// Montage lays panels out left to right, each scaled to panelHeight with
// its aspect ratio kept and its title printed above it. A panelHeight of 0
// selects DefaultPanelHeight.
func Montage(panels []Panel, panelHeight int) (*image.NRGBA, error) {
	if len(panels) == 0 {
		return nil, ErrNoPanels
	}
	if panelHeight <= 0 {
		panelHeight = DefaultPanelHeight
	}

	scaled := make([]*image.NRGBA, len(panels))
	width := panelGap
	for i, p := range panels {
		if p.Image == nil || p.Image.Bounds().Empty() {
			return nil, fmt.Errorf("montage panel %d (%s) has no image", i, p.Title)
		}
		filter := imaging.Lanczos
		if p.Image.Bounds().Dy() < panelHeight {
			// keep masks and edge maps crisp when enlarging
			filter = imaging.NearestNeighbor
		}
		scaled[i] = imaging.Resize(p.Image, 0, panelHeight, filter)
		width += scaled[i].Bounds().Dx() + panelGap
	}

	height := panelGap + titleHeight + panelHeight + panelGap
	sheet := imaging.New(width, height, montageBackground)

	x := panelGap
	for i, img := range scaled {
		drawLabel(sheet, x, panelGap+titleHeight-5, panels[i].Title, montageText)
		sheet = imaging.Paste(sheet, img, image.Pt(x, panelGap+titleHeight))
		x += img.Bounds().Dx() + panelGap
	}
	return sheet, nil
}
