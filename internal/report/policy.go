package report

import (
	"fmt"

	"github.com/ironsheep/astro-tools-mcp/internal/detection"
)

const (
	// DefaultDisplayMinBox hides boxes of 5 pixels or less on either side
	// from annotated output.
	DefaultDisplayMinBox = 5

	// DefaultRecordMinBox keeps every box in the CSV.
	DefaultRecordMinBox = 0
)

// Policy decides which boxes are drawn and which are recorded. A box passes
// a minimum m when its width and height are both greater than m.
type Policy struct {
	DisplayMinBox int `json:"display_min_box" yaml:"display_min_box"`
	RecordMinBox  int `json:"record_min_box" yaml:"record_min_box"`
}

// DefaultPolicy returns the display minimum 5 and record minimum 0.
func DefaultPolicy() Policy {
	return Policy{DisplayMinBox: DefaultDisplayMinBox, RecordMinBox: DefaultRecordMinBox}
}

// Validate rejects negative minimums.
func (p Policy) Validate() error {
	if p.DisplayMinBox < 0 || p.RecordMinBox < 0 {
		return fmt.Errorf("box minimums must be non-negative, got display=%d record=%d", p.DisplayMinBox, p.RecordMinBox)
	}
	return nil
}

// Display returns the boxes to draw.
func (p Policy) Display(boxes []detection.BoundingBox) []detection.BoundingBox {
	return detection.FilterMinSize(boxes, p.DisplayMinBox)
}

// Record returns the boxes to persist.
func (p Policy) Record(boxes []detection.BoundingBox) []detection.BoundingBox {
	return detection.FilterMinSize(boxes, p.RecordMinBox)
}
