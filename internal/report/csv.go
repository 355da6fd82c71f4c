package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ironsheep/astro-tools-mcp/internal/detection"
)

// Header is the first record of every object file.
var Header = []string{"x", "y", "width", "height"}

// ErrMalformedCSV is returned when an object file cannot be parsed.
var ErrMalformedCSV = errors.New("malformed object csv")

// WriteObjects writes the header and one record per box.
func WriteObjects(w io.Writer, boxes []detection.BoundingBox) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, b := range boxes {
		rec := []string{
			strconv.Itoa(b.X),
			strconv.Itoa(b.Y),
			strconv.Itoa(b.Width),
			strconv.Itoa(b.Height),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// SaveObjects writes boxes to path, creating the parent directory.
func SaveObjects(path string, boxes []detection.BoundingBox) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return WriteObjects(f, boxes)
}

// ReadObjects parses an object file. It rejects a missing or different
// header, rows without exactly four fields, non-integer values, negative
// coordinates and non-positive sizes.
func ReadObjects(r io.Reader) ([]detection.BoundingBox, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	for i, name := range Header {
		if head[i] != name {
			return nil, fmt.Errorf("%w: header field %d is %q, want %q", ErrMalformedCSV, i+1, head[i], name)
		}
	}

	boxes := []detection.BoundingBox{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		line, _ := cr.FieldPos(0)

		var v [4]int
		for i, field := range rec {
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s %q is not an integer", ErrMalformedCSV, line, Header[i], field)
			}
			v[i] = n
		}
		b := detection.BoundingBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
		if !b.Valid() {
			return nil, fmt.Errorf("%w: line %d: invalid box %s", ErrMalformedCSV, line, b)
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// LoadObjects reads the object file at path.
func LoadObjects(path string) ([]detection.BoundingBox, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadObjects(f)
}
