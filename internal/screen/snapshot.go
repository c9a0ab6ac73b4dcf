package screen

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"time"
)

// Snapshot is a single captured frame plus its grid-composited variant.
// Immutable after creation; persisted copies are named by the store.
type Snapshot struct {
	Raw        image.Image
	Composited image.Image
	TakenAt    time.Time
}

// Take captures the display and composites the grid overlay in one shot.
func Take(c Capturer) (*Snapshot, error) {
	raw, err := c.Capture()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Raw:        raw,
		Composited: RenderOverlay(raw),
		TakenAt:    time.Now(),
	}, nil
}

// CompositedPNG encodes the grid-overlaid frame, the form the model sees.
func (s *Snapshot) CompositedPNG() ([]byte, error) {
	return EncodePNG(s.Composited)
}

// RawPNG encodes the unmodified capture.
func (s *Snapshot) RawPNG() ([]byte, error) {
	return EncodePNG(s.Raw)
}

// EncodePNG serializes an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
