// Package screen captures the primary display and renders the coordinate
// grid overlay the planner reads its targets from.
package screen

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
)

// ErrCaptureUnavailable indicates the display could not be captured. A
// partial or empty image is never returned in its place.
var ErrCaptureUnavailable = errors.New("screen capture unavailable")

// Capturer grabs the full primary display.
type Capturer interface {
	// Capture returns the current frame. Implementations return
	// ErrCaptureUnavailable when no usable image can be produced.
	Capture() (image.Image, error)
	// Size returns the primary display geometry in pixels.
	Size() (width, height int)
}

// RobotgoCapturer captures the primary display through robotgo.
type RobotgoCapturer struct{}

var _ Capturer = (*RobotgoCapturer)(nil)

// NewRobotgoCapturer verifies the display is reachable before returning.
func NewRobotgoCapturer() (c *RobotgoCapturer, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("%w: %v", ErrCaptureUnavailable, r)
		}
	}()

	c = &RobotgoCapturer{}
	if w, h := c.Size(); w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: display reports %dx%d", ErrCaptureUnavailable, w, h)
	}
	return c, nil
}

func (c *RobotgoCapturer) Capture() (img image.Image, err error) {
	// robotgo panics rather than erroring when no display is attached.
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("%w: %v", ErrCaptureUnavailable, r)
		}
	}()

	img = robotgo.CaptureImg()
	if img == nil {
		return nil, ErrCaptureUnavailable
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty capture %v", ErrCaptureUnavailable, b)
	}
	return img, nil
}

func (c *RobotgoCapturer) Size() (int, int) {
	return robotgo.GetScreenSize()
}
