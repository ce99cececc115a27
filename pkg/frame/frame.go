// Package frame defines the immutable video frame snapshot consumed by the
// matcher engine, along with region-of-interest clipping and the color
// conversions the matchers need.
package frame

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// Sentinel errors for frame construction and ROI handling.
var (
	// ErrBufferSize is returned when the pixel buffer does not match the
	// declared dimensions and format.
	ErrBufferSize = errors.New("frame: pixel buffer size mismatch")

	// ErrROIOutOfBounds is returned when a region of interest does not lie
	// fully within the frame.
	ErrROIOutOfBounds = errors.New("frame: roi outside frame bounds")

	// ErrEmptyFrame is returned when a frame has zero area.
	ErrEmptyFrame = errors.New("frame: empty frame")
)

// PixelFormat identifies the channel order of a frame's pixel buffer.
type PixelFormat int

const (
	// RGB is 3 bytes per pixel, red first.
	RGB PixelFormat = iota
	// BGR is 3 bytes per pixel, blue first (OpenCV default).
	BGR
	// RGBA is 4 bytes per pixel, red first.
	RGBA
	// BGRA is 4 bytes per pixel, blue first.
	BGRA
)

// Channels returns the number of bytes per pixel for the format.
func (f PixelFormat) Channels() int {
	switch f {
	case RGBA, BGRA:
		return 4
	default:
		return 3
	}
}

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case RGB:
		return "rgb"
	case BGR:
		return "bgr"
	case RGBA:
		return "rgba"
	case BGRA:
		return "bgra"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Frame is one decoded image from the capture source. It is never mutated
// after construction; the analysis cycle that received it is its sole owner.
type Frame struct {
	Width     int
	Height    int
	Format    PixelFormat
	Pix       []byte // row-major, Width*Height*Format.Channels() bytes
	Timestamp time.Time
}

// New validates dimensions against the buffer and returns a frame.
func New(width, height int, format PixelFormat, pix []byte, ts time.Time) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyFrame
	}
	want := width * height * format.Channels()
	if len(pix) != want {
		return nil, fmt.Errorf("%w: have %d bytes, want %d (%dx%d %s)",
			ErrBufferSize, len(pix), want, width, height, format)
	}
	return &Frame{Width: width, Height: height, Format: format, Pix: pix, Timestamp: ts}, nil
}

// Bounds returns the frame rectangle.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Clip resolves a region of interest against the frame. A zero rectangle
// selects the whole frame. A region that is empty or not fully inside the
// frame is an evaluation error, not a silent crop.
func (f *Frame) Clip(roi image.Rectangle) (image.Rectangle, error) {
	if roi == (image.Rectangle{}) {
		return f.Bounds(), nil
	}
	if roi.Empty() || !roi.In(f.Bounds()) {
		return image.Rectangle{}, fmt.Errorf("%w: roi %v, frame %dx%d",
			ErrROIOutOfBounds, roi, f.Width, f.Height)
	}
	return roi, nil
}

// RGBAt returns the red, green and blue components of the pixel at (x, y).
// Bounds are the caller's responsibility.
func (f *Frame) RGBAt(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * f.Format.Channels()
	switch f.Format {
	case BGR, BGRA:
		return f.Pix[i+2], f.Pix[i+1], f.Pix[i]
	default:
		return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
	}
}

// RowBytes returns the raw bytes of row y restricted to columns [x0, x1).
// Used for hashing a region's exact contents.
func (f *Frame) RowBytes(y, x0, x1 int) []byte {
	c := f.Format.Channels()
	base := y * f.Width * c
	return f.Pix[base+x0*c : base+x1*c]
}
