// Package capture adapts OpenCV video sources (devices, files, streams) to
// the pipeline's FrameSource. The engine itself never decodes video; this is
// the boundary where gocv mats become immutable frames.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gocv.io/x/gocv"

	"github.com/mizutama/gamewatch/pkg/frame"
	"github.com/mizutama/gamewatch/pkg/matcher"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("capture: source closed")

// Source reads frames from an OpenCV VideoCapture.
type Source struct {
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenDevice opens a capture device by index (webcam, HDMI grabber) and
// requests the configured mode. Devices that cannot honor it fall back to
// their native mode.
func OpenDevice(id int, cfg Config) (*Source, error) {
	if errs := cfg.Validate(); errs != nil {
		return nil, fmt.Errorf("capture: invalid config: %s", errs[0])
	}
	cap, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("capture: open device %d: %w", id, err)
	}
	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	return &Source{cap: cap, mat: gocv.NewMat()}, nil
}

// OpenFile opens a video file or stream URL.
func OpenFile(path string) (*Source, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open %q: %w", path, err)
	}
	return &Source{cap: cap, mat: gocv.NewMat()}, nil
}

// Next reads and converts one frame. Returns io.EOF when the source ends.
func (s *Source) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, ErrClosed
	}
	if ok := s.cap.Read(&s.mat); !ok {
		return nil, io.EOF
	}
	if s.mat.Empty() {
		return nil, io.EOF
	}

	// OpenCV delivers BGR. Copy out of the reused mat so the frame owns
	// its buffer.
	buf, err := s.mat.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("capture: mat data: %w", err)
	}
	pix := make([]byte, len(buf))
	copy(pix, buf)

	return frame.New(s.mat.Cols(), s.mat.Rows(), frame.BGR, pix, time.Now())
}

// Close releases the underlying device.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	return s.cap.Close()
}

// LoadTemplate reads a template image from disk in grayscale via OpenCV,
// for use in template matcher specs.
func LoadTemplate(path string) (*matcher.Template, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		return nil, fmt.Errorf("capture: unreadable template image %q", path)
	}
	defer img.Close()

	buf, err := img.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("capture: template data: %w", err)
	}
	gray := make([]float64, len(buf))
	for i, v := range buf {
		gray[i] = float64(v)
	}
	return matcher.NewTemplate(img.Cols(), img.Rows(), gray)
}
