// Package matcher implements the pixel-classification primitives that
// detectors are built from. Each matcher is a pure function of a frame and a
// spec: repeated evaluation of the same inputs yields the same result.
package matcher

import (
	"fmt"
	"image"

	"github.com/mizutama/gamewatch/pkg/frame"
)

// Kind selects the active variant of a Spec.
type Kind int

const (
	// KindHash matches the exact content hash of the region.
	KindHash Kind = iota
	// KindHSV matches the ratio of pixels inside an HSV range.
	KindHSV
	// KindUniform matches regions whose hue variance is low.
	KindUniform
	// KindRGB matches the ratio of pixels exactly equal to a target color.
	KindRGB
	// KindTemplate matches by normalized cross-correlation against an image.
	KindTemplate
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindHash:
		return "hash"
	case KindHSV:
		return "hsv"
	case KindUniform:
		return "uniform"
	case KindRGB:
		return "rgb"
	case KindTemplate:
		return "template"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HSVBound is one corner of an inclusive HSV range, in the OpenCV convention
// (H 0-179, S and V 0-255).
type HSVBound struct {
	H, S, V uint8
}

// Spec is the tagged-union description of one matcher. Exactly one variant is
// active, selected by Kind; only that variant's fields are read.
type Spec struct {
	Kind Kind

	// ROI restricts matching to a sub-rectangle of the frame. The zero
	// rectangle means the whole frame. Not used by Template, which scans
	// the full frame for the best offset.
	ROI image.Rectangle

	// Threshold is the minimum score for a match, in [0, 1].
	// Used by HSV, RGB and Template.
	Threshold float64

	// Hash variant
	ReferenceHash string // lowercase hex

	// HSV variant
	Lower, Upper HSVBound

	// Uniform variant
	HueThreshold float64 // maximum hue standard deviation, >= 0

	// RGB variant
	Target [3]uint8

	// Template variant
	Template *Template
}

// Result is the outcome of evaluating one matcher against one frame.
type Result struct {
	Value bool
	Score float64

	// Offset is the top-left corner of the best template match.
	// Meaningful for KindTemplate only.
	Offset image.Point
}

// Validate checks the spec's invariants. Violations are configuration
// errors: a registry is never built from an invalid spec.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindHash:
		if s.ReferenceHash == "" {
			return fmt.Errorf("%w: hash matcher needs a reference hash", ErrInvalidSpec)
		}
	case KindHSV:
		if err := validThreshold(s.Threshold); err != nil {
			return err
		}
		if s.Lower.H > s.Upper.H || s.Lower.S > s.Upper.S || s.Lower.V > s.Upper.V {
			return fmt.Errorf("%w: hsv lower bound exceeds upper bound", ErrInvalidSpec)
		}
	case KindUniform:
		if s.HueThreshold < 0 {
			return fmt.Errorf("%w: hue threshold %g is negative", ErrInvalidSpec, s.HueThreshold)
		}
	case KindRGB:
		if err := validThreshold(s.Threshold); err != nil {
			return err
		}
	case KindTemplate:
		if err := validThreshold(s.Threshold); err != nil {
			return err
		}
		if s.Template == nil || len(s.Template.Gray) == 0 {
			return fmt.Errorf("%w: template matcher needs a template image", ErrInvalidSpec)
		}
	default:
		return fmt.Errorf("%w: unknown matcher kind %d", ErrInvalidSpec, int(s.Kind))
	}
	return nil
}

func validThreshold(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("%w: threshold %g outside [0, 1]", ErrInvalidSpec, t)
	}
	return nil
}

// Evaluate runs the spec's active variant against the frame. Errors are
// recoverable evaluation failures (bad ROI, malformed frame); the caller
// treats the matcher as non-matching for this frame only.
func Evaluate(f *frame.Frame, s Spec) (Result, error) {
	if f == nil || len(f.Pix) == 0 {
		return Result{}, frame.ErrEmptyFrame
	}
	switch s.Kind {
	case KindHash:
		return evalHash(f, s)
	case KindHSV:
		return evalHSV(f, s)
	case KindUniform:
		return evalUniform(f, s)
	case KindRGB:
		return evalRGB(f, s)
	case KindTemplate:
		return evalTemplate(f, s)
	}
	return Result{}, fmt.Errorf("%w: unknown matcher kind %d", ErrInvalidSpec, int(s.Kind))
}
