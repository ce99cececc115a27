package matcher

import (
	"github.com/mizutama/gamewatch/pkg/frame"
)

// evalRGB counts region pixels exactly equal to the target color. Exact
// comparison is deliberate: this matcher targets rendered UI elements whose
// colors are bit-stable, where a tolerance would only admit noise.
func evalRGB(f *frame.Frame, s Spec) (Result, error) {
	roi, err := f.Clip(s.ROI)
	if err != nil {
		return Result{}, err
	}

	total := roi.Dx() * roi.Dy()
	matching := 0
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			r, g, b := f.RGBAt(x, y)
			if r == s.Target[0] && g == s.Target[1] && b == s.Target[2] {
				matching++
			}
		}
	}

	score := float64(matching) / float64(total)
	return Result{Value: score >= s.Threshold, Score: score}, nil
}
