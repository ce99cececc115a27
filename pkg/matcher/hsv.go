package matcher

import (
	"math"

	"github.com/mizutama/gamewatch/pkg/frame"
)

// evalHSV counts region pixels whose hue, saturation and value each fall
// inside the inclusive per-channel bounds. Score is the matching ratio; a
// score exactly equal to the threshold counts as a match.
func evalHSV(f *frame.Frame, s Spec) (Result, error) {
	roi, err := f.Clip(s.ROI)
	if err != nil {
		return Result{}, err
	}

	total := roi.Dx() * roi.Dy()
	matching := 0
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			r, g, b := f.RGBAt(x, y)
			h, sat, v := frame.RGBToHSV(r, g, b)
			if h >= s.Lower.H && h <= s.Upper.H &&
				sat >= s.Lower.S && sat <= s.Upper.S &&
				v >= s.Lower.V && v <= s.Upper.V {
				matching++
			}
		}
	}

	score := float64(matching) / float64(total)
	return Result{Value: score >= s.Threshold, Score: score}, nil
}

// evalUniform measures how uniform a region's hue is: the population standard
// deviation of the hue channel. Solid colors and smooth gradients score near
// zero; busy gameplay scores high. Match iff stddev <= HueThreshold.
func evalUniform(f *frame.Frame, s Spec) (Result, error) {
	roi, err := f.Clip(s.ROI)
	if err != nil {
		return Result{}, err
	}

	n := float64(roi.Dx() * roi.Dy())
	var sum, sumSq float64
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			r, g, b := f.RGBAt(x, y)
			h, _, _ := frame.RGBToHSV(r, g, b)
			hf := float64(h)
			sum += hf
			sumSq += hf * hf
		}
	}

	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0 // float rounding on perfectly uniform regions
	}
	std := math.Sqrt(variance)

	return Result{Value: std <= s.HueThreshold, Score: std}, nil
}
