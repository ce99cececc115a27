package matcher

import (
	"fmt"
	"image"
	"math"

	"github.com/mizutama/gamewatch/pkg/frame"
)

// Template is a pre-converted grayscale reference image. The zero-mean values
// and their norm are computed once at construction so per-frame evaluation
// only pays for the frame side of the correlation.
type Template struct {
	Width  int
	Height int
	Gray   []float64

	zeroMean []float64
	norm     float64
}

// NewTemplate builds a template from row-major grayscale values.
func NewTemplate(width, height int, gray []float64) (*Template, error) {
	if width <= 0 || height <= 0 || len(gray) != width*height {
		return nil, fmt.Errorf("%w: %dx%d with %d values", ErrInvalidSpec, width, height, len(gray))
	}
	t := &Template{Width: width, Height: height, Gray: gray}

	var sum float64
	for _, v := range gray {
		sum += v
	}
	mean := sum / float64(len(gray))

	t.zeroMean = make([]float64, len(gray))
	var sq float64
	for i, v := range gray {
		d := v - mean
		t.zeroMean[i] = d
		sq += d * d
	}
	t.norm = math.Sqrt(sq)
	return t, nil
}

// TemplateFromImage converts any image to a grayscale template using the
// same BT.601 weighting the frame conversion uses.
func TemplateFromImage(img image.Image) (*Template, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty template image", ErrInvalidSpec)
	}
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			gray[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}
	return NewTemplate(w, h, gray)
}

// evalTemplate slides the template over every valid offset of the grayscale
// frame and scores by zero-mean normalized cross-correlation, the same
// measure as OpenCV's TM_CCOEFF_NORMED. Score is the best correlation found;
// Offset is where it occurred.
func evalTemplate(f *frame.Frame, s Spec) (Result, error) {
	t := s.Template
	if t == nil || len(t.Gray) == 0 {
		return Result{}, fmt.Errorf("%w: template matcher needs a template image", ErrInvalidSpec)
	}
	if t.Width > f.Width || t.Height > f.Height {
		return Result{}, fmt.Errorf("%w: template %dx%d, frame %dx%d",
			ErrTemplateLarger, t.Width, t.Height, f.Width, f.Height)
	}

	// Grayscale the frame once per evaluation.
	gray := make([]float64, f.Width*f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			gray[y*f.Width+x] = f.GrayAt(x, y)
		}
	}

	tw, th := t.Width, t.Height
	n := float64(tw * th)
	best := math.Inf(-1)
	var bestAt image.Point

	for oy := 0; oy <= f.Height-th; oy++ {
		for ox := 0; ox <= f.Width-tw; ox++ {
			// Window mean
			var sum float64
			for y := 0; y < th; y++ {
				row := gray[(oy+y)*f.Width+ox:]
				for x := 0; x < tw; x++ {
					sum += row[x]
				}
			}
			mean := sum / n

			var dot, sq float64
			for y := 0; y < th; y++ {
				row := gray[(oy+y)*f.Width+ox:]
				trow := t.zeroMean[y*tw:]
				for x := 0; x < tw; x++ {
					d := row[x] - mean
					dot += d * trow[x]
					sq += d * d
				}
			}

			denom := math.Sqrt(sq) * t.norm
			var corr float64
			if denom > 0 {
				corr = dot / denom
			}
			if corr > best {
				best = corr
				bestAt = image.Pt(ox, oy)
			}
		}
	}

	return Result{Value: best >= s.Threshold, Score: best, Offset: bestAt}, nil
}
