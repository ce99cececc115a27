package matcher

import (
	"encoding/hex"
	"image"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/mizutama/gamewatch/pkg/frame"
)

// evalHash hashes the raw bytes of the (optionally cropped) frame and
// compares against the reference. Binary by nature: any single changed byte
// inside the region flips the result. Intended for exact-screen-state
// detection such as static menus and loading cards.
func evalHash(f *frame.Frame, s Spec) (Result, error) {
	roi, err := f.Clip(s.ROI)
	if err != nil {
		return Result{}, err
	}

	h := blake3.New()
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		h.Write(f.RowBytes(y, roi.Min.X, roi.Max.X))
	}
	sum := hex.EncodeToString(h.Sum(nil))

	if sum == strings.ToLower(s.ReferenceHash) {
		return Result{Value: true, Score: 1}, nil
	}
	return Result{Value: false, Score: 0}, nil
}

// HashRegion returns the hex content hash of a frame region, as stored in
// hash matcher configurations. Exposed for configuration tooling that
// captures reference hashes from live frames.
func HashRegion(f *frame.Frame, roi image.Rectangle) (string, error) {
	r, err := f.Clip(roi)
	if err != nil {
		return "", err
	}
	h := blake3.New()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		h.Write(f.RowBytes(y, r.Min.X, r.Max.X))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
