package frame

// HSV color conversion following the OpenCV 8-bit convention:
// H in [0, 180), S and V in [0, 255]. Detector configurations are written
// against these ranges, so the engine must reproduce them exactly.

// RGBToHSV converts one 8-bit RGB pixel to OpenCV-convention HSV.
func RGBToHSV(r, g, b uint8) (h, s, v uint8) {
	maxC := r
	if g > maxC {
		maxC = g
	}
	if b > maxC {
		maxC = b
	}
	minC := r
	if g < minC {
		minC = g
	}
	if b < minC {
		minC = b
	}

	v = maxC
	delta := int(maxC) - int(minC)
	if maxC == 0 {
		return 0, 0, 0
	}
	if delta == 0 {
		return 0, 0, v
	}

	s = uint8((255*delta + int(maxC)/2) / int(maxC))

	// Hue in degrees, then halved into [0, 180)
	var deg int
	switch maxC {
	case r:
		deg = (60 * (int(g) - int(b))) / delta
	case g:
		deg = 120 + (60*(int(b)-int(r)))/delta
	default:
		deg = 240 + (60*(int(r)-int(g)))/delta
	}
	if deg < 0 {
		deg += 360
	}
	h = uint8(deg / 2)
	return h, s, v
}

// GrayAt returns the BT.601 luma of the pixel at (x, y), matching the
// weighting OpenCV uses for color-to-gray conversion.
func (f *Frame) GrayAt(x, y int) float64 {
	r, g, b := f.RGBAt(x, y)
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
