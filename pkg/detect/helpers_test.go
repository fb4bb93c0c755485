package detect

import (
	"math"
	"testing"

	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// solidFrame builds a frame filled with a single color.
func solidFrame(t *testing.T, w, h int, r, g, b uint8) *vision.Frame {
	t.Helper()
	pix := make([]uint8, w*h*4)
	for i := 0; i < w*h; i++ {
		pix[i*4] = r
		pix[i*4+1] = g
		pix[i*4+2] = b
		pix[i*4+3] = 255
	}
	f, err := vision.NewFrame(w, h, pix)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

// fillRect overwrites a rectangle of the frame with a color.
// Must be called before the frame is handed to any detector.
func fillRect(t *testing.T, w int, pix []uint8, x0, y0, x1, y1 int, r, g, b uint8) {
	t.Helper()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := (y*w + x) * 4
			pix[i] = r
			pix[i+1] = g
			pix[i+2] = b
			pix[i+3] = 255
		}
	}
}

// frameFromPix wraps raw RGBA pixels, failing the test on size mismatch.
func frameFromPix(t *testing.T, w, h int, pix []uint8) *vision.Frame {
	t.Helper()
	f, err := vision.NewFrame(w, h, pix)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

// grayPix builds an RGBA buffer from a luminance function.
func grayPix(w, h int, fn func(x, y int) uint8) []uint8 {
	pix := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := fn(x, y)
			i := (y*w + x) * 4
			pix[i] = v
			pix[i+1] = v
			pix[i+2] = v
			pix[i+3] = 255
		}
	}
	return pix
}
