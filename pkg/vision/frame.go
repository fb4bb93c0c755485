// Package vision provides the pixel-buffer frame type shared by all
// detection backends.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// Frame is one decoded video frame. The pixel data is immutable after
// construction so concurrent detectors can read it without locking.
type Frame struct {
	Width  int
	Height int

	// Pix holds RGBA pixel data, 4 bytes per pixel, row-major.
	Pix []uint8

	// gray is the precomputed luminance plane (0-255), one value per pixel.
	gray []float64
}

// FromImage converts any image.Image into a Frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	f := &Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    rgba.Pix,
	}
	f.computeGray()
	return f
}

// DecodeJPEG decodes a JPEG buffer into a Frame.
func DecodeJPEG(data []byte) (*Frame, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return FromImage(img), nil
}

// NewFrame creates a frame from raw RGBA pixel data.
// Returns an error if the buffer size does not match the dimensions.
func NewFrame(width, height int, pix []uint8) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel buffer size %d does not match %dx%d RGBA", len(pix), width, height)
	}
	f := &Frame{Width: width, Height: height, Pix: pix}
	f.computeGray()
	return f, nil
}

func (f *Frame) computeGray() {
	f.gray = make([]float64, f.Width*f.Height)
	for i := 0; i < f.Width*f.Height; i++ {
		r := float64(f.Pix[i*4])
		g := float64(f.Pix[i*4+1])
		b := float64(f.Pix[i*4+2])
		// ITU-R BT.601 luma
		f.gray[i] = 0.299*r + 0.587*g + 0.114*b
	}
}

// RGB returns the red, green and blue components at (x, y).
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Gray returns the luminance (0-255) at (x, y).
func (f *Frame) Gray(x, y int) float64 {
	return f.gray[y*f.Width+x]
}

// GrayPlane returns the full luminance plane, row-major.
// Callers must not mutate the returned slice.
func (f *Frame) GrayPlane() []float64 {
	return f.gray
}

// Inside reports whether (x, y) lies within the frame.
func (f *Frame) Inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width && y < f.Height
}

// Area returns the frame area in pixels.
func (f *Frame) Area() float64 {
	return float64(f.Width * f.Height)
}
