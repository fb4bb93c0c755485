package detect

import (
	"context"
	"math"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// Template matching tuning.
const (
	templateW         = 24 // captured patch resolution
	templateH         = 32
	templateStride    = 8    // search stride in pixels
	templateSimThresh = 0.60 // minimum similarity to accept a match
	templateMinConf   = 60.0 // fused confidence needed to (re)capture a patch
	templateMaxDiff   = 80.0 // brightness MSD that maps to similarity 0
)

// TemplateDetector captures a downsampled grayscale patch of the face once
// a confident fused detection exists, then locates it in subsequent frames
// by minimizing sampled mean-squared brightness difference.
type TemplateDetector struct {
	reliability float64

	patch []float64 // templateW x templateH luminance samples, nil until captured
	lastW float64   // pixel size of the region the patch was captured from
	lastH float64
}

// NewTemplateDetector creates a template matching detector.
func NewTemplateDetector() *TemplateDetector {
	return &TemplateDetector{reliability: 0.5}
}

// Name implements Detector.
func (d *TemplateDetector) Name() string { return "template" }

// Reliability implements Detector.
func (d *TemplateDetector) Reliability() float64 { return d.reliability }

// HasTemplate reports whether a face patch has been captured.
func (d *TemplateDetector) HasTemplate() bool { return d.patch != nil }

// Detect implements Detector.
func (d *TemplateDetector) Detect(ctx context.Context, f *vision.Frame) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Failed(d.Name(), err, time.Since(start))
	}
	if d.patch == nil {
		return NotFound(d.Name(), time.Since(start))
	}

	w := int(d.lastW)
	h := int(d.lastH)
	if w < templateW || h < templateH || w > f.Width || h > f.Height {
		return NotFound(d.Name(), time.Since(start))
	}

	bestX, bestY, bestDiff := 0, 0, math.MaxFloat64
	for y := 0; y+h <= f.Height; y += templateStride {
		for x := 0; x+w <= f.Width; x += templateStride {
			diff := d.sampledMSD(f, x, y, w, h, bestDiff)
			if diff < bestDiff {
				bestDiff = diff
				bestX, bestY = x, y
			}
		}
	}

	similarity := clamp(1-bestDiff/templateMaxDiff, 0, 1)
	if similarity < templateSimThresh {
		return NotFound(d.Name(), time.Since(start))
	}

	region := FaceRegion{
		X:          float64(bestX),
		Y:          float64(bestY),
		Width:      d.lastW,
		Height:     d.lastH,
		Confidence: clamp(similarity*100, 0, 100),
	}
	region = region.Clamp(f.Width, f.Height)
	if region.Validate(f.Width, f.Height) != nil {
		return NotFound(d.Name(), time.Since(start))
	}
	return Found(d.Name(), region, time.Since(start))
}

// sampledMSD computes the root-mean-square brightness difference between
// the stored patch and the candidate window, sampled at patch resolution.
// Aborts early once the accumulated squared error exceeds the best
// window's budget.
func (d *TemplateDetector) sampledMSD(f *vision.Frame, x0, y0, w, h int, best float64) float64 {
	budget := math.MaxFloat64
	if best < math.MaxFloat64 {
		budget = best * best * float64(templateW*templateH)
	}

	var sum float64
	n := 0
	for ty := 0; ty < templateH; ty++ {
		for tx := 0; tx < templateW; tx++ {
			x := x0 + tx*w/templateW
			y := y0 + ty*h/templateH
			dv := f.Gray(x, y) - d.patch[ty*templateW+tx]
			sum += dv * dv
			n++
		}
		// Total squared error only grows row to row.
		if sum > budget {
			return math.MaxFloat64
		}
	}
	return math.Sqrt(sum / float64(n))
}

// Update implements Tracker. Recaptures the patch whenever fusion produced
// a confident region; keeps the old patch otherwise.
func (d *TemplateDetector) Update(f *vision.Frame, fused *FaceRegion) {
	if fused == nil || fused.Confidence < templateMinConf {
		return
	}
	if fused.Width < templateW || fused.Height < templateH {
		return
	}

	patch := make([]float64, templateW*templateH)
	for ty := 0; ty < templateH; ty++ {
		for tx := 0; tx < templateW; tx++ {
			x := int(fused.X) + tx*int(fused.Width)/templateW
			y := int(fused.Y) + ty*int(fused.Height)/templateH
			if !f.Inside(x, y) {
				return
			}
			patch[ty*templateW+tx] = f.Gray(x, y)
		}
	}
	d.patch = patch
	d.lastW = fused.Width
	d.lastH = fused.Height
}
