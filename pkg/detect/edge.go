package detect

import (
	"context"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// Edge/contrast block analysis tuning.
const (
	edgeBlockSize     = 16   // pixels per block side
	edgeWindowFrac    = 0.30 // face window width as fraction of frame width
	edgeWindowAspect  = 0.75 // window aspect ratio (within the 0.6-0.9 band)
	edgeMinIntensity  = 12.0 // minimum mean gradient magnitude to accept
	edgeBaseConf      = 45.0
	edgeIntensityConf = 0.8 // confidence per unit of mean intensity above threshold
)

// EdgeDetector finds the face-sized window with the strongest local edge
// activity. Faces produce dense gradients (eyes, nostrils, mouth) against
// flatter backgrounds. Crude but model-free and cheap.
type EdgeDetector struct {
	reliability float64
}

// NewEdgeDetector creates an edge/contrast block detector.
func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{reliability: 0.4}
}

// Name implements Detector.
func (d *EdgeDetector) Name() string { return "edge" }

// Reliability implements Detector.
func (d *EdgeDetector) Reliability() float64 { return d.reliability }

// Detect implements Detector.
func (d *EdgeDetector) Detect(ctx context.Context, f *vision.Frame) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Failed(d.Name(), err, time.Since(start))
	}

	gw := f.Width / edgeBlockSize
	gh := f.Height / edgeBlockSize
	if gw < 4 || gh < 4 {
		return NotFound(d.Name(), time.Since(start))
	}

	grid := blockIntensities(f, gw, gh)

	// Face window in block units.
	winW := int(float64(gw) * edgeWindowFrac)
	if winW < 2 {
		winW = 2
	}
	winH := int(float64(winW) / edgeWindowAspect)
	if winH < 2 {
		winH = 2
	}
	if winW > gw || winH > gh {
		return NotFound(d.Name(), time.Since(start))
	}

	bestX, bestY, bestMean := 0, 0, -1.0
	for y := 0; y+winH <= gh; y++ {
		for x := 0; x+winW <= gw; x++ {
			var sum float64
			for wy := 0; wy < winH; wy++ {
				for wx := 0; wx < winW; wx++ {
					sum += grid[(y+wy)*gw+(x+wx)]
				}
			}
			mean := sum / float64(winW*winH)
			if mean > bestMean {
				bestMean = mean
				bestX, bestY = x, y
			}
		}
	}

	if bestMean < edgeMinIntensity {
		return NotFound(d.Name(), time.Since(start))
	}

	region := FaceRegion{
		X:          float64(bestX * edgeBlockSize),
		Y:          float64(bestY * edgeBlockSize),
		Width:      float64(winW * edgeBlockSize),
		Height:     float64(winH * edgeBlockSize),
		Confidence: clamp(edgeBaseConf+(bestMean-edgeMinIntensity)*edgeIntensityConf, 0, 100),
	}
	region = region.Clamp(f.Width, f.Height)
	if region.Validate(f.Width, f.Height) != nil {
		return NotFound(d.Name(), time.Since(start))
	}
	return Found(d.Name(), region, time.Since(start))
}

// blockIntensities computes the mean gradient magnitude per block using
// central differences on the luminance plane.
func blockIntensities(f *vision.Frame, gw, gh int) []float64 {
	grid := make([]float64, gw*gh)
	for by := 0; by < gh; by++ {
		for bx := 0; bx < gw; bx++ {
			var sum float64
			var n int
			for y := by * edgeBlockSize; y < (by+1)*edgeBlockSize; y += 2 {
				for x := bx * edgeBlockSize; x < (bx+1)*edgeBlockSize; x += 2 {
					if x < 1 || y < 1 || x >= f.Width-1 || y >= f.Height-1 {
						continue
					}
					gx := f.Gray(x+1, y) - f.Gray(x-1, y)
					gy := f.Gray(x, y+1) - f.Gray(x, y-1)
					if gx < 0 {
						gx = -gx
					}
					if gy < 0 {
						gy = -gy
					}
					sum += gx + gy
					n++
				}
			}
			if n > 0 {
				grid[by*gw+bx] = sum / float64(n)
			}
		}
	}
	return grid
}
