package detect

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// Optical flow tuning.
const (
	flowMaxPoints    = 80   // tracked feature points
	flowMinPoints    = 8    // minimum valid tracks to report a detection
	flowWindow       = 3    // LK window half-size (7x7 window)
	flowMaxDisp      = 30.0 // discard tracks that jump further (pixels)
	flowHarrisK      = 0.04
	flowHarrisThresh = 1e5
	flowSeedStride   = 6    // candidate corner spacing during seeding
	flowReseedChance = 0.10 // probability of reseeding each tick to avoid drift
	flowBoxWidthFrac = 0.30 // face box width around the flow centroid
	flowBoxAspect    = 0.75
)

type flowPoint struct {
	x, y float64
}

// FlowDetector tracks Harris-corner feature points between consecutive
// frames with a Lucas-Kanade style least-squares flow solve and clusters
// the surviving tracks into a face-sized box.
//
// Detect is read-only over shared frame data; per-tick state (previous
// frame plane, point set) is committed by Update after fusion.
type FlowDetector struct {
	reliability float64
	rng         *rand.Rand

	prev   []float64 // previous frame luminance plane
	prevW  int
	prevH  int
	points []flowPoint

	pending []flowPoint // tracks computed by Detect, committed by Update
}

// NewFlowDetector creates an optical flow detector.
func NewFlowDetector() *FlowDetector {
	return &FlowDetector{
		reliability: 0.5,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Name implements Detector.
func (d *FlowDetector) Name() string { return "flow" }

// Reliability implements Detector.
func (d *FlowDetector) Reliability() float64 { return d.reliability }

// Detect implements Detector.
func (d *FlowDetector) Detect(ctx context.Context, f *vision.Frame) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Failed(d.Name(), err, time.Since(start))
	}

	d.pending = nil
	if d.prev == nil || d.prevW != f.Width || d.prevH != f.Height || len(d.points) < flowMinPoints {
		// Need a previous frame and a seeded point set first.
		return NotFound(d.Name(), time.Since(start))
	}

	cur := f.GrayPlane()
	var moved []flowPoint
	for _, p := range d.points {
		nx, ny, ok := d.solveFlow(cur, f.Width, f.Height, p)
		if !ok {
			continue
		}
		if dist(p.x, p.y, nx, ny) > flowMaxDisp {
			continue
		}
		if nx < 0 || ny < 0 || nx >= float64(f.Width) || ny >= float64(f.Height) {
			continue
		}
		moved = append(moved, flowPoint{nx, ny})
	}
	d.pending = moved

	if len(moved) < flowMinPoints {
		return NotFound(d.Name(), time.Since(start))
	}

	// Cluster: centroid of surviving tracks.
	var cx, cy float64
	for _, p := range moved {
		cx += p.x
		cy += p.y
	}
	cx /= float64(len(moved))
	cy /= float64(len(moved))

	w := float64(f.Width) * flowBoxWidthFrac
	h := w / flowBoxAspect
	trackRatio := float64(len(moved)) / float64(len(d.points))

	region := FaceRegion{
		X:          cx - w/2,
		Y:          cy - h/2,
		Width:      w,
		Height:     h,
		Confidence: clamp(40+trackRatio*45, 0, 100),
	}
	region = region.Clamp(f.Width, f.Height)
	if region.Validate(f.Width, f.Height) != nil {
		return NotFound(d.Name(), time.Since(start))
	}
	return Found(d.Name(), region, time.Since(start))
}

// Update implements Tracker. Commits the advanced point set, stores the
// current frame as the new reference, and occasionally reseeds feature
// points to counter drift.
func (d *FlowDetector) Update(f *vision.Frame, fused *FaceRegion) {
	d.prev = f.GrayPlane()
	d.prevW = f.Width
	d.prevH = f.Height

	if d.pending != nil {
		d.points = d.pending
		d.pending = nil
	}

	if len(d.points) < flowMinPoints || d.rng.Float64() < flowReseedChance {
		d.seed(f, fused)
	}
}

// seed extracts Harris corners, preferring the fused face region when one
// is available.
func (d *FlowDetector) seed(f *vision.Frame, fused *FaceRegion) {
	x0, y0, x1, y1 := 1, 1, f.Width-1, f.Height-1
	if fused != nil {
		x0 = int(math.Max(1, fused.X))
		y0 = int(math.Max(1, fused.Y))
		x1 = int(math.Min(float64(f.Width-1), fused.X+fused.Width))
		y1 = int(math.Min(float64(f.Height-1), fused.Y+fused.Height))
	}

	type corner struct {
		p        flowPoint
		response float64
	}
	var corners []corner

	for y := y0 + flowWindow; y < y1-flowWindow; y += flowSeedStride {
		for x := x0 + flowWindow; x < x1-flowWindow; x += flowSeedStride {
			r := harrisResponse(f, x, y)
			if r > flowHarrisThresh {
				corners = append(corners, corner{flowPoint{float64(x), float64(y)}, r})
			}
		}
	}

	// Keep the strongest corners.
	for i := 1; i < len(corners); i++ {
		for j := i; j > 0 && corners[j].response > corners[j-1].response; j-- {
			corners[j], corners[j-1] = corners[j-1], corners[j]
		}
	}
	if len(corners) > flowMaxPoints {
		corners = corners[:flowMaxPoints]
	}

	d.points = d.points[:0]
	for _, c := range corners {
		d.points = append(d.points, c.p)
	}
}

// harrisResponse computes the Harris corner response at (x, y) over a
// 3x3 structure tensor window.
func harrisResponse(f *vision.Frame, x, y int) float64 {
	var ixx, iyy, ixy float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			gx := f.Gray(x+dx+1, y+dy) - f.Gray(x+dx-1, y+dy)
			gy := f.Gray(x+dx, y+dy+1) - f.Gray(x+dx, y+dy-1)
			ixx += gx * gx
			iyy += gy * gy
			ixy += gx * gy
		}
	}
	det := ixx*iyy - ixy*ixy
	trace := ixx + iyy
	return det - flowHarrisK*trace*trace
}

// solveFlow computes the displacement of one point between the previous
// and current frame by solving the 2x2 least-squares system built from
// spatial gradients and the temporal difference (Lucas-Kanade).
func (d *FlowDetector) solveFlow(cur []float64, w, h int, p flowPoint) (nx, ny float64, ok bool) {
	px, py := int(p.x), int(p.y)
	if px < flowWindow+1 || py < flowWindow+1 || px >= w-flowWindow-1 || py >= h-flowWindow-1 {
		return 0, 0, false
	}

	var a11, a12, a22, b1, b2 float64
	for dy := -flowWindow; dy <= flowWindow; dy++ {
		for dx := -flowWindow; dx <= flowWindow; dx++ {
			x, y := px+dx, py+dy
			i := y*w + x
			gx := (d.prev[i+1] - d.prev[i-1]) / 2
			gy := (d.prev[i+w] - d.prev[i-w]) / 2
			it := cur[i] - d.prev[i]

			a11 += gx * gx
			a12 += gx * gy
			a22 += gy * gy
			b1 -= gx * it
			b2 -= gy * it
		}
	}

	det := a11*a22 - a12*a12
	if math.Abs(det) < 1e-6 {
		// Flat or edge-only neighborhood; flow is unrecoverable here.
		return 0, 0, false
	}

	vx := (a22*b1 - a12*b2) / det
	vy := (a11*b2 - a12*b1) / det
	return p.x + vx, p.y + vy, true
}

// PointCount returns the number of currently tracked feature points.
func (d *FlowDetector) PointCount() int {
	return len(d.points)
}
