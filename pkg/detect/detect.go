// Package detect implements the multi-algorithm face detection engine.
//
// Several independent detectors run concurrently over one frame. Their
// results are fused into a single face region via confidence and
// per-method reliability weighting, with temporal smoothing across ticks.
package detect

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// FaceRegion is a detected face bounding box in frame pixel coordinates.
type FaceRegion struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"` // 0-100
}

// Center returns the center point of the region.
func (r FaceRegion) Center() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the bounding box.
func (r FaceRegion) Area() float64 {
	return r.Width * r.Height
}

// AspectRatio returns width/height, or 0 for a degenerate box.
func (r FaceRegion) AspectRatio() float64 {
	if r.Height <= 0 {
		return 0
	}
	return r.Width / r.Height
}

// Valid face regions must sit inside the frame, have positive size, and an
// aspect ratio plausible for a face.
const (
	MinAspectRatio = 0.4
	MaxAspectRatio = 1.5
)

// Validate checks the region invariants against the frame bounds.
func (r FaceRegion) Validate(frameW, frameH int) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("non-positive size %.1fx%.1f", r.Width, r.Height)
	}
	if r.X < 0 || r.Y < 0 || r.X+r.Width > float64(frameW) || r.Y+r.Height > float64(frameH) {
		return fmt.Errorf("region (%.1f,%.1f %.1fx%.1f) outside %dx%d frame",
			r.X, r.Y, r.Width, r.Height, frameW, frameH)
	}
	ar := r.AspectRatio()
	if ar < MinAspectRatio || ar > MaxAspectRatio {
		return fmt.Errorf("aspect ratio %.2f outside [%.1f, %.1f]", ar, MinAspectRatio, MaxAspectRatio)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("confidence %.1f outside [0, 100]", r.Confidence)
	}
	return nil
}

// Clamp constrains the region to the frame bounds, preserving size where
// possible. Confidence is clamped to [0, 100].
func (r FaceRegion) Clamp(frameW, frameH int) FaceRegion {
	fw, fh := float64(frameW), float64(frameH)
	if r.Width > fw {
		r.Width = fw
	}
	if r.Height > fh {
		r.Height = fh
	}
	r.X = clamp(r.X, 0, fw-r.Width)
	r.Y = clamp(r.Y, 0, fh-r.Height)
	r.Confidence = clamp(r.Confidence, 0, 100)
	return r
}

// Status tags the outcome of one detector on one frame.
type Status int

const (
	// StatusFound means the detector located a face.
	StatusFound Status = iota
	// StatusNotFound means the detector ran but saw no face. This is a
	// normal state, not an error.
	StatusNotFound
	// StatusFailed means the detector errored or timed out. Failed results
	// contribute nothing to fusion.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Result is one detector's outcome for one frame.
type Result struct {
	Method  string
	Status  Status
	Region  FaceRegion // valid only when Status == StatusFound
	Err     error      // set only when Status == StatusFailed
	Elapsed time.Duration
}

// Found builds a successful result.
func Found(method string, region FaceRegion, elapsed time.Duration) Result {
	return Result{Method: method, Status: StatusFound, Region: region, Elapsed: elapsed}
}

// NotFound builds a no-face result.
func NotFound(method string, elapsed time.Duration) Result {
	return Result{Method: method, Status: StatusNotFound, Elapsed: elapsed}
}

// Failed builds an error result.
func Failed(method string, err error, elapsed time.Duration) Result {
	return Result{Method: method, Status: StatusFailed, Err: err, Elapsed: elapsed}
}

// Detector is the interface all face detection backends implement.
// Detect must treat the frame as read-only; detectors run concurrently
// over the same frame buffer.
type Detector interface {
	// Name identifies the method in fusion weights and statistics.
	Name() string

	// Reliability is the static fusion weight for this method (0-1).
	Reliability() float64

	// Detect analyzes one frame. Absence of a face is StatusNotFound,
	// never an error.
	Detect(ctx context.Context, f *vision.Frame) Result
}

// Tracker is implemented by stateful detectors (optical flow, template
// matching). Update commits per-tick state after fusion completes; it is
// never called concurrently with Detect.
type Tracker interface {
	// Update receives the current frame and the fused region (nil when
	// the subject was not found this tick).
	Update(f *vision.Frame, fused *FaceRegion)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}
