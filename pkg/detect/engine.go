package detect

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/prepdeck/go-prepdeck/internal/log"
	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// Config holds the tunable parameters of the detection engine.
type Config struct {
	// SmoothingFactor is the exponential blend weight given to the new
	// detection (0-1). Low values favor stability over responsiveness.
	SmoothingFactor float64

	// JumpThreshold is the center displacement (pixels) above which a new
	// detection is treated as a scene change and applied unsmoothed.
	JumpThreshold float64

	// OutOfFrameAfter is the number of consecutive total-failure ticks
	// before the subject is declared out of frame.
	OutOfFrameAfter int

	// DetectBudget bounds each detector invocation within one tick. A
	// detector that misses the budget contributes a null result.
	DetectBudget time.Duration

	// ReoptimizeEvery is the tick interval between fusion weight
	// reoptimization attempts.
	ReoptimizeEvery int

	// EyeContactSpan scales the frame diagonal when mapping face-center
	// offset to an eye contact percentage.
	EyeContactSpan float64
}

// DefaultConfig returns the recommended engine configuration.
func DefaultConfig() Config {
	return Config{
		SmoothingFactor: 0.2,                    // 20% new, 80% previous
		JumpThreshold:   100,                    // pixels
		OutOfFrameAfter: 5,                      // ticks (2.5s at 500ms ticks)
		DetectBudget:    400 * time.Millisecond, // leave headroom before the next tick
		ReoptimizeEvery: 25,                     // ticks
		EyeContactSpan:  0.33,                   // of the frame diagonal
	}
}

// TickResult is the engine output for one analysis tick.
type TickResult struct {
	// Region is the fused, smoothed face region. Nil when the subject is
	// out of frame.
	Region *FaceRegion

	// OutOfFrame is set after sustained total detection failure.
	OutOfFrame bool

	// Fallback marks a region produced by the static centered heuristic
	// rather than any real detection.
	Fallback bool

	// EyeContact is the "looking at camera" estimate (0-100). Zero when
	// the subject is out of frame.
	EyeContact float64

	// Results holds the per-method outcomes that fed fusion.
	Results []Result
}

// Engine runs all detectors over each frame, fuses their output and
// tracks temporal continuity. One engine serves one analysis session and
// must be driven from a single goroutine.
type Engine struct {
	cfg       Config
	detectors []Detector
	stats     *Stats
	static    map[string]float64

	prev                *FaceRegion
	consecutiveFailures int
	outOfFrame          bool
	ticks               int

	stopped atomic.Bool
}

// NewEngine creates a detection engine over the given backends.
func NewEngine(cfg Config, detectors ...Detector) (*Engine, error) {
	if len(detectors) == 0 {
		return nil, fmt.Errorf("at least one detector is required")
	}
	names := make([]string, len(detectors))
	static := make(map[string]float64, len(detectors))
	for i, d := range detectors {
		names[i] = d.Name()
		static[d.Name()] = d.Reliability()
	}
	return &Engine{
		cfg:       cfg,
		detectors: detectors,
		stats:     NewStats(names),
		static:    static,
	}, nil
}

// Stats exposes the per-method performance statistics.
func (e *Engine) Stats() *Stats { return e.stats }

// OutOfFrame reports whether the subject is currently flagged out of frame.
func (e *Engine) OutOfFrame() bool { return e.outOfFrame }

// Stop marks the engine stopped. In-flight detector results from the
// current tick are discarded and no further state is mutated.
func (e *Engine) Stop() { e.stopped.Store(true) }

// ProcessFrame runs one full analysis tick: concurrent detection across
// all backends, fusion, temporal smoothing and eye contact derivation.
// A missing face is a valid state, never an error.
func (e *Engine) ProcessFrame(ctx context.Context, f *vision.Frame) TickResult {
	if e.stopped.Load() {
		return TickResult{OutOfFrame: e.outOfFrame}
	}

	results := e.runDetectors(ctx, f)

	// Stop may have been requested while detectors were running; their
	// results must not be applied after stop.
	if e.stopped.Load() {
		return TickResult{OutOfFrame: e.outOfFrame}
	}

	for _, res := range results {
		e.stats.Record(res)
	}

	tick := e.fuseTick(results, f)
	e.updateTrackers(f, tick.Region)

	e.ticks++
	if e.cfg.ReoptimizeEvery > 0 && e.ticks%e.cfg.ReoptimizeEvery == 0 {
		if e.stats.Reoptimize() {
			log.Debug("fusion weights reoptimized", "weights", e.stats.Weights())
		}
	}

	return tick
}

// runDetectors fans out all backends over the frame and joins their
// results before fusion. A detector that panics, errors or outlives the
// budget contributes a failed (null) result; it never aborts the tick.
func (e *Engine) runDetectors(ctx context.Context, f *vision.Frame) []Result {
	type indexed struct {
		i   int
		res Result
	}
	ch := make(chan indexed, len(e.detectors))

	dctx, cancel := context.WithTimeout(ctx, e.cfg.DetectBudget)
	defer cancel()

	for i, det := range e.detectors {
		go func(i int, det Detector) {
			start := time.Now()
			defer func() {
				if r := recover(); r != nil {
					ch <- indexed{i, Failed(det.Name(), fmt.Errorf("detector panic: %v", r), time.Since(start))}
				}
			}()
			ch <- indexed{i, det.Detect(dctx, f)}
		}(i, det)
	}

	results := make([]Result, len(e.detectors))
	received := make([]bool, len(e.detectors))
	timer := time.NewTimer(e.cfg.DetectBudget)
	defer timer.Stop()

	for n := 0; n < len(e.detectors); {
		select {
		case r := <-ch:
			results[r.i] = r.res
			received[r.i] = true
			n++
		case <-timer.C:
			n = len(e.detectors) // give up on stragglers
		case <-ctx.Done():
			n = len(e.detectors)
		}
	}

	for i, ok := range received {
		if !ok {
			results[i] = Failed(e.detectors[i].Name(), context.DeadlineExceeded, e.cfg.DetectBudget)
		}
	}
	return results
}

// fuseTick combines per-method results into the tick output, applying the
// fallback chain, temporal smoothing and out-of-frame escalation.
func (e *Engine) fuseTick(results []Result, f *vision.Frame) TickResult {
	region, ok := fuse(results, e.static, e.stats.Weights())
	if ok && !validFused(region, f.Width, f.Height) {
		// Fused box is implausible; trust the best single method instead.
		if best := bestSingle(results, f.Width, f.Height); best != nil {
			region, ok = *best, true
		} else {
			ok = false
		}
	}

	if !ok {
		return e.totalFailure(results, f)
	}

	e.consecutiveFailures = 0
	if e.outOfFrame {
		log.Info("subject back in frame")
		e.outOfFrame = false
	}

	smoothed := e.smooth(region)
	e.prev = &smoothed

	return TickResult{
		Region:     &smoothed,
		EyeContact: e.eyeContact(smoothed, f),
		Results:    results,
	}
}

// totalFailure handles a tick where no method found a face: a static
// centered heuristic at low confidence, escalating to out-of-frame after
// sustained failure.
func (e *Engine) totalFailure(results []Result, f *vision.Frame) TickResult {
	e.consecutiveFailures++
	if e.consecutiveFailures >= e.cfg.OutOfFrameAfter {
		if !e.outOfFrame {
			log.Info("subject out of frame", "failed_ticks", e.consecutiveFailures)
			e.outOfFrame = true
		}
		e.prev = nil
		return TickResult{OutOfFrame: true, Results: results}
	}

	fallback := fallbackRegion(f.Width, f.Height)
	e.prev = &fallback
	return TickResult{
		Region:     &fallback,
		Fallback:   true,
		EyeContact: e.eyeContact(fallback, f),
		Results:    results,
	}
}

// smooth blends the new region against the previous tick's region unless
// the displacement exceeds the jump threshold (scene change).
func (e *Engine) smooth(region FaceRegion) FaceRegion {
	if e.prev == nil {
		return region
	}
	cx, cy := region.Center()
	px, py := e.prev.Center()
	if dist(cx, cy, px, py) > e.cfg.JumpThreshold {
		return region
	}

	a := e.cfg.SmoothingFactor
	return FaceRegion{
		X:          a*region.X + (1-a)*e.prev.X,
		Y:          a*region.Y + (1-a)*e.prev.Y,
		Width:      a*region.Width + (1-a)*e.prev.Width,
		Height:     a*region.Height + (1-a)*e.prev.Height,
		Confidence: a*region.Confidence + (1-a)*e.prev.Confidence,
	}
}

// eyeContact maps the face-center offset from the frame center to a
// 0-100 "looking at camera" percentage. Near-center faces get a
// non-linear boost above 70%.
func (e *Engine) eyeContact(region FaceRegion, f *vision.Frame) float64 {
	cx, cy := region.Center()
	fx, fy := float64(f.Width)/2, float64(f.Height)/2
	diag := math.Hypot(float64(f.Width), float64(f.Height))

	span := e.cfg.EyeContactSpan * diag
	if span <= 0 {
		return 0
	}
	norm := dist(cx, cy, fx, fy) / span
	pct := clamp(1-norm, 0, 1) * 100

	if pct > 70 {
		pct = 70 + (pct-70)*1.5
	}
	return clamp(pct, 0, 100)
}

// updateTrackers commits per-tick detector state after fusion. Stateful
// backends (flow, template) advance their reference frame and tracked
// points here, never during Detect.
func (e *Engine) updateTrackers(f *vision.Frame, fused *FaceRegion) {
	for _, det := range e.detectors {
		if tr, ok := det.(Tracker); ok {
			tr.Update(f, fused)
		}
	}
}
