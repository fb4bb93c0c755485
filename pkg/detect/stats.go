package detect

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the detection pipeline.
var (
	detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepdeck",
		Subsystem: "detect",
		Name:      "detections_total",
		Help:      "Detector invocations by method and outcome.",
	}, []string{"method", "status"})

	detectionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prepdeck",
		Subsystem: "detect",
		Name:      "detection_seconds",
		Help:      "Per-method detection latency.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
	}, []string{"method"})

	fusionWeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "prepdeck",
		Subsystem: "detect",
		Name:      "fusion_weight",
		Help:      "Current adaptive fusion weight per method.",
	}, []string{"method"})
)

// Weight reoptimization parameters.
const (
	// Minimum detection attempts across all methods before the adaptive
	// weights are trusted over the static reliability table.
	reoptimizeMinSamples = 50

	// Blend between freshly computed and previous weights.
	reoptimizeNewBlend = 0.7
	reoptimizeOldBlend = 0.3
)

// MethodStats accumulates per-method performance over a session.
type MethodStats struct {
	Attempts      int
	Successes     int
	Failures      int
	TotalTime     time.Duration
	AvgConfidence float64 // running average over successful detections
}

// SuccessRate returns the fraction of attempts that found a face.
func (m *MethodStats) SuccessRate() float64 {
	if m.Attempts == 0 {
		return 0
	}
	return float64(m.Successes) / float64(m.Attempts)
}

// AvgMillis returns the mean detection time in milliseconds.
func (m *MethodStats) AvgMillis() float64 {
	if m.Attempts == 0 {
		return 0
	}
	return float64(m.TotalTime.Milliseconds()) / float64(m.Attempts)
}

// Stats tracks per-method performance and derives adaptive fusion weights.
// Recording is cheap and happens once per tick; reoptimization reads the
// whole map and never runs mid-tick.
type Stats struct {
	mu      sync.Mutex
	methods map[string]*MethodStats
	weights map[string]float64 // adaptive history weights, sum to 1
}

// NewStats creates an empty statistics tracker seeded with equal weights
// for the given method names.
func NewStats(methods []string) *Stats {
	s := &Stats{
		methods: make(map[string]*MethodStats, len(methods)),
		weights: make(map[string]float64, len(methods)),
	}
	if len(methods) == 0 {
		return s
	}
	equal := 1.0 / float64(len(methods))
	for _, name := range methods {
		s.methods[name] = &MethodStats{}
		s.weights[name] = equal
	}
	return s
}

// Record accumulates one detection result.
func (s *Stats) Record(res Result) {
	detectionsTotal.WithLabelValues(res.Method, res.Status.String()).Inc()
	detectionSeconds.WithLabelValues(res.Method).Observe(res.Elapsed.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.methods[res.Method]
	if !ok {
		m = &MethodStats{}
		s.methods[res.Method] = m
	}
	m.Attempts++
	m.TotalTime += res.Elapsed

	switch res.Status {
	case StatusFound:
		// Running average of confidence over successes.
		m.AvgConfidence += (res.Region.Confidence - m.AvgConfidence) / float64(m.Successes+1)
		m.Successes++
	case StatusFailed:
		m.Failures++
	}
}

// TotalAttempts returns the attempt count summed over all methods.
func (s *Stats) TotalAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, m := range s.methods {
		total += m.Attempts
	}
	return total
}

// Weights returns a copy of the current adaptive fusion weights.
func (s *Stats) Weights() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.weights))
	for k, v := range s.weights {
		out[k] = v
	}
	return out
}

// Method returns a copy of the stats for one method.
func (s *Stats) Method(name string) MethodStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.methods[name]; ok {
		return *m
	}
	return MethodStats{}
}

// Reoptimize recomputes the adaptive weights from success rate, average
// confidence and speed, blended against the previous values and
// renormalized to sum to 1. It is a no-op until enough samples exist.
func (s *Stats) Reoptimize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, m := range s.methods {
		total += m.Attempts
	}
	if total < reoptimizeMinSamples {
		return false
	}

	raw := make(map[string]float64, len(s.methods))
	var sum float64
	for name, m := range s.methods {
		// Faster methods score higher; 100ms average halves the speed term.
		speed := 1.0 / (1.0 + m.AvgMillis()/100.0)
		score := m.SuccessRate()*0.5 + (m.AvgConfidence/100)*0.3 + speed*0.2
		blended := reoptimizeNewBlend*score + reoptimizeOldBlend*s.weights[name]
		raw[name] = blended
		sum += blended
	}
	if sum <= 0 {
		return false
	}

	for name, w := range raw {
		s.weights[name] = w / sum
		fusionWeight.WithLabelValues(name).Set(w / sum)
	}
	return true
}
