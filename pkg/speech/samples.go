// Package speech aggregates volume levels and transcribed words into an
// end-of-interview speech analysis result.
package speech

import "time"

// WordSample is one transcribed word with its time offset from session
// start.
type WordSample struct {
	Word   string
	Offset time.Duration
}

// FillerEvent records one filler word occurrence. Timestamps are kept so
// the UI can highlight them during playback.
type FillerEvent struct {
	Word   string
	Offset time.Duration
}

// VolumeRing is a bounded ring buffer over the most recent volume levels.
type VolumeRing struct {
	buf   []float64
	times []time.Time
	head  int
	size  int
}

// NewVolumeRing creates a ring holding at most capacity samples.
func NewVolumeRing(capacity int) *VolumeRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &VolumeRing{
		buf:   make([]float64, capacity),
		times: make([]time.Time, capacity),
	}
}

// Push appends a volume level, evicting the oldest when full.
func (r *VolumeRing) Push(level float64, ts time.Time) {
	r.buf[r.head] = level
	r.times[r.head] = ts
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// Len returns the number of stored samples.
func (r *VolumeRing) Len() int { return r.size }

// Values returns the stored levels oldest-first.
func (r *VolumeRing) Values() []float64 {
	out := make([]float64, 0, r.size)
	start := r.head - r.size
	for i := 0; i < r.size; i++ {
		idx := (start + i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}
