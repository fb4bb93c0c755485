package speech

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Pace thresholds in words per minute.
const (
	paceTooSlowBelow = 120
	paceTooFastAbove = 180
	paceIdeal        = 150 // score peaks around here
)

// Pause detection over the volume stream.
const (
	pauseVolumeThreshold = 12.0 // levels below this count as silence
	pauseMinDuration     = 700 * time.Millisecond

	volumeRingCapacity = 512

	// tremorDelta is the volume jump between consecutive samples that
	// counts as a rapid change.
	tremorDelta = 15.0
)

// FillerResult summarizes filler word usage.
type FillerResult struct {
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"` // of total words
	ByWord     map[string]int  `json:"by_word"`
	Offsets    []time.Duration `json:"offsets"`
}

// PaceResult summarizes speaking pace.
type PaceResult struct {
	WordsPerMinute float64 `json:"words_per_minute"`
	Rating         string  `json:"rating"` // too_slow, optimal, too_fast
	Score          float64 `json:"score"`  // 0-100
}

// ConfidenceResult summarizes vocal confidence signals.
type ConfidenceResult struct {
	VolumeVariation float64 `json:"volume_variation"` // 0-100, higher = steadier
	Tremor          float64 `json:"tremor"`           // 0-100, higher = less tremor
	PauseRegularity float64 `json:"pause_regularity"` // 0-100
	Score           float64 `json:"score"`            // 0-100 composite
}

// PronunciationResult summarizes articulation quality.
type PronunciationResult struct {
	Clarity      float64 `json:"clarity"`
	Articulation float64 `json:"articulation"`
	Fluency      float64 `json:"fluency"`
	Score        float64 `json:"score"`
}

// Result is the end-of-session speech analysis.
type Result struct {
	Fillers       FillerResult        `json:"fillers"`
	Pace          PaceResult          `json:"pace"`
	Confidence    ConfidenceResult    `json:"confidence"`
	Pronunciation PronunciationResult `json:"pronunciation"`

	Overall    float64       `json:"overall"` // 0-100
	TotalWords int           `json:"total_words"`
	Duration   time.Duration `json:"duration"`

	// IsSimulated marks a result with no real audio/transcript signal.
	IsSimulated bool `json:"is_simulated"`
}

// Analyzer accumulates speech samples for one interview. Safe for
// concurrent appends from the audio and transcript streams.
type Analyzer struct {
	mu sync.Mutex

	words   []WordSample
	fillers []FillerEvent
	volumes *VolumeRing
	pauses  []time.Time

	prevWord   string
	belowSince time.Time
	inPause    bool

	started   time.Time
	simulated bool
}

// NewAnalyzer creates an empty speech analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{volumes: NewVolumeRing(volumeRingCapacity)}
}

// Start clears all accumulated samples at interview start.
func (a *Analyzer) Start(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.words = nil
	a.fillers = nil
	a.pauses = nil
	a.volumes = NewVolumeRing(volumeRingCapacity)
	a.prevWord = ""
	a.inPause = false
	a.belowSince = time.Time{}
	a.started = now
	a.simulated = false
}

// MarkSimulated flags the whole session as running on fallback data.
func (a *Analyzer) MarkSimulated() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.simulated = true
}

// AddWord records one transcribed word with its offset from session start.
func (a *Analyzer) AddWord(word string, offset time.Duration) {
	norm := normalizeWord(word)
	if norm == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.words = append(a.words, WordSample{Word: norm, Offset: offset})
	if isFiller(norm) {
		a.fillers = append(a.fillers, FillerEvent{Word: norm, Offset: offset})
	} else if a.prevWord != "" && isFillerBigram(a.prevWord, norm) {
		a.fillers = append(a.fillers, FillerEvent{Word: a.prevWord + " " + norm, Offset: offset})
	}
	a.prevWord = norm
}

// AddVolume records one volume level (0-100) from the microphone stream
// and runs pause detection over the silence threshold.
func (a *Analyzer) AddVolume(level float64, ts time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.volumes.Push(level, ts)

	if level < pauseVolumeThreshold {
		if a.belowSince.IsZero() {
			a.belowSince = ts
		}
		if !a.inPause && ts.Sub(a.belowSince) >= pauseMinDuration {
			a.inPause = true
			a.pauses = append(a.pauses, a.belowSince)
		}
	} else {
		a.belowSince = time.Time{}
		a.inPause = false
	}
}

// WordCount returns the number of words recorded so far.
func (a *Analyzer) WordCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.words)
}

// Result computes the end-of-session aggregate. With no words and no
// volume signal the result is all-zero and flagged simulated.
func (a *Analyzer) Result(end time.Time) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.words) == 0 && a.volumes.Len() == 0 {
		return Result{IsSimulated: true}
	}

	duration := end.Sub(a.started)
	fillers := a.fillerResult()
	pace := a.paceResult(duration)
	confidence := a.confidenceResult()
	pron := a.pronunciationResult(fillers, pace, confidence)

	res := Result{
		Fillers:       fillers,
		Pace:          pace,
		Confidence:    confidence,
		Pronunciation: pron,
		TotalWords:    len(a.words),
		Duration:      duration,
		IsSimulated:   a.simulated,
	}
	res.Overall = clamp(
		pace.Score*0.25+confidence.Score*0.25+pron.Score*0.25+pron.Fluency*0.25,
		0, 100)
	return res
}

func (a *Analyzer) fillerResult() FillerResult {
	byWord := map[string]int{}
	offsets := make([]time.Duration, 0, len(a.fillers))
	for _, f := range a.fillers {
		byWord[f.Word]++
		offsets = append(offsets, f.Offset)
	}
	pct := 0.0
	if len(a.words) > 0 {
		pct = float64(len(a.fillers)) / float64(len(a.words)) * 100
	}
	return FillerResult{
		Count:      len(a.fillers),
		Percentage: pct,
		ByWord:     byWord,
		Offsets:    offsets,
	}
}

func (a *Analyzer) paceResult(duration time.Duration) PaceResult {
	minutes := duration.Minutes()
	if minutes <= 0 || len(a.words) == 0 {
		return PaceResult{Rating: "too_slow"}
	}
	wpm := float64(len(a.words)) / minutes

	rating := "optimal"
	switch {
	case wpm < paceTooSlowBelow:
		rating = "too_slow"
	case wpm > paceTooFastAbove:
		rating = "too_fast"
	}

	// Peaks at the ideal pace, loses half a point per WPM away from it.
	score := clamp(100-abs(wpm-paceIdeal)*0.5, 0, 100)

	return PaceResult{WordsPerMinute: wpm, Rating: rating, Score: score}
}

func (a *Analyzer) confidenceResult() ConfidenceResult {
	levels := a.volumes.Values()
	if len(levels) < 2 {
		return ConfidenceResult{VolumeVariation: 0, Tremor: 0, PauseRegularity: 0}
	}

	// Volume variation: low coefficient of variation means a steady,
	// confident delivery.
	mean := stat.Mean(levels, nil)
	variation := 0.0
	if mean > 0 {
		cv := stat.PopStdDev(levels, nil) / mean
		variation = clamp(100-cv*400, 0, 100)
	}

	// Tremor: frequency of rapid volume swings between samples.
	rapid := 0
	for i := 1; i < len(levels); i++ {
		if abs(levels[i]-levels[i-1]) > tremorDelta {
			rapid++
		}
	}
	tremor := clamp(100-float64(rapid)/float64(len(levels)-1)*200, 0, 100)

	// Pause regularity: coefficient of variation of inter-pause
	// intervals. Too few pauses to judge scores neutral.
	regularity := 70.0
	if len(a.pauses) >= 3 {
		intervals := make([]float64, 0, len(a.pauses)-1)
		for i := 1; i < len(a.pauses); i++ {
			intervals = append(intervals, a.pauses[i].Sub(a.pauses[i-1]).Seconds())
		}
		imean := stat.Mean(intervals, nil)
		if imean > 0 {
			cv := stat.PopStdDev(intervals, nil) / imean
			regularity = clamp(100-cv*50, 0, 100)
		}
	}

	return ConfidenceResult{
		VolumeVariation: variation,
		Tremor:          tremor,
		PauseRegularity: regularity,
		Score:           clamp(variation*0.4+tremor*0.3+regularity*0.3, 0, 100),
	}
}

func (a *Analyzer) pronunciationResult(fillers FillerResult, pace PaceResult, conf ConfidenceResult) PronunciationResult {
	// Clarity: steady volume plus smooth level transitions.
	levels := a.volumes.Values()
	stability := 0.0
	if len(levels) >= 2 {
		var sum float64
		for i := 1; i < len(levels); i++ {
			sum += abs(levels[i] - levels[i-1])
		}
		stability = clamp(100-(sum/float64(len(levels)-1))*4, 0, 100)
	}
	clarity := clamp(conf.VolumeVariation*0.6+stability*0.4, 0, 100)

	// Articulation: healthy pausing and a pace near the ideal.
	articulation := clamp(conf.PauseRegularity*0.5+pace.Score*0.5, 0, 100)

	// Fluency: filler ratio dominates.
	fluency := clamp(100-fillers.Percentage*3.5, 0, 100)

	return PronunciationResult{
		Clarity:      clarity,
		Articulation: articulation,
		Fluency:      fluency,
		Score:        clamp(clarity*0.4+articulation*0.3+fluency*0.3, 0, 100),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
