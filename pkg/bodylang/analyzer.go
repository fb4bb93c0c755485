package bodylang

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Component weights for the overall body language score.
const (
	weightPosture     = 0.25
	weightExpressions = 0.25
	weightEyeContact  = 0.30
	weightGestures    = 0.20
)

// Posture alignment thresholds.
const (
	postureGoodThreshold = 85
	postureFairThreshold = 70
)

// Eye contact scoring. Constant staring reads as unnatural; the optimal
// band is 60-80% of the time.
const (
	eyeContactOptimalMin = 60
	eyeContactOptimalMax = 80
)

// Gesture scoring band (gestures per minute).
const (
	gestureOptimalMin = 2.0
	gestureOptimalMax = 8.0
)

// PostureResult summarizes posture over the session.
type PostureResult struct {
	Score           float64  `json:"score"`
	Alignment       string   `json:"alignment"` // good, fair, poor
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// ExpressionResult summarizes facial expressions over the session.
type ExpressionResult struct {
	Confidence  float64 `json:"confidence"`  // 0-100
	Engagement  float64 `json:"engagement"`  // 0-100
	Nervousness float64 `json:"nervousness"` // 0-100
}

// Score converts the expression distribution into a 0-100 component score.
func (e ExpressionResult) Score() float64 {
	return clamp(e.Confidence*0.5+e.Engagement*0.5-e.Nervousness*0.3, 0, 100)
}

// EyeContactResult summarizes eye contact over the session.
type EyeContactResult struct {
	Percentage  float64 `json:"percentage"`  // fraction of ticks looking, 0-100
	Consistency float64 `json:"consistency"` // 0-1, segment-to-segment stability
	Score       float64 `json:"score"`       // 0-100
}

// GestureResult summarizes hand gestures over the session.
type GestureResult struct {
	PerMinute     float64 `json:"per_minute"`
	Variety       int     `json:"variety"` // distinct gesture types seen
	Inappropriate int     `json:"inappropriate"`
	Score         float64 `json:"score"` // 0-100
}

// Result is the end-of-session body language analysis.
type Result struct {
	Posture     PostureResult    `json:"posture"`
	Expressions ExpressionResult `json:"expressions"`
	EyeContact  EyeContactResult `json:"eye_contact"`
	Gestures    GestureResult    `json:"gestures"`

	Overall      float64  `json:"overall"` // 0-100 weighted composite
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`

	// IsSimulated marks a result built on fallback data. Scoring and
	// validation must treat it as zero-reliability, not as low scores.
	IsSimulated bool `json:"is_simulated"`
	SampleCount int  `json:"sample_count"`
}

// Analyzer accumulates body language samples for one interview.
// Safe for concurrent sample appends from the analysis tick loop.
type Analyzer struct {
	mu sync.Mutex

	posture     []PostureSample
	expressions []ExpressionSample
	eyeContact  []EyeContactSample
	gestures    []GestureSample

	started   time.Time
	simulated bool
}

// NewAnalyzer creates an empty body language analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Start clears all accumulated samples at interview start.
func (a *Analyzer) Start(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.posture = nil
	a.expressions = nil
	a.eyeContact = nil
	a.gestures = nil
	a.started = now
	a.simulated = false
}

// MarkSimulated flags the whole session as running on fallback data.
func (a *Analyzer) MarkSimulated() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.simulated = true
}

// AddPosture appends one posture sample.
func (a *Analyzer) AddPosture(s PostureSample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.posture = append(a.posture, s)
	if s.Simulated {
		a.simulated = true
	}
}

// AddExpression appends one expression sample.
func (a *Analyzer) AddExpression(s ExpressionSample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expressions = append(a.expressions, s)
	if s.Simulated {
		a.simulated = true
	}
}

// AddEyeContact appends one eye contact sample.
func (a *Analyzer) AddEyeContact(s EyeContactSample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.eyeContact = append(a.eyeContact, s)
	if s.Simulated {
		a.simulated = true
	}
}

// AddGesture appends one gesture sample.
func (a *Analyzer) AddGesture(s GestureSample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gestures = append(a.gestures, s)
	if s.Simulated {
		a.simulated = true
	}
}

// Result computes the end-of-session aggregate. With no real samples the
// result is all-zero and flagged simulated; it must never fabricate
// plausible numbers.
func (a *Analyzer) Result(end time.Time) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := len(a.posture) + len(a.expressions) + len(a.eyeContact) + len(a.gestures)
	if total == 0 {
		return Result{IsSimulated: true}
	}

	duration := end.Sub(a.started)
	res := Result{
		Posture:     a.postureResult(),
		Expressions: a.expressionResult(),
		EyeContact:  a.eyeContactResult(),
		Gestures:    a.gestureResult(duration),
		IsSimulated: a.simulated,
		SampleCount: total,
	}

	res.Overall = clamp(
		res.Posture.Score*weightPosture+
			res.Expressions.Score()*weightExpressions+
			res.EyeContact.Score*weightEyeContact+
			res.Gestures.Score*weightGestures,
		0, 100)

	res.Strengths, res.Improvements = deriveFeedback(res)
	return res
}

func (a *Analyzer) postureResult() PostureResult {
	if len(a.posture) == 0 {
		return PostureResult{Alignment: "poor"}
	}

	var sum float64
	seen := map[string]bool{}
	var issues []string
	for _, s := range a.posture {
		sum += s.Score
		for _, issue := range s.Issues {
			if !seen[issue] {
				seen[issue] = true
				issues = append(issues, issue)
			}
		}
	}
	score := clamp(sum/float64(len(a.posture)), 0, 100)

	alignment := "poor"
	switch {
	case score >= postureGoodThreshold:
		alignment = "good"
	case score >= postureFairThreshold:
		alignment = "fair"
	}

	var recs []string
	for _, issue := range issues {
		if rec, ok := postureRecommendations[issue]; ok {
			recs = append(recs, rec)
		}
	}

	return PostureResult{Score: score, Alignment: alignment, Issues: issues, Recommendations: recs}
}

func (a *Analyzer) expressionResult() ExpressionResult {
	if len(a.expressions) == 0 {
		return ExpressionResult{}
	}

	counts := map[string]float64{}
	for _, s := range a.expressions {
		counts[s.Emotion]++
	}
	n := float64(len(a.expressions))
	share := func(emotion string) float64 { return counts[emotion] / n }

	return ExpressionResult{
		Confidence:  clamp((share(EmotionConfident)+share(EmotionHappy)*0.8+share(EmotionNeutral)*0.5)*100, 0, 100),
		Engagement:  clamp((share(EmotionHappy)+share(EmotionConfident)*0.7+share(EmotionSurprised)*0.5)*100, 0, 100),
		Nervousness: clamp(share(EmotionNervous)*100, 0, 100),
	}
}

func (a *Analyzer) eyeContactResult() EyeContactResult {
	if len(a.eyeContact) == 0 {
		return EyeContactResult{}
	}

	looking := 0
	for _, s := range a.eyeContact {
		if s.Looking {
			looking++
		}
	}
	pct := float64(looking) / float64(len(a.eyeContact)) * 100

	// Consistency: 1 minus the variance of the looking-ratio across four
	// equal time segments. Steady contact beats bursts.
	consistency := 1.0
	if len(a.eyeContact) >= 4 {
		ratios := make([]float64, 4)
		segLen := len(a.eyeContact) / 4
		for seg := 0; seg < 4; seg++ {
			start := seg * segLen
			stop := start + segLen
			if seg == 3 {
				stop = len(a.eyeContact)
			}
			count := 0
			for _, s := range a.eyeContact[start:stop] {
				if s.Looking {
					count++
				}
			}
			ratios[seg] = float64(count) / float64(stop-start)
		}
		consistency = clamp(1-stat.PopVariance(ratios, nil), 0, 1)
	}

	// Score peaks in the optimal band and degrades outside it.
	var score float64
	switch {
	case pct >= eyeContactOptimalMin && pct <= eyeContactOptimalMax:
		score = 90 + 10*consistency
	case pct < eyeContactOptimalMin:
		score = 90 * pct / eyeContactOptimalMin
	default:
		score = 90 - (pct-eyeContactOptimalMax)*1.5
	}

	return EyeContactResult{
		Percentage:  pct,
		Consistency: consistency,
		Score:       clamp(score, 0, 100),
	}
}

func (a *Analyzer) gestureResult(duration time.Duration) GestureResult {
	minutes := duration.Minutes()
	if minutes <= 0 {
		minutes = 1.0 / 60 // avoid divide-by-zero on degenerate sessions
	}

	types := map[string]bool{}
	inappropriate := 0
	for _, s := range a.gestures {
		types[s.Type] = true
		if !s.Appropriate {
			inappropriate++
		}
	}
	perMinute := float64(len(a.gestures)) / minutes

	var score float64
	switch {
	case len(a.gestures) == 0:
		score = 50 // no gesturing at all reads as stiff
	case perMinute >= gestureOptimalMin && perMinute <= gestureOptimalMax:
		score = 85
	case perMinute < gestureOptimalMin:
		score = 60 + 25*perMinute/gestureOptimalMin
	default:
		score = clamp(85-(perMinute-gestureOptimalMax)*4, 20, 85)
	}

	// Variety of gesture types is a plus, inappropriate gestures a minus.
	score += float64(min(len(types), 5)) * 3
	score -= float64(inappropriate) * 5

	return GestureResult{
		PerMinute:     perMinute,
		Variety:       len(types),
		Inappropriate: inappropriate,
		Score:         clamp(score, 0, 100),
	}
}

// deriveFeedback converts component scores into strength and improvement
// strings via fixed thresholds.
func deriveFeedback(res Result) (strengths, improvements []string) {
	type component struct {
		score    float64
		strength string
		improve  string
	}
	components := []component{
		{res.Posture.Score, "Strong, upright posture throughout the interview", "Work on maintaining an upright, stable posture"},
		{res.Expressions.Score(), "Expressive and engaged facial communication", "Practice showing more engagement through facial expressions"},
		{res.EyeContact.Score, "Natural, consistent eye contact with the camera", "Increase eye contact with the camera when answering"},
		{res.Gestures.Score, "Effective use of hand gestures to support answers", "Use purposeful hand gestures to emphasize key points"},
	}
	for _, c := range components {
		switch {
		case c.score >= 80:
			strengths = append(strengths, c.strength)
		case c.score < 60:
			improvements = append(improvements, c.improve)
		}
	}
	return strengths, improvements
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

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
