// Package scoring converts extracted speech and body language features
// into bounded, deterministic interview scores. All weights and
// thresholds are fixed named constants; no randomness anywhere.
package scoring

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/prepdeck/go-prepdeck/pkg/bodylang"
	"github.com/prepdeck/go-prepdeck/pkg/speech"
)

// ScoreResult is one scored dimension. Derived once, never mutated.
type ScoreResult struct {
	Score           int                `json:"score"` // 0-100
	Category        Category           `json:"category"`
	Confidence      float64            `json:"confidence"` // 0-1
	DataQuality     Quality            `json:"data_quality"`
	Breakdown       map[string]float64 `json:"breakdown"`
	Issues          []string           `json:"issues,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// Session carries the interview parameters set by the orchestration
// layer.
type Session struct {
	Difficulty      Difficulty    `json:"difficulty"`
	Experience      Experience    `json:"experience"`
	QuestionCount   int           `json:"question_count"`
	PlannedDuration time.Duration `json:"planned_duration"`
	ActualDuration  time.Duration `json:"actual_duration"`
}

// Validate checks the enum fields. Invalid values are caller errors.
func (s Session) Validate() error {
	if _, ok := difficultyWeights[s.Difficulty]; !ok {
		return fmt.Errorf("invalid difficulty %q", s.Difficulty)
	}
	switch s.Experience {
	case ExperienceEntry, ExperienceMid, ExperienceSenior:
	default:
		return fmt.Errorf("invalid experience level %q", s.Experience)
	}
	return nil
}

// Report is the comprehensive score for one interview.
type Report struct {
	Technical     ScoreResult `json:"technical"`
	Communication ScoreResult `json:"communication"`
	Behavioral    ScoreResult `json:"behavioral"`
	Overall       ScoreResult `json:"overall"`

	Difficulty  Difficulty    `json:"difficulty"`
	Experience  Experience    `json:"experience"`
	Duration    time.Duration `json:"duration"`
	DataQuality Quality       `json:"data_quality"`
	IsSimulated bool          `json:"is_simulated"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Compute scores a finished interview. Pure aside from the timestamp
// argument; identical inputs always yield identical reports.
func Compute(sp speech.Result, body bodylang.Result, s Session, now time.Time) (Report, error) {
	if err := s.Validate(); err != nil {
		return Report{}, err
	}

	simulated := sp.IsSimulated || body.IsSimulated
	quality := dataQuality(sp, body, simulated)

	comm := communicationScore(sp, quality)
	behav := behavioralScore(body, quality)
	tech := technicalScore(sp, s, quality)
	overall := overallScore(tech, comm, behav, s, quality)

	return Report{
		Technical:     tech,
		Communication: comm,
		Behavioral:    behav,
		Overall:       overall,
		Difficulty:    s.Difficulty,
		Experience:    s.Experience,
		Duration:      s.ActualDuration,
		DataQuality:   quality,
		IsSimulated:   simulated,
		GeneratedAt:   now,
	}, nil
}

func communicationScore(sp speech.Result, quality Quality) ScoreResult {
	breakdown := map[string]float64{
		"pronunciation": clamp(sp.Pronunciation.Score, 0, 100),
		"fluency":       clamp(sp.Pronunciation.Fluency, 0, 100),
		"confidence":    clamp(sp.Confidence.Score, 0, 100),
		"pace":          clamp(sp.Pace.Score, 0, 100),
		"clarity":       clamp(sp.Pronunciation.Clarity, 0, 100),
	}

	score := breakdown["pronunciation"]*commWeightPronunciation +
		breakdown["fluency"]*commWeightFluency +
		breakdown["confidence"]*commWeightConfidence +
		breakdown["pace"]*commWeightPace +
		breakdown["clarity"]*commWeightClarity

	return buildResult(score, breakdown, quality, communicationFeedback(breakdown, sp))
}

func behavioralScore(body bodylang.Result, quality Quality) ScoreResult {
	breakdown := map[string]float64{
		"eye_contact":   clamp(body.EyeContact.Score, 0, 100),
		"posture":       clamp(body.Posture.Score, 0, 100),
		"expressions":   clamp(body.Expressions.Score(), 0, 100),
		"gestures":      clamp(body.Gestures.Score, 0, 100),
		"body_language": clamp(body.Overall, 0, 100),
	}

	score := breakdown["eye_contact"]*behavWeightEyeContact +
		breakdown["posture"]*behavWeightPosture +
		breakdown["expressions"]*behavWeightExpressions +
		breakdown["gestures"]*behavWeightGestures +
		breakdown["body_language"]*behavWeightOverallBody

	return buildResult(score, breakdown, quality, behavioralFeedback(breakdown, body))
}

// technicalScore estimates answer quality from delivery signals and
// session shape. There is no correctness oracle; this is an estimate
// and is labeled as such in the feedback.
func technicalScore(sp speech.Result, s Session, quality Quality) ScoreResult {
	coherence := clamp(sp.Pace.Score*0.5+sp.Pronunciation.Fluency*0.5, 0, 100)
	accuracy := clamp(sp.Pronunciation.Score*0.5+sp.Confidence.Score*0.5, 0, 100)

	depth := neutralTechScore
	completeness := neutralTechScore
	if s.QuestionCount > 0 {
		wordsPerQuestion := float64(sp.TotalWords) / float64(s.QuestionCount)
		depth = clamp(wordsPerQuestion/idealAnswerWords*100, 0, 100)
		completeness = clamp(wordsPerQuestion/minAnswerWords*100, 0, 100)
	}

	timeMgmt := neutralTechScore
	if s.PlannedDuration > 0 && s.ActualDuration > 0 {
		ratio := s.ActualDuration.Seconds() / s.PlannedDuration.Seconds()
		timeMgmt = clamp(100-math.Abs(ratio-1)*200, 0, 100)
	}

	breakdown := map[string]float64{
		"coherence":       coherence,
		"depth":           depth,
		"accuracy":        accuracy,
		"time_management": timeMgmt,
		"completeness":    completeness,
	}

	score := coherence*techWeightCoherence +
		depth*techWeightDepth +
		accuracy*techWeightAccuracy +
		timeMgmt*techWeightTimeManagement +
		completeness*techWeightCompleteness

	return buildResult(score, breakdown, quality, technicalFeedback(breakdown))
}

func overallScore(tech, comm, behav ScoreResult, s Session, quality Quality) ScoreResult {
	w := difficultyWeights[s.Difficulty]
	base := float64(tech.Score)*w[0] + float64(comm.Score)*w[1] + float64(behav.Score)*w[2]

	adjusted := base
	switch s.Experience {
	case ExperienceEntry:
		adjusted = math.Min(base*entryMultiplier, base+entryMaxBoost)
	case ExperienceSenior:
		adjusted = math.Max(base*seniorMultiplier, base-seniorMaxPenalty)
	}
	adjusted = clamp(adjusted, 0, 100)

	breakdown := map[string]float64{
		"technical":     float64(tech.Score),
		"communication": float64(comm.Score),
		"behavioral":    float64(behav.Score),
	}

	res := buildResult(adjusted, breakdown, quality, feedback{})
	res.Issues = dedup(append(append(tech.Issues, comm.Issues...), behav.Issues...))
	res.Recommendations = dedup(append(append(
		tech.Recommendations, comm.Recommendations...), behav.Recommendations...))
	return res
}

// buildResult clamps, buckets and attaches confidence to a dimension
// score.
func buildResult(score float64, breakdown map[string]float64, quality Quality, fb feedback) ScoreResult {
	score = clamp(score, 0, 100)
	return ScoreResult{
		Score:           int(math.Round(score)),
		Category:        Categorize(score),
		Confidence:      confidence(breakdown, quality),
		DataQuality:     quality,
		Breakdown:       breakdown,
		Issues:          fb.issues,
		Recommendations: fb.recommendations,
	}
}

// confidence derives a 0-1 certainty from cross-component agreement,
// scaled down for weaker data quality. Components that disagree wildly
// mean the composite is less trustworthy.
func confidence(breakdown map[string]float64, quality Quality) float64 {
	values := make([]float64, 0, len(breakdown))
	for _, v := range breakdown {
		values = append(values, v)
	}
	if len(values) == 0 {
		return 0
	}

	sd := stat.PopStdDev(values, nil)
	base := clamp(1-sd/50, 0, 1)

	switch quality {
	case QualityHigh:
		return base
	case QualityMedium:
		return base * 0.75
	default:
		return base * 0.5
	}
}

// dataQuality tiers the inputs by sample sufficiency. Simulated data is
// always the lowest tier regardless of volume.
func dataQuality(sp speech.Result, body bodylang.Result, simulated bool) Quality {
	if simulated {
		return QualityLow
	}
	if sp.TotalWords >= highQualityWords && body.SampleCount >= highQualityBodySamples &&
		sp.Duration >= 2*time.Minute {
		return QualityHigh
	}
	if sp.TotalWords >= mediumQualityWords && body.SampleCount >= mediumQualityBodySamples {
		return QualityMedium
	}
	return QualityLow
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
