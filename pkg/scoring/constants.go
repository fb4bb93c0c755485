package scoring

import (
	"fmt"
	"math"
)

// Category is the qualitative bucket for a 0-100 score.
type Category string

const (
	CategoryExcellent Category = "excellent"
	CategoryGood      Category = "good"
	CategoryFair      Category = "fair"
	CategoryPoor      Category = "poor"
)

// Category thresholds. A score equal to the threshold lands in the
// bucket, so 85 is excellent.
const (
	thresholdExcellent = 85
	thresholdGood      = 70
	thresholdFair      = 55
)

// Quality is the data quality tier attached to every score.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Difficulty selects the dimension weighting for the overall score.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Experience selects the level adjustment applied to the overall score.
type Experience string

const (
	ExperienceEntry  Experience = "entry"
	ExperienceMid    Experience = "mid"
	ExperienceSenior Experience = "senior"
)

// Communication dimension component weights.
const (
	commWeightPronunciation = 0.30
	commWeightFluency       = 0.25
	commWeightConfidence    = 0.20
	commWeightPace          = 0.15
	commWeightClarity       = 0.10
)

// Behavioral dimension component weights.
const (
	behavWeightEyeContact  = 0.30
	behavWeightPosture     = 0.25
	behavWeightExpressions = 0.20
	behavWeightGestures    = 0.15
	behavWeightOverallBody = 0.10
)

// Technical dimension component weights. Technical quality has no
// correctness oracle; the components are estimated from delivery
// signals and session shape.
const (
	techWeightCoherence      = 0.30
	techWeightDepth          = 0.25
	techWeightAccuracy       = 0.20
	techWeightTimeManagement = 0.15
	techWeightCompleteness   = 0.10
)

// difficultyWeights maps difficulty to [technical, communication,
// behavioral] weights for the overall score. Harder interviews weigh
// technical delivery more, easier ones communication.
var difficultyWeights = map[Difficulty][3]float64{
	DifficultyEasy:   {0.20, 0.45, 0.35},
	DifficultyMedium: {0.40, 0.35, 0.25},
	DifficultyHard:   {0.55, 0.30, 0.15},
}

// Experience adjustment: entry level gets a boost capped at +10 points,
// senior a reduction capped at -15 points.
const (
	entryMultiplier  = 1.1
	entryMaxBoost    = 10.0
	seniorMultiplier = 0.9
	seniorMaxPenalty = 15.0
)

// Technical estimation shape.
const (
	idealAnswerWords = 80.0 // words per question that count as a full answer
	minAnswerWords   = 40.0 // words per question below which completeness suffers
	neutralTechScore = 70.0 // used when the session shape is unknown
)

// Data quality sample thresholds.
const (
	highQualityWords         = 100
	highQualityBodySamples   = 50
	mediumQualityWords       = 30
	mediumQualityBodySamples = 10
)

const weightSumTolerance = 1e-9

// mustSumToOne panics when a weight table does not sum to 1. Weight
// tables are compile-time constants, so a failure here is a programming
// error, not an input condition.
func mustSumToOne(name string, weights ...float64) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		panic(fmt.Sprintf("scoring: %s weights sum to %v, want 1", name, sum))
	}
}

func init() {
	mustSumToOne("communication",
		commWeightPronunciation, commWeightFluency, commWeightConfidence,
		commWeightPace, commWeightClarity)
	mustSumToOne("behavioral",
		behavWeightEyeContact, behavWeightPosture, behavWeightExpressions,
		behavWeightGestures, behavWeightOverallBody)
	mustSumToOne("technical",
		techWeightCoherence, techWeightDepth, techWeightAccuracy,
		techWeightTimeManagement, techWeightCompleteness)
	for d, w := range difficultyWeights {
		mustSumToOne(string(d), w[0], w[1], w[2])
	}
}

// Categorize buckets a 0-100 score into its category.
func Categorize(score float64) Category {
	switch {
	case score >= thresholdExcellent:
		return CategoryExcellent
	case score >= thresholdGood:
		return CategoryGood
	case score >= thresholdFair:
		return CategoryFair
	default:
		return CategoryPoor
	}
}
