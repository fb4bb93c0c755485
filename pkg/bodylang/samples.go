// Package bodylang aggregates per-tick posture, expression, eye contact
// and gesture samples into an end-of-interview body language result.
package bodylang

import "time"

// PostureSample is one posture measurement tick.
type PostureSample struct {
	Timestamp time.Time
	Score     float64 // 0-100
	Issues    []string
	Simulated bool // derived from fallback data, not a real detection
}

// ExpressionSample is one facial expression classification tick.
type ExpressionSample struct {
	Timestamp time.Time
	Emotion   string // "confident", "happy", "neutral", "nervous", "surprised"
	Simulated bool
}

// EyeContactSample is one eye contact measurement tick.
type EyeContactSample struct {
	Timestamp  time.Time
	Looking    bool
	Percentage float64 // 0-100 looking-at-camera estimate
	Simulated  bool
}

// GestureSample is one observed gesture event.
type GestureSample struct {
	Timestamp   time.Time
	Type        string // "open_palm", "pointing", "fidgeting", ...
	Appropriate bool
	Simulated   bool
}

// Emotion labels recognized by the expression aggregation.
const (
	EmotionConfident = "confident"
	EmotionHappy     = "happy"
	EmotionNeutral   = "neutral"
	EmotionNervous   = "nervous"
	EmotionSurprised = "surprised"
)

// Posture issues and their recommendations.
var postureRecommendations = map[string]string{
	"slouching":    "Sit upright with your shoulders back to project confidence.",
	"leaning":      "Keep your head centered over your shoulders rather than leaning to one side.",
	"too_close":    "Move back from the camera so your head and shoulders are visible.",
	"too_far":      "Move closer to the camera so the interviewer can read your expressions.",
	"head_tilt":    "Keep your chin level; a sustained head tilt reads as uncertainty.",
	"out_of_frame": "Stay centered in the frame for the whole answer.",
}
