package scoring

import (
	"github.com/prepdeck/go-prepdeck/pkg/bodylang"
	"github.com/prepdeck/go-prepdeck/pkg/speech"
)

// feedback collects issue and recommendation strings for one dimension.
// All strings are fixed; which ones fire depends only on sub-scores.
type feedback struct {
	issues          []string
	recommendations []string
}

func (f *feedback) add(issue, rec string) {
	if issue != "" {
		f.issues = append(f.issues, issue)
	}
	if rec != "" {
		f.recommendations = append(f.recommendations, rec)
	}
}

// Feedback thresholds. A sub-score below its threshold triggers the
// matching advice string.
const (
	adviceThreshold     = 70.0
	paceAdviceThreshold = 60.0
)

func communicationFeedback(b map[string]float64, sp speech.Result) feedback {
	var f feedback
	if b["pronunciation"] < adviceThreshold {
		f.add("Pronunciation was difficult to follow at times",
			"Slow down on technical terms and articulate word endings")
	}
	if b["fluency"] < adviceThreshold {
		f.add("Frequent filler words interrupted the flow of answers",
			"Pause silently instead of using filler words like \"um\" and \"like\"")
	}
	if b["confidence"] < adviceThreshold {
		f.add("Vocal delivery sounded uncertain",
			"Keep a steady volume and finish sentences with a firm tone")
	}
	if b["pace"] < paceAdviceThreshold {
		switch sp.Pace.Rating {
		case "too_fast":
			f.add("Speaking pace was too fast",
				"Aim for roughly 150 words per minute and breathe between points")
		case "too_slow":
			f.add("Speaking pace was too slow",
				"Tighten answers and reduce long gaps between sentences")
		}
	}
	if b["clarity"] < adviceThreshold {
		f.add("", "Speak closer to the microphone at a consistent level")
	}
	return f
}

func behavioralFeedback(b map[string]float64, body bodylang.Result) feedback {
	var f feedback
	if b["eye_contact"] < adviceThreshold {
		f.add("Eye contact with the camera was inconsistent",
			"Look at the camera lens when delivering key points")
	}
	if b["posture"] < adviceThreshold {
		f.add("Posture drifted during the interview",
			"Sit upright with shoulders level and both feet on the floor")
	}
	if b["expressions"] < adviceThreshold {
		f.add("", "Show engagement through natural facial expressions")
	}
	if b["gestures"] < adviceThreshold {
		if body.Gestures.PerMinute > gestureHighRate {
			f.add("Excessive gesturing was distracting",
				"Rest your hands between points and gesture only for emphasis")
		} else {
			f.add("", "Use purposeful hand gestures to reinforce key points")
		}
	}
	return f
}

// gestureHighRate separates too-many-gestures advice from too-few.
const gestureHighRate = 8.0

func technicalFeedback(b map[string]float64) feedback {
	var f feedback
	if b["depth"] < adviceThreshold {
		f.add("Answers were shorter than expected for the question count",
			"Expand answers with concrete examples and trade-off discussion")
	}
	if b["coherence"] < adviceThreshold {
		f.add("", "Structure answers as situation, action, result")
	}
	if b["time_management"] < adviceThreshold {
		f.add("Session length diverged significantly from the plan",
			"Practice keeping each answer within two to three minutes")
	}
	if b["completeness"] < adviceThreshold {
		f.add("", "Make sure every part of a multi-part question gets addressed")
	}
	return f
}

// dedup removes duplicate strings preserving first-seen order.
func dedup(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
