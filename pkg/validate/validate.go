// Package validate cross-checks a finished score report for internal
// consistency before it is handed to the UI or stored.
package validate

import (
	"fmt"

	"github.com/prepdeck/go-prepdeck/pkg/bodylang"
	"github.com/prepdeck/go-prepdeck/pkg/scoring"
	"github.com/prepdeck/go-prepdeck/pkg/speech"
)

const (
	// divergenceWarning is the gap between the overall score and the
	// mean of its components that triggers a warning.
	divergenceWarning = 15.0

	// conservativeCap is the overall score ceiling applied by callers
	// when a report fails validation or has low confidence.
	conservativeCap = 75

	// lowConfidence marks reports whose overall confidence warrants
	// capping even without hard errors.
	lowConfidence = 0.3

	// activeCommunicationScore is the communication level that is
	// implausible with no recorded words.
	activeCommunicationScore = 70
)

// Result is the outcome of validating one report. Errors mark the
// report invalid; warnings are advisory.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	// DataQuality and Confidence are the effective values after
	// validation. Simulated input forces the lowest quality tier and
	// zero confidence regardless of what the report claims.
	DataQuality scoring.Quality `json:"data_quality"`
	Confidence  float64         `json:"confidence"`
}

// Check validates a report against the extractor outputs it was built
// from. The report itself is never mutated.
func Check(rep scoring.Report, sp speech.Result, body bodylang.Result) Result {
	res := Result{
		DataQuality: rep.DataQuality,
		Confidence:  rep.Overall.Confidence,
	}

	dims := map[string]scoring.ScoreResult{
		"technical":     rep.Technical,
		"communication": rep.Communication,
		"behavioral":    rep.Behavioral,
		"overall":       rep.Overall,
	}
	for name, d := range dims {
		if d.Score < 0 || d.Score > 100 {
			res.Errors = append(res.Errors,
				fmt.Sprintf("%s score %d outside [0,100]", name, d.Score))
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			res.Errors = append(res.Errors,
				fmt.Sprintf("%s confidence %.2f outside [0,1]", name, d.Confidence))
		}
		if want := scoring.Categorize(float64(d.Score)); d.Category != want {
			res.Errors = append(res.Errors,
				fmt.Sprintf("%s category %q does not match score %d (want %q)",
					name, d.Category, d.Score, want))
		}
	}

	switch rep.Difficulty {
	case scoring.DifficultyEasy, scoring.DifficultyMedium, scoring.DifficultyHard:
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("invalid difficulty %q", rep.Difficulty))
	}

	mean := float64(rep.Technical.Score+rep.Communication.Score+rep.Behavioral.Score) / 3
	if diff := abs(float64(rep.Overall.Score) - mean); diff > divergenceWarning {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("overall score %d diverges %.1f points from component mean %.1f",
				rep.Overall.Score, diff, mean))
	}

	if rep.Communication.Score >= activeCommunicationScore && sp.TotalWords == 0 {
		res.Warnings = append(res.Warnings,
			"communication scored high with no recorded words")
	}
	if rep.Behavioral.Score >= activeCommunicationScore && body.SampleCount == 0 {
		res.Warnings = append(res.Warnings,
			"behavioral scored high with no body language samples")
	}

	if sp.IsSimulated || body.IsSimulated || rep.IsSimulated {
		res.Errors = append(res.Errors,
			"report built on simulated data; scores do not reflect a real session")
		res.DataQuality = scoring.QualityLow
		res.Confidence = 0
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// CapScore returns the overall score callers should surface. Invalid or
// low-confidence reports are clamped to a conservative ceiling.
func CapScore(rep scoring.Report, v Result) int {
	score := rep.Overall.Score
	if (!v.Valid || v.Confidence < lowConfidence) && score > conservativeCap {
		return conservativeCap
	}
	return score
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
