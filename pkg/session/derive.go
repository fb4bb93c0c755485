package session

import (
	"math"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/bodylang"
	"github.com/prepdeck/go-prepdeck/pkg/detect"
)

// Posture derivation thresholds, relative to frame size.
const (
	faceAreaTooClose = 0.35 // fraction of frame area
	faceAreaTooFar   = 0.06
	leanOffsetFrac   = 0.15 // horizontal center offset vs frame width

	posturePenalty      = 20.0
	outOfFramePosture   = 20.0
	eyeContactLookingAt = 50.0
)

// Gesture derivation from face region movement between ticks.
const (
	gestureMoveMin   = 20.0 // px displacement that counts as motion
	gestureFidgetMin = 60.0 // px displacement that reads as fidgeting
)

// deriveSamples converts one detection tick into body language samples.
// prevCX/prevCY are the previous tick's face center, NaN when unknown.
func deriveSamples(tr detect.TickResult, frameW, frameH int, prevCX, prevCY float64, now time.Time) (
	posture bodylang.PostureSample,
	expression *bodylang.ExpressionSample,
	eye bodylang.EyeContactSample,
	gesture *bodylang.GestureSample,
) {
	if tr.OutOfFrame || tr.Region == nil {
		posture = bodylang.PostureSample{
			Timestamp: now,
			Score:     outOfFramePosture,
			Issues:    []string{"out_of_frame"},
		}
		eye = bodylang.EyeContactSample{Timestamp: now, Looking: false, Percentage: 0}
		return posture, nil, eye, nil
	}

	region := *tr.Region
	simulated := tr.Fallback

	score := 100.0
	var issues []string

	areaFrac := region.Area() / float64(frameW*frameH)
	if areaFrac > faceAreaTooClose {
		score -= posturePenalty
		issues = append(issues, "too_close")
	} else if areaFrac < faceAreaTooFar {
		score -= posturePenalty
		issues = append(issues, "too_far")
	}

	cx, cy := region.Center()
	if math.Abs(cx-float64(frameW)/2) > leanOffsetFrac*float64(frameW) {
		score -= posturePenalty
		issues = append(issues, "leaning")
	}
	// A face sitting low in the frame usually means slouching.
	if cy > 0.6*float64(frameH) {
		score -= posturePenalty
		issues = append(issues, "slouching")
	}

	posture = bodylang.PostureSample{
		Timestamp: now,
		Score:     clampf(score, 0, 100),
		Issues:    issues,
		Simulated: simulated,
	}

	expression = &bodylang.ExpressionSample{
		Timestamp: now,
		Emotion:   emotionFromConfidence(region.Confidence),
		Simulated: simulated,
	}

	eye = bodylang.EyeContactSample{
		Timestamp:  now,
		Looking:    tr.EyeContact >= eyeContactLookingAt,
		Percentage: tr.EyeContact,
		Simulated:  simulated,
	}

	if !math.IsNaN(prevCX) {
		disp := math.Hypot(cx-prevCX, cy-prevCY)
		switch {
		case disp >= gestureFidgetMin:
			gesture = &bodylang.GestureSample{
				Timestamp: now, Type: "fidgeting", Appropriate: false, Simulated: simulated,
			}
		case disp >= gestureMoveMin:
			gesture = &bodylang.GestureSample{
				Timestamp: now, Type: "expressive_motion", Appropriate: true, Simulated: simulated,
			}
		}
	}

	return posture, expression, eye, gesture
}

// emotionFromConfidence is a coarse proxy: a stable, confident detection
// correlates with composed presentation, a weak one with visible
// nervousness or occlusion.
func emotionFromConfidence(conf float64) string {
	switch {
	case conf >= 75:
		return bodylang.EmotionConfident
	case conf >= 50:
		return bodylang.EmotionNeutral
	default:
		return bodylang.EmotionNervous
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
