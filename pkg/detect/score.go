package detect

import "math"

// Candidate scoring weights. A candidate face is judged on its reported
// confidence, how much of the frame it occupies, where it sits, and how
// face-like its aspect ratio is.
const (
	candConfidenceWeight = 0.40
	candSizeWeight       = 0.20
	candPositionWeight   = 0.20
	candAspectWeight     = 0.20

	// Faces at a typical webcam distance occupy 15-35% of the frame.
	idealAreaMin = 0.15
	idealAreaMax = 0.35

	// Human faces are taller than wide.
	idealAspectMin = 0.7
	idealAspectMax = 0.9
)

// scoreCandidate computes a composite quality score (0-1) for a candidate
// region. Used to pick the best face when a detector reports several.
func scoreCandidate(r FaceRegion, frameW, frameH int) float64 {
	conf := clamp(r.Confidence/100, 0, 1)

	size := rangeScore(r.Area()/(float64(frameW)*float64(frameH)), idealAreaMin, idealAreaMax)
	aspect := rangeScore(r.AspectRatio(), idealAspectMin, idealAspectMax)

	// Centered horizontally, upper-middle vertically.
	cx, cy := r.Center()
	dx := math.Abs(cx/float64(frameW) - 0.5)
	dy := math.Abs(cy/float64(frameH) - 0.4)
	position := clamp(1-(dx+dy), 0, 1)

	return conf*candConfidenceWeight +
		size*candSizeWeight +
		position*candPositionWeight +
		aspect*candAspectWeight
}

// bestCandidate returns the highest scoring region, or nil for an empty set.
func bestCandidate(regions []FaceRegion, frameW, frameH int) *FaceRegion {
	if len(regions) == 0 {
		return nil
	}
	bestScore := -1.0
	var best *FaceRegion
	for i := range regions {
		if s := scoreCandidate(regions[i], frameW, frameH); s > bestScore {
			bestScore = s
			best = &regions[i]
		}
	}
	return best
}

// rangeScore returns 1.0 when v lies inside [lo, hi] and falls off
// linearly with distance outside the band.
func rangeScore(v, lo, hi float64) float64 {
	switch {
	case v >= lo && v <= hi:
		return 1
	case v < lo:
		return clamp(1-(lo-v)/lo, 0, 1)
	default:
		return clamp(1-(v-hi)/hi, 0, 1)
	}
}
