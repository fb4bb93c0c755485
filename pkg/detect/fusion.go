package detect

// Fused box validation. The fused region must cover a plausible share of
// the frame width; anything outside falls back to the best single result.
const (
	fusedMinWidthFrac = 0.40
	fusedMaxWidthFrac = 0.80

	// Static fallback used when every method fails for a tick.
	fallbackWidthFrac  = 0.40
	fallbackAspect     = 0.75
	fallbackConfidence = 30
)

// fuse combines all successful per-method results into one region via
// weighted averaging of position and size. Per-method weight is
// reliability x own confidence x historical performance. Deterministic
// for a fixed set of inputs and weights.
func fuse(results []Result, static map[string]float64, history map[string]float64) (FaceRegion, bool) {
	var sumW, x, y, w, h, conf float64

	for _, res := range results {
		if res.Status != StatusFound {
			continue
		}
		weight := static[res.Method] * (res.Region.Confidence / 100)
		if hw, ok := history[res.Method]; ok {
			weight *= hw
		}
		if weight <= 0 {
			continue
		}
		sumW += weight
		x += res.Region.X * weight
		y += res.Region.Y * weight
		w += res.Region.Width * weight
		h += res.Region.Height * weight
		conf += res.Region.Confidence * weight
	}

	if sumW == 0 {
		return FaceRegion{}, false
	}

	return FaceRegion{
		X:          x / sumW,
		Y:          y / sumW,
		Width:      w / sumW,
		Height:     h / sumW,
		Confidence: clamp(conf/sumW, 0, 100),
	}, true
}

// validFused checks the fused box against frame bounds, size band and
// aspect ratio limits.
func validFused(r FaceRegion, frameW, frameH int) bool {
	if r.Validate(frameW, frameH) != nil {
		return false
	}
	frac := r.Width / float64(frameW)
	return frac >= fusedMinWidthFrac && frac <= fusedMaxWidthFrac
}

// bestSingle returns the found result with the highest candidate score,
// or nil when no method found a face.
func bestSingle(results []Result, frameW, frameH int) *FaceRegion {
	bestScore := -1.0
	var best *FaceRegion
	for i := range results {
		if results[i].Status != StatusFound {
			continue
		}
		if s := scoreCandidate(results[i].Region, frameW, frameH); s > bestScore {
			bestScore = s
			best = &results[i].Region
		}
	}
	return best
}

// fallbackRegion returns the static centered heuristic box used when all
// methods fail. It carries a deliberately low confidence so downstream
// consumers can discount it.
func fallbackRegion(frameW, frameH int) FaceRegion {
	w := float64(frameW) * fallbackWidthFrac
	h := w / fallbackAspect
	if h > float64(frameH) {
		h = float64(frameH) * 0.8
		w = h * fallbackAspect
	}
	return FaceRegion{
		X:          (float64(frameW) - w) / 2,
		Y:          (float64(frameH) - h) * 0.4, // upper-middle
		Width:      w,
		Height:     h,
		Confidence: fallbackConfidence,
	}
}
