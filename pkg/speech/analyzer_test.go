package speech

import (
	"math"
	"testing"
	"time"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func sessionStart() time.Time {
	return time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
}

func TestAnalyzer_EmptySessionIsSimulated(t *testing.T) {
	a := NewAnalyzer()
	start := sessionStart()
	a.Start(start)

	res := a.Result(start.Add(time.Minute))
	if !res.IsSimulated {
		t.Error("no-signal session must be flagged simulated")
	}
	if res.Overall != 0 {
		t.Errorf("overall = %.1f, want 0", res.Overall)
	}
}

func TestAnalyzer_FillerDetection(t *testing.T) {
	a := NewAnalyzer()
	start := sessionStart()
	a.Start(start)

	words := []string{"um", "I", "designed", "the", "system", "you", "know", "with", "like", "caching"}
	for i, w := range words {
		a.AddWord(w, time.Duration(i)*400*time.Millisecond)
	}

	res := a.Result(start.Add(time.Minute))
	// "um", "you know", "like" = 3 filler events over 10 words.
	if res.Fillers.Count != 3 {
		t.Fatalf("filler count = %d, want 3 (%v)", res.Fillers.Count, res.Fillers.ByWord)
	}
	if !floatEquals(res.Fillers.Percentage, 30) {
		t.Errorf("filler percentage = %.1f, want 30", res.Fillers.Percentage)
	}
	if res.Fillers.ByWord["you know"] != 1 {
		t.Errorf("bigram filler missed: %v", res.Fillers.ByWord)
	}
	if len(res.Fillers.Offsets) != 3 {
		t.Errorf("offsets = %v, want 3 entries", res.Fillers.Offsets)
	}
}

func TestAnalyzer_PaceOptimal(t *testing.T) {
	a := NewAnalyzer()
	start := sessionStart()
	a.Start(start)

	// 150 words over 60 seconds => 150 WPM.
	for i := 0; i < 150; i++ {
		a.AddWord("word", time.Duration(i)*400*time.Millisecond)
	}

	res := a.Result(start.Add(60 * time.Second))
	if !floatEquals(res.Pace.WordsPerMinute, 150) {
		t.Errorf("wpm = %.1f, want 150", res.Pace.WordsPerMinute)
	}
	if res.Pace.Rating != "optimal" {
		t.Errorf("rating = %q, want optimal", res.Pace.Rating)
	}
	if res.Pace.Score < 90 {
		t.Errorf("pace score = %.1f, want >= 90", res.Pace.Score)
	}
}

func TestAnalyzer_PaceBuckets(t *testing.T) {
	cases := []struct {
		words int
		want  string
	}{
		{100, "too_slow"},
		{120, "optimal"},
		{180, "optimal"},
		{200, "too_fast"},
	}
	for _, tc := range cases {
		a := NewAnalyzer()
		start := sessionStart()
		a.Start(start)
		for i := 0; i < tc.words; i++ {
			a.AddWord("word", time.Duration(i)*time.Millisecond)
		}
		res := a.Result(start.Add(time.Minute))
		if res.Pace.Rating != tc.want {
			t.Errorf("%d wpm: rating = %q, want %q", tc.words, res.Pace.Rating, tc.want)
		}
	}
}

func TestAnalyzer_VolumeVariationLowVariance(t *testing.T) {
	a := NewAnalyzer()
	start := sessionStart()
	a.Start(start)

	for i, v := range []float64{50, 52, 48, 51} {
		a.AddVolume(v, start.Add(time.Duration(i)*100*time.Millisecond))
	}
	a.AddWord("hello", 0) // avoid the no-signal path being word-free

	res := a.Result(start.Add(time.Minute))
	if res.Confidence.VolumeVariation <= 80 {
		t.Errorf("volume variation component = %.1f, want > 80 for steady levels", res.Confidence.VolumeVariation)
	}
}

func TestAnalyzer_TremorPenalizesRapidSwings(t *testing.T) {
	steady := NewAnalyzer()
	jittery := NewAnalyzer()
	start := sessionStart()
	steady.Start(start)
	jittery.Start(start)

	for i := 0; i < 50; i++ {
		ts := start.Add(time.Duration(i) * 100 * time.Millisecond)
		steady.AddVolume(50+float64(i%3), ts)
		if i%2 == 0 {
			jittery.AddVolume(30, ts)
		} else {
			jittery.AddVolume(70, ts)
		}
	}

	end := start.Add(time.Minute)
	if s, j := steady.Result(end).Confidence.Tremor, jittery.Result(end).Confidence.Tremor; j >= s {
		t.Errorf("tremor: steady=%.1f jittery=%.1f; jittery should score lower", s, j)
	}
}

func TestAnalyzer_PauseDetection(t *testing.T) {
	a := NewAnalyzer()
	start := sessionStart()
	a.Start(start)

	// Speech, then a 1s silence, then speech again.
	ts := start
	push := func(level float64, n int) {
		for i := 0; i < n; i++ {
			a.AddVolume(level, ts)
			ts = ts.Add(100 * time.Millisecond)
		}
	}
	push(60, 10)
	push(5, 10) // 1s below threshold -> one pause
	push(55, 10)
	push(4, 10) // second pause
	push(58, 10)

	a.mu.Lock()
	pauses := len(a.pauses)
	a.mu.Unlock()
	if pauses != 2 {
		t.Errorf("detected %d pauses, want 2", pauses)
	}
}

func TestAnalyzer_FluencyDegradesWithFillers(t *testing.T) {
	a := NewAnalyzer()
	start := sessionStart()
	a.Start(start)

	// 12% fillers: 12 "um" among 100 words.
	for i := 0; i < 100; i++ {
		w := "word"
		if i%9 == 0 && i/9 < 12 {
			w = "um"
		}
		a.AddWord(w, time.Duration(i)*400*time.Millisecond)
	}

	res := a.Result(start.Add(time.Minute))
	if !floatEquals(res.Fillers.Percentage, 12) {
		t.Fatalf("filler percentage = %.1f, want 12", res.Fillers.Percentage)
	}
	if res.Pronunciation.Fluency > 65 {
		t.Errorf("fluency = %.1f, want <= 65 at 12%% fillers", res.Pronunciation.Fluency)
	}
}

func TestVolumeRing_Bounded(t *testing.T) {
	r := NewVolumeRing(4)
	base := sessionStart()
	for i := 0; i < 10; i++ {
		r.Push(float64(i), base.Add(time.Duration(i)*time.Second))
	}
	if r.Len() != 4 {
		t.Fatalf("len = %d, want 4", r.Len())
	}
	values := r.Values()
	want := []float64{6, 7, 8, 9}
	for i, v := range want {
		if !floatEquals(values[i], v) {
			t.Errorf("values[%d] = %.0f, want %.0f", i, values[i], v)
		}
	}
}

func TestNormalizeWord(t *testing.T) {
	cases := map[string]string{
		"Um,":     "um",
		"  LIKE ": "like",
		"right?":  "right",
		"caching": "caching",
	}
	for in, want := range cases {
		if got := normalizeWord(in); got != want {
			t.Errorf("normalizeWord(%q) = %q, want %q", in, got, want)
		}
	}
}
