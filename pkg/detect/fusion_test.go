package detect

import (
	"context"
	"math"
	"testing"
	"time"
)

func found(method string, x, y, w, h, conf float64) Result {
	return Found(method, FaceRegion{X: x, Y: y, Width: w, Height: h, Confidence: conf}, time.Millisecond)
}

func TestFuse_Deterministic(t *testing.T) {
	results := []Result{
		found("skin", 100, 80, 120, 160, 70),
		found("edge", 110, 90, 110, 150, 50),
		NotFound("flow", time.Millisecond),
	}
	static := map[string]float64{"skin": 0.6, "edge": 0.4, "flow": 0.5}
	history := map[string]float64{"skin": 0.5, "edge": 0.3, "flow": 0.2}

	first, ok := fuse(results, static, history)
	if !ok {
		t.Fatal("expected fusion to succeed")
	}
	for i := 0; i < 10; i++ {
		again, ok := fuse(results, static, history)
		if !ok {
			t.Fatal("expected fusion to succeed")
		}
		if again != first {
			t.Fatalf("fusion not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestFuse_WeightsTowardConfidentMethod(t *testing.T) {
	results := []Result{
		found("skin", 0, 0, 100, 130, 90),
		found("edge", 200, 200, 100, 130, 10),
	}
	static := map[string]float64{"skin": 0.5, "edge": 0.5}
	history := map[string]float64{"skin": 0.5, "edge": 0.5}

	region, ok := fuse(results, static, history)
	if !ok {
		t.Fatal("expected fusion to succeed")
	}
	// The high-confidence detection should dominate.
	if region.X > 50 {
		t.Errorf("fused X = %.1f, want closer to the confident detection at 0", region.X)
	}
}

func TestFuse_NoSuccessfulResults(t *testing.T) {
	results := []Result{
		NotFound("skin", time.Millisecond),
		Failed("edge", context.DeadlineExceeded, time.Millisecond),
	}
	static := map[string]float64{"skin": 0.6, "edge": 0.4}

	if _, ok := fuse(results, static, nil); ok {
		t.Error("fusion should fail with no successful results")
	}
}

func TestValidFused_RejectsBadBoxes(t *testing.T) {
	cases := []struct {
		name   string
		region FaceRegion
		want   bool
	}{
		{"plausible", FaceRegion{X: 170, Y: 40, Width: 300, Height: 400, Confidence: 80}, true},
		{"at lower size bound", FaceRegion{X: 190, Y: 40, Width: 256, Height: 340, Confidence: 80}, true},
		{"below size band", FaceRegion{X: 200, Y: 100, Width: 160, Height: 200, Confidence: 80}, false},
		{"above size band", FaceRegion{X: 40, Y: 40, Width: 560, Height: 420, Confidence: 80}, false},
		{"out of bounds", FaceRegion{X: 600, Y: 100, Width: 300, Height: 400, Confidence: 80}, false},
		{"too wide aspect", FaceRegion{X: 10, Y: 10, Width: 300, Height: 100, Confidence: 80}, false},
		{"sliver", FaceRegion{X: 10, Y: 10, Width: 10, Height: 12, Confidence: 80}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validFused(tc.region, 640, 480); got != tc.want {
				t.Errorf("validFused(%+v) = %v, want %v", tc.region, got, tc.want)
			}
		})
	}
}

func TestFallbackRegion_Invariants(t *testing.T) {
	region := fallbackRegion(640, 480)
	if err := region.Validate(640, 480); err != nil {
		t.Fatalf("fallback region invalid: %v", err)
	}
	if !floatEquals(region.Confidence, fallbackConfidence) {
		t.Errorf("fallback confidence = %.1f, want %d", region.Confidence, fallbackConfidence)
	}
	cx, _ := region.Center()
	if math.Abs(cx-320) > 1 {
		t.Errorf("fallback not horizontally centered: cx = %.1f", cx)
	}
}

func TestFaceRegion_Validate(t *testing.T) {
	cases := []struct {
		name    string
		region  FaceRegion
		wantErr bool
	}{
		{"valid", FaceRegion{X: 10, Y: 10, Width: 100, Height: 130, Confidence: 50}, false},
		{"zero width", FaceRegion{X: 10, Y: 10, Width: 0, Height: 130, Confidence: 50}, true},
		{"negative origin", FaceRegion{X: -5, Y: 10, Width: 100, Height: 130, Confidence: 50}, true},
		{"exceeds frame", FaceRegion{X: 600, Y: 10, Width: 100, Height: 130, Confidence: 50}, true},
		{"aspect too tall", FaceRegion{X: 10, Y: 10, Width: 40, Height: 130, Confidence: 50}, true},
		{"confidence over 100", FaceRegion{X: 10, Y: 10, Width: 100, Height: 130, Confidence: 130}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.region.Validate(640, 480)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
