package detect

import (
	"context"
	"math"
	"testing"
)

func TestTemplateDetector_NoTemplateNoMatch(t *testing.T) {
	d := NewTemplateDetector()
	f := solidFrame(t, 160, 160, 100, 100, 100)

	res := d.Detect(context.Background(), f)
	if res.Status != StatusNotFound {
		t.Errorf("status = %v, want not_found before any capture", res.Status)
	}
	if d.HasTemplate() {
		t.Error("template should not exist yet")
	}
}

func TestTemplateDetector_CaptureRequiresConfidence(t *testing.T) {
	d := NewTemplateDetector()
	f := frameFromPix(t, 160, 160, blobPix(160, 160, 80, 80))

	weak := FaceRegion{X: 50, Y: 40, Width: 60, Height: 80, Confidence: 40}
	d.Update(f, &weak)
	if d.HasTemplate() {
		t.Error("low-confidence fusion must not capture a patch")
	}

	strong := weak
	strong.Confidence = 85
	d.Update(f, &strong)
	if !d.HasTemplate() {
		t.Error("confident fusion should capture a patch")
	}
}

func TestTemplateDetector_PicksBestWindowOverEarlierWeakMatch(t *testing.T) {
	w, h := 120, 32

	// Capture a checkered 24x32 patch.
	checker := func(x, y int) uint8 { return uint8(100 + 20*((x+y)%2)) }
	src := frameFromPix(t, w, h, grayPix(w, h, checker))
	d := NewTemplateDetector()
	region := FaceRegion{X: 64, Y: 0, Width: templateW, Height: templateH, Confidence: 90}
	d.Update(src, &region)
	if !d.HasTemplate() {
		t.Fatal("patch capture failed")
	}

	// Search frame: a weak match at x=0 (every pixel off by 40, scanned
	// first) and the true match at x=64 (off by 10). The weak window's
	// similarity (0.5) is below the accept threshold, so reporting it
	// instead of the true window turns a solid match into not_found.
	f := frameFromPix(t, w, h, grayPix(w, h, func(x, y int) uint8 {
		switch {
		case x < templateW:
			return checker(x, y) + 40
		case x >= 64 && x < 64+templateW:
			return checker(x, y) + 10
		default:
			return 0
		}
	}))

	res := d.Detect(context.Background(), f)
	if res.Status != StatusFound {
		t.Fatalf("status = %v, want found at the true match", res.Status)
	}
	if res.Region.X != 64 {
		t.Errorf("match x = %.1f, want 64", res.Region.X)
	}
	wantConf := (1 - 10.0/templateMaxDiff) * 100
	if math.Abs(res.Region.Confidence-wantConf) > 1 {
		t.Errorf("confidence = %.1f, want %.1f", res.Region.Confidence, wantConf)
	}
}

func TestTemplateDetector_RelocatesPatch(t *testing.T) {
	w, h := 160, 160
	f1 := frameFromPix(t, w, h, blobPix(w, h, 80, 80))

	d := NewTemplateDetector()
	region := FaceRegion{X: 50, Y: 40, Width: 60, Height: 80, Confidence: 90}
	d.Update(f1, &region)
	if !d.HasTemplate() {
		t.Fatal("patch capture failed")
	}

	// Same scene shifted right by 8 pixels (one search stride).
	f2 := frameFromPix(t, w, h, blobPix(w, h, 88, 80))
	res := d.Detect(context.Background(), f2)
	if res.Status != StatusFound {
		t.Fatalf("status = %v, want found", res.Status)
	}
	cx, _ := res.Region.Center()
	if math.Abs(cx-(80+8)) > 16 {
		t.Errorf("match center x = %.1f, want near %.1f", cx, 88.0)
	}
}
