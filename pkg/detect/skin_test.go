package detect

import (
	"context"
	"math"
	"testing"
)

func TestIsSkin(t *testing.T) {
	cases := []struct {
		name    string
		r, g, b uint8
		want    bool
	}{
		{"light skin", 220, 170, 140, true},
		{"medium skin", 190, 135, 105, true},
		{"pure red", 255, 0, 0, false},
		{"gray wall", 128, 128, 128, false},
		{"blue shirt", 40, 60, 180, false},
		{"black", 0, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isSkin(tc.r, tc.g, tc.b); got != tc.want {
				t.Errorf("isSkin(%d,%d,%d) = %v, want %v", tc.r, tc.g, tc.b, got, tc.want)
			}
		})
	}
}

func TestSkinDetector_FindsFaceBlock(t *testing.T) {
	w, h := 160, 160
	pix := make([]uint8, w*h*4)
	// Dark background.
	for i := 0; i < w*h; i++ {
		pix[i*4+2] = 40
		pix[i*4+3] = 255
	}
	// Skin-colored 60x80 block, horizontally centered, upper-middle.
	fillRect(t, w, pix, 50, 24, 110, 104, 200, 140, 110)
	f := frameFromPix(t, w, h, pix)

	d := NewSkinDetector()
	res := d.Detect(context.Background(), f)
	if res.Status != StatusFound {
		t.Fatalf("status = %v, err = %v; want found", res.Status, res.Err)
	}

	cx, cy := res.Region.Center()
	if math.Abs(cx-80) > 12 || math.Abs(cy-64) > 14 {
		t.Errorf("region center = (%.1f, %.1f), want near (80, 64)", cx, cy)
	}
	if err := res.Region.Validate(w, h); err != nil {
		t.Errorf("region invalid: %v", err)
	}
	if res.Region.Confidence < 50 {
		t.Errorf("confidence = %.1f, want >= 50", res.Region.Confidence)
	}
}

func TestSkinDetector_NoSkinNoFace(t *testing.T) {
	f := solidFrame(t, 160, 160, 60, 60, 60)
	d := NewSkinDetector()
	res := d.Detect(context.Background(), f)
	if res.Status != StatusNotFound {
		t.Errorf("status = %v, want not_found", res.Status)
	}
}

func TestRefineAspect(t *testing.T) {
	wide := FaceRegion{X: 0, Y: 0, Width: 120, Height: 80}
	refined := refineAspect(wide, 0.75)
	if !floatEquals(refined.AspectRatio(), 0.75) {
		t.Errorf("aspect after refine = %.3f, want 0.75", refined.AspectRatio())
	}
	cx0, cy0 := wide.Center()
	cx1, cy1 := refined.Center()
	if !floatEquals(cx0, cx1) || !floatEquals(cy0, cy1) {
		t.Error("refine must preserve the box center")
	}
}

func TestMorphology(t *testing.T) {
	w, h := 10, 10
	mask := make([]bool, w*h)
	// Single isolated cell should be removed by erosion.
	mask[5*w+5] = true
	eroded := erode(mask, w, h)
	for i, v := range eroded {
		if v {
			t.Fatalf("erosion left isolated cell at %d", i)
		}
	}

	// A solid 4x4 block survives erode+dilate.
	for y := 3; y < 7; y++ {
		for x := 3; x < 7; x++ {
			mask[y*w+x] = true
		}
	}
	cleaned := dilate(erode(mask, w, h), w, h)
	if !cleaned[5*w+5] {
		t.Error("solid block center removed by morphology")
	}
}
