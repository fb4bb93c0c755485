package detect

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// YuNetDetector wraps OpenCV's FaceDetectorYN pretrained model. It is the
// highest-reliability backend when the ONNX model file is available.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	mu       sync.Mutex // protects inference
}

// NewYuNet creates a YuNet face detector from the given ONNX model path.
func NewYuNet(modelPath string) (*YuNetDetector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		modelPath,
		"",                          // no config file needed for ONNX
		image.Pt(320, 320),          // initial input size, updated per frame
		0.5,                         // score threshold
		0.3,                         // NMS threshold
		5000,                        // top K
		int(gocv.NetBackendDefault), // backend
		int(gocv.NetTargetCPU),      // target
	)

	return &YuNetDetector{detector: detector}, nil
}

// Name implements Detector.
func (d *YuNetDetector) Name() string { return "yunet" }

// Reliability implements Detector.
func (d *YuNetDetector) Reliability() float64 { return 0.9 }

// Detect implements Detector.
func (d *YuNetDetector) Detect(ctx context.Context, f *vision.Frame) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Failed(d.Name(), err, time.Since(start))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rgba, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
	if err != nil {
		return Failed(d.Name(), fmt.Errorf("frame to mat: %w", err), time.Since(start))
	}
	defer rgba.Close()

	img := gocv.NewMat()
	defer img.Close()
	gocv.CvtColor(rgba, &img, gocv.ColorRGBAToBGR)

	d.detector.SetInputSize(image.Pt(f.Width, f.Height))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	var candidates []FaceRegion
	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		region := FaceRegion{
			X:          float64(faces.GetFloatAt(r, 0)),
			Y:          float64(faces.GetFloatAt(r, 1)),
			Width:      float64(faces.GetFloatAt(r, 2)),
			Height:     float64(faces.GetFloatAt(r, 3)),
			Confidence: clamp(float64(faces.GetFloatAt(r, 14))*100, 0, 100),
		}
		region = region.Clamp(f.Width, f.Height)
		if region.Validate(f.Width, f.Height) == nil {
			candidates = append(candidates, region)
		}
	}

	best := bestCandidate(candidates, f.Width, f.Height)
	if best == nil {
		return NotFound(d.Name(), time.Since(start))
	}
	return Found(d.Name(), *best, time.Since(start))
}

// Close releases the underlying OpenCV detector.
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
