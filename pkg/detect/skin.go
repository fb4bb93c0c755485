package detect

import (
	"context"
	"math"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// Skin-tone segmentation tuning.
const (
	skinStride          = 2    // sample every Nth pixel in both axes
	skinMinComponent    = 60   // minimum mask cells per component
	skinMinScore        = 0.45 // composite threshold to accept a component
	skinRefinedAspect   = 0.75 // refine accepted boxes toward 3:4
	skinBaseConfidence  = 55.0
	skinScoreConfidence = 40.0 // score contribution on top of base
)

// SkinDetector locates faces by segmenting skin-colored pixels, cleaning
// the mask with morphological erosion/dilation, and scoring connected
// components for face-likeness. Works without any model file, which makes
// it the fallback when no pretrained detector is available.
type SkinDetector struct {
	reliability float64
}

// NewSkinDetector creates a skin-tone segmentation detector.
func NewSkinDetector() *SkinDetector {
	return &SkinDetector{reliability: 0.6}
}

// Name implements Detector.
func (d *SkinDetector) Name() string { return "skin" }

// Reliability implements Detector.
func (d *SkinDetector) Reliability() float64 { return d.reliability }

// Detect implements Detector.
func (d *SkinDetector) Detect(ctx context.Context, f *vision.Frame) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Failed(d.Name(), err, time.Since(start))
	}

	mw := f.Width / skinStride
	mh := f.Height / skinStride
	if mw < 8 || mh < 8 {
		return NotFound(d.Name(), time.Since(start))
	}

	mask := buildSkinMask(f, mw, mh)
	mask = erode(mask, mw, mh)
	mask = dilate(mask, mw, mh)

	comps := components(mask, mw, mh)
	if len(comps) == 0 {
		return NotFound(d.Name(), time.Since(start))
	}

	best, bestScore := bestComponent(comps, mw, mh)
	if best == nil || bestScore < skinMinScore {
		return NotFound(d.Name(), time.Since(start))
	}

	region := best.toRegion(skinStride)
	region = refineAspect(region, skinRefinedAspect)
	region.Confidence = clamp(skinBaseConfidence+bestScore*skinScoreConfidence, 0, 100)
	region = region.Clamp(f.Width, f.Height)

	if region.Validate(f.Width, f.Height) != nil {
		return NotFound(d.Name(), time.Since(start))
	}
	return Found(d.Name(), region, time.Since(start))
}

// buildSkinMask classifies subsampled pixels as skin using combined
// RGB, HSV and YUV heuristics.
func buildSkinMask(f *vision.Frame, mw, mh int) []bool {
	mask := make([]bool, mw*mh)
	for my := 0; my < mh; my++ {
		for mx := 0; mx < mw; mx++ {
			r, g, b := f.RGB(mx*skinStride, my*skinStride)
			if isSkin(r, g, b) {
				mask[my*mw+mx] = true
			}
		}
	}
	return mask
}

// isSkin combines three complementary color-space checks. A pixel must
// pass the RGB heuristic plus at least one of the HSV or YUV checks.
func isSkin(r8, g8, b8 uint8) bool {
	r, g, b := float64(r8), float64(g8), float64(b8)

	// RGB heuristic: warm, red-dominant pixels.
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	rgb := r > 95 && g > 40 && b > 20 &&
		maxC-minC > 15 &&
		math.Abs(r-g) > 15 && r > g && r > b

	if !rgb {
		return false
	}

	// HSV: low hue (reds/oranges), moderate saturation.
	h, s, v := rgbToHSV(r, g, b)
	hsv := (h < 50 || h > 340) && s >= 0.15 && s <= 0.75 && v >= 0.35

	// YUV: skin chrominance band.
	u := -0.169*r - 0.332*g + 0.5*b + 128
	yv := 0.5*r - 0.419*g - 0.081*b + 128
	yuv := u >= 80 && u <= 130 && yv >= 136 && yv <= 200

	return hsv || yuv
}

// rgbToHSV converts 0-255 RGB to (hue degrees, saturation 0-1, value 0-1).
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	r, g, b = r/255, g/255, b/255
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}
	if delta == 0 {
		return 0, s, v
	}
	switch maxC {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// erode removes mask cells without a full 4-neighborhood (denoising).
func erode(mask []bool, w, h int) []bool {
	out := make([]bool, len(mask))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			out[i] = mask[i] && mask[i-1] && mask[i+1] && mask[i-w] && mask[i+w]
		}
	}
	return out
}

// dilate grows the mask by one cell in each direction.
func dilate(mask []bool, w, h int) []bool {
	out := make([]bool, len(mask))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			out[i] = mask[i] || mask[i-1] || mask[i+1] || mask[i-w] || mask[i+w]
		}
	}
	return out
}

// component is a connected region of the skin mask.
type component struct {
	minX, minY, maxX, maxY int
	count                  int
}

func (c *component) width() int  { return c.maxX - c.minX + 1 }
func (c *component) height() int { return c.maxY - c.minY + 1 }

// density is the ratio of skin cells to bounding box area. Faces are
// dense blobs; stray matches are sparse.
func (c *component) density() float64 {
	return float64(c.count) / float64(c.width()*c.height())
}

func (c *component) toRegion(stride int) FaceRegion {
	return FaceRegion{
		X:      float64(c.minX * stride),
		Y:      float64(c.minY * stride),
		Width:  float64(c.width() * stride),
		Height: float64(c.height() * stride),
	}
}

// components extracts connected components from the mask via iterative
// flood fill (4-connectivity).
func components(mask []bool, w, h int) []*component {
	visited := make([]bool, len(mask))
	var comps []*component
	queue := make([]int, 0, 256)

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}

		c := &component{minX: w, minY: h, maxX: -1, maxY: -1}
		queue = queue[:0]
		queue = append(queue, start)
		visited[start] = true

		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]

			x, y := i%w, i/w
			c.count++
			if x < c.minX {
				c.minX = x
			}
			if x > c.maxX {
				c.maxX = x
			}
			if y < c.minY {
				c.minY = y
			}
			if y > c.maxY {
				c.maxY = y
			}

			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if n < 0 || n >= len(mask) || visited[n] || !mask[n] {
					continue
				}
				// Guard against wrapping across row edges.
				if (n == i-1 && x == 0) || (n == i+1 && x == w-1) {
					continue
				}
				visited[n] = true
				queue = append(queue, n)
			}
		}

		if c.count >= skinMinComponent {
			comps = append(comps, c)
		}
	}
	return comps
}

// bestComponent scores each component by aspect ratio, size, position and
// density, returning the best with its score.
func bestComponent(comps []*component, mw, mh int) (*component, float64) {
	var best *component
	bestScore := -1.0
	for _, c := range comps {
		aspect := rangeScore(float64(c.width())/float64(c.height()), idealAspectMin, idealAspectMax)
		size := rangeScore(float64(c.width()*c.height())/float64(mw*mh), idealAreaMin, idealAreaMax)

		cx := float64(c.minX+c.maxX) / 2 / float64(mw)
		cy := float64(c.minY+c.maxY) / 2 / float64(mh)
		position := clamp(1-(math.Abs(cx-0.5)+math.Abs(cy-0.4)), 0, 1)

		score := aspect*0.3 + size*0.25 + position*0.2 + c.density()*0.25
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best, bestScore
}

// refineAspect nudges a bounding box toward the target width/height ratio
// while keeping its center fixed.
func refineAspect(r FaceRegion, target float64) FaceRegion {
	cx, cy := r.Center()
	ar := r.AspectRatio()
	if ar > target {
		// Too wide: narrow the box.
		r.Width = r.Height * target
	} else if ar < target {
		// Too tall: shorten it.
		r.Height = r.Width / target
	}
	r.X = cx - r.Width/2
	r.Y = cy - r.Height/2
	return r
}
