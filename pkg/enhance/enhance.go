// Package enhance applies light photographic corrections to RGBA buffers.
package enhance

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"k8s.io/klog/v2"
)

// ClarityRadius is the blur radius of the unsharp mask, in pixels.
const ClarityRadius = 2.0

// Stage names, in the order Apply runs them.
const (
	StageDehaze     = "dehaze"
	StageClarity    = "clarity"
	StageSaturation = "saturation"
)

// ErrEmptySurface is returned by a filter given a nil or zero-sized image.
var ErrEmptySurface = errors.New("empty surface")

// Params are the filter strengths.
type Params struct {
	Dehaze     float64 `yaml:"dehaze"`
	Clarity    float64 `yaml:"clarity"`
	Saturation float64 `yaml:"saturation"`
}

// Defaults returns the standard strengths.
func Defaults() Params {
	return Params{Dehaze: 0.18, Clarity: 0.30, Saturation: 1.03}
}

// StageResult records whether a filter stage ran.
type StageResult struct {
	Stage   string
	Applied bool
	Reason  string
}

func (r StageResult) String() string {
	if r.Applied {
		return r.Stage + ": applied"
	}
	return fmt.Sprintf("%s: skipped (%s)", r.Stage, r.Reason)
}

// Apply runs dehaze, clarity and saturation over img in place. A failing stage
// is reported as skipped and the remaining stages still run.
func Apply(img *image.RGBA, p Params) []StageResult {
	rs := []StageResult{
		run(StageDehaze, func() error { return Dehaze(img, p.Dehaze) }),
	}

	if p.Clarity <= 0 {
		rs = append(rs, StageResult{Stage: StageClarity, Reason: "strength is zero"})
	} else {
		rs = append(rs, run(StageClarity, func() error { return Clarity(img, p.Clarity) }))
	}

	if p.Saturation == 1.0 {
		rs = append(rs, StageResult{Stage: StageSaturation, Reason: "neutral boost"})
	} else {
		rs = append(rs, run(StageSaturation, func() error { return Saturation(img, p.Saturation) }))
	}

	return rs
}

func run(stage string, fn func() error) (r StageResult) {
	r.Stage = stage
	defer func() {
		if p := recover(); p != nil {
			r.Applied = false
			r.Reason = fmt.Sprintf("panic: %v", p)
			klog.Warningf("%s stage failed: %v", stage, p)
		}
	}()

	if err := fn(); err != nil {
		klog.Warningf("%s stage skipped: %v", stage, err)
		r.Reason = err.Error()
		return r
	}
	r.Applied = true
	return r
}

// Clamp limits v to the range of an 8-bit sample.
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}

func sample(v float64) uint8 {
	return uint8(math.Round(Clamp(v)))
}

func empty(img *image.RGBA) bool {
	return img == nil || img.Bounds().Empty() || len(img.Pix) == 0
}

// Dehaze stretches contrast around mid-gray by 1+strength.
func Dehaze(img *image.RGBA, strength float64) error {
	if empty(img) {
		return ErrEmptySurface
	}

	c := 1 + strength
	t := (0.5 - 0.5*c) * 255
	var lut [256]uint8
	for i := range lut {
		lut[i] = sample(c*float64(i) + t)
	}

	eachRow(img, func(row []uint8) {
		for i := 0; i < len(row); i += 4 {
			row[i] = lut[row[i]]
			row[i+1] = lut[row[i+1]]
			row[i+2] = lut[row[i+2]]
		}
	})
	return nil
}

// Clarity is an unsharp mask: each channel moves away from a blurred copy of
// itself by strength.
func Clarity(img *image.RGBA, strength float64) error {
	if empty(img) {
		return ErrEmptySurface
	}

	blurred := blur.Gaussian(img, ClarityRadius)
	if blurred == nil {
		return errors.New("blur returned no image")
	}
	if blurred.Bounds().Size() != img.Bounds().Size() {
		return fmt.Errorf("blur returned %v for %v", blurred.Bounds(), img.Bounds())
	}

	b := img.Bounds()
	bb := blurred.Bounds()
	w := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		o := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[o : o+w]
		bo := blurred.PixOffset(bb.Min.X, bb.Min.Y+y)
		brow := blurred.Pix[bo : bo+w]

		for i := 0; i < w; i += 4 {
			for c := i; c < i+3; c++ {
				orig := float64(row[c])
				row[c] = sample(orig + strength*(orig-float64(brow[c])))
			}
		}
	}
	return nil
}

// Luma weights used by Saturation.
const (
	lumaR = 0.3086
	lumaG = 0.6094
	lumaB = 0.0820
)

// Saturation pushes each channel away from the pixel's gray level by sat.
func Saturation(img *image.RGBA, sat float64) error {
	if empty(img) {
		return ErrEmptySurface
	}

	eachRow(img, func(row []uint8) {
		for i := 0; i < len(row); i += 4 {
			r, g, b := float64(row[i]), float64(row[i+1]), float64(row[i+2])
			gray := lumaR*r + lumaG*g + lumaB*b
			row[i] = sample(gray + sat*(r-gray))
			row[i+1] = sample(gray + sat*(g-gray))
			row[i+2] = sample(gray + sat*(b-gray))
		}
	})
	return nil
}

// eachRow calls fn with the pixels of each row inside img's bounds.
func eachRow(img *image.RGBA, fn func(row []uint8)) {
	b := img.Bounds()
	w := b.Dx() * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		o := img.PixOffset(b.Min.X, y)
		fn(img.Pix[o : o+w])
	}
}
