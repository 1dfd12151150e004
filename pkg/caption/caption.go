// Package caption lays out and draws the Persian date caption.
package caption

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// Baseline selects how the text sits inside the backdrop.
type Baseline int

const (
	// BaselineMiddle centers the text vertically in the backdrop.
	BaselineMiddle Baseline = iota
	// BaselineAlphabetic puts the baseline a quarter em above the bottom padding.
	BaselineAlphabetic
)

func (b Baseline) String() string {
	if b == BaselineAlphabetic {
		return "alphabetic"
	}
	return "middle"
}

// ParseBaseline accepts "middle" or "alphabetic".
func ParseBaseline(s string) (Baseline, error) {
	switch s {
	case "", "middle":
		return BaselineMiddle, nil
	case "alphabetic":
		return BaselineAlphabetic, nil
	}
	return BaselineMiddle, fmt.Errorf("unknown baseline %q", s)
}

const (
	minFontSize = 40
	maxFontSize = 120

	// ShadowRadius is the bild blur radius of the text shadow (sigma 4px).
	ShadowRadius = 8.0
	strokeWidth  = 6.0
)

// FontSize is 4% of the smaller image dimension, kept within 40-120px.
func FontSize(w, h int) float64 {
	return math.Min(math.Max(float64(min(w, h))*0.04, minFontSize), maxFontSize)
}

// Layout is the geometry of a caption, in image pixels.
type Layout struct {
	Size    float64
	Padding float64

	// backdrop
	X, Y, W, H float64
	Radius     float64

	// TextX is the left edge of the drawn text and TextY its baseline.
	TextX, TextY float64
	TextWidth    float64
}

// Rect is the backdrop rounded outwards to whole pixels.
func (l Layout) Rect() image.Rectangle {
	return image.Rect(int(math.Floor(l.X)), int(math.Floor(l.Y)), int(math.Ceil(l.X+l.W)), int(math.Ceil(l.Y+l.H)))
}

// Measure lays out text for a w x h image. The backdrop is horizontally
// centered and sits one padding above the bottom edge.
func Measure(w, h int, text string, face font.Face, baseline Baseline) Layout {
	size := FontSize(w, h)
	pad := size * 0.25
	tw := float64(font.MeasureString(face, Shape(text))) / 64

	bottom := float64(h) - pad
	top := bottom - size - 2*pad
	cx := float64(w) / 2

	l := Layout{
		Size:      size,
		Padding:   pad,
		X:         cx - tw/2 - pad,
		Y:         top,
		W:         tw + 2*pad,
		H:         bottom - top,
		TextX:     cx - tw/2,
		TextWidth: tw,
	}
	l.Radius = math.Min(size*0.5, math.Min(l.W/2, l.H/2))

	switch baseline {
	case BaselineAlphabetic:
		l.TextY = bottom - pad - size*0.25
	default:
		m := face.Metrics()
		ascent := float64(m.Ascent) / 64
		descent := float64(m.Descent) / 64
		l.TextY = (top+bottom)/2 + (ascent-descent)/2
	}
	return l
}

// Options control Render.
type Options struct {
	Faces    FaceSource
	Baseline Baseline
}

// Render draws text onto img: a translucent rounded backdrop, a soft shadow
// and white text. It returns the layout used.
func Render(img *image.RGBA, text string, opts Options) (Layout, error) {
	if img == nil || img.Bounds().Empty() {
		return Layout{}, errors.New("render caption: empty image")
	}
	faces := opts.Faces
	if faces == nil {
		faces = Basic
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	face := faces.Face(FontSize(w, h))
	l := Measure(w, h, text, face, opts.Baseline)
	shaped := Shape(text)

	dc := gg.NewContextForRGBA(img)
	roundRect(dc, l.X, l.Y, l.W, l.H, l.Radius)
	dc.SetRGBA(0, 0, 0, 0.43)
	dc.FillPreserve()
	dc.SetRGBA(1, 1, 1, 0.1)
	dc.SetLineWidth(strokeWidth)
	dc.Stroke()

	shadow(img, shaped, face, l)

	dc.SetFontFace(face)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(shaped, l.TextX, l.TextY)
	return l, nil
}

// shadow draws the blurred text shadow on a layer covering the backdrop and
// composites it over img.
func shadow(img *image.RGBA, shaped string, face font.Face, l Layout) {
	margin := int(2 * ShadowRadius)
	r := l.Rect().Inset(-margin).Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	layer := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	dc := gg.NewContextForRGBA(layer)
	dc.SetFontFace(face)
	dc.SetRGBA(0, 0, 0, 0.8)
	dc.DrawString(shaped, l.TextX-float64(r.Min.X), l.TextY-float64(r.Min.Y))

	blurred := blur.Gaussian(layer, ShadowRadius)
	draw.Draw(img, r, blurred, blurred.Bounds().Min, draw.Over)
}

// roundRect traces a rectangle whose corners are quadratic curves of radius r.
func roundRect(dc *gg.Context, x, y, w, h, r float64) {
	dc.NewSubPath()
	dc.MoveTo(x+r, y)
	dc.LineTo(x+w-r, y)
	dc.QuadraticTo(x+w, y, x+w, y+r)
	dc.LineTo(x+w, y+h-r)
	dc.QuadraticTo(x+w, y+h, x+w-r, y+h)
	dc.LineTo(x+r, y+h)
	dc.QuadraticTo(x, y+h, x, y+h-r)
	dc.LineTo(x, y+r)
	dc.QuadraticTo(x, y, x+r, y)
	dc.ClosePath()
}
