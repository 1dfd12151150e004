// Package mohr stamps photos with their Persian capture date.
package mohr

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/barasher/go-exiftool"
	"github.com/tstromberg/mohr/pkg/caption"
	"github.com/tstromberg/mohr/pkg/enhance"
	"github.com/tstromberg/mohr/pkg/jalali"
	"k8s.io/klog/v2"
)

// Processor runs the stamping pipeline. It is safe for concurrent use; runs
// are serialized.
type Processor struct {
	c        *Config
	faces    caption.FaceSource
	baseline caption.Baseline
	loc      *time.Location
	et       *exiftool.Exiftool
	now      func() time.Time

	mu sync.Mutex
}

// New returns a Processor for c. If faces is nil, the configured font (or an
// installed default) is loaded.
func New(c *Config, faces caption.FaceSource) (*Processor, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	bl, _ := caption.ParseBaseline(c.Baseline)
	loc, _ := c.Location()
	if faces == nil {
		faces = caption.Faces(c.Font)
	}

	p := &Processor{c: c, faces: faces, baseline: bl, loc: loc, now: time.Now}
	if c.Exiftool {
		et, err := exiftool.NewExiftool()
		if err != nil {
			return nil, fmt.Errorf("exiftool: %w", err)
		}
		p.et = et
	}
	return p, nil
}

// Close stops the exiftool process, if one was started.
func (p *Processor) Close() error {
	if p.et == nil {
		return nil
	}
	return p.et.Close()
}

// Config returns the configuration the processor was built with.
func (p *Processor) Config() *Config {
	return p.c
}

// Request is one photo to stamp.
type Request struct {
	// Name is used to recognize the format and may be empty.
	Name string
	// Path is where the photo lives on disk, if anywhere. It enables the
	// exiftool and modification-time fallbacks.
	Path string
	Data []byte
	// Mode overrides the configured capture-time mode when set.
	Mode string
}

// Stamp decodes, dates and processes a photo.
func (p *Processor) Stamp(ctx context.Context, r Request) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	img, err := p.Decode(ctx, r.Name, r.Data)
	if err != nil {
		return nil, err
	}

	mode := r.Mode
	if mode == "" {
		mode = p.c.Mode
	}
	taken, src := p.captureTime(mode, r.Path, r.Data)

	s, err := p.process(img, taken)
	if err != nil {
		return nil, err
	}
	s.Source = src
	return s, nil
}

// Process stamps src with the capture time taken.
func (p *Processor) Process(src image.Image, taken time.Time) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.process(src, taken)
}

func (p *Processor) process(src image.Image, taken time.Time) (*Session, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	w, h := targetSize(sw, sh, p.c.MaxDimension)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%dx%d scales to %dx%d: %w", sw, sh, w, h, ErrEmptyImage)
	}

	if w != sw || h != sh {
		klog.Infof("downscaling %dx%d to %dx%d", sw, sh, w, h)
		src = transform.Resize(src, w, h, transform.Lanczos)
	}

	full := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(full, full.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(full, full.Bounds(), src, src.Bounds().Min, draw.Over)

	stages := enhance.Apply(full, p.c.Filters)
	for _, st := range stages {
		klog.V(1).Infof("filter %s", st)
	}

	text := caption.Text(taken)
	l, err := caption.Render(full, text, caption.Options{Faces: p.faces, Baseline: p.baseline})
	if err != nil {
		return nil, fmt.Errorf("caption: %w", err)
	}
	klog.V(1).Infof("caption %q at %+v", text, l)

	pw, ph := previewSize(w, h, p.c.PreviewWidth, p.c.PreviewHeight)
	var preview *image.RGBA
	if pw == w && ph == h {
		preview = clone.AsRGBA(full)
	} else {
		preview = transform.Resize(full, pw, ph, transform.Linear)
	}

	return &Session{
		Full:         full,
		Preview:      preview,
		Caption:      text,
		Layout:       l,
		Taken:        taken,
		Date:         jalali.FromTime(taken),
		Stages:       stages,
		SourceWidth:  sw,
		SourceHeight: sh,
	}, nil
}

// targetSize fits w x h within limit on both sides, preserving aspect ratio.
// The long side becomes limit and the short side is floored.
func targetSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, h * limit / w
	}
	return w * limit / h, limit
}

// previewSize fits w x h within pw x ph without enlarging it. Sides are at
// least one pixel.
func previewSize(w, h, pw, ph int) (int, int) {
	if w <= pw && h <= ph {
		return w, h
	}
	// compare pw/w with ph/h without dividing
	if pw*h <= ph*w {
		return pw, max(h*pw/w, 1)
	}
	return max(w*ph/h, 1), ph
}
