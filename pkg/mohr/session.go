package mohr

import (
	"image"
	"io"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/tstromberg/mohr/pkg/caption"
	"github.com/tstromberg/mohr/pkg/enhance"
	"github.com/tstromberg/mohr/pkg/jalali"
)

// Session is the result of stamping one photo. It belongs to the caller.
type Session struct {
	// Full is the stamped image at output resolution.
	Full *image.RGBA
	// Preview is a reduced copy for display. It is never processed further.
	Preview *image.RGBA

	Caption string
	Layout  caption.Layout
	Taken   time.Time
	Source  Source
	Date    jalali.Date
	Stages  []enhance.StageResult

	SourceWidth  int
	SourceHeight int
}

// WriteJPEG encodes the full image.
func (s *Session) WriteJPEG(w io.Writer) error {
	return imgio.JPEGEncoder(Quality)(w, s.Full)
}

// WritePreview encodes the preview image.
func (s *Session) WritePreview(w io.Writer) error {
	return imgio.JPEGEncoder(Quality)(w, s.Preview)
}

// Resized reports whether the source was scaled down to fit.
func (s *Session) Resized() bool {
	b := s.Full.Bounds()
	return b.Dx() != s.SourceWidth || b.Dy() != s.SourceHeight
}
