package mohr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/barasher/go-exiftool"
	"github.com/otiai10/copy"
	"github.com/tstromberg/mohr/pkg/exifdate"
	"k8s.io/klog/v2"
)

const (
	outputSuffix  = "-mohr"
	previewSuffix = "@preview"
)

// OutputName is the file name a stamped copy of in is saved as.
func OutputName(in string) string {
	base := filepath.Base(in)
	return strings.TrimSuffix(base, filepath.Ext(base)) + outputSuffix + ".jpg"
}

// PreviewName is the file name of the preview saved next to out.
func PreviewName(out string) string {
	return strings.TrimSuffix(out, ".jpg") + previewSuffix + ".jpg"
}

// IsOutput reports whether path looks like something mohr wrote.
func IsOutput(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.TrimSuffix(base, previewSuffix)
	return strings.HasSuffix(base, outputSuffix)
}

// Export saves a session as name in the output directory and returns its path.
// The file is then copied to every share directory.
func (p *Processor) Export(s *Session, name string) (string, error) {
	if err := os.MkdirAll(p.c.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	out := filepath.Join(p.c.OutDir, name)
	if err := imgio.Save(out, s.Full, imgio.JPEGEncoder(Quality)); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	klog.Infof("wrote %s (%dx%d, %s)", out, s.Full.Bounds().Dx(), s.Full.Bounds().Dy(), s.Caption)

	if p.et != nil {
		if err := p.writeDate(out, s); err != nil {
			klog.Warningf("unable to record capture time in %s: %v", out, err)
		}
	}

	if p.c.Preview && s.Preview != nil {
		pv := PreviewName(out)
		if err := imgio.Save(pv, s.Preview, imgio.JPEGEncoder(Quality)); err != nil {
			return "", fmt.Errorf("save preview: %w", err)
		}
		klog.V(1).Infof("wrote %s", pv)
	}

	for _, d := range p.c.ShareDirs {
		dest := filepath.Join(d, name)
		if err := copy.Copy(out, dest); err != nil {
			return "", fmt.Errorf("copy: %w", err)
		}
		klog.V(1).Infof("shared %s", dest)
	}

	return out, nil
}

// writeDate records the stamped time as the output's DateTimeOriginal.
func (p *Processor) writeDate(path string, s *Session) error {
	fm := exiftool.EmptyFileMetadata()
	fm.File = path
	fm.SetString("DateTimeOriginal", s.Taken.Format(exifdate.Layout))

	fms := []exiftool.FileMetadata{fm}
	p.et.WriteMetadata(fms)
	return fms[0].Err
}
