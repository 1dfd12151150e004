package mohr

import (
	"os"
	"time"

	"github.com/tstromberg/mohr/pkg/exifdate"
	"k8s.io/klog/v2"
)

// Source names where a capture time came from.
type Source string

const (
	SourceEXIF     Source = "exif"
	SourceExiftool Source = "exiftool"
	SourceModTime  Source = "modtime"
	SourceNow      Source = "now"
)

// CaptureTime picks the time to stamp on a photo using the configured mode.
// path may be empty for photos that do not live on disk.
func (p *Processor) CaptureTime(path string, data []byte) (time.Time, Source) {
	return p.captureTime(p.c.Mode, path, data)
}

func (p *Processor) captureTime(mode, path string, data []byte) (time.Time, Source) {
	if mode == ModeNow {
		return p.now().In(p.loc), SourceNow
	}

	if t, ok := exifdate.ExtractIn(data, p.loc); ok {
		return t, SourceEXIF
	}
	klog.V(1).Infof("%s: no EXIF date", path)

	if path == "" {
		return p.now().In(p.loc), SourceNow
	}

	if p.et != nil {
		if t, ok := p.exiftoolTime(path); ok {
			return t, SourceExiftool
		}
	}

	fi, err := os.Stat(path)
	if err == nil {
		return fi.ModTime().In(p.loc), SourceModTime
	}
	klog.Warningf("stat %s: %v", path, err)
	return p.now().In(p.loc), SourceNow
}

func (p *Processor) exiftoolTime(path string) (time.Time, bool) {
	fi := p.et.ExtractMetadata(path)[0]
	if fi.Err != nil {
		klog.V(1).Infof("exiftool %s: %v", path, fi.Err)
		return time.Time{}, false
	}

	for _, k := range []string{"DateTimeOriginal", "CreateDate", "DateCreated"} {
		ds, err := fi.GetString(k)
		if err != nil {
			continue
		}
		// sub-second and zone suffixes follow the first 19 characters
		if len(ds) > len(exifdate.Layout) {
			ds = ds[:len(exifdate.Layout)]
		}
		t, err := time.ParseInLocation(exifdate.Layout, ds, p.loc)
		if err != nil {
			klog.V(1).Infof("exiftool %s %s=%q: %v", path, k, ds, err)
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
