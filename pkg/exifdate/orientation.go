package exifdate

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
	"k8s.io/klog/v2"
)

// Orientation returns the EXIF orientation (1-8) of a JPEG, or 1 if it has none.
func Orientation(b []byte) int {
	x, err := exif.Decode(bytes.NewReader(b))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		klog.V(2).Infof("exif decode: %v", err)
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		klog.V(1).Infof("ignoring orientation tag %v: %v", tag, err)
		return 1
	}
	return o
}
