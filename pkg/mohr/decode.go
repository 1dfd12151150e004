package mohr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/transform"
	"github.com/tstromberg/mohr/pkg/exifdate"
	_ "golang.org/x/image/webp"
	"k8s.io/klog/v2"
)

// Input errors. They are fatal to a stamping run and safe to show to users.
var (
	ErrTooLarge      = errors.New("file is too large")
	ErrHEIC          = errors.New("HEIC/HEIF photos are not supported: set the camera to save JPEG (Most Compatible) and try again")
	ErrUnsupported   = errors.New("not a supported image: use JPEG, PNG, GIF or WebP")
	ErrEmptyImage    = errors.New("image has no pixels")
	ErrDecodeTimeout = errors.New("image took too long to decode")
)

var heifBrands = []string{"heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1"}

// isHEIC reports whether name or the ISO-BMFF ftyp box marks data as HEIC/HEIF.
func isHEIC(name string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".heic", ".heif":
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	for _, b := range heifBrands {
		if brand == b {
			return true
		}
	}
	return false
}

type decoded struct {
	img    image.Image
	format string
	err    error
}

// Decode turns file contents into an upright image. name is only used to
// recognize HEIC files and may be empty.
func (p *Processor) Decode(ctx context.Context, name string, data []byte) (image.Image, error) {
	if int64(len(data)) > p.c.MaxBytes {
		return nil, fmt.Errorf("%d bytes exceeds %d: %w", len(data), p.c.MaxBytes, ErrTooLarge)
	}
	if isHEIC(name, data) {
		return nil, ErrHEIC
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	ctx, cancel := context.WithTimeout(ctx, p.c.DecodeTimeout)
	defer cancel()

	ch := make(chan decoded, 1)
	go func() {
		img, format, err := image.Decode(bytes.NewReader(data))
		ch <- decoded{img: img, format: format, err: err}
	}()

	var d decoded
	select {
	case d = <-ch:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("after %s: %w", p.c.DecodeTimeout, ErrDecodeTimeout)
		}
		return nil, ctx.Err()
	}

	if d.err != nil {
		if errors.Is(d.err, image.ErrFormat) {
			return nil, ErrUnsupported
		}
		return nil, fmt.Errorf("decode %s: %w", d.format, d.err)
	}
	if d.img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	klog.V(1).Infof("decoded %s %s: %v", name, d.format, d.img.Bounds())

	if d.format == "jpeg" {
		return orient(d.img, exifdate.Orientation(data)), nil
	}
	return d.img, nil
}

// orient applies an EXIF orientation (1-8) so the image displays upright.
func orient(img image.Image, o int) image.Image {
	rotate := func(img image.Image, angle float64) image.Image {
		return transform.Rotate(img, angle, &transform.RotationOptions{ResizeBounds: true})
	}

	klog.V(2).Infof("orientation %d", o)
	switch o {
	case 2:
		return transform.FlipH(img)
	case 3:
		return rotate(img, 180)
	case 4:
		return transform.FlipV(img)
	case 5:
		return transform.FlipH(rotate(img, 90))
	case 6:
		return rotate(img, 90)
	case 7:
		return transform.FlipH(rotate(img, 270))
	case 8:
		return rotate(img, 270)
	default:
		return img
	}
}
