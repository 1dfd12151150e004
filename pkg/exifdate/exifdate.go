// Package exifdate finds the capture time embedded in a JPEG's EXIF block.
package exifdate

import (
	"encoding/binary"
	"time"

	"k8s.io/klog/v2"
)

// HeadSize is how much of a file is inspected. EXIF lives in the header
// segments, so 64KB covers virtually every camera and phone.
const HeadSize = 64 * 1024

// Layout is the EXIF date-time format.
var Layout = "2006:01:02 15:04:05"

const (
	markerSOI  = 0xFFD8
	markerAPP1 = 0xFFE1
	markerSOS  = 0xFFDA

	tagDateTime         = 0x0132
	tagDateTimeOriginal = 0x9003
	tagExifIFD          = 0x8769

	dateLen  = 19
	entryLen = 12
)

var exifHeader = []byte("Exif\x00\x00")

// Extract returns the original capture time in the local time zone.
func Extract(b []byte) (time.Time, bool) {
	return ExtractIn(b, time.Local)
}

// ExtractIn returns the capture time recorded in b, interpreted in loc. EXIF
// stores wall-clock time without a zone. The second result is false when b is
// not a JPEG, has no EXIF date, or is malformed; the cases are not told apart.
func ExtractIn(b []byte, loc *time.Location) (time.Time, bool) {
	if len(b) > HeadSize {
		b = b[:HeadSize]
	}
	if len(b) < 4 || binary.BigEndian.Uint16(b) != markerSOI {
		klog.V(2).Infof("no JPEG start-of-image marker")
		return time.Time{}, false
	}

	off := 2
	for off+4 <= len(b) {
		marker := binary.BigEndian.Uint16(b[off:])
		if marker>>8 != 0xFF || marker == markerSOS {
			return time.Time{}, false
		}

		segLen := int(binary.BigEndian.Uint16(b[off+2:]))
		if segLen <= 8 {
			klog.V(2).Infof("segment 0x%04X at %d has length %d: giving up", marker, off, segLen)
			return time.Time{}, false
		}

		start := off + 4
		end := off + 2 + segLen

		// a large APP1 may run past the inspected head; its date usually does not
		if marker == markerAPP1 {
			if t, ok := parseAPP1(b[start:min(end, len(b))], loc); ok {
				return t, true
			}
		}
		off = end
	}

	return time.Time{}, false
}

// parseAPP1 reads an APP1 payload: the Exif header followed by a TIFF structure.
func parseAPP1(seg []byte, loc *time.Location) (time.Time, bool) {
	if len(seg) < len(exifHeader)+8 || string(seg[:len(exifHeader)]) != string(exifHeader) {
		// XMP and other APP1 payloads share the marker
		return time.Time{}, false
	}

	tiff := seg[len(exifHeader):]
	var bo binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return time.Time{}, false
	}
	if bo.Uint16(tiff[2:]) != 42 {
		return time.Time{}, false
	}

	r := &reader{tiff: tiff, bo: bo, loc: loc}
	t, sub, ok := r.scan(int(bo.Uint32(tiff[4:])))
	if ok {
		return t, true
	}
	if sub > 0 {
		t, _, ok = r.scan(sub)
		return t, ok
	}
	return time.Time{}, false
}

type reader struct {
	tiff []byte
	bo   binary.ByteOrder
	loc  *time.Location
}

// scan walks the IFD at off. It returns the first date it can parse, and the
// Exif sub-IFD offset if the directory points to one.
func (r *reader) scan(off int) (time.Time, int, bool) {
	if off <= 0 || off+2 > len(r.tiff) {
		return time.Time{}, 0, false
	}

	sub := 0
	n := int(r.bo.Uint16(r.tiff[off:]))
	for i := 0; i < n; i++ {
		e := off + 2 + i*entryLen
		if e+entryLen > len(r.tiff) {
			break
		}

		switch r.bo.Uint16(r.tiff[e:]) {
		case tagDateTimeOriginal, tagDateTime:
			if t, ok := r.date(int(r.bo.Uint32(r.tiff[e+8:]))); ok {
				return t, 0, true
			}
		case tagExifIFD:
			sub = int(r.bo.Uint32(r.tiff[e+8:]))
		}
	}

	return time.Time{}, sub, false
}

// date reads a NUL-terminated "YYYY:MM:DD HH:MM:SS" value at off.
func (r *reader) date(off int) (time.Time, bool) {
	if off <= 0 || off >= len(r.tiff) {
		return time.Time{}, false
	}

	end := min(off+dateLen, len(r.tiff))
	raw := r.tiff[off:end]
	for i, c := range raw {
		if c == 0 {
			raw = raw[:i]
			break
		}
	}
	if len(raw) != dateLen {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(Layout, string(raw), r.loc)
	if err != nil {
		klog.V(1).Infof("unparseable EXIF date %q: %v", raw, err)
		return time.Time{}, false
	}
	return t, true
}
