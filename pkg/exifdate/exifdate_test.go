package exifdate

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"testing"
	"time"

	"github.com/tstromberg/mohr/internal/testimg"
)

var photo = testimg.JPEG(testimg.Solid(16, 16, color.Gray{Y: 100}))

func TestExtract(t *testing.T) {
	want := time.Date(2023, 11, 30, 14, 25, 30, 0, time.UTC)

	tests := []struct {
		name string
		exif testimg.EXIF
		ok   bool
	}{
		{
			name: "little endian original",
			exif: testimg.EXIF{Order: binary.LittleEndian, IFD0: []testimg.Field{{Tag: 0x9003, Value: "2023:11:30 14:25:30"}}},
			ok:   true,
		},
		{
			name: "big endian original",
			exif: testimg.EXIF{Order: binary.BigEndian, IFD0: []testimg.Field{{Tag: 0x9003, Value: "2023:11:30 14:25:30"}}},
			ok:   true,
		},
		{
			name: "modification time",
			exif: testimg.EXIF{IFD0: []testimg.Field{{Tag: 0x0132, Value: "2023:11:30 14:25:30"}}},
			ok:   true,
		},
		{
			name: "first match wins",
			exif: testimg.EXIF{IFD0: []testimg.Field{
				{Tag: 0x0132, Value: "2023:11:30 14:25:30"},
				{Tag: 0x9003, Value: "2001:01:01 00:00:00"},
			}},
			ok: true,
		},
		{
			name: "exif sub-directory",
			exif: testimg.EXIF{
				Order: binary.BigEndian,
				IFD0:  []testimg.Field{{Tag: 0x010F, Value: "Canon"}},
				Sub:   []testimg.Field{{Tag: 0x9003, Value: "2023:11:30 14:25:30"}},
			},
			ok: true,
		},
		{
			name: "short value",
			exif: testimg.EXIF{IFD0: []testimg.Field{{Tag: 0x9003, Value: "2023:11:30"}}},
		},
		{
			name: "garbage value",
			exif: testimg.EXIF{IFD0: []testimg.Field{{Tag: 0x9003, Value: "0000:00:00 00:00:00"}}},
		},
		{
			name: "no date tags",
			exif: testimg.EXIF{IFD0: []testimg.Field{{Tag: 0x010F, Value: "Canon"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testimg.WithEXIF(photo, tt.exif)
			got, ok := ExtractIn(b, time.UTC)
			if ok != tt.ok {
				t.Fatalf("ExtractIn() ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(want) {
				t.Errorf("ExtractIn() = %v, want %v", got, want)
			}
		})
	}
}

func TestExtractUsesLocation(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	b := testimg.WithEXIF(photo, testimg.EXIF{IFD0: []testimg.Field{{Tag: 0x9003, Value: "2024:03:20 09:05:00"}}})

	got, ok := ExtractIn(b, tehran)
	if !ok {
		t.Fatal("ExtractIn() found no date")
	}
	if got.Hour() != 9 || got.Minute() != 5 || got.Location() != tehran {
		t.Errorf("ExtractIn() = %v, want 09:05 IRST", got)
	}
}

func TestExtractAbsent(t *testing.T) {
	date := testimg.EXIF{IFD0: []testimg.Field{{Tag: 0x9003, Value: "2023:11:30 14:25:30"}}}

	xmp := []byte{0xFF, 0xE1, 0, 0}
	payload := []byte("http://ns.adobe.com/xap/1.0/\x00<x:xmpmeta/>")
	binary.BigEndian.PutUint16(xmp[2:], uint16(len(payload)+2))
	xmp = append(xmp, payload...)

	badOrder := testimg.APP1(date)
	copy(badOrder[10:], "XX")

	tests := []struct {
		name string
		b    []byte
	}{
		{"empty", nil},
		{"png", []byte("\x89PNG\r\n\x1a\n0000000000000000")},
		{"plain jpeg", photo},
		{"xmp only", splice(photo, xmp)},
		{"short segment length", splice(photo, []byte{0xFF, 0xE0, 0x00, 0x08, 0, 0, 0, 0, 0, 0})},
		{"bad byte order", splice(photo, badOrder)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := ExtractIn(tt.b, time.UTC); ok {
				t.Errorf("ExtractIn() = %v, want absent", got)
			}
		})
	}
}

func TestExtractSkipsXMP(t *testing.T) {
	xmp := []byte{0xFF, 0xE1, 0, 0}
	payload := []byte("http://ns.adobe.com/xap/1.0/\x00<x:xmpmeta/>")
	binary.BigEndian.PutUint16(xmp[2:], uint16(len(payload)+2))
	xmp = append(xmp, payload...)

	b := testimg.WithEXIF(photo, testimg.EXIF{IFD0: []testimg.Field{{Tag: 0x9003, Value: "2023:11:30 14:25:30"}}})
	b = splice(b, xmp)

	if _, ok := ExtractIn(b, time.UTC); !ok {
		t.Error("ExtractIn() did not look past the XMP segment")
	}
}

func TestExtractHeadLimit(t *testing.T) {
	date := testimg.EXIF{IFD0: []testimg.Field{{Tag: 0x9003, Value: "2023:11:30 14:25:30"}}}

	tests := []struct {
		name string
		pad  int
		ok   bool
	}{
		{"small padding", 1000, true},
		{"padding past the head", 65533, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testimg.WithEXIF(photo, date)
			b = splice(b, app2(tt.pad))
			if _, ok := ExtractIn(b, time.UTC); ok != tt.ok {
				t.Errorf("ExtractIn() ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want int
	}{
		{"none", photo, 1},
		{"not a jpeg", []byte("hello"), 1},
		{"rotated", testimg.WithEXIF(photo, testimg.EXIF{Orientation: 6}), 6},
		{"big endian", testimg.WithEXIF(photo, testimg.EXIF{Order: binary.BigEndian, Orientation: 3}), 3},
		{"out of range", testimg.WithEXIF(photo, testimg.EXIF{Orientation: 42}), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Orientation(tt.b); got != tt.want {
				t.Errorf("Orientation() = %d, want %d", got, tt.want)
			}
		})
	}
}

// splice inserts seg right after the SOI marker.
func splice(jpg, seg []byte) []byte {
	var buf bytes.Buffer
	buf.Write(jpg[:2])
	buf.Write(seg)
	buf.Write(jpg[2:])
	return buf.Bytes()
}

// app2 returns an APP2 segment whose length field is n.
func app2(n int) []byte {
	seg := make([]byte, n+2)
	seg[0], seg[1] = 0xFF, 0xE2
	binary.BigEndian.PutUint16(seg[2:], uint16(n))
	return seg
}
