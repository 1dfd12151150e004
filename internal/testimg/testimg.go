// Package testimg builds small in-memory photos for tests.
package testimg

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
)

// Field is an ASCII EXIF field.
type Field struct {
	Tag   uint16
	Value string
}

// ByteOrder is satisfied by binary.LittleEndian and binary.BigEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// EXIF describes the TIFF structure placed in an APP1 segment.
type EXIF struct {
	Order       ByteOrder
	IFD0        []Field
	Sub         []Field // written to an Exif sub-IFD when non-empty
	Orientation uint16  // written to IFD0 when non-zero
}

// Solid returns an opaque w x h image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// Gradient returns an opaque image whose red channel ramps left to right and
// green channel ramps top to bottom.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// JPEG encodes img at quality 90.
func JPEG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WithEXIF inserts an APP1 EXIF segment right after the SOI marker of jpg.
func WithEXIF(jpg []byte, e EXIF) []byte {
	out := []byte{jpg[0], jpg[1]}
	out = append(out, APP1(e)...)
	return append(out, jpg[2:]...)
}

// APP1 returns a complete APP1 segment, marker included.
func APP1(e EXIF) []byte {
	payload := append([]byte("Exif\x00\x00"), TIFF(e)...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

// TIFF returns the TIFF structure for e.
func TIFF(e EXIF) []byte {
	var bo ByteOrder = binary.LittleEndian
	if e.Order != nil {
		bo = e.Order
	}

	n0 := len(e.IFD0)
	if len(e.Sub) > 0 {
		n0++
	}
	if e.Orientation != 0 {
		n0++
	}
	ifd0 := 8
	sub := ifd0 + 2 + 12*n0 + 4
	data := sub
	if len(e.Sub) > 0 {
		data += 2 + 12*len(e.Sub) + 4
	}

	var values []byte
	entry := func(tag uint16, v string) []byte {
		b := make([]byte, 12)
		bo.PutUint16(b, tag)
		bo.PutUint16(b[2:], 2) // ASCII
		bo.PutUint32(b[4:], uint32(len(v)+1))
		bo.PutUint32(b[8:], uint32(data+len(values)))
		values = append(values, v...)
		values = append(values, 0)
		return b
	}

	out := make([]byte, 8)
	if bo == binary.LittleEndian {
		copy(out, "II")
	} else {
		copy(out, "MM")
	}
	bo.PutUint16(out[2:], 42)
	bo.PutUint32(out[4:], uint32(ifd0))

	out = bo.AppendUint16(out, uint16(n0))
	if e.Orientation != 0 {
		b := make([]byte, 12)
		bo.PutUint16(b, 0x0112)
		bo.PutUint16(b[2:], 3) // SHORT
		bo.PutUint32(b[4:], 1)
		bo.PutUint16(b[8:], e.Orientation)
		out = append(out, b...)
	}
	for _, f := range e.IFD0 {
		out = append(out, entry(f.Tag, f.Value)...)
	}
	if len(e.Sub) > 0 {
		b := make([]byte, 12)
		bo.PutUint16(b, 0x8769)
		bo.PutUint16(b[2:], 4) // LONG
		bo.PutUint32(b[4:], 1)
		bo.PutUint32(b[8:], uint32(sub))
		out = append(out, b...)
	}
	out = bo.AppendUint32(out, 0)

	if len(e.Sub) > 0 {
		out = bo.AppendUint16(out, uint16(len(e.Sub)))
		for _, f := range e.Sub {
			out = append(out, entry(f.Tag, f.Value)...)
		}
		out = bo.AppendUint32(out, 0)
	}

	return append(out, values...)
}
