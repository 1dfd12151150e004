package mohr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tstromberg/mohr/internal/testimg"
	"github.com/tstromberg/mohr/pkg/caption"
	"github.com/tstromberg/mohr/pkg/jalali"
	"golang.org/x/image/font/gofont/goregular"
)

var nowruz = time.Date(2024, 3, 20, 9, 5, 0, 0, time.UTC)

func newProcessor(t *testing.T, mod func(*Config)) *Processor {
	t.Helper()
	c := Defaults()
	c.OutDir = t.TempDir()
	c.Timezone = "UTC"
	if mod != nil {
		mod(c)
	}

	f, err := caption.ParseFont("goregular", goregular.TTF)
	if err != nil {
		t.Fatalf("ParseFont: %v", err)
	}
	p, err := New(c, f)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.now = func() time.Time { return nowruz }
	t.Cleanup(func() { p.Close() })
	return p
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		w, h, limit int
		wantW       int
		wantH       int
	}{
		{4096, 3000, 4096, 4096, 3000},
		{3000, 4096, 4096, 3000, 4096},
		{8192, 6000, 4096, 4096, 3000},
		{5000, 3000, 4096, 4096, 2457},
		{3000, 5000, 4096, 2457, 4096},
		{5000, 5000, 4096, 4096, 4096},
		{640, 480, 4096, 640, 480},
		{1000, 1, 64, 64, 0},
	}
	for _, tt := range tests {
		w, h := targetSize(tt.w, tt.h, tt.limit)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("targetSize(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.limit, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestPreviewSize(t *testing.T) {
	tests := []struct {
		w, h, pw, ph int
		wantW        int
		wantH        int
	}{
		{4096, 3000, 400, 400, 400, 292},
		{3000, 4096, 400, 400, 292, 400},
		{300, 200, 400, 400, 300, 200},
		{800, 800, 400, 400, 400, 400},
		{1000, 2, 400, 400, 400, 1},
		{2, 5000, 400, 400, 1, 400},
	}
	for _, tt := range tests {
		w, h := previewSize(tt.w, tt.h, tt.pw, tt.ph)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("previewSize(%d, %d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.pw, tt.ph, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestProcess(t *testing.T) {
	p := newProcessor(t, func(c *Config) {
		c.MaxDimension = 64
		c.PreviewWidth = 32
		c.PreviewHeight = 32
	})

	s, err := p.Process(testimg.Gradient(128, 96), nowruz)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got := s.Full.Bounds(); got != image.Rect(0, 0, 64, 48) {
		t.Errorf("full bounds = %v, want 64x48", got)
	}
	if got := s.Preview.Bounds(); got != image.Rect(0, 0, 32, 24) {
		t.Errorf("preview bounds = %v, want 32x24", got)
	}
	if !s.Resized() || s.SourceWidth != 128 || s.SourceHeight != 96 {
		t.Errorf("source %dx%d, resized %v", s.SourceWidth, s.SourceHeight, s.Resized())
	}
	if s.Caption != "چهارشنبه  ۱۴۰۳/۱/۱  ۰۹:۰۵" {
		t.Errorf("caption = %q", s.Caption)
	}
	if diff := cmp.Diff(jalali.Date{Year: 1403, Month: 1, Day: 1}, s.Date); diff != "" {
		t.Errorf("date mismatch (-want +got):\n%s", diff)
	}
	if len(s.Stages) != 3 {
		t.Errorf("stages = %v, want 3", s.Stages)
	}
	for i, px := range s.Full.Pix {
		if i%4 == 3 && px != 255 {
			t.Fatalf("alpha at %d = %d, want opaque", i/4, px)
		}
	}

	var buf bytes.Buffer
	if err := s.WriteJPEG(&buf); err != nil {
		t.Fatalf("WriteJPEG: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("output %dx%d, want 64x48", cfg.Width, cfg.Height)
	}
}

func TestProcessPreviewIsACopy(t *testing.T) {
	p := newProcessor(t, nil)

	s, err := p.Process(testimg.Gradient(40, 30), nowruz)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if s.Preview.Bounds() != s.Full.Bounds() {
		t.Fatalf("preview %v, want %v", s.Preview.Bounds(), s.Full.Bounds())
	}
	s.Preview.Pix[0] ^= 0xFF
	if s.Preview.Pix[0] == s.Full.Pix[0] {
		t.Error("preview shares pixels with the full image")
	}
}

func TestProcessTransparentSource(t *testing.T) {
	p := newProcessor(t, func(c *Config) {
		c.Filters.Dehaze = 0
		c.Filters.Clarity = 0
		c.Filters.Saturation = 1
	})

	s, err := p.Process(image.NewNRGBA(image.Rect(0, 0, 200, 200)), nowruz)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := s.Full.RGBAAt(0, 0); got.R != 0 || got.A != 255 {
		t.Errorf("transparent pixel = %v, want opaque black", got)
	}
}

func TestProcessErrors(t *testing.T) {
	p := newProcessor(t, func(c *Config) { c.MaxDimension = 64 })

	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil", nil},
		{"empty", image.NewRGBA(image.Rectangle{})},
		{"scales to nothing", testimg.Gradient(1000, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Process(tt.img, nowruz); !errors.Is(err, ErrEmptyImage) {
				t.Errorf("Process() error = %v, want ErrEmptyImage", err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	p := newProcessor(t, func(c *Config) { c.MaxBytes = 1 << 20 })

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, testimg.Gradient(20, 10)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		file    string
		data    []byte
		want    image.Rectangle
		wantErr error
	}{
		{name: "png", file: "a.png", data: pngBuf.Bytes(), want: image.Rect(0, 0, 20, 10)},
		{name: "jpeg", file: "a.jpg", data: testimg.JPEG(testimg.Gradient(16, 8)), want: image.Rect(0, 0, 16, 8)},
		{
			name: "rotated jpeg",
			file: "r.jpg",
			data: testimg.WithEXIF(testimg.JPEG(testimg.Gradient(16, 8)), testimg.EXIF{Orientation: 6}),
			want: image.Rect(0, 0, 8, 16),
		},
		{
			name: "mirrored jpeg",
			file: "m.jpg",
			data: testimg.WithEXIF(testimg.JPEG(testimg.Gradient(16, 8)), testimg.EXIF{Orientation: 2}),
			want: image.Rect(0, 0, 16, 8),
		},
		{name: "too large", file: "big.jpg", data: make([]byte, 1<<20+1), wantErr: ErrTooLarge},
		{name: "heic by name", file: "IMG_0001.HEIC", data: []byte("whatever"), wantErr: ErrHEIC},
		{name: "heic by content", file: "upload", data: []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), wantErr: ErrHEIC},
		{name: "text", file: "notes.jpg", data: []byte("this is not a photo"), wantErr: ErrUnsupported},
		{name: "empty", file: "empty.jpg", data: nil, wantErr: ErrEmptyImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := p.Decode(context.Background(), tt.file, tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Bounds() != tt.want {
				t.Errorf("bounds = %v, want %v", img.Bounds(), tt.want)
			}
		})
	}
}

func TestDecodeTimeout(t *testing.T) {
	p := newProcessor(t, func(c *Config) { c.DecodeTimeout = time.Nanosecond })

	var buf bytes.Buffer
	if err := png.Encode(&buf, testimg.Gradient(1500, 1500)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Decode(context.Background(), "slow.png", buf.Bytes()); !errors.Is(err, ErrDecodeTimeout) {
		t.Errorf("Decode() error = %v, want ErrDecodeTimeout", err)
	}
}

func TestIsHEIC(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"photo.heic", "", true},
		{"photo.HEIF", "", true},
		{"photo.jpg", "\xff\xd8\xff\xe0", false},
		{"", "\x00\x00\x00\x1cftypmif1", true},
		{"", "\x00\x00\x00\x1cftypisom", false},
	}
	for _, tt := range tests {
		if got := isHEIC(tt.name, []byte(tt.data)); got != tt.want {
			t.Errorf("isHEIC(%q, %q) = %v, want %v", tt.name, tt.data, got, tt.want)
		}
	}
}
