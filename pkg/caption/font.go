package caption

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/karrick/godirwalk"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"k8s.io/klog/v2"
)

// DefaultFonts are searched for, in order, when no font is configured.
var DefaultFonts = []string{
	"Vazirmatn-Regular.ttf",
	"Vazirmatn.ttf",
	"Vazir.ttf",
	"Vazir-Regular.ttf",
	"NotoNaskhArabic-Regular.ttf",
	"NotoSansArabic-Regular.ttf",
	"DejaVuSans.ttf",
}

// ErrNoFont is returned when none of the requested fonts are installed.
var ErrNoFont = errors.New("no font found")

// FaceSource builds a font face for a pixel size. Faces are not safe for
// concurrent use, so callers ask for a new one per drawing.
type FaceSource interface {
	Face(size float64) font.Face
}

// Font is a parsed TrueType font.
type Font struct {
	Name string
	tt   *truetype.Font
}

// ParseFont parses TrueType data.
func ParseFont(name string, b []byte) (*Font, error) {
	tt, err := truetype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &Font{Name: name, tt: tt}, nil
}

// LoadFont reads and parses the TrueType font at path.
func LoadFont(path string) (*Font, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return ParseFont(filepath.Base(path), b)
}

// Face returns a face where one point is one pixel.
func (f *Font) Face(size float64) font.Face {
	return truetype.NewFace(f.tt, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

type basicSource struct{}

func (basicSource) Face(float64) font.Face { return basicfont.Face7x13 }

// Basic is a fixed-size bitmap face with no Persian glyphs.
var Basic FaceSource = basicSource{}

// FontDirs returns the system font directories for this platform.
func FontDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		return []string{`C:\Windows\Fonts`}
	case "darwin":
		return []string{"/System/Library/Fonts", "/Library/Fonts", filepath.Join(home, "Library/Fonts")}
	default:
		return []string{"/usr/share/fonts", "/usr/local/share/fonts", filepath.Join(home, ".fonts"), filepath.Join(home, ".local/share/fonts")}
	}
}

// FindFont searches dirs for the first of names, compared case-insensitively.
func FindFont(dirs []string, names ...string) (string, error) {
	found := map[string]string{}
	for _, d := range dirs {
		if _, err := os.Stat(d); err != nil {
			continue
		}
		err := godirwalk.Walk(d, &godirwalk.Options{
			Unsorted: true,
			Callback: func(path string, de *godirwalk.Dirent) error {
				if de.IsDir() {
					return nil
				}
				base := strings.ToLower(filepath.Base(path))
				if _, ok := found[base]; !ok {
					found[base] = path
				}
				return nil
			},
			ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
				klog.V(2).Infof("skipping %s: %v", path, err)
				return godirwalk.SkipNode
			},
		})
		if err != nil {
			klog.Warningf("walk %s: %v", d, err)
		}
	}

	for _, n := range names {
		if p, ok := found[strings.ToLower(n)]; ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrNoFont, strings.Join(names, ", "))
}

// Faces returns a face source for the font at path, or for the first default
// font installed when path is empty. Without either it falls back to Basic.
func Faces(path string) FaceSource {
	if path == "" {
		p, err := FindFont(FontDirs(), DefaultFonts...)
		if err != nil {
			klog.Warningf("%v: captions will use a bitmap font without Persian glyphs", err)
			return Basic
		}
		path = p
	}

	f, err := LoadFont(path)
	if err != nil {
		klog.Warningf("%v: captions will use a bitmap font without Persian glyphs", err)
		return Basic
	}
	klog.Infof("caption font: %s", path)
	return f
}
