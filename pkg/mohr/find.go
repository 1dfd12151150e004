package mohr

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var photoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsPhoto reports whether path names a photo that mohr can stamp.
func IsPhoto(path string) bool {
	return photoExts[strings.ToLower(filepath.Ext(path))] && !IsOutput(path)
}

// Find returns the photos under root, skipping dot files and directories.
func Find(root string) ([]string, error) {
	found := []string{}

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && strings.HasPrefix(filepath.Base(path), ".") {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}

			if !de.IsDir() && IsPhoto(path) {
				klog.V(1).Infof("found %s", path)
				found = append(found, path)
			}
			return nil
		},
	})

	return found, err
}

// Stale reports whether out is missing or older than in.
func Stale(in, out string) bool {
	ost, err := os.Stat(out)
	if err != nil {
		return true
	}

	ist, err := os.Stat(in)
	if err != nil {
		return true
	}

	if ist.ModTime().After(ost.ModTime()) {
		klog.V(1).Infof("updating %s: source newer", out)
		return true
	}
	return false
}
