package mohr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// Summary counts the outcome of a batch run.
type Summary struct {
	Stamped int
	Skipped int
	Failed  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d stamped, %d up to date, %d failed", s.Stamped, s.Skipped, s.Failed)
}

// StampFile stamps the photo at path and exports it. It returns the output path.
func (p *Processor) StampFile(ctx context.Context, path string) (*Session, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read: %w", err)
	}

	s, err := p.Stamp(ctx, Request{Name: filepath.Base(path), Path: path, Data: data})
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	klog.V(1).Infof("%s taken %s (%s)", path, s.Taken, s.Source)

	out, err := p.Export(s, OutputName(path))
	if err != nil {
		return s, "", fmt.Errorf("export %s: %w", path, err)
	}
	return s, out, nil
}

// Batch stamps every photo under root whose output is missing or out of date.
// Failures are logged and counted; only cancellation stops the run.
func (p *Processor) Batch(ctx context.Context, root string) (Summary, error) {
	var sum Summary

	paths, err := Find(root)
	if err != nil {
		return sum, fmt.Errorf("find: %w", err)
	}
	klog.Infof("found %d photos in %s", len(paths), root)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		if !Stale(path, filepath.Join(p.c.OutDir, OutputName(path))) {
			sum.Skipped++
			continue
		}

		if _, _, err := p.StampFile(ctx, path); err != nil {
			klog.Errorf("stamp failed: %v", err)
			sum.Failed++
			continue
		}
		sum.Stamped++
	}

	klog.Infof("%s: %s", root, sum)
	return sum, nil
}
