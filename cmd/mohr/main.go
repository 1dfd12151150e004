package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/tstromberg/mohr/pkg/manage"
	"github.com/tstromberg/mohr/pkg/mohr"
	"k8s.io/klog/v2"
)

var (
	configPath   = flag.String("config", "", "path to a YAML configuration file")
	outDir       = flag.String("out", "", "directory to write stamped photos to")
	shareDirs    = flag.String("share", "", "comma-separated directories to copy stamped photos to")
	fontPath     = flag.String("font", "", "TrueType font with Persian glyphs (default: search for Vazirmatn)")
	mode         = flag.String("mode", "", "capture time: auto (photo metadata) or now (current time)")
	timezone     = flag.String("timezone", "", "IANA zone EXIF times are in (default: local)")
	preview      = flag.Bool("preview", false, "also write a reduced preview next to each output")
	baseline     = flag.String("baseline", "", "caption baseline: middle or alphabetic")
	useExiftool  = flag.Bool("exiftool", false, "use exiftool as a date source and record the date in outputs")
	watchFlag    = flag.Bool("watch", false, "watch directories for new photos and stamp them")
	listen       = flag.Bool("listen", false, "stamp photos posted via HTTP")
	addr         = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	maxDimension = flag.Int("max-dimension", 0, "downscale photos whose longer side exceeds this")
	dehaze       = flag.Float64("dehaze", 0, "dehaze strength")
	clarity      = flag.Float64("clarity", 0, "clarity strength (0 disables)")
	saturation   = flag.Float64("saturation", 0, "saturation boost (1 disables)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	c, err := config()
	if err != nil {
		klog.Exitf("config: %v", err)
	}

	if flag.NArg() == 0 && !*listen {
		klog.Exitf("usage: mohr [flags] <file|dir>...")
	}

	p, err := mohr.New(c, nil)
	if err != nil {
		klog.Exitf("setup failed: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	dirs := []string{}
	failed := false
	for _, arg := range flag.Args() {
		fi, err := os.Stat(arg)
		if err != nil {
			klog.Errorf("%v", err)
			failed = true
			continue
		}

		if fi.IsDir() {
			dirs = append(dirs, arg)
			sum, err := p.Batch(ctx, arg)
			if err != nil {
				klog.Exitf("batch failed: %v", err)
			}
			failed = failed || sum.Failed > 0
			continue
		}

		if _, out, err := p.StampFile(ctx, arg); err != nil {
			klog.Errorf("stamp failed: %v", err)
			failed = true
		} else {
			fmt.Println(out)
		}
	}

	var wg sync.WaitGroup
	if *watchFlag {
		if len(dirs) == 0 {
			klog.Exitf("--watch requires at least one directory")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(ctx, p, dirs); err != nil {
				klog.Exitf("watch failed: %v", err)
			}
		}()
	}

	if *listen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(p, *addr)
		}()
	}

	wg.Wait()
	if failed {
		os.Exit(1)
	}
}

// config loads the configuration file, if any, and applies flags set on the command line.
func config() (*mohr.Config, error) {
	c := mohr.Defaults()
	if *configPath != "" {
		var err error
		c, err = mohr.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			c.OutDir = *outDir
		case "share":
			c.ShareDirs = strings.Split(*shareDirs, ",")
		case "font":
			c.Font = *fontPath
		case "mode":
			c.Mode = *mode
		case "timezone":
			c.Timezone = *timezone
		case "preview":
			c.Preview = *preview
		case "baseline":
			c.Baseline = *baseline
		case "exiftool":
			c.Exiftool = *useExiftool
		case "max-dimension":
			c.MaxDimension = *maxDimension
		case "dehaze":
			c.Filters.Dehaze = *dehaze
		case "clarity":
			c.Filters.Clarity = *clarity
		case "saturation":
			c.Filters.Saturation = *saturation
		}
	})

	if c.OutDir == "" {
		return nil, fmt.Errorf("--out (or out_dir) is required")
	}
	return c, c.Validate()
}

// serve stamps photos posted via HTTP
func serve(p *mohr.Processor, addr string) {
	klog.Infof("Listening on %s...", addr)
	err := http.ListenAndServe(addr, manage.New(p).Handler())
	if err != nil {
		klog.Exitf("listen failed: %v", err)
	}
}

// settle is how long a photo must go unmodified before it is stamped.
const settle = 750 * time.Millisecond

// watch stamps photos as they appear in dirs
func watch(ctx context.Context, p *mohr.Processor, roots []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs := slices.Clone(roots)
	for _, r := range roots {
		paths, err := mohr.Find(r)
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}
		for _, path := range paths {
			dirs = append(dirs, filepath.Dir(path))
		}
	}
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	pending := map[string]time.Time{}
	tick := time.NewTicker(settle / 3)
	defer tick.Stop()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %v", event)

			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.Add(event.Name); err != nil {
						klog.Warningf("watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && mohr.IsPhoto(event.Name) && !strings.HasPrefix(filepath.Base(event.Name), ".") {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		case now := <-tick.C:
			for path, seen := range pending {
				if now.Sub(seen) < settle {
					continue
				}
				delete(pending, path)
				if !mohr.Stale(path, filepath.Join(p.Config().OutDir, mohr.OutputName(path))) {
					continue
				}
				if _, out, err := p.StampFile(ctx, path); err != nil {
					klog.Errorf("stamp failed: %v", err)
				} else {
					klog.Infof("stamped %s -> %s", path, out)
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
