package driver

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/logger"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/observ"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// Options configure a scan.
type Options struct {
	// Jobs bounds parallel workers; zero means GOMAXPROCS.
	Jobs    int
	Filter  Filter
	BaseDir string
	// Cache is optional; nil disables caching.
	Cache    *Cache
	Observer Observer
	Logger   *zap.Logger
}

// LoadError is a discovered file that could not be read.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

// Report is the outcome of a scan.
type Report struct {
	FileSet    *source.FileSet
	Units      []*engine.Result
	LoadErrors []LoadError
	CacheHits  int
	Timings    observ.Report
}

// Totals sums finding severities over all units.
func (r *Report) Totals() engine.Totals {
	var t engine.Totals
	for _, u := range r.Units {
		t = t.Add(u.Totals())
	}
	return t
}

// Verdicts counts units per verdict.
func (r *Report) Verdicts() map[engine.Verdict]int {
	out := make(map[engine.Verdict]int, 3)
	for _, u := range r.Units {
		out[u.Verdict()]++
	}
	return out
}

// Scan discovers sources under paths and analyzes them in parallel.
func Scan(ctx context.Context, eng *engine.Engine, paths []string, opts Options) (*Report, error) {
	timer := observ.NewTimer()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named(logger.ComponentDriver)

	var files []string
	var err error
	timer.Measure("discover", func() string {
		files, err = Discover(paths, opts.Filter)
		return fmt.Sprintf("%d files", len(files))
	})
	if err != nil {
		return nil, err
	}

	base := opts.BaseDir
	if base == "" {
		if wd, wdErr := os.Getwd(); wdErr == nil {
			base = wd
		}
	}
	fs := source.NewFileSetWithBase(base)
	report := &Report{FileSet: fs}
	var ids []source.FileID
	timer.Measure("load", func() string {
		for _, p := range files {
			id, loadErr := fs.Load(p)
			if loadErr != nil {
				log.Warn("cannot read source", zap.String("path", p), zap.Error(loadErr))
				report.LoadErrors = append(report.LoadErrors, LoadError{Path: p, Err: loadErr})
				continue
			}
			ids = append(ids, id)
		}
		return fmt.Sprintf("%d loaded", len(ids))
	})

	timer.Measure("analyze", func() string {
		report.Units, report.CacheHits, err = Analyze(ctx, eng, fs, ids, opts)
		return fmt.Sprintf("%d units, %d cached", len(report.Units), report.CacheHits)
	})
	report.Timings = timer.Report()
	if err != nil {
		return report, err
	}
	log.Debug("scan finished", zap.Int("units", len(report.Units)), zap.Int("cache_hits", report.CacheHits))
	return report, nil
}

// Analyze runs eng over the files in fs. Results are sorted by display
// path. Each worker owns its result slot, so no locking is needed.
func Analyze(ctx context.Context, eng *engine.Engine, fs *source.FileSet, ids []source.FileID, opts Options) ([]*engine.Result, int, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	notify := opts.Observer
	if notify == nil {
		notify = func(Event) {}
	}
	notify(Event{Kind: EventDiscovered, Total: len(ids)})

	fingerprint := eng.RuleSet().Fingerprint()
	results := make([]*engine.Result, len(ids))
	var done, hits atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(ids))))
	for i, id := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			file := fs.Get(id)
			key := cacheKey(file.Hash, fingerprint, eng)
			res, cached, err := opts.Cache.Get(key, file)
			if err != nil {
				log.Warn("cache read failed", zap.String("path", file.Path), zap.Error(err))
			}
			if !cached {
				res = eng.AnalyzeFile(file)
				if err := opts.Cache.Put(key, res); err != nil {
					log.Warn("cache write failed", zap.String("path", file.Path), zap.Error(err))
				}
			} else {
				hits.Add(1)
			}
			res.Path = fs.DisplayPath(file)
			results[i] = res

			notify(Event{Kind: EventUnitDone, Total: len(ids), Done: int(done.Add(1)), Path: res.Path, Result: res, Cached: cached})
			return nil
		})
	}
	err := g.Wait()
	notify(Event{Kind: EventFinished, Total: len(ids), Done: int(done.Load())})
	if err != nil {
		return nil, int(hits.Load()), err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, int(hits.Load()), nil
}
