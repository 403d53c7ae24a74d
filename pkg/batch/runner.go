// Package batch masks every resource file below a directory with a bounded
// number of concurrent workers.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/secretmask/pkg/config"
	"github.com/codeready-toolchain/secretmask/pkg/masking"
)

// Masker masks one resource file in place.
type Masker interface {
	MaskResource(path string, dumpConfig bool) (*masking.Report, error)
}

// Recorder persists the summary of a finished run.
type Recorder interface {
	SaveRun(ctx context.Context, summary *Summary) error
}

// Observer is notified of every per-file report as soon as it is available.
type Observer func(report *masking.Report)

// Summary describes one Run or RunFile call.
type Summary struct {
	RunID      string
	Root       string
	DumpConfig bool
	StartedAt  time.Time
	FinishedAt time.Time

	// Reports holds one entry per processed file, sorted by path.
	Reports []*masking.Report
}

// Files returns the number of processed files.
func (s *Summary) Files() int {
	return len(s.Reports)
}

// Failed returns the number of files that could not be loaded or written.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Reports {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Redacted returns the number of values redacted across all files.
func (s *Summary) Redacted() int {
	n := 0
	for _, r := range s.Reports {
		n += r.Redacted
	}
	return n
}

// FieldErrors returns the number of non-fatal field problems across all files.
func (s *Summary) FieldErrors() int {
	n := 0
	for _, r := range s.Reports {
		n += len(r.FieldErrors)
	}
	return n
}

// Duration returns the wall time of the run.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Runner walks a directory and masks every matching file.
type Runner struct {
	masker     Masker
	workers    int
	extensions []string
	dumpConfig bool
	recorder   Recorder
	observers  []Observer
}

// Option customizes a Runner.
type Option func(*Runner)

// WithDumpConfig forwards --dump-conf to every masked Secret.
func WithDumpConfig(dump bool) Option {
	return func(r *Runner) { r.dumpConfig = dump }
}

// WithRecorder stores every summary once the run finishes.
func WithRecorder(recorder Recorder) Option {
	return func(r *Runner) { r.recorder = recorder }
}

// WithObserver registers a per-report callback. Observers are called from
// worker goroutines and must be safe for concurrent use.
func WithObserver(observer Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, observer) }
}

// NewRunner creates a runner using the batch settings of cfg.
func NewRunner(masker Masker, cfg *config.BatchConfig, opts ...Option) *Runner {
	r := &Runner{
		masker:     masker,
		workers:    cfg.Workers,
		extensions: cfg.Extensions,
	}
	if r.workers < 1 {
		r.workers = 1
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run masks every file below root whose name ends with one of the configured
// extensions. Files that cannot be loaded or written are logged and reported
// but never stop the run; the returned error is reserved for a failing
// directory walk or a cancelled context.
func (r *Runner) Run(ctx context.Context, root string) (*Summary, error) {
	summary := r.newSummary(root)
	log := slog.With("run_id", summary.RunID, "root", root)

	paths, err := r.collect(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	log.Info("Masking directory", "files", len(paths), "workers", r.workers)

	reports := make([]*masking.Report, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, path := range paths {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			report, err := r.masker.MaskResource(path, r.dumpConfig)
			if err != nil {
				log.Warn("Skipping file", "path", path, "error", err)
			}
			reports[i] = report
			r.notify(report)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, report := range reports {
		if report != nil {
			summary.Reports = append(summary.Reports, report)
		}
	}
	r.finish(ctx, summary)

	log.Info("Directory masked",
		"files", summary.Files(),
		"failed", summary.Failed(),
		"redacted", summary.Redacted(),
		"duration", summary.Duration())

	return summary, nil
}

// RunFile masks a single file. Unlike Run, a file that cannot be loaded is
// returned as an error.
func (r *Runner) RunFile(ctx context.Context, path string) (*Summary, error) {
	summary := r.newSummary(path)

	report, err := r.masker.MaskResource(path, r.dumpConfig)
	if report != nil {
		summary.Reports = append(summary.Reports, report)
		r.notify(report)
	}
	if masking.IsLoadError(err) {
		return nil, err
	}
	if err != nil {
		slog.Error("Failed to mask file", "run_id", summary.RunID, "path", path, "error", err)
	}

	r.finish(ctx, summary)
	return summary, nil
}

func (r *Runner) newSummary(root string) *Summary {
	return &Summary{
		RunID:      uuid.New().String(),
		Root:       root,
		DumpConfig: r.dumpConfig,
		StartedAt:  time.Now(),
	}
}

func (r *Runner) finish(ctx context.Context, summary *Summary) {
	summary.FinishedAt = time.Now()
	if r.recorder == nil {
		return
	}
	if err := r.recorder.SaveRun(ctx, summary); err != nil {
		slog.Error("Failed to record run", "run_id", summary.RunID, "error", err)
	}
}

func (r *Runner) notify(report *masking.Report) {
	if report == nil {
		return
	}
	for _, observe := range r.observers {
		observe(report)
	}
}

// collect returns the matching file paths below root in lexical order.
// Unreadable subdirectories are logged and skipped.
func (r *Runner) collect(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if r.matches(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *Runner) matches(name string) bool {
	for _, ext := range r.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
