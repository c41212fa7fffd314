// Package collector runs the measurement pass: it walks a repository's
// revisions, measures each checkout and assembles the raw history.
package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/locplot/internal/cache"
	"github.com/panbanda/locplot/internal/vcs"
	"github.com/panbanda/locplot/pkg/history"
	"github.com/panbanda/locplot/pkg/measure"
)

// ProgressFunc is called after each revision is measured.
type ProgressFunc func(done, total int, revision string)

// WarnFunc receives non-fatal problems encountered during the pass.
type WarnFunc func(msg string)

// Collector measures every revision of a repository.
type Collector struct {
	measurer      measure.Measurer
	cache         *cache.Cache
	branch        string
	workers       int
	skipMalformed bool
	maxRevisions  int
	tempDir       string
	onProgress    ProgressFunc
	onWarn        WarnFunc
}

// Option configures a Collector.
type Option func(*Collector)

// WithCache reuses and stores measurements in c.
func WithCache(c *cache.Cache) Option {
	return func(col *Collector) {
		col.cache = c
	}
}

// WithBranch walks the history of branch instead of HEAD.
func WithBranch(branch string) Option {
	return func(c *Collector) {
		c.branch = branch
	}
}

// WithWorkers measures with n independent working copies in parallel.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		c.workers = n
	}
}

// WithSkipMalformed skips unparsable log lines instead of aborting.
func WithSkipMalformed(skip bool) Option {
	return func(c *Collector) {
		c.skipMalformed = skip
	}
}

// WithMaxRevisions limits the pass to the n newest revisions. Zero means all.
func WithMaxRevisions(n int) Option {
	return func(c *Collector) {
		c.maxRevisions = n
	}
}

// WithTempDir sets where worker copies are created.
func WithTempDir(dir string) Option {
	return func(c *Collector) {
		c.tempDir = dir
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Collector) {
		c.onProgress = fn
	}
}

// WithWarnings registers a callback for non-fatal problems.
func WithWarnings(fn WarnFunc) Option {
	return func(c *Collector) {
		c.onWarn = fn
	}
}

// New creates a collector using m for measurements.
func New(m measure.Measurer, opts ...Option) *Collector {
	c := &Collector{
		measurer: m,
		workers:  1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return c
}

// Result is the outcome of a measurement pass.
type Result struct {
	History  *history.History
	Total    int      // revisions found in the log
	Reused   int      // revisions taken from a previous history
	Measured int      // revisions measured in this pass
	Cached   int      // of Measured, served from the cache
	Skipped  []string // malformed log lines
	Failed   []string // revisions recorded with a zero measurement
}

type job struct {
	index int
	rev   *history.Revision
}

type outcome struct {
	measurement history.Measurement
	cached      bool
	failed      bool
	done        bool
}

// Collect measures the revisions of repo. Revisions already present in
// previous are carried over without measuring them again. When ctx is
// cancelled the revisions measured so far are returned with ctx.Err().
func (c *Collector) Collect(ctx context.Context, repo vcs.Repository, previous *history.History) (*Result, error) {
	head, err := repo.Resolve(c.branch)
	if err != nil {
		return nil, err
	}
	lines, err := repo.RevisionLines(head)
	if err != nil {
		return nil, err
	}

	res := &Result{History: history.New()}
	revs, err := c.parse(lines, res)
	if err != nil {
		return nil, err
	}
	res.Total = len(revs)

	if previous != nil {
		for _, r := range previous.Revisions() {
			res.History.Add(r)
		}
	}

	var known map[string]struct{}
	if previous != nil {
		known = previous.IDs()
	}
	var pending []*history.Revision
	for _, r := range revs {
		if _, ok := known[r.ID]; ok {
			res.Reused++
			continue
		}
		pending = append(pending, r)
	}
	// The log lists newest first; measure oldest first.
	slices.Reverse(pending)

	if len(pending) == 0 {
		return res, nil
	}

	jobs := make([]job, len(pending))
	for i, r := range pending {
		jobs[i] = job{index: i, rev: r}
	}
	outcomes := make([]outcome, len(jobs))

	if c.workers > 1 && len(jobs) > 1 {
		err = c.runParallel(ctx, repo, jobs, outcomes)
	} else {
		err = c.runSequential(ctx, repo, jobs, outcomes)
	}

	for i, o := range outcomes {
		if !o.done {
			continue
		}
		r := jobs[i].rev
		r.Populate(o.measurement)
		if verr := r.Verify(); verr != nil {
			c.warn(verr.Error())
		}
		res.History.Add(r)
		res.Measured++
		if o.cached {
			res.Cached++
		}
		if o.failed {
			res.Failed = append(res.Failed, r.ID)
		}
	}
	return res, err
}

func (c *Collector) parse(lines []string, res *Result) ([]*history.Revision, error) {
	revs := make([]*history.Revision, 0, len(lines))
	for _, line := range lines {
		r, err := history.ParseRevision(line)
		if err != nil {
			if !c.skipMalformed {
				return nil, err
			}
			c.warn(fmt.Sprintf("skipping malformed revision line: %v", err))
			res.Skipped = append(res.Skipped, line)
			continue
		}
		revs = append(revs, r)
	}
	if c.maxRevisions > 0 && len(revs) > c.maxRevisions {
		revs = revs[:c.maxRevisions]
	}
	return revs, nil
}

func (c *Collector) runSequential(ctx context.Context, repo vcs.Repository, jobs []job, outcomes []outcome) error {
	dirty, err := repo.IsDirty()
	if err != nil {
		return fmt.Errorf("failed to check git status: %w", err)
	}
	if dirty {
		return vcs.ErrDirtyWorkingDir
	}

	originalRef, err := repo.CurrentRef()
	if err != nil {
		return fmt.Errorf("failed to get current ref: %w", err)
	}

	var restoreOnce sync.Once
	restore := func() {
		restoreOnce.Do(func() {
			if err := repo.Checkout(originalRef); err != nil {
				c.warn(fmt.Sprintf("failed to restore %s: %v", originalRef, err))
			}
		})
	}
	defer restore()

	for i, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		o, err := c.measure(ctx, repo, j.rev)
		if err != nil {
			return err
		}
		outcomes[i] = o
		c.progress(i+1, len(jobs), j.rev.ID)
	}
	return nil
}

func (c *Collector) runParallel(ctx context.Context, repo vcs.Repository, jobs []job, outcomes []outcome) error {
	workers := min(c.workers, len(jobs))

	base, err := os.MkdirTemp(c.tempDir, "locplot-workers-")
	if err != nil {
		return fmt.Errorf("failed to create worker directory: %w", err)
	}
	defer os.RemoveAll(base)

	slots := make(chan vcs.Repository, workers)
	for i := range workers {
		copyDir := filepath.Join(base, fmt.Sprintf("worker-%d", i))
		wc, err := vcs.Mirror(ctx, repo.Root(), copyDir)
		if err != nil {
			return err
		}
		slots <- wc
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var firstErr error
	done := 0

	p := pool.New().WithMaxGoroutines(workers)
	for i, j := range jobs {
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			wc := <-slots
			defer func() { slots <- wc }()

			o, err := c.measure(ctx, wc, j.rev)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			outcomes[i] = o
			done++
			c.progress(done, len(jobs), j.rev.ID)
		})
	}
	p.Wait()

	if firstErr != nil {
		return firstErr
	}
	// Cancellation by the caller, noticed before any task failed.
	return ctx.Err()
}

// measure produces the measurement of one revision. A failing measurement is
// recorded as a zero measurement; only checkout failures and cancellation
// are returned as errors.
func (c *Collector) measure(ctx context.Context, repo vcs.Repository, rev *history.Revision) (outcome, error) {
	tool := c.measurer.Name()
	if c.cache != nil {
		if m, ok := c.cache.Get(tool, rev.ID); ok {
			return outcome{measurement: m, cached: true, done: true}, nil
		}
	}

	if err := repo.Checkout(rev.ID); err != nil {
		return outcome{}, fmt.Errorf("failed to checkout %s: %w", short(rev.ID), err)
	}

	m, err := c.measurer.Measure(ctx, repo.Root())
	if err != nil {
		if ctx.Err() != nil {
			return outcome{}, ctx.Err()
		}
		c.warn(fmt.Sprintf("revision %s recorded as empty: %v", short(rev.ID), err))
		return outcome{failed: true, done: true}, nil
	}

	if c.cache != nil {
		if err := c.cache.Put(tool, rev.ID, m); err != nil {
			c.warn(fmt.Sprintf("failed to cache %s: %v", short(rev.ID), err))
		}
	}
	return outcome{measurement: m, done: true}, nil
}

func (c *Collector) warn(msg string) {
	if c.onWarn != nil {
		c.onWarn(msg)
	}
}

func (c *Collector) progress(done, total int, rev string) {
	if c.onProgress != nil {
		c.onProgress(done, total, short(rev))
	}
}

func short(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
