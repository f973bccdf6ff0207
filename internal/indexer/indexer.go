package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/doccorpus/internal/bitcode"
	"github.com/dshills/doccorpus/internal/corpus"
	"github.com/dshills/doccorpus/internal/logger"
	"github.com/dshills/doccorpus/internal/merge"
	"github.com/dshills/doccorpus/internal/metrics"
	"github.com/dshills/doccorpus/pkg/types"
)

// Indexer coordinates the build pipeline: group -> decode -> merge -> insert
type Indexer struct {
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Config contains configuration for a build
type Config struct {
	Workers int  // Number of concurrent workers (default: runtime.NumCPU())
	Strict  bool // Fail the build if any symbol fails to decode or merge
	Verbose bool // Log progress at info level instead of debug
}

// DefaultConfig returns a strict build using every CPU
func DefaultConfig() *Config {
	return &Config{
		Workers: runtime.NumCPU(),
		Strict:  true,
	}
}

// Statistics contains statistics about a build
type Statistics struct {
	Groups        int
	Fragments     int
	SymbolsMerged int
	GroupsFailed  int
	Duration      time.Duration
	ErrorMessages []string
}

// New creates a new Indexer. A nil logger discards output and a nil
// metrics set is replaced by a private one.
func New(log *logger.Logger, m *metrics.Metrics) *Indexer {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Indexer{
		log:     log.Component("indexer"),
		metrics: m,
	}
}

// Metrics returns the metrics the indexer records into
func (idx *Indexer) Metrics() *metrics.Metrics {
	return idx.metrics
}

// group is the unit of work: every fragment describing one symbol
type group struct {
	id        types.SymbolID
	fragments [][]byte
}

// Build reads every fragment of src, merges the fragments of each symbol
// and inserts the results into a new corpus. The corpus is not
// canonicalized.
//
// In strict mode any failed symbol fails the build and no corpus is
// returned. Otherwise failed symbols are left out and reported in the
// statistics.
func (idx *Indexer) Build(ctx context.Context, src FragmentSource, config *Config) (*corpus.Corpus, *Statistics, error) {
	if config == nil {
		config = DefaultConfig()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}
	progress := idx.log.Debug
	if config.Verbose {
		progress = idx.log.Info
	}

	progress().Msg("Collecting symbols")
	groups, err := collect(ctx, src, stats)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to collect fragments: %w", err)
	}
	idx.log.LogBuildStart(len(groups), stats.Fragments, workers)

	c := corpus.New()
	errs, err := idx.reduce(ctx, c, groups, workers, stats)
	stats.Duration = time.Since(startTime)
	if err != nil {
		idx.finish(stats, err)
		return nil, stats, err
	}

	if stats.GroupsFailed > 0 {
		if config.Strict {
			err := fmt.Errorf("%w: %d of %d symbols failed: %w",
				types.ErrBuildFailed, stats.GroupsFailed, stats.Groups, errors.Join(errs...))
			idx.finish(stats, err)
			return nil, stats, err
		}
		idx.log.Warn().
			Int("failed", stats.GroupsFailed).
			Msg("Ignoring symbols that failed to merge")
	}

	c.SortSymbols()
	if err := c.Validate(); err != nil {
		if config.Strict {
			err = fmt.Errorf("%w: %w", types.ErrBuildFailed, err)
			idx.finish(stats, err)
			return nil, stats, err
		}
		idx.log.Warn().Err(err).Msg("Corpus has unresolved references")
	}

	progress().Int("symbols", c.Len()).Msgf("Collected %d symbols", c.Len())
	stats.Duration = time.Since(startTime)
	idx.finish(stats, nil)
	return c, stats, nil
}

func (idx *Indexer) finish(stats *Statistics, err error) {
	idx.log.LogBuildDone(stats.SymbolsMerged, stats.GroupsFailed, stats.Duration, err)
	idx.metrics.RecordBuild(stats.SymbolsMerged, stats.Duration, err)
}

// collect groups the fragments of src by symbol, ordered by id
func collect(ctx context.Context, src FragmentSource, stats *Statistics) ([]group, error) {
	byID := make(map[types.SymbolID]*group)
	err := src.ForEachFragment(ctx, func(f types.Fragment) error {
		g, ok := byID[f.ID]
		if !ok {
			g = &group{id: f.ID}
			byID[f.ID] = g
		}
		g.fragments = append(g.fragments, f.Data)
		stats.Fragments++
		return nil
	})
	if err != nil {
		return nil, err
	}

	groups := make([]group, 0, len(byID))
	for _, g := range byID {
		groups = append(groups, *g)
	}
	slices.SortFunc(groups, func(a, b group) int { return a.id.Compare(b.id) })
	stats.Groups = len(groups)
	return groups, nil
}

// reduce merges every group on a bounded worker pool. Tasks never fail the
// pool: a failed group is counted and its error kept, and every submitted
// task runs to completion. The returned error is only set when ctx ends
// before all groups were submitted.
func (idx *Indexer) reduce(ctx context.Context, c *corpus.Corpus, groups []group, workers int, stats *Statistics) ([]error, error) {
	var (
		merged atomic.Int32
		failed atomic.Int32
		mu     sync.Mutex // Protects errs and stats.ErrorMessages
		errs   []error
	)

	var g errgroup.Group
	g.SetLimit(workers)

	var cancelled error
	for _, grp := range groups {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}

		g.Go(func() error {
			start := time.Now()
			info, stage, err := reduceGroup(grp)
			if err != nil {
				failed.Add(1)
				idx.metrics.RecordFailure(stage)
				idx.log.LogGroupFailed(grp.id.String(), len(grp.fragments), err)

				mu.Lock()
				errs = append(errs, err)
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", grp.id, err))
				mu.Unlock()
				return nil
			}

			c.Insert(info)
			merged.Add(1)
			idx.metrics.RecordGroup(len(grp.fragments), time.Since(start))
			return nil
		})
	}

	// Wait for all submitted tasks even when cancelled
	_ = g.Wait()

	stats.SymbolsMerged = int(merged.Load())
	stats.GroupsFailed = int(failed.Load())

	if cancelled != nil {
		return errs, fmt.Errorf("build cancelled: %w", cancelled)
	}
	return errs, nil
}

// reduceGroup decodes every fragment of g and merges the results. The
// fragments are ordered by content first so the outcome does not depend on
// the order they were produced in.
func reduceGroup(g group) (types.Info, string, error) {
	fragments := slices.Clone(g.fragments)
	slices.SortFunc(fragments, bytes.Compare)

	var infos []types.Info
	for i, data := range fragments {
		decoded, err := bitcode.ReadInfos(data)
		if err != nil {
			return nil, metrics.StageDecode, fmt.Errorf("fragment %d of %s: %w", i, g.id, err)
		}
		for _, info := range decoded {
			if id := info.Base().ID; id != g.id {
				return nil, metrics.StageDecode, fmt.Errorf("%w: fragment of %s holds unrelated symbol %s",
					types.ErrMalformedStream, g.id, id)
			}
			infos = append(infos, info)
		}
	}
	if len(infos) == 0 {
		return nil, metrics.StageDecode, fmt.Errorf("%w: no fragment of %s describes it",
			types.ErrMalformedStream, g.id)
	}

	info, err := merge.Merge(infos)
	if err != nil {
		return nil, metrics.StageMerge, err
	}
	return info, "", nil
}
