package upword

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"crosswarped.com/upword/pkg/recorder"
)

// releaseTimeout bounds how long RunMany waits for pool workers to exit.
const releaseTimeout = 5 * time.Second

// RunManyParams configures RunMany.
type RunManyParams struct {
	// Seeds holds one seed per run. Config.Seed is ignored.
	Seeds []uint64
	// Parallelism is the number of runs executed at once. Zero means
	// runtime.NumCPU().
	Parallelism int
	// StopOnFound cancels the runs still in flight once any run finds an
	// upword.
	StopOnFound bool
	Logger      *zap.Logger
}

// Seeds returns count consecutive seeds starting at first.
func Seeds(first uint64, count int) []uint64 {
	seeds := make([]uint64, count)
	for i := range seeds {
		seeds[i] = first + uint64(i)
	}
	return seeds
}

// RunMany performs independent runs of cfg, one per seed, on a pool of
// workers. Runs share nothing but rec, which is serialized. Results are
// returned in seed order; a run that could not start has a nil Result and
// contributes to the returned error.
func RunMany(ctx context.Context, cfg Config, p RunManyParams, rec recorder.Recorder, opts ...Option) ([]*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	parallelism := p.Parallelism
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	pool, err := ants.NewPool(parallelism)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer func() {
		_ = pool.ReleaseTimeout(releaseTimeout)
	}()

	if rec != nil {
		rec = recorder.Synchronized(rec)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]Option{WithLogger(logger)}, opts...)

	results := make([]*Result, len(p.Seeds))
	errs := make([]error, len(p.Seeds))
	var wg sync.WaitGroup
	for i, seed := range p.Seeds {
		runCfg := cfg
		runCfg.Seed = seed

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				results[i] = &Result{Seed: seed, Outcome: OutcomeBudgetExceeded}
				return
			}
			s, err := NewSearcher(runCfg, opts...)
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = s.Run(ctx, rec)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("run with seed %d: %w", seed, errs[i])
			}
			if p.StopOnFound && results[i] != nil && results[i].Outcome == OutcomeFound {
				cancel()
			}
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submitting run with seed %d: %w", seed, submitErr)
		}
	}
	wg.Wait()

	found := 0
	for _, r := range results {
		if r != nil {
			found += r.Stats.Found
		}
	}
	logger.Info("runs finished",
		zap.Int("runs", len(p.Seeds)),
		zap.Int("parallelism", parallelism),
		zap.Int("upwords", found),
	)

	return results, errors.Join(errs...)
}
