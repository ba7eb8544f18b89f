package upword

import (
	"context"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"

	"crosswarped.com/upword/internal"
	"crosswarped.com/upword/pkg/primitives"
	"crosswarped.com/upword/pkg/recorder"
)

// Outcome is how a run ended.
type Outcome int

const (
	// OutcomeExhausted means every feasible branch was explored and no upword
	// was found.
	OutcomeExhausted Outcome = iota
	// OutcomeFound means at least one upword was found.
	OutcomeFound
	// OutcomeBudgetExceeded means the node budget, the timeout or the context
	// ended the run before an upword was found.
	OutcomeBudgetExceeded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeFound:
		return "found"
	case OutcomeBudgetExceeded:
		return "budget_exceeded"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ctxCheckInterval is how many nodes are expanded between context checks.
const ctxCheckInterval = 256

// Stats counts the work done by a run.
type Stats struct {
	// Nodes is the number of candidate extensions tried.
	Nodes int64
	// Pruned is the number of candidates rejected by the oracle.
	Pruned int64
	// Leaves is the number of complete words evaluated.
	Leaves int64
	// Found is the number of upwords found.
	Found int
	// MaxDepth is the length of the longest prefix the oracle accepted.
	MaxDepth int
}

// Result is the summary of one run.
type Result struct {
	Seed    uint64
	Outcome Outcome
	// Exhausted is true when the whole feasible tree was explored.
	Exhausted bool
	Upwords   []primitives.Word
	Stats     Stats
}

// Searcher performs randomized depth-first searches for upwords. A Searcher
// is not safe for concurrent use; run independent searches with separate
// Searchers (see RunMany).
type Searcher struct {
	cfg      Config
	mask     primitives.Mask
	universe *primitives.Universe
	logger   *zap.Logger
	prune    bool

	// Do not access this field directly, use the oracle method instead.
	lazyOracle *internal.Oracle

	stats     Stats
	outcome   Outcome
	exhausted bool
}

type Option func(s *Searcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithoutPruning disables the capacity bound so that every branch is
// explored down to full length.
func WithoutPruning() Option {
	return func(s *Searcher) {
		s.prune = false
	}
}

func NewSearcher(cfg Config, opts ...Option) (*Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	u, err := primitives.NewUniverse(cfg.AlphabetSize, cfg.SubwordLength)
	if err != nil {
		return nil, err
	}
	s := &Searcher{
		cfg:      cfg,
		mask:     cfg.EffectiveMask(),
		universe: u,
		logger:   zap.NewNop(),
		prune:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewRand returns the random source used for a seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (s *Searcher) Config() Config {
	return s.cfg
}

func (s *Searcher) Universe() *primitives.Universe {
	return s.universe
}

// Stats returns the counters of the last search.
func (s *Searcher) Stats() Stats {
	return s.stats
}

// Outcome returns how the last search ended.
func (s *Searcher) Outcome() Outcome {
	return s.outcome
}

func (s *Searcher) oracle(ctx context.Context) (*internal.Oracle, error) {
	var err error
	if s.lazyOracle == nil {
		s.lazyOracle, err = internal.NewOracle(ctx, internal.OracleParams{
			AlphabetSize:  s.cfg.AlphabetSize,
			SubwordLength: s.cfg.SubwordLength,
			Mask:          s.mask,
		})
	}
	return s.lazyOracle, err
}

// frame is the state of one depth of the search.
type frame struct {
	// candidates left to try at this depth, in shuffled order.
	candidates []primitives.Symbol
	next       int
	// mark is the coverage trail position before the candidate currently
	// descended into was placed.
	mark int
}

// PossibleUpwords streams the upwords of a run seeded with Config.Seed, in
// the order they are found. Every call replays the same trajectory. The node
// budget and ctx bound the run; Config.StopAtFirstHit and Config.Timeout are
// left to the caller (see Run).
func (s *Searcher) PossibleUpwords(ctx context.Context) iter.Seq[primitives.Word] {
	return func(yield func(primitives.Word) bool) {
		s.stats = Stats{}
		s.outcome = OutcomeExhausted
		s.exhausted = false

		oracle, err := s.oracle(ctx)
		if err != nil {
			s.outcome = OutcomeBudgetExceeded
			return
		}
		if oracle.Slack() < 0 {
			s.logger.Debug("mask cannot cover every subword",
				zap.Int64("slack", oracle.Slack()),
				zap.String("mask", s.mask.String()),
			)
		}

		s.search(ctx, oracle, NewRand(s.cfg.Seed), yield)
	}
}

func (s *Searcher) search(ctx context.Context, oracle *internal.Oracle, rng *rand.Rand, yield func(primitives.Word) bool) {
	var (
		n     = s.cfg.AlphabetSize
		k     = s.cfg.SubwordLength
		l     = s.cfg.WordLength
		model = primitives.NewModel(s.universe)
		word  = make([]primitives.Symbol, l)
		arena = make([]primitives.Symbol, l*n)
	)

	frames := make([]frame, l)
	pinned := -1
	if s.cfg.PinFirstSymbol {
		pinned = s.mask.FirstFixed()
	}
	enter := func(d int) {
		f := &frames[d]
		f.next = 0
		f.mark = 0
		switch {
		case s.mask.IsWildcard(d):
			f.candidates = arena[d*n : d*n+1]
			f.candidates[0] = primitives.Wildcard
		case d == pinned:
			f.candidates = arena[d*n : d*n+1]
			f.candidates[0] = 0
		default:
			f.candidates = arena[d*n : (d+1)*n]
			for i := range f.candidates {
				f.candidates[i] = primitives.Symbol(i)
			}
			if !s.cfg.Unshuffled {
				rng.Shuffle(len(f.candidates), func(i, j int) {
					f.candidates[i], f.candidates[j] = f.candidates[j], f.candidates[i]
				})
			}
		}
	}

	s.logger.Debug("search started",
		zap.Int("alphabet_size", n),
		zap.Int("subword_length", k),
		zap.Int("word_length", l),
		zap.Uint64("seed", s.cfg.Seed),
	)
	defer func() {
		s.logger.Debug("search finished",
			zap.Stringer("outcome", s.outcome),
			zap.Bool("exhausted", s.exhausted),
			zap.Int64("nodes", s.stats.Nodes),
			zap.Int64("pruned", s.stats.Pruned),
			zap.Int("found", s.stats.Found),
			zap.Int("max_depth", s.stats.MaxDepth),
		)
	}()

	finish := func(o Outcome) {
		if s.stats.Found > 0 {
			o = OutcomeFound
		}
		s.outcome = o
	}

	enter(0)
	d := 0
	for {
		f := &frames[d]
		if f.next == len(f.candidates) {
			if d == 0 {
				s.exhausted = true
				finish(OutcomeExhausted)
				return
			}
			d--
			model.Undo(frames[d].mark)
			continue
		}

		// The budget only applies to candidates still to be tried, so a tree
		// that runs out at exactly MaxNodes is reported as exhausted.
		if s.overBudget(ctx) {
			finish(OutcomeBudgetExceeded)
			return
		}

		c := f.candidates[f.next]
		f.next++
		s.stats.Nodes++

		word[d] = c
		mark := model.Mark()
		if d >= k-1 {
			model.AddWindow(word, d-k+1)
		}

		if s.prune && !oracle.IsFeasible(word[:d+1], model.Coverage(), l-d-1) {
			s.stats.Pruned++
			model.Undo(mark)
			continue
		}

		if d+1 > s.stats.MaxDepth {
			s.stats.MaxDepth = d + 1
			s.logger.Debug("deepest prefix so far",
				zap.Int("depth", d+1),
				zap.Int64("nodes", s.stats.Nodes),
				zap.String("prefix", primitives.Encode(word[:d+1])),
			)
		}

		if d+1 < l {
			f.mark = mark
			d++
			enter(d)
			continue
		}

		// The word is complete: evaluate the windows that wrap around.
		s.stats.Leaves++
		for start := l - k + 1; start < l; start++ {
			model.AddWindow(word, start)
		}
		covered := model.IsFullyCovered()
		model.Undo(mark)

		if !covered {
			continue
		}
		s.stats.Found++
		if !yield(primitives.NewWord(slices.Clone(word))) {
			finish(OutcomeFound)
			return
		}
	}
}

func (s *Searcher) overBudget(ctx context.Context) bool {
	if s.cfg.MaxNodes > 0 && s.stats.Nodes >= s.cfg.MaxNodes {
		return true
	}
	return s.stats.Nodes%ctxCheckInterval == 0 && ctx.Err() != nil
}

// Run performs one search, hands every upword found to rec (which may be
// nil) and stops after the first one when Config.StopAtFirstHit is set. Not
// finding an upword is not an error; check Result.Outcome.
func (s *Searcher) Run(ctx context.Context, rec recorder.Recorder) (*Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	result := &Result{Seed: s.cfg.Seed}
	var recordErr error
	for w := range s.PossibleUpwords(ctx) {
		result.Upwords = append(result.Upwords, w)
		if rec != nil {
			if err := rec.Record(ctx, w); err != nil {
				recordErr = fmt.Errorf("recording upword: %w", err)
				break
			}
		}
		if s.cfg.StopAtFirstHit {
			break
		}
	}

	result.Outcome = s.outcome
	result.Exhausted = s.exhausted
	result.Stats = s.stats
	return result, recordErr
}
