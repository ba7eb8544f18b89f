package upword

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosswarped.com/upword/pkg/primitives"
	"crosswarped.com/upword/pkg/recorder"
)

func mustSearcher(t testing.TB, cfg Config, opts ...Option) *Searcher {
	t.Helper()
	s, err := NewSearcher(cfg, opts...)
	require.NoError(t, err)
	return s
}

func mustMask(t testing.TB, text string) primitives.Mask {
	t.Helper()
	m, err := primitives.ParseMask(text)
	require.NoError(t, err)
	return m
}

// collect returns the sorted encodings of every upword a search yields.
func collect(ctx context.Context, s *Searcher) []string {
	var words []string
	for w := range s.PossibleUpwords(ctx) {
		words = append(words, w.Repr())
	}
	slices.Sort(words)
	return words
}

// bruteForce returns the sorted encodings of every upword that fits the
// configuration.
func bruteForce(t testing.TB, cfg Config) []string {
	t.Helper()
	u, err := primitives.NewUniverse(cfg.AlphabetSize, cfg.SubwordLength)
	require.NoError(t, err)
	mask := cfg.EffectiveMask()

	var words []string
	word := make([]primitives.Symbol, cfg.WordLength)
	var fill func(p int)
	fill = func(p int) {
		if p == len(word) {
			if u.IsUpword(primitives.NewWord(word)) {
				words = append(words, primitives.Encode(word))
			}
			return
		}
		if mask.IsWildcard(p) {
			word[p] = primitives.Wildcard
			fill(p + 1)
			return
		}
		for s := range cfg.AlphabetSize {
			word[p] = primitives.Symbol(s)
			fill(p + 1)
		}
	}
	fill(0)
	slices.Sort(words)
	return words
}

func TestSearcher_Run_BinaryTriples(t *testing.T) {
	cfg := Config{
		AlphabetSize:   2,
		SubwordLength:  3,
		WordLength:     11,
		Seed:           42,
		StopAtFirstHit: true,
	}
	s := mustSearcher(t, cfg)

	result, err := s.Run(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, result.Outcome)
	require.Len(t, result.Upwords, 1)
	assert.Equal(t, 11, result.Upwords[0].Len())
	assert.True(t, s.Universe().IsUpword(result.Upwords[0]), "%s is not an upword", result.Upwords[0])
	assert.Equal(t, 1, result.Stats.Found)
	assert.Equal(t, 11, result.Stats.MaxDepth)
	assert.Equal(t, uint64(42), result.Seed)
}

func TestSearcher_FindsEveryUpword(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  Config
		want int
	}{
		{
			name: "binary pairs",
			cfg:  Config{AlphabetSize: 2, SubwordLength: 2, WordLength: 6},
			want: 30,
		},
		{
			name: "binary triples with wildcards",
			cfg:  Config{AlphabetSize: 2, SubwordLength: 3, WordLength: 6, Mask: mustMask(t, "__*__*")},
			want: 2,
		},
		{
			name: "binary triples",
			cfg:  Config{AlphabetSize: 2, SubwordLength: 3, WordLength: 11},
			want: 286,
		},
		{
			name: "ternary pairs",
			cfg:  Config{AlphabetSize: 3, SubwordLength: 2, WordLength: 9},
			want: 216,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			want := bruteForce(t, tc.cfg)
			require.Len(t, want, tc.want)

			for _, seed := range []uint64{1, 2, 3} {
				cfg := tc.cfg
				cfg.Seed = seed

				pruned := mustSearcher(t, cfg)
				assert.Equal(t, want, collect(t.Context(), pruned), "pruned search with seed %d", seed)
				assert.Equal(t, OutcomeFound, pruned.Outcome())

				unpruned := mustSearcher(t, cfg, WithoutPruning())
				assert.Equal(t, want, collect(t.Context(), unpruned), "unpruned search with seed %d", seed)
				assert.Zero(t, unpruned.Stats().Pruned)

				assert.LessOrEqual(t, pruned.Stats().Nodes, unpruned.Stats().Nodes)
			}
		})
	}
}

func TestSearcher_PinFirstSymbol(t *testing.T) {
	cfg := Config{AlphabetSize: 3, SubwordLength: 2, WordLength: 9, PinFirstSymbol: true}
	pinned := collect(t.Context(), mustSearcher(t, cfg))

	cfg.PinFirstSymbol = false
	var want []string
	for _, w := range bruteForce(t, cfg) {
		if w[0] == '0' {
			want = append(want, w)
		}
	}
	assert.Equal(t, want, pinned)
	assert.Len(t, pinned, 72)
}

func TestSearcher_Deterministic(t *testing.T) {
	cfg := Config{AlphabetSize: 2, SubwordLength: 4, WordLength: 19, Seed: 7}

	first := mustSearcher(t, cfg)
	second := mustSearcher(t, cfg)

	var a, b []string
	for w := range first.PossibleUpwords(t.Context()) {
		a = append(a, w.Repr())
		if len(a) == 5 {
			break
		}
	}
	for w := range second.PossibleUpwords(t.Context()) {
		b = append(b, w.Repr())
		if len(b) == 5 {
			break
		}
	}
	require.Len(t, a, 5)
	assert.Equal(t, a, b)
	assert.Equal(t, first.Stats(), second.Stats())

	// Replaying on the same Searcher yields the same trajectory.
	var c []string
	for w := range first.PossibleUpwords(t.Context()) {
		c = append(c, w.Repr())
		if len(c) == 5 {
			break
		}
	}
	assert.Equal(t, a, c)
}

func TestSearcher_DifferentSeeds(t *testing.T) {
	firsts := make(map[string]bool)
	for seed := range uint64(8) {
		cfg := Config{AlphabetSize: 2, SubwordLength: 4, WordLength: 19, Seed: seed, StopAtFirstHit: true}
		result, err := mustSearcher(t, cfg).Run(t.Context(), nil)
		require.NoError(t, err)
		require.Equal(t, OutcomeFound, result.Outcome)
		firsts[result.Upwords[0].Repr()] = true
	}
	assert.Greater(t, len(firsts), 1, "every seed found the same upword first")
}

func TestSearcher_Exhausted(t *testing.T) {
	// Seven windows cannot cover eight subwords.
	cfg := Config{AlphabetSize: 2, SubwordLength: 3, WordLength: 7}

	s := mustSearcher(t, cfg)
	result, err := s.Run(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.True(t, result.Exhausted)
	assert.Empty(t, result.Upwords)
	assert.Equal(t, int64(2), result.Stats.Nodes)
	assert.Equal(t, int64(2), result.Stats.Pruned)

	unpruned := mustSearcher(t, cfg, WithoutPruning())
	result, err = unpruned.Run(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Equal(t, int64(128), result.Stats.Leaves)
}

func TestSearcher_ExhaustedAtNodeBudget(t *testing.T) {
	// The pruned tree of TestSearcher_Exhausted has exactly two nodes.
	for _, maxNodes := range []int64{2, 3} {
		cfg := Config{AlphabetSize: 2, SubwordLength: 3, WordLength: 7, MaxNodes: maxNodes}

		result, err := mustSearcher(t, cfg).Run(t.Context(), nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeExhausted, result.Outcome, "max nodes %d", maxNodes)
		assert.True(t, result.Exhausted, "max nodes %d", maxNodes)
		assert.Equal(t, int64(2), result.Stats.Nodes)
		assert.Zero(t, result.Stats.MaxDepth)
	}

	cfg := Config{AlphabetSize: 2, SubwordLength: 3, WordLength: 7, MaxNodes: 1}
	result, err := mustSearcher(t, cfg).Run(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetExceeded, result.Outcome)
	assert.False(t, result.Exhausted)
	assert.Equal(t, int64(1), result.Stats.Nodes)
}

func TestSearcher_Unshuffled(t *testing.T) {
	cfg := Config{AlphabetSize: 2, SubwordLength: 2, WordLength: 6, Unshuffled: true}
	want := bruteForce(t, cfg)

	for _, seed := range []uint64{1, 2} {
		cfg.Seed = seed
		var got []string
		for w := range mustSearcher(t, cfg).PossibleUpwords(t.Context()) {
			got = append(got, w.Repr())
		}
		// Words come out in lexicographic order whatever the seed.
		assert.Equal(t, want, got, "seed %d", seed)
	}
}

func tightConfig(t testing.TB) Config {
	u, err := primitives.NewUniverse(2, 8)
	require.NoError(t, err)
	return Config{
		AlphabetSize:   2,
		SubwordLength:  8,
		WordLength:     u.TightLength(),
		Mask:           primitives.PeriodicMask(u.TightLength(), 8, 7),
		StopAtFirstHit: true,
	}
}

func TestSearcher_NodeBudget(t *testing.T) {
	cfg := tightConfig(t)
	cfg.MaxNodes = 1000

	result, err := mustSearcher(t, cfg).Run(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetExceeded, result.Outcome)
	assert.False(t, result.Exhausted)
	assert.Equal(t, int64(1000), result.Stats.Nodes)
}

func TestSearcher_Timeout(t *testing.T) {
	cfg := tightConfig(t)
	cfg.Timeout = 20 * time.Millisecond

	start := time.Now()
	result, err := mustSearcher(t, cfg).Run(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetExceeded, result.Outcome)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSearcher_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result, err := mustSearcher(t, DefaultConfig()).Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetExceeded, result.Outcome)
	assert.Zero(t, result.Stats.Nodes)
}

func TestSearcher_Run_Recorder(t *testing.T) {
	cfg := Config{AlphabetSize: 2, SubwordLength: 2, WordLength: 6, Seed: 3}

	mem := recorder.NewMemory()
	result, err := mustSearcher(t, cfg).Run(t.Context(), mem)
	require.NoError(t, err)
	assert.Len(t, result.Upwords, 30)
	assert.Equal(t, result.Upwords, mem.Words())

	errFull := errors.New("disk full")
	calls := 0
	failing := recorder.Func(func(context.Context, primitives.Word) error {
		calls++
		return errFull
	})
	result, err = mustSearcher(t, cfg).Run(t.Context(), failing)
	assert.ErrorIs(t, err, errFull)
	assert.Equal(t, 1, calls)
	assert.Len(t, result.Upwords, 1)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "exhausted", OutcomeExhausted.String())
	assert.Equal(t, "found", OutcomeFound.String())
	assert.Equal(t, "budget_exceeded", OutcomeBudgetExceeded.String())
	assert.Equal(t, "Outcome(7)", Outcome(7).String())
}

func BenchmarkPossibleUpwords(b *testing.B) {
	b.ReportAllocs()

	for _, tc := range []struct {
		name       string
		cfg        Config
		numUpwords int
	}{
		{name: "n2k4", cfg: Config{AlphabetSize: 2, SubwordLength: 4, WordLength: 19}, numUpwords: 5},
		{name: "n2k5", cfg: Config{AlphabetSize: 2, SubwordLength: 5, WordLength: 32}, numUpwords: 5},
		{name: "n3k3", cfg: Config{AlphabetSize: 3, SubwordLength: 3, WordLength: 29}, numUpwords: 5},
	} {
		b.Run(tc.name, func(b *testing.B) {
			seed := uint64(42)
			for b.Loop() {
				cfg := tc.cfg
				cfg.Seed = seed
				seed++
				s := mustSearcher(b, cfg)

				count := 0
				for range s.PossibleUpwords(b.Context()) {
					count++
					if count >= tc.numUpwords {
						break
					}
				}
			}
		})
	}
}
