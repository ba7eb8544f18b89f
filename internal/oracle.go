package internal

import (
	"context"
	"fmt"

	"crosswarped.com/upword/pkg/primitives"
)

type OracleParams struct {
	AlphabetSize  int
	SubwordLength int
	Mask          primitives.Mask
}

type params struct {
	universe *primitives.Universe
	mask     primitives.Mask
	length   int
	k        int
}

func asParams(p OracleParams) (params, error) {
	u, err := primitives.NewUniverse(p.AlphabetSize, p.SubwordLength)
	if err != nil {
		return params{}, err
	}
	if len(p.Mask) < p.SubwordLength {
		return params{}, fmt.Errorf("mask of length %d is shorter than subwords of length %d", len(p.Mask), p.SubwordLength)
	}
	return params{
		universe: u,
		mask:     p.Mask,
		length:   len(p.Mask),
		k:        p.SubwordLength,
	}, nil
}

// Oracle decides whether a partial word can still be completed into an
// upword. It holds no state that changes during a search and is safe for
// concurrent use.
type Oracle struct {
	universe *primitives.Universe
	mask     primitives.Mask
	length   int

	// capacity[d] bounds the number of targets that the windows not yet
	// evaluated once d positions are filled can add: the straight windows
	// ending at positions >= d and every window that wraps around.
	capacity []int64
}

// NewOracle precomputes the capacity table for a mask.
func NewOracle(ctx context.Context, p OracleParams) (*Oracle, error) {
	params, err := asParams(p)
	if err != nil {
		return nil, err
	}

	windowCapacity := func(start int) int64 {
		return int64(params.universe.WindowSize(params.mask.WindowWildcards(start, params.k)))
	}

	capacity := make([]int64, params.length+1)

	// Windows starting at length-k+1 and later wrap around, and are only
	// evaluated once the word is complete.
	for start := params.length - params.k + 1; start < params.length; start++ {
		capacity[params.length] += windowCapacity(start)
	}

	for d := params.length - 1; d >= 0; d-- {
		if d&1023 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		capacity[d] = capacity[d+1]
		// The straight window ending at d.
		if d >= params.k-1 {
			capacity[d] += windowCapacity(d - params.k + 1)
		}
	}

	return &Oracle{
		universe: params.universe,
		mask:     params.mask,
		length:   params.length,
		capacity: capacity,
	}, nil
}

// IsFeasible returns false when no completion of prefix over the remaining
// positions can cover every target subword. coverage holds the targets of the
// straight windows of prefix.
//
// It never rejects a prefix that extends to an upword: every remaining window
// with w wildcards adds at most n^w targets. The mask is only checked at the
// last position of prefix; earlier positions were checked when they were
// placed.
func (o *Oracle) IsFeasible(prefix []primitives.Symbol, coverage *primitives.CoverageSet, remaining int) bool {
	d := len(prefix)
	if remaining < 0 || d+remaining != o.length {
		return false
	}
	if d > 0 {
		last := prefix[d-1]
		if last.IsWildcard() != o.mask.IsWildcard(d-1) {
			return false
		}
	}
	missing := int64(o.universe.Size() - coverage.Count())
	return o.capacity[d] >= missing
}

// Bound returns the capacity left once depth positions are filled.
func (o *Oracle) Bound(depth int) int64 {
	return o.capacity[depth]
}

// Slack returns how many targets the mask can cover beyond the universe.
// A negative slack means no word with this mask is an upword.
func (o *Oracle) Slack() int64 {
	return o.capacity[0] - int64(o.universe.Size())
}
