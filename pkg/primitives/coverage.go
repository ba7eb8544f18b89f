package primitives

import (
	"errors"
	"fmt"
	"slices"
)

// MaxUniverseSize bounds n^k so that a coverage bitset stays within 128MiB.
const MaxUniverseSize = 1 << 30

var (
	ErrInvalidAlphabetSize  = errors.New("invalid alphabet size")
	ErrInvalidSubwordLength = errors.New("invalid subword length")
	ErrUniverseTooLarge     = errors.New("too many target subwords")
)

// Universe is the set of the n^k target subwords of length k over an
// alphabet of size n. A target subword is identified by its value as a
// base-n number, first symbol most significant.
type Universe struct {
	n    int
	k    int
	size int

	// weights[j] is the place value of offset j within a window.
	weights []int
	// powers[w] is n^w.
	powers []int
}

func NewUniverse(n, k int) (*Universe, error) {
	if n < 1 || n > MaxAlphabetSize {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidAlphabetSize, n, MaxAlphabetSize)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSubwordLength, k)
	}

	powers := make([]int, k+1)
	powers[0] = 1
	for w := 1; w <= k; w++ {
		if powers[w-1] > MaxUniverseSize/n {
			return nil, fmt.Errorf("%w: %d^%d exceeds %d", ErrUniverseTooLarge, n, k, MaxUniverseSize)
		}
		powers[w] = powers[w-1] * n
	}

	weights := make([]int, k)
	for j := range k {
		weights[j] = powers[k-1-j]
	}

	return &Universe{
		n:       n,
		k:       k,
		size:    powers[k],
		weights: weights,
		powers:  powers,
	}, nil
}

func (u *Universe) AlphabetSize() int {
	return u.n
}

func (u *Universe) SubwordLength() int {
	return u.k
}

// Size returns n^k.
func (u *Universe) Size() int {
	return u.size
}

// WindowSize returns how many target subwords a window with the given number
// of wildcards matches.
func (u *Universe) WindowSize(wildcards int) int {
	return u.powers[wildcards]
}

// Index returns the index of a wildcard-free subword of length k.
func (u *Universe) Index(subword []Symbol) (int, error) {
	if len(subword) != u.k {
		return 0, fmt.Errorf("%w: subword has length %d, want %d", ErrInvalidSubwordLength, len(subword), u.k)
	}
	idx := 0
	for j, s := range subword {
		if s.IsWildcard() || int(s) >= u.n {
			return 0, fmt.Errorf("%w: %s at %d", ErrInvalidSymbol, s, j)
		}
		idx += int(s) * u.weights[j]
	}
	return idx, nil
}

// Subword is the inverse of Index.
func (u *Universe) Subword(idx int) []Symbol {
	subword := make([]Symbol, u.k)
	for j := u.k - 1; j >= 0; j-- {
		subword[j] = Symbol(idx % u.n)
		idx /= u.n
	}
	return subword
}

// visitWindow calls visit with every target subword matched by the cyclic
// window of length k starting at start. scratch is reused between calls and
// returned.
func (u *Universe) visitWindow(word []Symbol, start int, scratch []int, visit func(int)) []int {
	scratch = scratch[:0]
	base := 0
	for j := range u.k {
		s := word[(start+j)%len(word)]
		if s.IsWildcard() {
			scratch = append(scratch, u.weights[j])
			continue
		}
		base += int(s) * u.weights[j]
	}

	w := len(scratch)
	// digits of the odometer over the wildcard offsets follow the weights.
	for range w {
		scratch = append(scratch, 0)
	}
	weights, digits := scratch[:w], scratch[w:]

	idx := base
	visit(idx)
	for {
		j := w - 1
		for ; j >= 0; j-- {
			digits[j]++
			idx += weights[j]
			if digits[j] < u.n {
				break
			}
			idx -= u.n * weights[j]
			digits[j] = 0
		}
		if j < 0 {
			return scratch
		}
		visit(idx)
	}
}

// WindowSubwords returns the target subwords matched by the cyclic window of
// length k starting at start.
func (u *Universe) WindowSubwords(word []Symbol, start int) []int {
	var matched []int
	u.visitWindow(word, start, nil, func(idx int) {
		matched = append(matched, idx)
	})
	return matched
}

// CoverageAfterExtension returns the coverage of prefix+next given the
// coverage of prefix. Only the straight window ending at the new position is
// evaluated; windows that wrap around are left to FullCoverage.
func (u *Universe) CoverageAfterExtension(prefix []Symbol, next Symbol, coverage *CoverageSet) *CoverageSet {
	var out *CoverageSet
	if coverage == nil {
		out = NewCoverageSet(u.size)
	} else {
		out = coverage.Clone()
	}

	word := append(slices.Clone(prefix), next)
	if len(word) >= u.k {
		u.visitWindow(word, len(word)-u.k, nil, func(idx int) {
			out.add(idx)
		})
	}
	return out
}

// PrefixCoverage evaluates every straight window of prefix.
func (u *Universe) PrefixCoverage(prefix []Symbol) *CoverageSet {
	out := NewCoverageSet(u.size)
	var scratch []int
	for start := 0; start+u.k <= len(prefix); start++ {
		scratch = u.visitWindow(prefix, start, scratch, func(idx int) {
			out.add(idx)
		})
	}
	return out
}

// FullCoverage evaluates all len(word) cyclic windows of a complete word.
func (u *Universe) FullCoverage(word []Symbol) *CoverageSet {
	out := NewCoverageSet(u.size)
	if len(word) == 0 {
		return out
	}
	var scratch []int
	for start := range word {
		scratch = u.visitWindow(word, start, scratch, func(idx int) {
			out.add(idx)
		})
	}
	return out
}

func (u *Universe) IsFullyCovered(coverage *CoverageSet) bool {
	return coverage.Capacity() == u.size && coverage.IsFull()
}

// IsUpword reports whether the cyclic windows of word cover the universe.
func (u *Universe) IsUpword(word Word) bool {
	return u.IsFullyCovered(u.FullCoverage(word.symbols))
}

// Model tracks the coverage of a word under construction. Additions are
// recorded on a trail so that they can be undone on backtrack.
//
// A Model is not safe for concurrent use.
type Model struct {
	universe *Universe
	set      *CoverageSet
	trail    []int
	scratch  []int
	visit    func(int)
}

func NewModel(u *Universe) *Model {
	m := &Model{
		universe: u,
		set:      NewCoverageSet(u.size),
	}
	m.visit = func(idx int) {
		if m.set.add(idx) {
			m.trail = append(m.trail, idx)
		}
	}
	return m
}

// Coverage returns the live coverage set. Callers must not modify it.
func (m *Model) Coverage() *CoverageSet {
	return m.set
}

func (m *Model) Covered() int {
	return m.set.Count()
}

// Mark returns a point on the trail that Undo can restore.
func (m *Model) Mark() int {
	return len(m.trail)
}

// AddWindow adds the targets matched by the cyclic window starting at start
// and returns how many of them were new.
func (m *Model) AddWindow(word []Symbol, start int) int {
	before := len(m.trail)
	m.scratch = m.universe.visitWindow(word, start, m.scratch, m.visit)
	if m.set.Count() > m.universe.size {
		panic(fmt.Sprintf("coverage holds %d subwords, universe has %d", m.set.Count(), m.universe.size))
	}
	return len(m.trail) - before
}

// Undo removes every addition made after mark.
func (m *Model) Undo(mark int) {
	for _, idx := range m.trail[mark:] {
		m.set.remove(idx)
	}
	m.trail = m.trail[:mark]
}

func (m *Model) IsFullyCovered() bool {
	return m.set.IsFull()
}

// TightLength returns n^(k-1) + (k-1), the length at which a word with one
// wildcard in every length-k frame has exactly enough windows to cover the
// universe.
func (u *Universe) TightLength() int {
	return u.powers[u.k-1] + u.k - 1
}
