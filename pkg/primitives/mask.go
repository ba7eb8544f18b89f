package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// SlotKind says how a position of the word is filled during a search.
type SlotKind uint8

const (
	// SlotFixed positions take one of the n letters.
	SlotFixed SlotKind = iota
	// SlotWildcard positions always hold the Wildcard.
	SlotWildcard
)

const (
	fixedChar = '_'
)

var ErrInvalidMask = errors.New("invalid pattern mask")

// Mask is the fixed layout of wildcard positions for a search. Its length is
// the length of the words searched for.
type Mask []SlotKind

// FixedMask returns a mask with no wildcards.
func FixedMask(length int) Mask {
	return make(Mask, length)
}

// PeriodicMask places a wildcard at every position p with p%period == offset.
//
// PeriodicMask(L, k, k-1) puts the wildcard in the last slot of every
// length-k frame.
func PeriodicMask(length, period, offset int) Mask {
	m := FixedMask(length)
	if period <= 0 {
		return m
	}
	for p := range m {
		if p%period == offset {
			m[p] = SlotWildcard
		}
	}
	return m
}

// PositionsMask places wildcards at the given positions.
func PositionsMask(length int, positions ...int) (Mask, error) {
	m := FixedMask(length)
	for _, p := range positions {
		if p < 0 || p >= length {
			return nil, fmt.Errorf("%w: wildcard position %d outside [0, %d)", ErrInvalidMask, p, length)
		}
		m[p] = SlotWildcard
	}
	return m, nil
}

// ParseMask reads a mask written as '_' (fixed) and '*' (wildcard).
func ParseMask(text string) (Mask, error) {
	m := make(Mask, 0, len(text))
	for i, r := range text {
		switch r {
		case fixedChar:
			m = append(m, SlotFixed)
		case WildcardChar:
			m = append(m, SlotWildcard)
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidMask, r, i)
		}
	}
	return m, nil
}

// MaskOf returns the mask induced by the wildcard positions of symbols.
func MaskOf(symbols []Symbol) Mask {
	m := FixedMask(len(symbols))
	for i, s := range symbols {
		if s.IsWildcard() {
			m[i] = SlotWildcard
		}
	}
	return m
}

func (m Mask) IsWildcard(p int) bool {
	return m[p] == SlotWildcard
}

// Wildcards returns the number of wildcard slots.
func (m Mask) Wildcards() int {
	count := 0
	for _, s := range m {
		if s == SlotWildcard {
			count++
		}
	}
	return count
}

// FirstFixed returns the first fixed position, or -1.
func (m Mask) FirstFixed() int {
	for p, s := range m {
		if s == SlotFixed {
			return p
		}
	}
	return -1
}

// WindowWildcards returns how many wildcards the cyclic window of length k
// starting at start contains.
func (m Mask) WindowWildcards(start, k int) int {
	count := 0
	for j := range k {
		if m[(start+j)%len(m)] == SlotWildcard {
			count++
		}
	}
	return count
}

func (m Mask) String() string {
	var b strings.Builder
	b.Grow(len(m))
	for _, s := range m {
		if s == SlotWildcard {
			b.WriteRune(WildcardChar)
		} else {
			b.WriteRune(fixedChar)
		}
	}
	return b.String()
}
