package upword

import (
	"fmt"
	"time"

	"crosswarped.com/upword/pkg/primitives"
)

// Config describes a single search run.
type Config struct {
	// AlphabetSize is n, the number of letters.
	AlphabetSize int
	// SubwordLength is k, the length of the target subwords.
	SubwordLength int
	// WordLength is L, the length of the words searched for.
	WordLength int
	// Mask fixes the wildcard positions. A nil mask has no wildcards.
	Mask primitives.Mask

	// Seed drives the order in which branches are tried.
	Seed uint64
	// Unshuffled tries the letters of every position in ascending order, so
	// that the search walks words lexicographically and Seed has no effect.
	Unshuffled bool

	// MaxNodes caps the number of candidate extensions tried. Zero means no
	// cap.
	MaxNodes int64
	// Timeout caps the wall time of a run. Zero means no timeout.
	Timeout time.Duration

	StopAtFirstHit bool
	// PinFirstSymbol restricts the first fixed position to the first letter.
	// Every upword is a relabelling of one found this way.
	PinFirstSymbol bool
}

func DefaultConfig() Config {
	return Config{
		AlphabetSize:   2,
		SubwordLength:  3,
		WordLength:     8,
		StopAtFirstHit: true,
	}
}

// EffectiveMask returns the mask of the run, which is all fixed when Mask is
// nil.
func (c Config) EffectiveMask() primitives.Mask {
	if c.Mask == nil {
		return primitives.FixedMask(c.WordLength)
	}
	return c.Mask
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if c.AlphabetSize < 1 || c.AlphabetSize > primitives.MaxAlphabetSize {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidAlphabetSize, c.AlphabetSize, primitives.MaxAlphabetSize)
	}
	if c.SubwordLength < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSubwordLength, c.SubwordLength)
	}
	if c.WordLength < c.SubwordLength {
		return fmt.Errorf("%w: %d is shorter than the subword length %d", ErrInvalidWordLength, c.WordLength, c.SubwordLength)
	}
	if c.Mask != nil && len(c.Mask) != c.WordLength {
		return fmt.Errorf("%w: mask has length %d, word length is %d", ErrMaskLength, len(c.Mask), c.WordLength)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("%w: max nodes %d", ErrInvalidBudget, c.MaxNodes)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout %s", ErrInvalidBudget, c.Timeout)
	}
	if _, err := primitives.NewUniverse(c.AlphabetSize, c.SubwordLength); err != nil {
		return err
	}
	return nil
}
