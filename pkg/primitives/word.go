package primitives

import (
	"fmt"
	"slices"
)

// Word is a complete word over an alphabet plus the Wildcard.
//
// It represents a 'definite' candidate upword.
type Word struct {
	symbols []Symbol
}

func NewWord(symbols []Symbol) Word {
	return Word{
		symbols: symbols,
	}
}

// ParseWord decodes a word written with Encode.
func ParseWord(text string, n int) (Word, error) {
	symbols, err := Decode(text, n)
	if err != nil {
		return Word{}, err
	}
	return NewWord(symbols), nil
}

func (w Word) Len() int {
	return len(w.symbols)
}

func (w Word) At(i int) Symbol {
	return w.symbols[i]
}

// Symbols returns a copy of the symbols of w.
func (w Word) Symbols() []Symbol {
	return slices.Clone(w.symbols)
}

// Mask returns the pattern mask induced by the wildcard positions of w.
func (w Word) Mask() Mask {
	return MaskOf(w.symbols)
}

func (w Word) Wildcards() int {
	return w.Mask().Wildcards()
}

func (w Word) Equal(other Word) bool {
	return slices.Equal(w.symbols, other.symbols)
}

func (w Word) Repr() string {
	return Encode(w.symbols)
}

func (w Word) String() string {
	return w.Repr()
}

func (w Word) DebugString() string {
	return fmt.Sprintf("Word{length: %d, wildcards: %d, word: %s}", w.Len(), w.Wildcards(), w.Repr())
}
