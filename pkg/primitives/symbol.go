package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// Symbol is a single position of a word: either a letter 0..n-1 of the
// alphabet or the Wildcard.
type Symbol uint8

// Wildcard matches every letter of the alphabet when windows are evaluated.
const Wildcard Symbol = 0xff

// WildcardChar is how the Wildcard is written in text.
const WildcardChar = '*'

// letters used to write symbols, in symbol order.
const letters = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxAlphabetSize is the largest alphabet that has a single-character
// encoding.
const MaxAlphabetSize = len(letters)

var ErrInvalidSymbol = errors.New("invalid symbol")

func (s Symbol) IsWildcard() bool {
	return s == Wildcard
}

// Rune returns the character used to write s.
func (s Symbol) Rune() rune {
	if s == Wildcard {
		return WildcardChar
	}
	if int(s) >= len(letters) {
		return '?'
	}
	return rune(letters[s])
}

func (s Symbol) String() string {
	return string(s.Rune())
}

// SymbolOf decodes a single character for an alphabet of size n.
func SymbolOf(r rune, n int) (Symbol, error) {
	if r == WildcardChar {
		return Wildcard, nil
	}
	i := strings.IndexRune(letters, r)
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: %q is not in an alphabet of size %d", ErrInvalidSymbol, r, n)
	}
	return Symbol(i), nil
}

// Encode writes symbols as text, one character per symbol.
func Encode(symbols []Symbol) string {
	var b strings.Builder
	b.Grow(len(symbols))
	for _, s := range symbols {
		b.WriteRune(s.Rune())
	}
	return b.String()
}

// Decode is the inverse of Encode for an alphabet of size n.
func Decode(text string, n int) ([]Symbol, error) {
	symbols := make([]Symbol, 0, len(text))
	for _, r := range text {
		s, err := SymbolOf(r, n)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, nil
}

// InferAlphabetSize returns the smallest alphabet size that can decode text.
func InferAlphabetSize(text string) (int, error) {
	n := 1
	for _, r := range text {
		if r == WildcardChar {
			continue
		}
		i := strings.IndexRune(letters, r)
		if i < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSymbol, r)
		}
		n = max(n, i+1)
	}
	return n, nil
}
