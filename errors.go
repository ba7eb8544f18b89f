package upword

import (
	"errors"

	"crosswarped.com/upword/pkg/primitives"
)

// Configuration errors. They are fatal to a run; use errors.Is to tell them
// apart.
var (
	ErrInvalidAlphabetSize  = primitives.ErrInvalidAlphabetSize
	ErrInvalidSubwordLength = primitives.ErrInvalidSubwordLength
	ErrUniverseTooLarge     = primitives.ErrUniverseTooLarge

	ErrInvalidWordLength = errors.New("invalid word length")
	ErrMaskLength        = errors.New("pattern mask length does not match word length")
	ErrInvalidBudget     = errors.New("invalid search budget")
)
