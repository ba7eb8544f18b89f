// Package recorder holds the consumers of the upwords a search finds.
package recorder

import (
	"context"
	"errors"
	"slices"
	"sync"

	"crosswarped.com/upword/pkg/primitives"
)

// Recorder accepts upwords as they are found. Implementations decide whether
// to deduplicate.
type Recorder interface {
	Record(ctx context.Context, w primitives.Word) error
}

// Func adapts a function to a Recorder.
type Func func(ctx context.Context, w primitives.Word) error

func (f Func) Record(ctx context.Context, w primitives.Word) error {
	return f(ctx, w)
}

// Memory keeps every recorded word in memory.
type Memory struct {
	mu    sync.Mutex
	words []primitives.Word
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, w primitives.Word) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words = append(m.words, w)
	return nil
}

// Words returns the recorded words in recording order.
func (m *Memory) Words() []primitives.Word {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.words)
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.words)
}

type multi []Recorder

// Multi records every word to each of recorders, in order. All recorders see
// the word even if an earlier one fails.
func Multi(recorders ...Recorder) Recorder {
	return multi(slices.DeleteFunc(slices.Clone(recorders), func(r Recorder) bool { return r == nil }))
}

func (m multi) Record(ctx context.Context, w primitives.Word) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type synchronized struct {
	mu sync.Mutex
	r  Recorder
}

// Synchronized serializes calls to r so that concurrent runs can share it.
func Synchronized(r Recorder) Recorder {
	if s, ok := r.(*synchronized); ok {
		return s
	}
	return &synchronized{r: r}
}

func (s *synchronized) Record(ctx context.Context, w primitives.Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Record(ctx, w)
}
