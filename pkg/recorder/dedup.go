package recorder

import (
	"context"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"crosswarped.com/upword/pkg/primitives"
)

// Dedup forwards a word to the wrapped recorder only if no word equal to it
// up to rotation and relabelling of the letters was forwarded before.
type Dedup struct {
	next Recorder

	mu   sync.Mutex
	seen map[uint64][]string
}

func NewDedup(next Recorder) *Dedup {
	return &Dedup{
		next: next,
		seen: make(map[uint64][]string),
	}
}

func (d *Dedup) Record(ctx context.Context, w primitives.Word) error {
	canonical := Canonical(w)
	key := xxhash.Sum64String(canonical)

	d.mu.Lock()
	if slices.Contains(d.seen[key], canonical) {
		d.mu.Unlock()
		return nil
	}
	d.seen[key] = append(d.seen[key], canonical)
	d.mu.Unlock()

	return d.next.Record(ctx, w)
}

// Unique returns the number of distinct classes seen.
func (d *Dedup) Unique() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, c := range d.seen {
		count += len(c)
	}
	return count
}

// Canonical returns the representative of the class of w under rotation and
// relabelling: for each rotation, letters are renamed in order of first
// appearance, and the least of the resulting encodings is kept.
func Canonical(w primitives.Word) string {
	symbols := w.Symbols()
	l := len(symbols)
	if l == 0 {
		return ""
	}

	best := make([]primitives.Symbol, l)
	candidate := make([]primitives.Symbol, l)
	rename := make(map[primitives.Symbol]primitives.Symbol)
	for r := range l {
		clear(rename)
		for i := range l {
			s := symbols[(r+i)%l]
			if !s.IsWildcard() {
				to, ok := rename[s]
				if !ok {
					to = primitives.Symbol(len(rename))
					rename[s] = to
				}
				s = to
			}
			candidate[i] = s
		}
		if r == 0 || slices.Compare(candidate, best) < 0 {
			copy(best, candidate)
		}
	}
	return primitives.Encode(best)
}
