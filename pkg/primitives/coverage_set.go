package primitives

import (
	"fmt"
	"math/bits"
)

// CoverageSet efficiently represents a set of target subword indexes in
// [0, Capacity()).
type CoverageSet struct {
	words []uint64
	size  int
	count int
}

func NewCoverageSet(size int) *CoverageSet {
	return &CoverageSet{
		words: make([]uint64, (size+63)/64),
		size:  size,
	}
}

// Add adds an index to the set and reports whether it was new.
func (c *CoverageSet) Add(i int) (bool, error) {
	if i < 0 || i >= c.size {
		return false, fmt.Errorf("index %d is out of range [0, %d)", i, c.size)
	}
	return c.add(i), nil
}

func (c *CoverageSet) add(i int) bool {
	w, b := i>>6, uint64(1)<<(i&63)
	if c.words[w]&b != 0 {
		return false
	}
	c.words[w] |= b
	c.count++
	return true
}

// remove is only used to undo additions while backtracking.
func (c *CoverageSet) remove(i int) {
	w, b := i>>6, uint64(1)<<(i&63)
	if c.words[w]&b == 0 {
		panic(fmt.Sprintf("cannot remove %d: not in coverage set", i))
	}
	c.words[w] &^= b
	c.count--
}

// AddAll adds all indexes from another set to this set.
func (c *CoverageSet) AddAll(other *CoverageSet) {
	if c.size != other.size {
		panic(fmt.Sprintf("cannot add all: coverage sets have different sizes, %d != %d", c.size, other.size))
	}

	if c.IsFull() {
		return
	}

	count := 0
	for i, ow := range other.words {
		c.words[i] |= ow
		count += bits.OnesCount64(c.words[i])
	}
	c.count = count
}

// Contains checks if an index is in the set.
func (c *CoverageSet) Contains(i int) bool {
	if i < 0 || i >= c.size {
		return false
	}
	return c.words[i>>6]&(uint64(1)<<(i&63)) != 0
}

// IsFull checks if every target subword is covered.
func (c *CoverageSet) IsFull() bool {
	return c.count == c.size
}

// Capacity returns the size of the universe the set draws from.
func (c *CoverageSet) Capacity() int {
	return c.size
}

// Count returns the number of indexes in the set.
func (c *CoverageSet) Count() int {
	return c.count
}

// Missing returns the indexes not in the set, in increasing order.
func (c *CoverageSet) Missing() []int {
	var missing []int
	for i := range c.size {
		if !c.Contains(i) {
			missing = append(missing, i)
		}
	}
	return missing
}

func (c *CoverageSet) Clone() *CoverageSet {
	words := make([]uint64, len(c.words))
	copy(words, c.words)
	return &CoverageSet{
		words: words,
		size:  c.size,
		count: c.count,
	}
}

func (c *CoverageSet) Equal(other *CoverageSet) bool {
	if c.size != other.size || c.count != other.count {
		return false
	}
	for i := range c.words {
		if c.words[i] != other.words[i] {
			return false
		}
	}
	return true
}
