package recorder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"crosswarped.com/upword/pkg/primitives"
)

// TextFile writes one upword per line.
type TextFile struct {
	w      *bufio.Writer
	closer io.Closer
}

// Create truncates or creates the file at path.
func Create(path string) (*TextFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &TextFile{w: bufio.NewWriter(f), closer: f}, nil
}

// Append opens the file at path for appending, creating it if needed.
func Append(path string) (*TextFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &TextFile{w: bufio.NewWriter(f), closer: f}, nil
}

// NewWriter writes to w. Close flushes but does not close w.
func NewWriter(w io.Writer) *TextFile {
	return &TextFile{w: bufio.NewWriter(w)}
}

// Record writes w and flushes so that a crashed run keeps what it found.
func (t *TextFile) Record(_ context.Context, w primitives.Word) error {
	if _, err := t.w.WriteString(w.Repr()); err != nil {
		return err
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return err
	}
	return t.w.Flush()
}

func (t *TextFile) Close() error {
	if err := t.w.Flush(); err != nil {
		return err
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// ReadWords reads one word per line. Blank lines and lines starting with '#'
// are skipped. When n is zero the alphabet size of each line is inferred from
// its symbols.
func ReadWords(ctx context.Context, r io.Reader, n int) ([]primitives.Word, error) {
	var words []primitives.Word
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		size := n
		if size == 0 {
			var err error
			if size, err = primitives.InferAlphabetSize(text); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		w, err := primitives.ParseWord(text, size)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		words = append(words, w)
	}
	return words, scanner.Err()
}

// LoadFile reads the words of the file at path, see ReadWords.
func LoadFile(ctx context.Context, path string, n int) ([]primitives.Word, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWords(ctx, f, n)
}
