package recorder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosswarped.com/upword/pkg/primitives"
)

func mustWord(t testing.TB, text string) primitives.Word {
	t.Helper()
	n, err := primitives.InferAlphabetSize(text)
	require.NoError(t, err)
	w, err := primitives.ParseWord(text, n)
	require.NoError(t, err)
	return w
}

func TestTextFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upwords.txt")
	words := []string{"00010111", "0001*1", "001122021"}

	out, err := Create(path)
	require.NoError(t, err)
	for _, w := range words {
		require.NoError(t, out.Record(t.Context(), mustWord(t, w)))
	}
	require.NoError(t, out.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(words, "\n")+"\n", string(data))

	loaded, err := LoadFile(t.Context(), path, 0)
	require.NoError(t, err)
	require.Len(t, loaded, len(words))
	for i, w := range loaded {
		assert.Equal(t, words[i], w.Repr())
	}

	// Appending keeps what is there.
	out, err = Append(path)
	require.NoError(t, err)
	require.NoError(t, out.Record(t.Context(), mustWord(t, "0011")))
	require.NoError(t, out.Close())

	loaded, err = LoadFile(t.Context(), path, 3)
	require.NoError(t, err)
	assert.Len(t, loaded, len(words)+1)
}

func TestTextFile_FlushesEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf)
	require.NoError(t, out.Record(t.Context(), mustWord(t, "01*")))
	assert.Equal(t, "01*\n", buf.String())
	require.NoError(t, out.Close())
}

func TestReadWords(t *testing.T) {
	input := `# binary words
0011

  0*11
# trailing comment
`
	words, err := ReadWords(t.Context(), strings.NewReader(input), 2)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "0011", words[0].Repr())
	assert.Equal(t, "0*11", words[1].Repr())

	_, err = ReadWords(t.Context(), strings.NewReader("0011\n0121\n"), 2)
	assert.ErrorIs(t, err, primitives.ErrInvalidSymbol)
	assert.ErrorContains(t, err, "line 2")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = ReadWords(ctx, strings.NewReader("0011\n"), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile_ReferenceUpwords(t *testing.T) {
	words, err := LoadFile(t.Context(), "../../testdata/upwords_n2_k8.txt", 2)
	require.NoError(t, err)
	require.NotEmpty(t, words)

	u, err := primitives.NewUniverse(2, 8)
	require.NoError(t, err)
	for _, w := range words {
		assert.True(t, u.IsUpword(w), "%s is not an upword", w)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Record(t.Context(), mustWord(t, "01")))
	require.NoError(t, m.Record(t.Context(), mustWord(t, "10")))
	assert.Equal(t, 2, m.Len())

	words := m.Words()
	words[0] = mustWord(t, "11")
	assert.Equal(t, "01", m.Words()[0].Repr())
}

func TestMulti(t *testing.T) {
	errFull := errors.New("disk full")
	first := NewMemory()
	second := NewMemory()
	failing := Func(func(context.Context, primitives.Word) error {
		return errFull
	})

	rec := Multi(first, nil, failing, second)
	err := rec.Record(t.Context(), mustWord(t, "0011"))
	assert.ErrorIs(t, err, errFull)
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 1, second.Len(), "a failing recorder must not stop the others")

	assert.NoError(t, Multi().Record(t.Context(), mustWord(t, "0011")))
}

func TestSynchronized(t *testing.T) {
	count := 0
	rec := Synchronized(Func(func(context.Context, primitives.Word) error {
		count++
		return nil
	}))
	assert.Same(t, rec, Synchronized(rec))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = rec.Record(t.Context(), primitives.Word{})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, count)
}

func TestCanonical(t *testing.T) {
	for _, tc := range []struct {
		a, b  string
		equal bool
	}{
		{"0110", "1001", true},
		{"0011", "0110", true},
		{"0*1", "1*0", true},
		{"0*1", "01*", true},
		{"0012", "0021", true},
		{"0001", "0011", false},
		{"0*01", "0101", false},
	} {
		ca, cb := Canonical(mustWord(t, tc.a)), Canonical(mustWord(t, tc.b))
		assert.Equal(t, tc.equal, ca == cb, "Canonical(%s) = %s, Canonical(%s) = %s", tc.a, ca, tc.b, cb)
	}

	assert.Equal(t, "001", Canonical(mustWord(t, "110")))
	assert.Equal(t, "01*", Canonical(mustWord(t, "0*1")))
	assert.Equal(t, "", Canonical(primitives.Word{}))
}

func TestDedup(t *testing.T) {
	mem := NewMemory()
	d := NewDedup(mem)

	for _, w := range []string{"0110", "1001", "0011", "0001", "1000", "0*1"} {
		require.NoError(t, d.Record(t.Context(), mustWord(t, w)))
	}
	assert.Equal(t, 3, d.Unique())
	require.Equal(t, 3, mem.Len())
	assert.Equal(t, "0110", mem.Words()[0].Repr())
	assert.Equal(t, "0001", mem.Words()[1].Repr())
	assert.Equal(t, "0*1", mem.Words()[2].Repr())
}

type fakeInserter struct {
	rows []*Row
	err  error
}

func (f *fakeInserter) Put(_ context.Context, src any) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, src.(*Row))
	return nil
}

func TestBigQuery_Record(t *testing.T) {
	ins := &fakeInserter{}
	b := newBigQuery(ins, 2, 3)
	foundAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return foundAt }

	require.NoError(t, b.Record(t.Context(), mustWord(t, "0001*1")))
	require.Len(t, ins.rows, 1)
	assert.Equal(t, &Row{
		Word:          "0001*1",
		AlphabetSize:  2,
		SubwordLength: 3,
		WordLength:    6,
		Wildcards:     1,
		FoundAt:       foundAt,
	}, ins.rows[0])
	assert.NoError(t, b.Close())

	ins.err = errors.New("quota exceeded")
	assert.ErrorIs(t, b.Record(t.Context(), mustWord(t, "0001*1")), ins.err)
}

func TestTable(t *testing.T) {
	table := Table{Project: "p", Dataset: "d", Table: "t"}
	assert.True(t, table.Valid())
	assert.Equal(t, "p.d.t", table.String())
	assert.False(t, Table{Project: "p", Table: "t"}.Valid())
}
