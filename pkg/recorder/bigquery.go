package recorder

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"crosswarped.com/upword/pkg/primitives"
)

// Row is the BigQuery schema of a recorded upword.
type Row struct {
	Word          string    `bigquery:"word"`
	AlphabetSize  int       `bigquery:"alphabet_size"`
	SubwordLength int       `bigquery:"subword_length"`
	WordLength    int       `bigquery:"word_length"`
	Wildcards     int       `bigquery:"wildcards"`
	FoundAt       time.Time `bigquery:"found_at"`
}

// Table names a BigQuery table.
type Table struct {
	Project string
	Dataset string
	Table   string
}

func (t Table) String() string {
	return fmt.Sprintf("%s.%s.%s", t.Project, t.Dataset, t.Table)
}

func (t Table) Valid() bool {
	return t.Project != "" && t.Dataset != "" && t.Table != ""
}

type inserter interface {
	Put(ctx context.Context, src any) error
}

// BigQuery streams recorded upwords into a table.
type BigQuery struct {
	client        *bigquery.Client
	inserter      inserter
	alphabetSize  int
	subwordLength int
	now           func() time.Time
}

// NewBigQuery records upwords of an alphabet of size n and subword length k
// into table.
func NewBigQuery(ctx context.Context, table Table, n, k int) (*BigQuery, error) {
	client, err := bigquery.NewClient(ctx, table.Project)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	b := newBigQuery(client.Dataset(table.Dataset).Table(table.Table).Inserter(), n, k)
	b.client = client
	return b, nil
}

func newBigQuery(ins inserter, n, k int) *BigQuery {
	return &BigQuery{
		inserter:      ins,
		alphabetSize:  n,
		subwordLength: k,
		now:           time.Now,
	}
}

func (b *BigQuery) Record(ctx context.Context, w primitives.Word) error {
	row := &Row{
		Word:          w.Repr(),
		AlphabetSize:  b.alphabetSize,
		SubwordLength: b.subwordLength,
		WordLength:    w.Len(),
		Wildcards:     w.Wildcards(),
		FoundAt:       b.now().UTC(),
	}
	if err := b.inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("inserter.Put: %w", err)
	}
	return nil
}

func (b *BigQuery) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// QueryBigQuery reads back the upwords recorded in table for an alphabet of
// size n and subword length k.
func QueryBigQuery(ctx context.Context, table Table, n, k int) ([]primitives.Word, error) {
	client, err := bigquery.NewClient(ctx, table.Project)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	defer client.Close()

	query := fmt.Sprintf("SELECT word FROM `%s` WHERE alphabet_size = @n AND subword_length = @k ORDER BY found_at", table)
	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "n", Value: n},
		{Name: "k", Value: k},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("q.Run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("status.Err: %w", err)
	}
	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Read: %w", err)
	}

	var words []primitives.Word
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("it.Next: %w", err)
		}

		text, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("row[0] is not a string: %v", row[0])
		}
		w, err := primitives.ParseWord(text, n)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", text, err)
		}
		words = append(words, w)
	}
	return words, nil
}
