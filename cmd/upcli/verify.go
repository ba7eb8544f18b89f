package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crosswarped.com/upword"
	"crosswarped.com/upword/pkg/primitives"
	"crosswarped.com/upword/pkg/recorder"
)

const verifyPrefix = "verify."

var errNotUpword = errors.New("not an upword")

func NewVerifyCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Checks that recorded words are upwords",
		Long: `Checks that recorded words are upwords.

Words are read one per line from the file argument, or from a BigQuery table
when --bq-project, --bq-dataset and --bq-table are set. With --alphabet-size 0
the alphabet size of each word is inferred from the letters it uses.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), v, args, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.Int(alphabetSizeFlag, 0, "the number of letters n (0: infer from each word)")
	flags.Int(subwordLengthFlag, upword.DefaultConfig().SubwordLength, "the length k of the subwords that must be covered")
	flags.String(bqProjectFlag, "", "read words from this BigQuery project")
	flags.String(bqDatasetFlag, "", "the BigQuery dataset words are read from")
	flags.String(bqTableFlag, "", "the BigQuery table words are read from")
	cmd.MarkFlagsRequiredTogether(bqProjectFlag, bqDatasetFlag, bqTableFlag)

	// search binds the same flag names, so verify keeps its own keys and
	// reads UPWORD_VERIFY_* environment variables.
	for _, name := range []string{alphabetSizeFlag, subwordLengthFlag, bqProjectFlag, bqDatasetFlag, bqTableFlag} {
		mustBindPFlag(v, verifyPrefix+name, flags.Lookup(name))
		mustBindEnv(v, verifyPrefix+name, verifyEnv(name))
	}
	return cmd
}

// verifyEnv returns the environment variable of a verify flag, e.g.
// UPWORD_VERIFY_ALPHABET_SIZE.
func verifyEnv(name string) string {
	return "UPWORD_VERIFY_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func runVerify(ctx context.Context, v *viper.Viper, args []string, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	n := v.GetInt(verifyPrefix + alphabetSizeFlag)
	k := v.GetInt(verifyPrefix + subwordLengthFlag)
	table := recorder.Table{
		Project: v.GetString(verifyPrefix + bqProjectFlag),
		Dataset: v.GetString(verifyPrefix + bqDatasetFlag),
		Table:   v.GetString(verifyPrefix + bqTableFlag),
	}

	var (
		words []primitives.Word
		err   error
	)
	switch {
	case len(args) == 1:
		words, err = recorder.LoadFile(ctx, args[0], n)
	case table.Valid():
		if n == 0 {
			return fmt.Errorf("--%s is required when reading from BigQuery", alphabetSizeFlag)
		}
		words, err = recorder.QueryBigQuery(ctx, table, n, k)
	default:
		return errors.New("either a file or a BigQuery table is required")
	}
	if err != nil {
		return err
	}

	failed := 0
	for i, w := range words {
		missing, err := missingSubwords(w, n, k)
		if err != nil {
			return fmt.Errorf("word %d: %w", i+1, err)
		}
		if missing > 0 {
			failed++
			fmt.Fprintf(stdout, "FAIL %s (%d subwords missing)\n", w.Repr(), missing)
			continue
		}
		fmt.Fprintf(stdout, "ok   %s\n", w.Repr())
	}
	fmt.Fprintf(stdout, "%d of %d words are upwords\n", len(words)-failed, len(words))

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d words", errNotUpword, failed, len(words))
	}
	return nil
}

// missingSubwords counts the subwords of length k that no cyclic window of w
// matches. A zero n is inferred from w.
func missingSubwords(w primitives.Word, n, k int) (int, error) {
	if n == 0 {
		var err error
		if n, err = primitives.InferAlphabetSize(w.Repr()); err != nil {
			return 0, err
		}
	}
	u, err := primitives.NewUniverse(n, k)
	if err != nil {
		return 0, err
	}
	coverage := u.FullCoverage(w.Symbols())
	return u.Size() - coverage.Count(), nil
}
