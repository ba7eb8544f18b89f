package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"crosswarped.com/upword"
	"crosswarped.com/upword/pkg/logger"
	"crosswarped.com/upword/pkg/primitives"
	"crosswarped.com/upword/pkg/recorder"
)

const (
	alphabetSizeFlag      = "alphabet-size"
	subwordLengthFlag     = "subword-length"
	wordLengthFlag        = "word-length"
	maskFlag              = "mask"
	wildcardPeriodFlag    = "wildcard-period"
	wildcardOffsetFlag    = "wildcard-offset"
	wildcardPositionsFlag = "wildcard-positions"
	seedFlag              = "seed"
	runsFlag              = "runs"
	parallelismFlag       = "parallelism"
	maxNodesFlag          = "max-nodes"
	timeoutFlag           = "timeout"
	allFlag               = "all"
	pinFirstSymbolFlag    = "pin-first-symbol"
	unshuffledFlag        = "unshuffled"
	outputFlag            = "output"
	appendFlag            = "append"
	dedupFlag             = "dedup"
	bqProjectFlag         = "bq-project"
	bqDatasetFlag         = "bq-dataset"
	bqTableFlag           = "bq-table"
	logFormatFlag         = "log-format"
	logLevelFlag          = "log-level"
	profileFlag           = "profile"
	profileFileFlag       = "profile-file"
	memoryProfileFileFlag = "memory-profile-file"
)

func NewSearchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Searches for upwords with a fixed length and wildcard layout",
		Long: `Searches for upwords with a fixed length and wildcard layout.

Each run is a randomized depth-first search seeded by --seed, --seed+1, ...
A run ends when it finds an upword (unless --all), explores every feasible
branch, or runs out of --max-nodes or --timeout. Not finding an upword is
not an error.

Wildcards are placed with --mask ('_' fixed, '*' wildcard), with
--wildcard-period/--wildcard-offset, or with --wildcard-positions. When
--word-length is 0 it defaults to n^(k-1)+(k-1) with a wildcard period and
to n^k otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), v, cmd.OutOrStdout())
		},
	}
	bindSearchFlags(v, cmd)
	return cmd
}

func bindSearchFlags(v *viper.Viper, cmd *cobra.Command) {
	defaultConfig := upword.DefaultConfig()
	flags := cmd.Flags()

	flags.Int(alphabetSizeFlag, defaultConfig.AlphabetSize, "the number of letters n")
	flags.Int(subwordLengthFlag, defaultConfig.SubwordLength, "the length k of the subwords to cover")
	flags.Int(wordLengthFlag, 0, "the length L of the words to search for")
	flags.String(maskFlag, "", "the wildcard layout, one '_' or '*' per position")
	flags.Int(wildcardPeriodFlag, 0, "place a wildcard every this many positions")
	flags.Int(wildcardOffsetFlag, -1, "the position of the wildcard within each period (default period-1)")
	flags.IntSlice(wildcardPositionsFlag, nil, "explicit wildcard positions")
	flags.Uint64(seedFlag, uint64(time.Now().UnixNano()), "the seed of the first run")
	flags.Int(runsFlag, 1, "the number of independent runs")
	flags.Int(parallelismFlag, 0, "the number of runs executed at once (default: number of CPUs)")
	flags.Int64(maxNodesFlag, 0, "the node budget of each run (0: unlimited)")
	flags.Duration(timeoutFlag, time.Minute, "the wall time budget of each run (0: unlimited)")
	flags.Bool(allFlag, false, "keep searching after the first upword of a run")
	flags.Bool(pinFirstSymbolFlag, false, "only search words whose first fixed position holds the first letter")
	flags.Bool(unshuffledFlag, false, "try letters in ascending order instead of a seeded shuffle")
	flags.String(outputFlag, "upwords.txt", "the file upwords are written to, one per line ('-' for stdout)")
	flags.Bool(appendFlag, false, "append to the output file instead of truncating it")
	flags.Bool(dedupFlag, false, "drop upwords equal to an earlier one up to rotation and relabelling")
	flags.String(bqProjectFlag, "", "also record upwords to this BigQuery project")
	flags.String(bqDatasetFlag, "", "the BigQuery dataset upwords are recorded to")
	flags.String(bqTableFlag, "", "the BigQuery table upwords are recorded to")
	flags.String(logFormatFlag, "text", "the log format: text or json")
	flags.String(logLevelFlag, "info", "the log level: none, debug, info, warn or error")
	flags.Bool(profileFlag, false, "profile the search")
	flags.String(profileFileFlag, "cpu.pprof", "the file to write the CPU profile to")
	flags.String(memoryProfileFileFlag, "mem.pprof", "the file to write the memory profile to")

	for _, name := range []string{
		alphabetSizeFlag, subwordLengthFlag, wordLengthFlag, maskFlag,
		wildcardPeriodFlag, wildcardOffsetFlag, wildcardPositionsFlag,
		seedFlag, runsFlag, parallelismFlag, maxNodesFlag, timeoutFlag, allFlag,
		pinFirstSymbolFlag, unshuffledFlag, outputFlag, appendFlag, dedupFlag,
		bqProjectFlag, bqDatasetFlag, bqTableFlag,
		logFormatFlag, logLevelFlag, profileFlag, profileFileFlag, memoryProfileFileFlag,
	} {
		bind(v, flags, name)
	}

	cmd.MarkFlagsMutuallyExclusive(maskFlag, wildcardPeriodFlag, wildcardPositionsFlag)
	cmd.MarkFlagsRequiredTogether(bqProjectFlag, bqDatasetFlag, bqTableFlag)
}

// searchConfig builds the configuration shared by every run.
func searchConfig(v *viper.Viper) (upword.Config, error) {
	cfg := upword.Config{
		AlphabetSize:   v.GetInt(alphabetSizeFlag),
		SubwordLength:  v.GetInt(subwordLengthFlag),
		WordLength:     v.GetInt(wordLengthFlag),
		Seed:           v.GetUint64(seedFlag),
		MaxNodes:       v.GetInt64(maxNodesFlag),
		Timeout:        v.GetDuration(timeoutFlag),
		StopAtFirstHit: !v.GetBool(allFlag),
		PinFirstSymbol: v.GetBool(pinFirstSymbolFlag),
		Unshuffled:     v.GetBool(unshuffledFlag),
	}

	u, err := primitives.NewUniverse(cfg.AlphabetSize, cfg.SubwordLength)
	if err != nil {
		return cfg, err
	}

	mask := v.GetString(maskFlag)
	period := v.GetInt(wildcardPeriodFlag)
	positions := v.GetIntSlice(wildcardPositionsFlag)

	if cfg.WordLength == 0 {
		switch {
		case mask != "":
			cfg.WordLength = len(mask)
		case period > 0:
			cfg.WordLength = u.TightLength()
		default:
			cfg.WordLength = u.Size()
		}
	}

	switch {
	case mask != "":
		if cfg.Mask, err = primitives.ParseMask(mask); err != nil {
			return cfg, err
		}
	case period > 0:
		offset := v.GetInt(wildcardOffsetFlag)
		if offset < 0 {
			offset = period - 1
		}
		cfg.Mask = primitives.PeriodicMask(cfg.WordLength, period, offset)
	case len(positions) > 0:
		if cfg.Mask, err = primitives.PositionsMask(cfg.WordLength, positions...); err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.Validate()
}

func searchRecorder(ctx context.Context, v *viper.Viper, cfg upword.Config, stdout io.Writer) (recorder.Recorder, func() error, error) {
	var (
		recorders []recorder.Recorder
		closers   []func() error
	)
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	switch output := v.GetString(outputFlag); output {
	case "":
	case "-":
		t := recorder.NewWriter(stdout)
		recorders = append(recorders, t)
		closers = append(closers, t.Close)
	default:
		open := recorder.Create
		if v.GetBool(appendFlag) {
			open = recorder.Append
		}
		t, err := open(output)
		if err != nil {
			return nil, nil, fmt.Errorf("opening output file: %w", err)
		}
		recorders = append(recorders, t)
		closers = append(closers, t.Close)
	}

	table := recorder.Table{
		Project: v.GetString(bqProjectFlag),
		Dataset: v.GetString(bqDatasetFlag),
		Table:   v.GetString(bqTableFlag),
	}
	if table.Valid() {
		bq, err := recorder.NewBigQuery(ctx, table, cfg.AlphabetSize, cfg.SubwordLength)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		recorders = append(recorders, bq)
		closers = append(closers, bq.Close)
	}

	rec := recorder.Multi(recorders...)
	if v.GetBool(dedupFlag) {
		rec = recorder.NewDedup(rec)
	}
	return rec, closeAll, nil
}

func runSearch(ctx context.Context, v *viper.Viper, stdout io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := logger.NewLogger(v.GetString(logFormatFlag), v.GetString(logLevelFlag))
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := searchConfig(v)
	if err != nil {
		return err
	}

	if v.GetBool(profileFlag) {
		f, err := os.Create(v.GetString(profileFileFlag))
		if err != nil {
			return fmt.Errorf("creating profile file: %w", err)
		}
		defer f.Close()

		mf, err := os.Create(v.GetString(memoryProfileFileFlag))
		if err != nil {
			return fmt.Errorf("creating memory profile file: %w", err)
		}
		defer func() {
			if werr := pprof.WriteHeapProfile(mf); werr != nil {
				log.Warn("writing heap profile", zap.Error(werr))
			}
			mf.Close()
		}()

		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	rec, closeRecorders, err := searchRecorder(ctx, v, cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeRecorders(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output: %w", cerr)
		}
	}()

	log.Info("searching for upwords",
		zap.Int("alphabet_size", cfg.AlphabetSize),
		zap.Int("subword_length", cfg.SubwordLength),
		zap.Int("word_length", cfg.WordLength),
		zap.String("mask", cfg.EffectiveMask().String()),
		zap.Int("runs", v.GetInt(runsFlag)),
	)

	results, err := upword.RunMany(ctx, cfg, upword.RunManyParams{
		Seeds:       upword.Seeds(cfg.Seed, max(1, v.GetInt(runsFlag))),
		Parallelism: v.GetInt(parallelismFlag),
		Logger:      log,
	}, rec)

	for _, r := range results {
		if r == nil {
			continue
		}
		log.Info("run finished",
			zap.Uint64("seed", r.Seed),
			zap.Stringer("outcome", r.Outcome),
			zap.Bool("exhausted", r.Exhausted),
			zap.Int("upwords", len(r.Upwords)),
			zap.Int64("nodes", r.Stats.Nodes),
			zap.Int64("pruned", r.Stats.Pruned),
		)
	}
	return err
}
