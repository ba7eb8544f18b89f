package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"go.uber.org/zap"

	"crosswarped.com/upword"
	"crosswarped.com/upword/pkg/logger"
	"crosswarped.com/upword/pkg/primitives"
	"crosswarped.com/upword/pkg/recorder"
)

const (
	maxUpwordsLimit = 10
	defaultTimeout  = time.Minute
	deadlineMargin  = 5 * time.Second
)

var log = logger.MustNewLogger("json", "info")

type SearchUpwordsRequest struct {
	AlphabetSize   int    `json:"alphabetSize"`
	SubwordLength  int    `json:"subwordLength"`
	WordLength     int    `json:"wordLength"`
	Mask           string `json:"mask"`
	WildcardPeriod int    `json:"wildcardPeriod"`
	Seed           uint64 `json:"seed"`
	MaxNodes       int64  `json:"maxNodes"`
	MaxUpwords     int    `json:"maxUpwords"`
	PinFirstSymbol bool   `json:"pinFirstSymbol"`
	Unshuffled     bool   `json:"unshuffled"`
}

type SearchUpwordsResponse struct {
	Success bool     `json:"success"`
	Outcome string   `json:"outcome,omitempty"`
	Upwords []string `json:"upwords"`
	Nodes   int64    `json:"nodes"`
	Error   string   `json:"error,omitempty"`
}

// tableFromEnv returns the table upwords are recorded to, if configured.
func tableFromEnv() recorder.Table {
	return recorder.Table{
		Project: os.Getenv("UPWORD_BQ_PROJECT"),
		Dataset: os.Getenv("UPWORD_BQ_DATASET"),
		Table:   os.Getenv("UPWORD_BQ_TABLE"),
	}
}

// newRecorder opens the recorder of a request. Tests replace it.
var newRecorder = func(ctx context.Context, n, k int) (recorder.Recorder, func() error, error) {
	table := tableFromEnv()
	if !table.Valid() {
		return nil, func() error { return nil }, nil
	}
	bq, err := recorder.NewBigQuery(ctx, table, n, k)
	if err != nil {
		return nil, nil, err
	}
	return bq, bq.Close, nil
}

func requestConfig(req SearchUpwordsRequest) (upword.Config, error) {
	cfg := upword.Config{
		AlphabetSize:   req.AlphabetSize,
		SubwordLength:  req.SubwordLength,
		WordLength:     req.WordLength,
		Seed:           req.Seed,
		MaxNodes:       req.MaxNodes,
		PinFirstSymbol: req.PinFirstSymbol,
		Unshuffled:     req.Unshuffled,
	}
	if req.Mask != "" && req.WildcardPeriod > 0 {
		return cfg, errors.New("mask and wildcardPeriod are mutually exclusive")
	}

	if cfg.WordLength == 0 {
		u, err := primitives.NewUniverse(cfg.AlphabetSize, cfg.SubwordLength)
		if err != nil {
			return cfg, err
		}
		switch {
		case req.Mask != "":
			cfg.WordLength = len(req.Mask)
		case req.WildcardPeriod > 0:
			cfg.WordLength = u.TightLength()
		default:
			cfg.WordLength = u.Size()
		}
	}

	switch {
	case req.Mask != "":
		mask, err := primitives.ParseMask(req.Mask)
		if err != nil {
			return cfg, err
		}
		cfg.Mask = mask
	case req.WildcardPeriod > 0:
		cfg.Mask = primitives.PeriodicMask(cfg.WordLength, req.WildcardPeriod, req.WildcardPeriod-1)
	}
	return cfg, cfg.Validate()
}

func execute(ctx context.Context, req SearchUpwordsRequest) (*upword.Result, error) {
	if req.MaxUpwords <= 0 {
		return nil, fmt.Errorf("maxUpwords must be at least 1")
	}
	if req.MaxUpwords > maxUpwordsLimit {
		return nil, fmt.Errorf("maxUpwords must be at most %d", maxUpwordsLimit)
	}

	cfg, err := requestConfig(req)
	if err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline) - deadlineMargin
		log.Info("setting timeout", zap.Duration("timeout", timeout))
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rec, closeRecorder, err := newRecorder(ctx, cfg.AlphabetSize, cfg.SubwordLength)
	if err != nil {
		return nil, fmt.Errorf("opening recorder: %w", err)
	}
	defer func() {
		if err := closeRecorder(); err != nil {
			log.Warn("closing recorder", zap.Error(err))
		}
	}()

	searcher, err := upword.NewSearcher(cfg, upword.WithLogger(log))
	if err != nil {
		return nil, err
	}

	result := &upword.Result{Seed: cfg.Seed}
	for w := range searcher.PossibleUpwords(ctx) {
		log.Info("found upword",
			zap.Int("count", 1+len(result.Upwords)),
			zap.Int("max_upwords", req.MaxUpwords),
		)
		result.Upwords = append(result.Upwords, w)
		if rec != nil {
			if err := rec.Record(ctx, w); err != nil {
				return nil, fmt.Errorf("recording upword: %w", err)
			}
		}
		if len(result.Upwords) >= req.MaxUpwords {
			break
		}
	}
	result.Outcome = searcher.Outcome()
	result.Stats = searcher.Stats()
	return result, nil
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Content-Type", "application/json")
}

func searchUpwords(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	// CORS preflight
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprintf(w, `{"success": false, "error": "Method %s not allowed"}`, r.Method)
		return
	}

	var req SearchUpwordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("parsing JSON body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(SearchUpwordsResponse{
			Success: false,
			Error:   fmt.Sprintf("Invalid JSON: %v", err),
		})
		return
	}

	result, err := execute(r.Context(), req)

	response := SearchUpwordsResponse{
		Success: err == nil,
		Upwords: []string{},
	}
	if err != nil {
		response.Error = err.Error()
	} else {
		response.Outcome = result.Outcome.String()
		response.Nodes = result.Stats.Nodes
		for _, u := range result.Upwords {
			response.Upwords = append(response.Upwords, u.Repr())
		}
		if len(result.Upwords) == 0 {
			response.Error = "No upwords were found with the given parameters"
		}
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error("marshaling response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success": false, "error": "Internal server error"}`)
		return
	}
}

func main() {
	funcframework.RegisterHTTPFunction("/search-upwords", searchUpwords)

	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	hostname := ""
	if localOnly := os.Getenv("LOCAL_ONLY"); localOnly == "true" {
		hostname = "127.0.0.1"
	}
	if err := funcframework.StartHostPort(hostname, port); err != nil {
		log.Fatal("funcframework.StartHostPort", zap.Error(err))
	}
}
