// Package search scores streamed conversation records against a query and
// returns a deterministically ranked result set. Each pass owns its own
// corpus statistics and ranker; concurrent searches over independent
// readers never share state.
package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jkastner/convoscan/internal/export"
	"github.com/jkastner/convoscan/internal/logging"
)

var searchLog = logging.ForComponent(logging.CompSearch)

// Result is one ranked search hit.
type Result struct {
	Conversation   *export.Conversation
	Score          float64 // normalized into [0, 1]
	MatchedTurnIDs []string
	Snippet        string
}

// Search drives one streaming pass over the reader: filter, score, rank,
// limit. The reader is consumed and closed by the pass. Malformed entries
// are skipped (the assembler counts them); structural parse errors abort
// with no partial results. The memory high-water mark scales with the
// number of matches, not the export size - sorting needs the full matched
// set, which is the one documented exception to record-at-a-time bounds.
func Search(r *export.Reader, q *Query, progress export.ProgressFunc) ([]Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	cq := compile(q)
	stats := newCorpusStats()
	var candidates []*candidate

	it := r.Conversations()
	for {
		conv, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var malformed *export.MalformedEntryError
		if errors.As(err, &malformed) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if accept(conv, q) {
			if cand := analyze(conv, q, cq, stats); cand != nil {
				candidates = append(candidates, cand)
			}
		}

		if progress != nil && it.Processed()%export.ProgressInterval == 0 {
			progress(it.Processed())
		}
	}

	results := make([]Result, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, Result{
			Conversation:   cand.conv,
			Score:          scoreCandidate(cand, cq, stats),
			MatchedTurnIDs: cand.matchedTurns,
			Snippet:        extractSnippet(cand.conv, cand.matchedTurns),
		})
	}

	searchLog.Debug("pass_complete",
		slog.String("path", r.Path()),
		slog.Int("processed", it.Processed()),
		slog.Int("skipped", it.Skipped()),
		slog.Int("matched", len(results)))

	return rank(results, q), nil
}

// SearchAll runs one independent pass per export file and merges the ranked
// results under the same deterministic ordering rules. Every pass opens its
// own reader, so passes are safe to run concurrently; corpus statistics are
// per-file by construction.
func SearchAll(ctx context.Context, paths []string, q *Query, progress export.ProgressFunc) ([]Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		merged []Result
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := export.Open(path)
			if err != nil {
				return err
			}
			defer r.Close()

			results, err := Search(r, q, progress)
			if err != nil {
				return err
			}
			mu.Lock()
			merged = append(merged, results...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rank(merged, q), nil
}
