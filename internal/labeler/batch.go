package labeler

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/matsen/sysreview/internal/article"
)

// Suggestion is the outcome of labeling one article.
type Suggestion struct {
	CitationKey string   `json:"bibtex_id"`
	Labels      []string `json:"labels"`
	Skipped     bool     `json:"skipped,omitempty"` // No abstract to label
}

// SuggestAll labels records concurrently, at most workers at a time.
// Results are in input order. The first request error cancels the rest.
func SuggestAll(ctx context.Context, s Suggester, records []article.Record, workers int) ([]Suggestion, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Suggestion, len(records))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, rec := range records {
		i, rec := i, rec
		results[i].CitationKey = rec.CitationKey
		if strings.TrimSpace(rec.Abstract) == "" {
			results[i].Skipped = true
			continue
		}
		g.Go(func() error {
			labels, err := s.Suggest(gCtx, rec.Abstract)
			if err != nil {
				return err
			}
			results[i].Labels = labels
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Merge adds suggested labels to existing ones, keeping existing order.
func Merge(existing, suggested []string) []string {
	return article.DedupeLabels(append(append([]string(nil), existing...), suggested...))
}
