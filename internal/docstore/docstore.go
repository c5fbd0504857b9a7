// Package docstore provides the read-only article collections that reports
// are computed over: a JSON export, the local index or a MongoDB collection.
package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/convert"
	"github.com/matsen/sysreview/internal/storage"
)

// Source yields a snapshot of article records. Missing document fields
// decode as empty or absent.
type Source interface {
	Articles(ctx context.Context) ([]article.Record, error)
}

// FileSource reads a JSON array (.json) or JSON Lines (.jsonl) file.
type FileSource struct {
	Path string
}

// Articles reads every record in the file.
func (s FileSource) Articles(ctx context.Context) ([]article.Record, error) {
	if strings.EqualFold(filepath.Ext(s.Path), ".jsonl") {
		if _, err := os.Stat(s.Path); err != nil {
			return nil, fmt.Errorf("%w: %v", convert.ErrSourceUnavailable, err)
		}
		return storage.ReadAll(s.Path)
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", convert.ErrSourceUnavailable, err)
	}
	records, err := convert.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	return records, nil
}

// IndexSource reads from the local SQLite index.
type IndexSource struct {
	DB     *storage.DB
	Filter storage.Filter
}

// Articles returns the indexed records matching the filter.
func (s IndexSource) Articles(ctx context.Context) ([]article.Record, error) {
	return s.DB.Query(s.Filter)
}

// Filtered wraps a source and keeps only records carrying every label.
type Filtered struct {
	Source Source
	Labels []string
}

// Articles returns the wrapped source's records carrying every label.
func (f Filtered) Articles(ctx context.Context) ([]article.Record, error) {
	records, err := f.Source.Articles(ctx)
	if err != nil {
		return nil, err
	}
	if len(f.Labels) == 0 {
		return records, nil
	}
	var out []article.Record
	for _, r := range records {
		if r.LabelSet().HasAll(f.Labels...) {
			out = append(out, r)
		}
	}
	return out, nil
}
