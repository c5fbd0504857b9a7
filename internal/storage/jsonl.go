// Package storage persists article records as JSONL and indexes them in SQLite.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/bibtex"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// Import actions.
const (
	ActionNew    = "new"
	ActionUpdate = "update"
)

// ArticleWithAction pairs a record with an import action.
type ArticleWithAction struct {
	Record      article.Record
	Action      string // new, update
	ExistingIdx int    // Index in existing records (for updates)
}

// ReadAll reads all records from a JSONL file.
func ReadAll(path string) ([]article.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing file means an empty collection
		}
		return nil, fmt.Errorf("opening articles file: %w", err)
	}
	defer f.Close()

	var records []article.Record
	scanner := bufio.NewScanner(f)

	// Abstracts can be long
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec article.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading articles file: %w", err)
	}

	return records, nil
}

// WriteAll writes all records to a JSONL file, replacing existing content.
func WriteAll(path string, records []article.Record) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating articles file: %w", err)
	}

	w := bufio.NewWriter(f)
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("encoding article %d: %w", i, err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing articles file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing articles file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// FindByDOI searches for a record by DOI. DOIs are compared normalized.
func FindByDOI(records []article.Record, doi string) (int, bool) {
	doi = bibtex.NormalizeDOI(doi)
	if doi == "" {
		return -1, false
	}
	for i, rec := range records {
		if bibtex.NormalizeDOI(rec.DOI) == doi {
			return i, true
		}
	}
	return -1, false
}

// FindByKey searches for a record by citation key.
func FindByKey(records []article.Record, key string) (int, bool) {
	for i, rec := range records {
		if rec.CitationKey == key {
			return i, true
		}
	}
	return -1, false
}

// GenerateUniqueKey returns a key that doesn't conflict with existing records.
// If the base key exists, appends a, b, c, ... as BibTeX styles do.
func GenerateUniqueKey(records []article.Record, baseKey string) string {
	if _, found := FindByKey(records, baseKey); !found {
		return baseKey
	}

	for i := 0; ; i++ {
		candidate := baseKey + suffix(i)
		if _, found := FindByKey(records, candidate); !found {
			return candidate
		}
	}
}

// suffix maps 0, 1, ..., 25, 26, ... to a, b, ..., z, aa, ...
func suffix(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('a'+i%26)) + s
		i = i/26 - 1
	}
	return s
}
