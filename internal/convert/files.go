package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/bibtex"
)

// LoadBibTeX reads a .bib file and converts every entry. Entries the parser
// could not read are skipped and returned as warnings.
func LoadBibTeX(path string) ([]article.Record, []error, error) {
	data, err := readSource(path)
	if err != nil {
		return nil, nil, err
	}

	entries, warnings := bibtex.Parse(data)
	if len(entries) == 0 {
		return nil, warnings, fmt.Errorf("%s: %w", path, ErrEmptyInput)
	}

	return FromEntries(entries, path), warnings, nil
}

// WriteBibTeX converts records and writes them to path ordered by key.
// Nothing is written when records is empty or serialization fails.
func WriteBibTeX(path string, records []article.Record) error {
	if len(records) == 0 {
		return ErrEmptyInput
	}
	entries := ToEntries(records)
	return writeFileAtomic(path, func(w io.Writer) error {
		return bibtex.Write(w, entries)
	})
}

// LoadJSON reads a JSON array of article records.
func LoadJSON(path string) ([]article.Record, error) {
	data, err := readSource(path)
	if err != nil {
		return nil, err
	}

	records, err := DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyInput)
	}
	return records, nil
}

// DecodeJSON decodes a JSON array of records. Missing fields stay empty.
func DecodeJSON(data []byte) ([]article.Record, error) {
	var records []article.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteJSON writes records as an indented JSON array. Non-ASCII text is
// written as is.
func WriteJSON(path string, records []article.Record) error {
	if len(records) == 0 {
		return ErrEmptyInput
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		return EncodeJSON(w, records)
	})
}

// EncodeJSON writes records as an indented JSON array.
func EncodeJSON(w io.Writer, records []article.Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return data, nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, so a failed write leaves no partial output.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
