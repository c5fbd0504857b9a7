package bibtex

import (
	"os"
	"strings"
)

// Index indexes existing BibTeX entries for deduplication.
type Index struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps normalized DOI values to citation keys
	DOIs map[string]string
}

// NewIndex creates an index over the given entries.
func NewIndex(entries []Entry) *Index {
	idx := &Index{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
	for _, e := range entries {
		idx.Add(e.Key, e.Get("doi"))
	}
	return idx
}

// Add records a key and its DOI.
func (idx *Index) Add(key, doi string) {
	if key != "" {
		idx.Keys[key] = true
	}
	if doi := NormalizeDOI(doi); doi != "" && key != "" {
		idx.DOIs[doi] = key
	}
}

// HasEntry returns true if the entry already exists (by DOI or key).
// DOI is the primary match; citation key is the fallback if no DOI.
func (idx *Index) HasEntry(key, doi string) bool {
	if doi != "" {
		if _, exists := idx.DOIs[NormalizeDOI(doi)]; exists {
			return true
		}
	}
	return idx.Keys[key]
}

// ParseFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist.
func ParseFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewIndex(nil), nil
		}
		return nil, err
	}

	// Malformed entries cannot collide with anything we write, so parse
	// errors are ignored here.
	entries, _ := Parse(data)
	return NewIndex(entries), nil
}

// NormalizeDOI normalizes a DOI for comparison.
// Removes common prefixes like "https://doi.org/" and lowercases.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

// AppendToFile appends BibTeX content to a file.
func AppendToFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// Ensure we start on a new line
	_, err = file.WriteString("\n" + content)
	return err
}
