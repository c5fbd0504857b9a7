package convert

import (
	"path/filepath"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/bibtex"
)

// FromEntry converts one BibTeX entry to an article record. Missing or
// malformed fields become empty or absent; it never fails.
func FromEntry(e bibtex.Entry, sourceFile string) article.Record {
	rawYear := strings.TrimSpace(e.Get("year"))

	return article.Record{
		CitationKey:     e.Key,
		Title:           CleanText(e.Get("title")),
		Authors:         ParseAuthors(e.Get("author")),
		Year:            ParseYear(rawYear),
		PublicationDate: rawYear,
		Journal:         e.Get("journal"),
		Publisher:       e.Get("publisher"),
		Volume:          e.Get("volume"),
		Booktitle:       e.Get("booktitle"),
		School:          e.Get("school"),
		Institution:     e.Get("institution"),
		DOI:             e.Get("doi"),
		URL:             e.Get("url"),
		ISBN:            e.Get("isbn"),
		ISSN:            e.Get("issn"),
		Abstract:        CleanText(e.Get("abstract")),
		Keywords:        ParseKeywords(e.Get("keywords")),
		ScreeningStatus: string(article.StatusPending),
		ScreeningNotes:  "",
		Labels:          []string{},
		ImportedFrom:    article.ImportedFromBibTeX,
		SourceFile:      filepath.Base(sourceFile),
	}
}

// FromEntries converts entries in order. sourcePath may be a full path;
// only its base name is recorded.
func FromEntries(entries []bibtex.Entry, sourcePath string) []article.Record {
	records := make([]article.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, FromEntry(e, sourcePath))
	}
	return records
}
