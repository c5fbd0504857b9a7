package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/bibtex"
)

// EntryType infers the BibTeX entry type from which venue fields are set.
// Checks run in order and the first match wins.
func EntryType(r article.Record) string {
	switch {
	case r.Journal != "":
		return "article"
	case r.Booktitle != "":
		return "inproceedings"
	case r.Publisher != "":
		return "book"
	case r.School != "":
		return "phdthesis"
	case r.Institution != "":
		return "techreport"
	default:
		return "article"
	}
}

// CitationKey returns the record's key, or synthesizes
// {first author's last name}{year} with spaces and commas removed.
// Without authors the prefix is "article"; without a year it is "unknown".
func CitationKey(r article.Record) string {
	if r.CitationKey != "" {
		return r.CitationKey
	}

	year := "unknown"
	if y, ok := r.YearValue(); ok {
		year = strconv.Itoa(y)
	}

	prefix := "article"
	if a, ok := r.FirstAuthor(); ok && a.LastName != "" {
		prefix = a.LastName
	}

	return strings.NewReplacer(" ", "", ",", "").Replace(prefix + year)
}

// AuthorsToBibTeX joins authors with " and ", preferring the full name,
// then "Last, First", then the bare last name.
func AuthorsToBibTeX(authors []article.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		switch {
		case a.FullName != "":
			names = append(names, a.FullName)
		case a.FirstName != "" && a.LastName != "":
			names = append(names, fmt.Sprintf("%s, %s", a.LastName, a.FirstName))
		case a.LastName != "":
			names = append(names, a.LastName)
		}
	}
	return strings.Join(names, " and ")
}

// KeywordsToBibTeX joins keywords with ", ".
func KeywordsToBibTeX(keywords []string) string {
	return strings.Join(keywords, ", ")
}

// ReviewNote flattens the review workflow fields into one note:
// "Status: ...; Labels: a, b; Notes: ...". Empty parts are omitted.
func ReviewNote(r article.Record) string {
	var parts []string
	if status := strings.TrimSpace(r.ScreeningStatus); status != "" {
		parts = append(parts, "Status: "+status)
	}
	if len(r.Labels) > 0 {
		parts = append(parts, "Labels: "+strings.Join(r.Labels, ", "))
	}
	if notes := strings.TrimSpace(r.ScreeningNotes); notes != "" {
		parts = append(parts, "Notes: "+notes)
	}
	return strings.Join(parts, "; ")
}

// ToEntry converts a record to a BibTeX entry. Text fields are escaped;
// the author list, keywords and key are written as is.
func ToEntry(r article.Record) bibtex.Entry {
	e := bibtex.NewEntry(EntryType(r), CitationKey(r))

	e.Set("author", AuthorsToBibTeX(r.Authors))
	if y, ok := r.YearValue(); ok {
		e.Set("year", strconv.Itoa(y))
	}
	e.Set("keywords", KeywordsToBibTeX(r.Keywords))

	escaped := map[string]string{
		"title":       r.Title,
		"journal":     r.Journal,
		"volume":      r.Volume,
		"publisher":   r.Publisher,
		"booktitle":   r.Booktitle,
		"school":      r.School,
		"institution": r.Institution,
		"doi":         r.DOI,
		"url":         r.URL,
		"isbn":        r.ISBN,
		"issn":        r.ISSN,
		"abstract":    r.Abstract,
		"note":        ReviewNote(r),
	}
	for name, value := range escaped {
		e.Set(name, EscapeBibTeX(value))
	}

	return e
}

// ToEntries converts records in order. Serialization sorts them by key.
func ToEntries(records []article.Record) []bibtex.Entry {
	entries := make([]bibtex.Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, ToEntry(r))
	}
	return entries
}
