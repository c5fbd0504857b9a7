// Package article defines the structured document stored for each reviewed article.
package article

import "strings"

// ImportedFromBibTeX marks records produced by the BibTeX converter.
const ImportedFromBibTeX = "bibtex"

// Record is one reviewed article. JSON field names match the document
// collection layout, so exported files load directly into the database.
type Record struct {
	// Identity
	CitationKey string `json:"bibtex_id" bson:"bibtex_id"`

	// Bibliographic metadata
	Title           string   `json:"title" bson:"title"`
	Authors         []Author `json:"authors" bson:"authors"`
	Year            *int     `json:"year" bson:"year"`
	PublicationDate string   `json:"publication_date,omitempty" bson:"publication_date,omitempty"` // Raw year value from the source
	Journal         string   `json:"journal" bson:"journal"`
	Publisher       string   `json:"publisher" bson:"publisher"`
	Volume          string   `json:"volume" bson:"volume"`
	Booktitle       string   `json:"booktitle,omitempty" bson:"booktitle,omitempty"`
	School          string   `json:"school,omitempty" bson:"school,omitempty"`
	Institution     string   `json:"institution,omitempty" bson:"institution,omitempty"`

	// Identifiers
	DOI  string `json:"doi" bson:"doi"`
	URL  string `json:"url" bson:"url"`
	ISBN string `json:"isbn" bson:"isbn"`
	ISSN string `json:"issn" bson:"issn"`

	// Content
	Abstract string   `json:"abstract" bson:"abstract"`
	Keywords []string `json:"keywords" bson:"keywords"`

	// Review workflow
	ScreeningStatus string   `json:"screening_status" bson:"screening_status"`
	ScreeningNotes  string   `json:"screening_notes" bson:"screening_notes"`
	Labels          []string `json:"labels" bson:"labels"`

	// Provenance
	ImportedFrom string `json:"imported_from" bson:"imported_from"`
	SourceFile   string `json:"source_file" bson:"source_file"`
}

// IntPtr returns a pointer to v, for building records with a year.
func IntPtr(v int) *int {
	return &v
}

// HasYear reports whether the record carries a usable year.
func (r Record) HasYear() bool {
	return r.Year != nil && *r.Year > 0
}

// YearValue returns the year and whether it is present.
func (r Record) YearValue() (int, bool) {
	if !r.HasYear() {
		return 0, false
	}
	return *r.Year, true
}

// Status returns the normalized screening status (empty means pending).
func (r Record) Status() ScreeningStatus {
	return NormalizeStatus(r.ScreeningStatus)
}

// IsIncluded reports whether the record was included during screening.
// The comparison is case-insensitive.
func (r Record) IsIncluded() bool {
	return r.Status() == StatusIncluded
}

// LabelSet returns the record's labels as a membership set.
func (r Record) LabelSet() LabelSet {
	return NewLabelSet(r.Labels)
}

// HasLabel reports whether the record carries the given label.
func (r Record) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// SetLabels replaces the labels, dropping blanks and duplicates while
// keeping first-seen order.
func (r *Record) SetLabels(labels []string) {
	r.Labels = DedupeLabels(labels)
}

// FirstAuthor returns the first author, if any.
func (r Record) FirstAuthor() (Author, bool) {
	if len(r.Authors) == 0 {
		return Author{}, false
	}
	return r.Authors[0], true
}

// DedupeLabels trims labels and removes blanks and repeats.
func DedupeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// LabelSet is an unordered set of labels.
type LabelSet map[string]struct{}

// NewLabelSet builds a set from a label slice.
func NewLabelSet(labels []string) LabelSet {
	s := make(LabelSet, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s LabelSet) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// HasAll reports whether every label is a member.
func (s LabelSet) HasAll(labels ...string) bool {
	for _, l := range labels {
		if !s.Has(l) {
			return false
		}
	}
	return true
}
