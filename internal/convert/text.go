// Package convert maps BibTeX entries to article records and back.
package convert

import (
	"strings"

	"github.com/matsen/sysreview/internal/article"
)

// CleanText removes literal braces, collapses whitespace runs to one space
// and trims the ends.
func CleanText(s string) string {
	s = strings.NewReplacer("{", "", "}", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseAuthors splits a BibTeX author string on " and ". Each name is
// cleaned; the last token becomes the last name. Empty names are dropped.
// Line breaks inside the field count as spaces.
func ParseAuthors(raw string) []article.Author {
	authors := []article.Author{}
	raw = strings.Join(strings.Fields(raw), " ")
	if raw == "" {
		return authors
	}
	for _, piece := range strings.Split(raw, " and ") {
		if a, ok := article.NewAuthor(CleanText(piece)); ok {
			authors = append(authors, a)
		}
	}
	return authors
}

// ParseKeywords splits on ',' or ';', trims tokens and drops empty ones.
// Order and duplicates are kept.
func ParseKeywords(raw string) []string {
	keywords := []string{}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	for _, f := range fields {
		if kw := strings.TrimSpace(f); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// ParseYear parses a raw BibTeX year. See article.ParseYear.
func ParseYear(raw string) *int {
	return article.ParseYear(raw)
}

// bibtexEscaper escapes characters special to BibTeX/LaTeX in one pass,
// so the backslashes and braces it inserts are never escaped again.
var bibtexEscaper = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"^", `\^{}`,
	"~", `\~{}`,
)

// EscapeBibTeX escapes & % $ # ^ _ ~ { } for output in a BibTeX field.
func EscapeBibTeX(s string) string {
	return bibtexEscaper.Replace(s)
}
