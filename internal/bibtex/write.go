package bibtex

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Indent is the field indentation used by Format.
const Indent = "  "

// Format renders a single entry. Fields are sorted by name and their
// values aligned; every field line ends with a comma.
func Format(e Entry) string {
	names := make([]string, 0, len(e.Fields))
	width := 0
	for name := range e.Fields {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("@%s{%s,\n", e.Type, e.Key))
	for _, name := range names {
		b.WriteString(fmt.Sprintf("%s%-*s = {%s},\n", Indent, width, name, e.Fields[name]))
	}
	b.WriteString("}\n")

	return b.String()
}

// FormatList renders entries ordered by citation key, separated by blank lines.
func FormatList(entries []Entry) string {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	formatted := make([]string, len(sorted))
	for i, e := range sorted {
		formatted[i] = Format(e)
	}
	return strings.Join(formatted, "\n")
}

// Write writes entries ordered by citation key to w.
func Write(w io.Writer, entries []Entry) error {
	_, err := io.WriteString(w, FormatList(entries))
	return err
}
