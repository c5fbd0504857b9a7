package bibtex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleBib = `
% A leading comment is ignored
@string{nat = "Nature"}

@article{Smith2021,
  author    = {John Smith and Jane {van} Doe},
  title     = {{Breast} Cancer  Study},
  journal   = nat # { Medicine},
  year      = 2021,
  month     = mar,
  doi       = "10.1234/ABC_1",
  keywords  = {ML; DL, radiomics},
}

@comment{this {nested} block is skipped}

@inproceedings(Lee2020,
  title = "Deep {MRI} Features",
  booktitle = {Proc. MICCAI},
  year = {2020}
)
`

func TestParse_Entries(t *testing.T) {
	entries, errs := Parse([]byte(sampleBib))
	if len(errs) > 0 {
		t.Fatalf("Parse() returned errors: %v", errs)
	}
	if len(entries) != 2 {
		t.Fatalf("Parse() returned %d entries, want 2", len(entries))
	}

	smith := entries[0]
	if smith.Type != "article" || smith.Key != "Smith2021" {
		t.Errorf("entry 0 = @%s{%s}, want @article{Smith2021}", smith.Type, smith.Key)
	}

	tests := []struct {
		field string
		want  string
	}{
		{"author", "John Smith and Jane {van} Doe"},
		{"title", "{Breast} Cancer  Study"},
		{"journal", "Nature Medicine"},
		{"year", "2021"},
		{"month", "March"},
		{"doi", "10.1234/ABC_1"},
		{"keywords", "ML; DL, radiomics"},
	}
	for _, tt := range tests {
		if got := smith.Get(tt.field); got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}

	lee := entries[1]
	if lee.Type != "inproceedings" || lee.Key != "Lee2020" {
		t.Errorf("entry 1 = @%s{%s}, want @inproceedings{Lee2020}", lee.Type, lee.Key)
	}
	if got := lee.Get("booktitle"); got != "Proc. MICCAI" {
		t.Errorf("booktitle = %q, want Proc. MICCAI", got)
	}
	if got := lee.Get("TITLE"); got != "Deep {MRI} Features" {
		t.Errorf("Get is case-insensitive: title = %q", got)
	}
}

func TestParse_MalformedEntrySkipped(t *testing.T) {
	data := []byte(`
@article{Broken2020,
  title = {Missing brace,
  year 2020
@article{Good2021,
  title = {Fine},
  year = {2021},
}
`)
	entries, errs := Parse(data)
	if len(errs) == 0 {
		t.Fatal("Parse() expected an error for the broken entry")
	}
	var found bool
	for _, e := range entries {
		if e.Key == "Good2021" {
			found = true
		}
	}
	if !found {
		t.Errorf("Parse() lost the well-formed entry; got %+v", entries)
	}
}

func TestParse_Empty(t *testing.T) {
	entries, errs := Parse([]byte("no entries here, just text with an email@example.com"))
	if len(entries) != 0 || len(errs) != 0 {
		t.Errorf("Parse() = %v, %v; want nothing", entries, errs)
	}
}

func TestDecodeLaTeX(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Garc{\'\i}a`, "Garc{í}a"},
		{`M\"{u}ller`, "Müller"},
		{`\c{C}elik`, "Çelik"},
		{`Stra\ss e`, "Straße"},
		{`A \& B`, "A & B"},
		{`50\% of \$`, "50% of $"},
		{`Pe\~na`, "Peña"},
		{`caf\'e`, "café"},
		{`\url{http://x.org/~me}`, `\url{http://x.org/~me}`},
		{`2\^{}3`, "2^3"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := DecodeLaTeX(tt.in); got != tt.want {
				t.Errorf("DecodeLaTeX(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormat_AlignedSortedTrailingComma(t *testing.T) {
	e := NewEntry("article", "Smith2021")
	e.Set("title", "A Study")
	e.Set("year", "2021")
	e.Set("abstract", "Text")
	e.Set("doi", "")

	got := Format(e)
	want := "@article{Smith2021,\n" +
		"  abstract = {Text},\n" +
		"  title    = {A Study},\n" +
		"  year     = {2021},\n" +
		"}\n"
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatList_OrderedByKey(t *testing.T) {
	entries := []Entry{NewEntry("article", "Zeta2020"), NewEntry("article", "Alpha2019"), NewEntry("book", "Mid2021")}
	got := FormatList(entries)

	a := strings.Index(got, "Alpha2019")
	m := strings.Index(got, "Mid2021")
	z := strings.Index(got, "Zeta2020")
	if !(a < m && m < z) {
		t.Errorf("FormatList() not ordered by key:\n%s", got)
	}
	if entries[0].Key != "Zeta2020" {
		t.Error("FormatList() must not reorder its input")
	}
}

func TestWriteThenParse(t *testing.T) {
	e := NewEntry("article", "Doe2022")
	e.Set("title", `A \& B`)
	e.Set("author", "Jane Doe and John Roe")
	e.Set("year", "2022")

	var b strings.Builder
	if err := Write(&b, []Entry{e}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, errs := Parse([]byte(b.String()))
	if len(errs) > 0 || len(entries) != 1 {
		t.Fatalf("Parse(Write()) = %v, %v", entries, errs)
	}
	if got := entries[0].Get("title"); got != "A & B" {
		t.Errorf("title = %q, want %q", got, "A & B")
	}
	if got := entries[0].Get("author"); got != "Jane Doe and John Roe" {
		t.Errorf("author = %q", got)
	}
}

func TestIndex_HasEntry(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "refs.bib")
	content := "@article{Smith2021,\n  doi = {https://doi.org/10.1234/ABC},\n}\n@article{NoDOI2020,\n  title = {X},\n}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	idx, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	tests := []struct {
		name string
		key  string
		doi  string
		want bool
	}{
		{"doi match, different key", "Other", "10.1234/abc", true},
		{"key match", "NoDOI2020", "", true},
		{"no match", "New2023", "10.9999/zzz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.HasEntry(tt.key, tt.doi); got != tt.want {
				t.Errorf("HasEntry(%q, %q) = %v, want %v", tt.key, tt.doi, got, tt.want)
			}
		})
	}
}

func TestParseFile_Missing(t *testing.T) {
	idx, err := ParseFile(filepath.Join(t.TempDir(), "missing.bib"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(idx.Keys) != 0 {
		t.Errorf("expected empty index, got %v", idx.Keys)
	}
}

func TestAppendToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bib")
	if err := AppendToFile(path, "@article{A,\n}\n"); err != nil {
		t.Fatalf("AppendToFile() error = %v", err)
	}
	if err := AppendToFile(path, "@article{B,\n}\n"); err != nil {
		t.Fatalf("AppendToFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	entries, _ := Parse(data)
	if len(entries) != 2 {
		t.Errorf("expected 2 entries after append, got %d", len(entries))
	}
}
