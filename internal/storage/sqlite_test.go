package storage

import (
	"path/filepath"
	"testing"

	"github.com/matsen/sysreview/internal/article"
)

// setupTestDB creates a test database and JSONL file with test data
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	jsonlPath := filepath.Join(tmpDir, "articles.jsonl")

	records := []article.Record{
		{
			CitationKey:     "Smith2021",
			DOI:             "10.1234/smith",
			Title:           "Radiomics for Treatment Response",
			Abstract:        "MRI radiomics predicts pathological complete response.",
			Authors:         []article.Author{{FullName: "John Smith", FirstName: "John", LastName: "Smith"}},
			Year:            article.IntPtr(2021),
			Keywords:        []string{"radiomics", "MRI"},
			ScreeningStatus: "included",
			Labels:          []string{"MRI", "Machine Learning"},
		},
		{
			CitationKey:     "Jones2023",
			DOI:             "10.1234/jones",
			Title:           "Deep Learning on Mammograms",
			Abstract:        "Convolutional networks on mammography.",
			Authors:         []article.Author{{FullName: "Alice Jones", FirstName: "Alice", LastName: "Jones"}},
			Year:            article.IntPtr(2023),
			ScreeningStatus: "Excluded",
			Labels:          []string{"Mamografia", "Deep Learning"},
		},
		{
			CitationKey: "Brown2019",
			Title:       "Ultrasound Features",
			Authors:     []article.Author{{FullName: "Bob Brown", FirstName: "Bob", LastName: "Brown"}},
			Year:        article.IntPtr(2019),
			Labels:      []string{"Ultrasonido", "Machine Learning"},
		},
		{
			CitationKey: "NoYear",
			Title:       "Undated Preprint",
		},
	}

	if err := WriteAll(jsonlPath, records); err != nil {
		t.Fatalf("Failed to write test JSONL: %v", err)
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if n, err := db.RebuildFromJSONL(jsonlPath); err != nil {
		t.Fatalf("Failed to rebuild DB: %v", err)
	} else if n != len(records) {
		t.Fatalf("RebuildFromJSONL() = %d, want %d", n, len(records))
	}

	return db
}

func keys(records []article.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.CitationKey
	}
	return out
}

func TestDB_GetByKey(t *testing.T) {
	db := setupTestDB(t)

	rec, err := db.GetByKey("Smith2021")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if rec == nil {
		t.Fatal("GetByKey() returned nil")
	}
	if rec.Title != "Radiomics for Treatment Response" {
		t.Errorf("Title = %q", rec.Title)
	}
	if len(rec.Authors) != 1 || rec.Authors[0].LastName != "Smith" {
		t.Errorf("Authors = %+v", rec.Authors)
	}

	missing, err := db.GetByKey("Nope")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetByKey(Nope) = %+v, want nil", missing)
	}
}

func TestDB_ListAll_SourceOrder(t *testing.T) {
	db := setupTestDB(t)

	records, err := db.ListAll(0)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	want := []string{"Smith2021", "Jones2023", "Brown2019", "NoYear"}
	got := keys(records)
	if len(got) != len(want) {
		t.Fatalf("ListAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListAll()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	limited, err := db.ListAll(2)
	if err != nil {
		t.Fatalf("ListAll(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("ListAll(2) returned %d records", len(limited))
	}
}

func TestDB_Query(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"status normalized", Filter{Status: article.StatusExcluded}, []string{"Jones2023"}},
		{"empty status is pending", Filter{Status: article.StatusPending}, []string{"Brown2019", "NoYear"}},
		{"single label", Filter{Labels: []string{"Machine Learning"}}, []string{"Smith2021", "Brown2019"}},
		{"all labels required", Filter{Labels: []string{"Machine Learning", "MRI"}}, []string{"Smith2021"}},
		{"year range", Filter{YearFrom: 2020, YearTo: 2025}, []string{"Smith2021", "Jones2023"}},
		{"year from only", Filter{YearFrom: 2022}, []string{"Jones2023"}},
		{"limit", Filter{Limit: 1}, []string{"Smith2021"}},
		{"no match", Filter{Labels: []string{"PET"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := db.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			got := keys(records)
			if len(got) != len(tt.want) {
				t.Fatalf("Query() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Query()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDB_Search(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		query string
		want  string
	}{
		{"radiomics", "Smith2021"},
		{"mammography", "Jones2023"},
		{"Brown", "Brown2019"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := db.Search(tt.query, 10)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(results) != 1 || results[0].CitationKey != tt.want {
				t.Errorf("Search(%q) = %v, want [%s]", tt.query, keys(results), tt.want)
			}
		})
	}

	empty, err := db.Search("   ", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Search(blank) = %v, want none", keys(empty))
	}
}

func TestDB_Counts(t *testing.T) {
	db := setupTestDB(t)

	n, err := db.Count()
	if err != nil || n != 4 {
		t.Errorf("Count() = %d, %v; want 4", n, err)
	}

	statuses, err := db.StatusCounts()
	if err != nil {
		t.Fatalf("StatusCounts() error = %v", err)
	}
	if statuses[article.StatusPending] != 2 || statuses[article.StatusIncluded] != 1 || statuses[article.StatusExcluded] != 1 {
		t.Errorf("StatusCounts() = %v", statuses)
	}

	labels, err := db.LabelCounts()
	if err != nil {
		t.Fatalf("LabelCounts() error = %v", err)
	}
	if labels["Machine Learning"] != 2 || labels["MRI"] != 1 {
		t.Errorf("LabelCounts() = %v", labels)
	}
}

func TestDB_RebuildReplacesContents(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.Rebuild([]article.Record{{CitationKey: "Only2020", Title: "Only"}}); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	n, _ := db.Count()
	if n != 1 {
		t.Errorf("Count() after rebuild = %d, want 1", n)
	}
	labels, _ := db.LabelCounts()
	if len(labels) != 0 {
		t.Errorf("labels survived rebuild: %v", labels)
	}
}

func TestDB_SuggestionMetadata(t *testing.T) {
	db := setupTestDB(t)

	meta := SuggestionMetadata{
		CitationKey:  "Smith2021",
		ModelName:    "llama3.2",
		SuggestedAt:  1700000000,
		AbstractHash: "abc",
		Labels:       []string{"MRI"},
	}
	if err := db.SaveSuggestionMetadata(meta); err != nil {
		t.Fatalf("SaveSuggestionMetadata() error = %v", err)
	}

	got, err := db.GetSuggestionMetadata("Smith2021")
	if err != nil {
		t.Fatalf("GetSuggestionMetadata() error = %v", err)
	}
	if got == nil || got.ModelName != "llama3.2" || len(got.Labels) != 1 || got.Labels[0] != "MRI" {
		t.Errorf("GetSuggestionMetadata() = %+v", got)
	}

	// Metadata survives an index rebuild
	if _, err := db.Rebuild(nil); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if got, _ := db.GetSuggestionMetadata("Smith2021"); got == nil {
		t.Error("suggestion metadata was cleared by rebuild")
	}

	if err := db.ClearSuggestionMetadata(); err != nil {
		t.Fatalf("ClearSuggestionMetadata() error = %v", err)
	}
	if got, _ := db.GetSuggestionMetadata("Smith2021"); got != nil {
		t.Errorf("metadata after clear = %+v", got)
	}
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"radiomics", "radiomics"},
		{"  ", ""},
		{"t-cell", `"t-cell"`},
		{`say "hi"`, `"say ""hi"""`},
	}
	for _, tt := range tests {
		if got := prepareFTSQuery(tt.in); got != tt.want {
			t.Errorf("prepareFTSQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
