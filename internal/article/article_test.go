package article

import (
	"encoding/json"
	"testing"
)

func TestNewAuthor(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOK    bool
		wantFirst string
		wantLast  string
		wantFull  string
	}{
		{"two tokens", "John Smith", true, "John", "Smith", "John Smith"},
		{"middle name", "Mary Ann  Evans", true, "Mary Ann", "Evans", "Mary Ann Evans"},
		{"single token", "Aristotle", true, "", "Aristotle", "Aristotle"},
		{"empty", "   ", false, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewAuthor(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("NewAuthor(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got.FirstName != tt.wantFirst || got.LastName != tt.wantLast || got.FullName != tt.wantFull {
				t.Errorf("NewAuthor(%q) = %+v, want first=%q last=%q full=%q", tt.input, got, tt.wantFirst, tt.wantLast, tt.wantFull)
			}
		})
	}
}

func TestRecord_Year(t *testing.T) {
	tests := []struct {
		name     string
		year     *int
		wantOK   bool
		wantYear int
	}{
		{"present", IntPtr(2021), true, 2021},
		{"absent", nil, false, 0},
		{"zero is absent", IntPtr(0), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Year: tt.year}
			got, ok := r.YearValue()
			if ok != tt.wantOK || got != tt.wantYear {
				t.Errorf("YearValue() = (%d, %v), want (%d, %v)", got, ok, tt.wantYear, tt.wantOK)
			}
		})
	}
}

func TestRecord_Status(t *testing.T) {
	tests := []struct {
		raw  string
		want ScreeningStatus
	}{
		{"", StatusPending},
		{"Included", StatusIncluded},
		{"  EXCLUDED ", StatusExcluded},
		{"maybe", StatusMaybe},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := Record{ScreeningStatus: tt.raw}
			if got := r.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}

	if !(Record{ScreeningStatus: "Included"}).IsIncluded() {
		t.Error("IsIncluded() should be case-insensitive")
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("included"); err != nil {
		t.Errorf("ParseStatus(included) error = %v", err)
	}
	if _, err := ParseStatus("accepted"); err == nil {
		t.Error("ParseStatus(accepted) expected error")
	}
}

func TestSetLabels_Dedupes(t *testing.T) {
	var r Record
	r.SetLabels([]string{"MRI", " PET ", "MRI", "", "Machine Learning"})

	want := []string{"MRI", "PET", "Machine Learning"}
	if len(r.Labels) != len(want) {
		t.Fatalf("Labels = %v, want %v", r.Labels, want)
	}
	for i := range want {
		if r.Labels[i] != want[i] {
			t.Errorf("Labels[%d] = %q, want %q", i, r.Labels[i], want[i])
		}
	}
}

func TestLabelSet_HasAll(t *testing.T) {
	s := NewLabelSet([]string{"MRI", "PET"})
	if !s.HasAll("MRI", "PET") {
		t.Error("HasAll(MRI, PET) = false, want true")
	}
	if s.HasAll("MRI", "Ultrasonido") {
		t.Error("HasAll(MRI, Ultrasonido) = true, want false")
	}
	if !s.HasAll() {
		t.Error("HasAll() with no labels should be true")
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"2021", 2021, true},
		{" 2020 ", 2020, true},
		{"2021a", 0, false},
		{"n.d.", 0, false},
		{"", 0, false},
		{"0", 0, false},
		{"-2020", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseYear(tt.raw)
			if (got != nil) != tt.ok {
				t.Fatalf("ParseYear(%q) = %v, want present=%v", tt.raw, got, tt.ok)
			}
			if tt.ok && *got != tt.want {
				t.Errorf("ParseYear(%q) = %d, want %d", tt.raw, *got, tt.want)
			}
		})
	}
}

func TestRecord_UnmarshalFlexibleYear(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int
		ok   bool
	}{
		{"number", `{"bibtex_id":"A","year":2021}`, 2021, true},
		{"string", `{"bibtex_id":"A","year":"2019"}`, 2019, true},
		{"null", `{"bibtex_id":"A","year":null}`, 0, false},
		{"missing", `{"bibtex_id":"A"}`, 0, false},
		{"garbage string", `{"bibtex_id":"A","year":"soon"}`, 0, false},
		{"zero", `{"bibtex_id":"A","year":0}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			if err := json.Unmarshal([]byte(tt.json), &r); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if r.CitationKey != "A" {
				t.Errorf("CitationKey = %q, want A", r.CitationKey)
			}
			got, ok := r.YearValue()
			if ok != tt.ok || got != tt.want {
				t.Errorf("YearValue() = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
