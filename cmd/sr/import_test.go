package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/storage"
)

func TestClassifyImport(t *testing.T) {
	existing := []article.Record{
		{CitationKey: "Smith2021", DOI: "10.1234/abc", Title: "Paper One"},
		{CitationKey: "Lee2020", Title: "Paper Two (no DOI)"},
		{CitationKey: "Doe2019", DOI: "10.5678/xyz", Title: "Paper Three"},
	}

	tests := []struct {
		name       string
		rec        article.Record
		wantAction string
		wantReason string
		wantIdx    int
	}{
		{
			name:       "DOI match returns update",
			rec:        article.Record{CitationKey: "Other2021", DOI: "https://doi.org/10.1234/ABC", Title: "Updated Paper One"},
			wantAction: storage.ActionUpdate,
			wantReason: "doi_match",
			wantIdx:    0,
		},
		{
			name:       "key and title match without DOI returns update",
			rec:        article.Record{CitationKey: "Lee2020", Title: "paper two  (no DOI)"},
			wantAction: storage.ActionUpdate,
			wantReason: "key_match",
			wantIdx:    1,
		},
		{
			name:       "DOI match wins over key match",
			rec:        article.Record{CitationKey: "Smith2021", DOI: "10.5678/xyz", Title: "Paper Three"},
			wantAction: storage.ActionUpdate,
			wantReason: "doi_match",
			wantIdx:    2,
		},
		{
			name:       "key match with different title is new",
			rec:        article.Record{CitationKey: "Lee2020", Title: "A Different Paper"},
			wantAction: storage.ActionNew,
		},
		{
			name:       "no match returns new",
			rec:        article.Record{CitationKey: "New2023", DOI: "10.9999/new", Title: "Brand New"},
			wantAction: storage.ActionNew,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyImport(existing, tt.rec)
			if got.action != tt.wantAction {
				t.Errorf("action = %q, want %q", got.action, tt.wantAction)
			}
			if got.reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", got.reason, tt.wantReason)
			}
			if tt.wantAction == storage.ActionUpdate && got.existingIdx != tt.wantIdx {
				t.Errorf("existingIdx = %d, want %d", got.existingIdx, tt.wantIdx)
			}
		})
	}
}

func TestPlanImport_KeyCollisionAndBatchDuplicates(t *testing.T) {
	existing := []article.Record{
		{CitationKey: "Smith2021", Title: "First Smith Paper"},
	}
	incoming := []article.Record{
		{CitationKey: "Smith2021", Title: "Second Smith Paper", DOI: "10.1/a"},
		{CitationKey: "Smith2021", Title: "Third Smith Paper"},
		{CitationKey: "Copy2021", Title: "Second Smith Paper", DOI: "10.1/A"},
	}

	plan := planImport(existing, incoming)

	if plan.imported != 2 || plan.updated != 0 || plan.skipped != 1 {
		t.Fatalf("imported/updated/skipped = %d/%d/%d, want 2/0/1", plan.imported, plan.updated, plan.skipped)
	}

	var keys []string
	for _, a := range plan.actions {
		keys = append(keys, a.Record.CitationKey)
	}
	if diff := cmp.Diff([]string{"Smith2021a", "Smith2021b"}, keys); diff != "" {
		t.Errorf("assigned keys mismatch (-want +got):\n%s", diff)
	}

	last := plan.details[len(plan.details)-1]
	if last.Action != "skip" || last.Reason != "duplicate_in_batch" {
		t.Errorf("last detail = %+v, want skip duplicate_in_batch", last)
	}
}

func TestApplyImports_KeepsReviewWork(t *testing.T) {
	existing := []article.Record{
		{
			CitationKey:     "Smith2021",
			DOI:             "10.1/a",
			Title:           "Old Title",
			ScreeningStatus: "included",
			ScreeningNotes:  "strong cohort",
			Labels:          []string{"Radiomics"},
		},
	}
	incoming := article.Record{
		CitationKey:     "Smith2021x",
		DOI:             "10.1/a",
		Title:           "New Title",
		ScreeningStatus: "pending",
		Labels:          []string{"MRI", "Radiomics"},
	}

	plan := planImport(existing, []article.Record{incoming})
	got := applyImports(existing, plan.actions)

	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	want := article.Record{
		CitationKey:     "Smith2021",
		DOI:             "10.1/a",
		Title:           "New Title",
		ScreeningStatus: "included",
		ScreeningNotes:  "strong cohort",
		Labels:          []string{"Radiomics", "MRI"},
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("merged record mismatch (-want +got):\n%s", diff)
	}
	if existing[0].Title != "Old Title" {
		t.Error("applyImports() modified its input")
	}
}

func TestApplyImports_AppendsNew(t *testing.T) {
	existing := []article.Record{{CitationKey: "A2020", Title: "A"}}
	plan := planImport(existing, []article.Record{{CitationKey: "B2021", Title: "B"}})
	got := applyImports(existing, plan.actions)

	if len(got) != 2 || got[1].CitationKey != "B2021" {
		t.Errorf("applyImports() = %+v, want A2020 then B2021", got)
	}
}
