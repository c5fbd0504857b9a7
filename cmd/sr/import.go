package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/convert"
	"github.com/matsen/sysreview/internal/storage"
	"github.com/spf13/cobra"
)

var importDryRun bool

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without writing")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import articles from a BibTeX or JSON file",
	Long: `Import articles from a BibTeX (.bib) file or a JSON array of article records.

Articles matching an existing one by DOI, or by citation key and title, update
its bibliographic fields; screening status, notes and labels are kept.

Usage:
  sr import search-results.bib
  sr import articles.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult represents the result of an import operation.
type ImportResult struct {
	Imported int            `json:"imported"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   []string       `json:"errors"`
	Details  []ImportDetail `json:"details,omitempty"`
	DryRun   bool           `json:"dry_run,omitempty"`
}

// ImportDetail describes a single import action.
type ImportDetail struct {
	Key    string `json:"bibtex_id"`
	Action string `json:"action"` // new, update, skip
	Title  string `json:"title"`
	Reason string `json:"reason,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	incoming, warnings, err := loadImportFile(args[0])
	if err != nil {
		if errors.Is(err, convert.ErrEmptyInput) {
			exitWithError(ExitEmptyInput, "%v", err)
		}
		exitWithError(ExitDataError, "%v", err)
	}

	existing := mustReadArticles(repoRoot)
	plan := planImport(existing, incoming)

	errStrs := make([]string, len(warnings))
	for i, w := range warnings {
		errStrs[i] = w.Error()
		slog.Warn("skipped malformed entry", "file", args[0], "error", w)
	}

	result := ImportResult{
		Imported: plan.imported,
		Updated:  plan.updated,
		Skipped:  plan.skipped + len(warnings),
		Errors:   errStrs,
		Details:  plan.details,
		DryRun:   importDryRun,
	}

	if !importDryRun {
		mustWriteArticles(repoRoot, applyImports(existing, plan.actions))
	}

	if humanOutput {
		verb := "Imported"
		if importDryRun {
			verb = "Would import"
		}
		fmt.Printf("%s from %s:\n", verb, filepath.Base(args[0]))
		fmt.Printf("  New:     %d articles\n", result.Imported)
		fmt.Printf("  Updated: %d existing articles\n", result.Updated)
		fmt.Printf("  Skipped: %d (errors or duplicates)\n", result.Skipped)
		if len(errStrs) > 0 {
			fmt.Println("\nErrors:")
			for _, e := range errStrs {
				fmt.Printf("  - %s\n", e)
			}
		}
	} else {
		if !importDryRun {
			result.Details = nil
		}
		outputJSON(result)
	}

	return nil
}

// loadImportFile reads records from a .bib or .json file.
func loadImportFile(path string) ([]article.Record, []error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bib", ".bibtex":
		return convert.LoadBibTeX(path)
	case ".json":
		records, err := convert.LoadJSON(path)
		if err != nil {
			return nil, nil, err
		}
		for i := range records {
			if records[i].CitationKey == "" {
				records[i].CitationKey = convert.CitationKey(records[i])
			}
		}
		return records, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported file type %q (want .bib or .json)", filepath.Ext(path))
	}
}

type importAction struct {
	action      string // new, update, skip
	reason      string
	existingIdx int
}

// importPlan is the outcome of classifying every incoming record.
type importPlan struct {
	actions  []storage.ArticleWithAction
	details  []ImportDetail
	imported int
	updated  int
	skipped  int
}

// planImport classifies incoming records against the existing collection
// and against records earlier in the same batch.
func planImport(existing, incoming []article.Record) importPlan {
	var plan importPlan

	// Track all records (existing + newly assigned) to avoid duplicates by key and DOI
	all := make([]article.Record, len(existing))
	copy(all, existing)

	for _, rec := range incoming {
		action := classifyImport(all, rec)

		switch action.action {
		case storage.ActionNew:
			rec.CitationKey = storage.GenerateUniqueKey(all, rec.CitationKey)
			plan.actions = append(plan.actions, storage.ArticleWithAction{Record: rec, Action: storage.ActionNew})
			all = append(all, rec)
			plan.imported++
		case storage.ActionUpdate:
			if action.existingIdx < len(existing) {
				plan.actions = append(plan.actions, storage.ArticleWithAction{Record: rec, Action: storage.ActionUpdate, ExistingIdx: action.existingIdx})
				plan.updated++
			} else {
				// Matched a record imported earlier in this batch
				action.action = "skip"
				action.reason = "duplicate_in_batch"
				plan.skipped++
			}
		}

		plan.details = append(plan.details, ImportDetail{
			Key:    rec.CitationKey,
			Action: action.action,
			Title:  truncateString(rec.Title, ImportTitleMaxLen),
			Reason: action.reason,
		})
	}

	return plan
}

// classifyImport determines what to do with an incoming record.
// DOI match wins; a key match only counts when the titles agree.
func classifyImport(existing []article.Record, rec article.Record) importAction {
	if idx, found := storage.FindByDOI(existing, rec.DOI); found {
		return importAction{action: storage.ActionUpdate, reason: "doi_match", existingIdx: idx}
	}

	if idx, found := storage.FindByKey(existing, rec.CitationKey); found && sameTitle(existing[idx].Title, rec.Title) {
		return importAction{action: storage.ActionUpdate, reason: "key_match", existingIdx: idx}
	}

	return importAction{action: storage.ActionNew}
}

func sameTitle(a, b string) bool {
	return strings.EqualFold(convert.CleanText(a), convert.CleanText(b))
}

// applyImports returns the collection after updates and appends.
func applyImports(existing []article.Record, actions []storage.ArticleWithAction) []article.Record {
	out := make([]article.Record, len(existing))
	copy(out, existing)

	for _, a := range actions {
		if a.Action == storage.ActionUpdate {
			out[a.ExistingIdx] = mergeImported(out[a.ExistingIdx], a.Record)
		}
	}
	for _, a := range actions {
		if a.Action == storage.ActionNew {
			out = append(out, a.Record)
		}
	}
	return out
}

// mergeImported refreshes bibliographic fields from an import while keeping
// the review work already recorded on the existing article.
func mergeImported(existing, incoming article.Record) article.Record {
	merged := incoming
	merged.CitationKey = existing.CitationKey

	if incoming.Status() == article.StatusPending {
		merged.ScreeningStatus = existing.ScreeningStatus
	}
	if incoming.ScreeningNotes == "" {
		merged.ScreeningNotes = existing.ScreeningNotes
	}
	merged.SetLabels(append(append([]string(nil), existing.Labels...), incoming.Labels...))
	return merged
}

