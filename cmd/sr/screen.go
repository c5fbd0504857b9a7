package main

import (
	"fmt"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/spf13/cobra"
)

var (
	screenStatus string
	screenNotes  string
)

func init() {
	screenCmd.Flags().StringVar(&screenStatus, "status", "", "Screening status (pending, included, excluded, maybe)")
	screenCmd.Flags().StringVar(&screenNotes, "notes", "", "Screening notes (replaces existing notes)")
	screenCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(screenCmd)
}

var screenCmd = &cobra.Command{
	Use:   "screen <bibtex-id>...",
	Short: "Record the screening decision for articles",
	Long: `Record the screening decision for one or more articles.

Examples:
  sr screen Smith2021 --status included
  sr screen Lee2020 Doe2019 --status excluded --notes "no imaging data"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScreen,
}

// ScreenResult is the response for the screen command.
type ScreenResult struct {
	Status  string   `json:"status"`
	Updated []string `json:"updated"`
}

func runScreen(cmd *cobra.Command, args []string) error {
	status, err := article.ParseStatus(screenStatus)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	notesSet := cmd.Flags().Changed("notes")

	repoRoot := mustFindRepository()
	records := mustReadArticles(repoRoot)

	updated, err := updateArticles(records, args, func(r *article.Record) {
		r.ScreeningStatus = string(status)
		if notesSet {
			r.ScreeningNotes = screenNotes
		}
	})
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	mustWriteArticles(repoRoot, records)

	if humanOutput {
		fmt.Printf("Marked %s: %s\n", status, strings.Join(updated, ", "))
	} else {
		outputJSON(ScreenResult{Status: string(status), Updated: updated})
	}
	return nil
}

// updateArticles applies fn to each keyed record in place. Every key must
// exist; nothing is changed otherwise.
func updateArticles(records []article.Record, keys []string, fn func(*article.Record)) ([]string, error) {
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.CitationKey] = i
	}

	var missing []string
	for _, k := range keys {
		if _, ok := index[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("article not found: %s", strings.Join(missing, ", "))
	}

	updated := make([]string, 0, len(keys))
	for _, k := range keys {
		fn(&records[index[k]])
		updated = append(updated, k)
	}
	return updated, nil
}
