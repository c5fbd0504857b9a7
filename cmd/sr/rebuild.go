package main

import (
	"fmt"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/config"
	"github.com/spf13/cobra"
)

var rebuildResetSuggestions bool

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildResetSuggestions, "reset-suggestions", false, "Also forget cached label suggestions")
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query layer from source data",
	Long: `Rebuild the SQLite query database from the JSONL source file.

Use this after pulling changes from git or if the database becomes corrupted.
Cached label suggestions survive a rebuild unless --reset-suggestions is given.`,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status           string                          `json:"status"`
	Articles         int                             `json:"articles"`
	Statuses         map[article.ScreeningStatus]int `json:"statuses"`
	Labels           map[string]int                  `json:"labels"`
	SuggestionsReset bool                            `json:"suggestions_reset,omitempty"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	count, err := db.RebuildFromJSONL(config.ArticlesPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}

	if rebuildResetSuggestions {
		if err := db.ClearSuggestionMetadata(); err != nil {
			exitWithError(ExitError, "clearing suggestion cache: %v", err)
		}
	}

	statuses, err := db.StatusCounts()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	labels, err := db.LabelCounts()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt query database with %d articles (%d distinct labels)\n", count, len(labels))
		for _, s := range article.ValidStatuses {
			fmt.Printf("  %-9s %d\n", s, statuses[s])
		}
		if rebuildResetSuggestions {
			fmt.Println("Cleared cached label suggestions")
		}
	} else {
		outputJSON(RebuildResult{
			Status:           "rebuilt",
			Articles:         count,
			Statuses:         statuses,
			Labels:           labels,
			SuggestionsReset: rebuildResetSuggestions,
		})
	}

	return nil
}
