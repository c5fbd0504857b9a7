package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over titles, abstracts, authors and keywords",
	Long: `Full-text search over titles, abstracts, authors and keywords.

Examples:
  sr search "neoadjuvant chemotherapy"
  sr search radiomics --limit 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	query := strings.Join(args, " ")
	records, err := db.Search(query, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	if humanOutput {
		if len(records) == 0 {
			fmt.Printf("No articles match %q\n", query)
			return nil
		}
		fmt.Printf("%d articles match %q:\n", len(records), query)
		printArticleTable(records)
	} else {
		outputJSON(nonNil(records))
	}

	return nil
}
