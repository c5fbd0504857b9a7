package main

import (
	"fmt"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <bibtex-id>",
	Short: "Get a single article by citation key",
	Long: `Get a single article by its citation key.

Example:
  sr get Smith2021`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	key := args[0]
	rec, err := db.GetByKey(key)
	if err != nil {
		exitWithError(ExitError, "getting article: %v", err)
	}
	if rec == nil {
		exitWithError(ExitError, "article not found: %s", key)
	}

	if humanOutput {
		printArticleDetail(*rec)
	} else {
		outputJSON(rec)
	}

	return nil
}

func printArticleDetail(r article.Record) {
	const indent = "          "

	fmt.Println(r.CitationKey)
	fmt.Println(strings.Repeat("═", 70))
	fmt.Println()

	fmt.Printf("Title:    %s\n", wrapText(r.Title, TextWrapWidth, indent))
	if len(r.Authors) > 0 {
		fmt.Printf("Authors:  %s\n", wrapText(formatAuthorsFull(r.Authors), TextWrapWidth, indent))
	}
	fmt.Println()

	venue := r.Journal
	if venue == "" {
		venue = r.Booktitle
	}
	if venue != "" {
		fmt.Printf("Venue:    %s\n", venue)
	}
	fmt.Printf("Year:     %s\n", formatYear(r))
	if r.DOI != "" {
		fmt.Printf("DOI:      %s\n", r.DOI)
	}
	if len(r.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", wrapText(strings.Join(r.Keywords, ", "), TextWrapWidth, indent))
	}

	fmt.Println()
	fmt.Printf("Status:   %s\n", r.Status())
	if len(r.Labels) > 0 {
		fmt.Printf("Labels:   %s\n", wrapText(strings.Join(r.Labels, ", "), TextWrapWidth, indent))
	}
	if r.ScreeningNotes != "" {
		fmt.Printf("Notes:    %s\n", wrapText(r.ScreeningNotes, TextWrapWidth, indent))
	}

	if r.Abstract != "" {
		fmt.Println()
		fmt.Println("Abstract:")
		fmt.Printf("  %s\n", wrapText(r.Abstract, DetailTextWrapWidth, "  "))
	}
}
