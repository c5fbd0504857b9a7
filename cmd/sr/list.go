package main

import (
	"fmt"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/storage"
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listLabels []string
	listFrom   int
	listTo     int
	listLimit  int
)

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only articles with this screening status")
	listCmd.Flags().StringArrayVar(&listLabels, "label", nil, "Only articles with this label (repeatable, all must match)")
	listCmd.Flags().IntVar(&listFrom, "from", 0, "Only articles published in or after this year")
	listCmd.Flags().IntVar(&listTo, "to", 0, "Only articles published in or before this year")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum results to return (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles",
	Long: `List articles in the repository, optionally filtered.

Examples:
  sr list
  sr list --status included --from 2020 --to 2025
  sr list --label "Radiomics" --label "MRI" --limit 20`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	filter := storage.Filter{
		Labels:   listLabels,
		YearFrom: listFrom,
		YearTo:   listTo,
		Limit:    listLimit,
	}
	if listStatus != "" {
		status, err := article.ParseStatus(listStatus)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		filter.Status = status
	}

	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	records, err := db.Query(filter)
	if err != nil {
		exitWithError(ExitError, "listing articles: %v", err)
	}

	if humanOutput {
		if len(records) == 0 {
			fmt.Println("No matching articles")
			return nil
		}
		total, _ := db.Count()
		fmt.Printf("%d of %d articles:\n", len(records), total)
		printArticleTable(records)
	} else {
		outputJSON(nonNil(records))
	}

	return nil
}
