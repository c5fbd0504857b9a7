package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/matsen/sysreview/internal/aggregate"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show screening progress and label counts",
	Long: `Show how many articles are pending, included, excluded or marked maybe,
and how many articles carry each label.`,
	RunE: runStats,
}

// StatsResult is the response for the stats command.
type StatsResult struct {
	Status aggregate.StatusCountsTable `json:"status"`
	Labels []aggregate.Bucket          `json:"labels"`
}

func runStats(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	records, err := db.ListAll(0)
	if err != nil {
		exitWithError(ExitError, "reading index: %v", err)
	}

	result := StatsResult{
		Status: aggregate.StatusCounts(records),
		Labels: aggregate.LabelFrequencies(records),
	}

	if humanOutput {
		printStatusTable(result.Status)
		printBuckets("Label", result.Labels)
	} else {
		outputJSON(result)
	}
	return nil
}

func printStatusTable(s aggregate.StatusCountsTable) {
	t := newTable("Status", "Articles")
	rightAlign(t, 2)
	t.AppendRows([]table.Row{
		{"pending", s.Pending},
		{"included", s.Included},
		{"excluded", s.Excluded},
		{"maybe", s.Maybe},
	})
	if s.Other > 0 {
		t.AppendRow(table.Row{"other", s.Other})
	}
	t.AppendFooter(table.Row{"total", s.All})
	fmt.Println(t.Render())
}

func printBuckets(name string, buckets []aggregate.Bucket) {
	t := newTable(name, "Articles")
	rightAlign(t, 2)
	for _, b := range buckets {
		t.AppendRow(table.Row{b.Name, b.Count})
	}
	fmt.Println(t.Render())
}
