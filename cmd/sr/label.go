package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/spf13/cobra"
)

var (
	labelAdd    []string
	labelRemove []string
	labelClear  bool
)

func init() {
	labelCmd.Flags().StringArrayVar(&labelAdd, "add", nil, "Label to add (repeatable)")
	labelCmd.Flags().StringArrayVar(&labelRemove, "remove", nil, "Label to remove (repeatable)")
	labelCmd.Flags().BoolVar(&labelClear, "clear", false, "Remove all labels before adding")
	rootCmd.AddCommand(labelCmd)
}

var labelCmd = &cobra.Command{
	Use:   "label <bibtex-id>...",
	Short: "Show or edit article labels",
	Long: `Show or edit the labels of one or more articles.

Without --add, --remove or --clear the current labels are printed. Labels
outside the review taxonomy are accepted with a warning.

Examples:
  sr label Smith2021
  sr label Smith2021 --add "Radiomics" --add "MRI"
  sr label Smith2021 Lee2020 --remove "Mamografia"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLabel,
}

// LabelResult is the labels of one article after an edit.
type LabelResult struct {
	Key    string   `json:"bibtex_id"`
	Labels []string `json:"labels"`
}

func runLabel(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	records := mustReadArticles(repoRoot)
	editing := len(labelAdd) > 0 || len(labelRemove) > 0 || labelClear

	if editing {
		tax := mustLoadTaxonomy(repoRoot, mustLoadConfig(repoRoot))
		for _, l := range labelAdd {
			if !tax.Contains(strings.TrimSpace(l)) {
				slog.Warn("label is not in the taxonomy", "label", l)
			}
		}
	}

	_, err := updateArticles(records, args, func(r *article.Record) {
		if editing {
			r.SetLabels(editLabels(r.Labels, labelAdd, labelRemove, labelClear))
		}
	})
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if editing {
		mustWriteArticles(repoRoot, records)
	}

	results := make([]LabelResult, 0, len(args))
	for _, k := range args {
		for _, r := range records {
			if r.CitationKey == k {
				results = append(results, LabelResult{Key: k, Labels: article.DedupeLabels(r.Labels)})
				break
			}
		}
	}

	if humanOutput {
		for _, res := range results {
			fmt.Printf("%s: %s\n", res.Key, strings.Join(res.Labels, ", "))
		}
	} else {
		outputJSON(results)
	}
	return nil
}

// editLabels returns labels with removals applied, then additions appended.
func editLabels(current, add, remove []string, clearAll bool) []string {
	if clearAll {
		current = nil
	}
	drop := article.NewLabelSet(article.DedupeLabels(remove))
	out := make([]string, 0, len(current)+len(add))
	for _, l := range current {
		if !drop.Has(strings.TrimSpace(l)) {
			out = append(out, l)
		}
	}
	return article.DedupeLabels(append(out, add...))
}
