package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/config"
	"github.com/matsen/sysreview/internal/conflict"
	"github.com/spf13/cobra"
)

var (
	resolveDryRun bool
	resolvePrefer string
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "Show proposed resolution without modifying files")
	resolveCmd.Flags().StringVar(&resolvePrefer, "prefer", "", "Settle true conflicts with this side (ours or theirs)")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve git merge conflicts in articles.jsonl",
	Long: `Resolve git merge conflicts in articles.jsonl using knowledge of articles.

Articles on both sides are matched by DOI, then by BibTeX key. Metadata one
side lacks is filled from the other, labels and keywords are unioned, and a
pending screening status yields to a decision. Fields set to different values
on both sides are true conflicts; they are reported, or settled with --prefer.

Examples:
  sr resolve                  # Auto-resolve and write result
  sr resolve --dry-run        # Preview what would happen
  sr resolve --prefer theirs  # Take theirs for true conflicts`,
	RunE: runResolve,
}

// ResolveResult is the response for the resolve command.
type ResolveResult struct {
	Resolved      bool             `json:"resolved"`
	TotalArticles int              `json:"total_articles"`
	Merged        int              `json:"merged"`
	OursOnly      int              `json:"ours_only"`
	TheirsOnly    int              `json:"theirs_only"`
	Operations    []ResolveOp      `json:"operations"`
	Unresolved    []UnresolvedInfo `json:"unresolved,omitempty"`
}

// ResolveOp describes the action taken for one article.
type ResolveOp struct {
	CitationKey string `json:"bibtex_id"`
	DOI         string `json:"doi,omitempty"`
	Action      string `json:"action"`
	Reason      string `json:"reason"`
}

// UnresolvedInfo lists the fields of an article left in conflict.
type UnresolvedInfo struct {
	CitationKey string                   `json:"bibtex_id"`
	DOI         string                   `json:"doi,omitempty"`
	Conflicts   []conflict.FieldConflict `json:"conflicts"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	prefer, err := conflict.ParseSide(resolvePrefer)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	repoRoot := mustFindRepository()
	path := config.ArticlesPath(repoRoot)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			exitWithError(ExitDataError, "articles.jsonl not found at %s", path)
		}
		exitWithError(ExitError, "reading articles.jsonl: %v", err)
	}
	if len(content) == 0 {
		exitWithError(ExitDataError, "articles.jsonl is empty")
	}

	parsed, err := conflict.ParseString(string(content))
	if err != nil {
		if parseErr, ok := err.(conflict.ParseError); ok {
			exitWithError(ExitDataError, "parsing articles.jsonl: %s", parseErr.Error())
		}
		exitWithError(ExitError, "parsing articles.jsonl: %v", err)
	}

	if !parsed.HasConflicts() {
		result := ResolveResult{Resolved: true, TotalArticles: len(parsed.Assemble(nil)), Operations: []ResolveOp{}}
		if humanOutput {
			fmt.Println("No conflicts detected in articles.jsonl.")
		} else {
			outputJSON(result)
		}
		return nil
	}

	result, resolved := resolveRegions(parsed, prefer)
	records := parsed.Assemble(resolved)
	result.TotalArticles = len(records)

	if resolveDryRun || !result.Resolved {
		if humanOutput {
			printResolveResult(result, resolveDryRun)
		} else {
			outputJSON(result)
		}
		if !result.Resolved && !resolveDryRun {
			if humanOutput {
				fmt.Fprintln(os.Stderr, "\nerror: true conflicts remain; rerun with --prefer ours or --prefer theirs")
			}
			os.Exit(ExitDataError)
		}
		return nil
	}

	mustWriteArticles(repoRoot, records)

	if humanOutput {
		printResolveResult(result, false)
		fmt.Printf("\nResolved articles.jsonl written to %s\n", path)
	} else {
		outputJSON(result)
	}
	return nil
}

// resolveRegions resolves every conflict region, returning the resolved
// records grouped by region.
func resolveRegions(parsed *conflict.ParseResult, prefer conflict.Side) (ResolveResult, [][]article.Record) {
	result := ResolveResult{Resolved: true, Operations: []ResolveOp{}}
	resolved := make([][]article.Record, len(parsed.Conflicts))

	for i, region := range parsed.Conflicts {
		records, plans, unresolved := conflict.ResolveRegion(region, prefer)
		resolved[i] = records
		if unresolved > 0 {
			result.Resolved = false
		}

		for _, plan := range plans {
			result.Operations = append(result.Operations, ResolveOp{
				CitationKey: plan.CitationKey,
				DOI:         plan.DOI,
				Action:      string(plan.Action),
				Reason:      plan.Reason,
			})

			switch plan.Action {
			case conflict.ActionMerge:
				result.Merged++
			case conflict.ActionAddOurs:
				result.OursOnly++
			case conflict.ActionAddTheirs:
				result.TheirsOnly++
			case conflict.ActionConflict:
				result.Unresolved = append(result.Unresolved, UnresolvedInfo{
					CitationKey: plan.CitationKey,
					DOI:         plan.DOI,
					Conflicts:   plan.Conflicts,
				})
			}
		}
	}

	return result, resolved
}

func printResolveResult(result ResolveResult, dryRun bool) {
	if dryRun {
		fmt.Println("Dry run: no files modified.")
		fmt.Println()
	}

	t := newTable("Key", "Action", "Reason")
	for _, op := range result.Operations {
		t.AppendRow(table.Row{op.CitationKey, op.Action, op.Reason})
	}
	fmt.Println(t.Render())

	fmt.Printf("\n%d articles total: %d merged, %d only in ours, %d only in theirs\n",
		result.TotalArticles, result.Merged, result.OursOnly, result.TheirsOnly)

	for _, u := range result.Unresolved {
		fmt.Printf("\nConflict in %s:\n", u.CitationKey)
		for _, c := range u.Conflicts {
			fmt.Printf("  %s\n    ours:   %q\n    theirs: %q\n", c.FieldName, truncateString(c.OursValue, 60), truncateString(c.TheirsValue, 60))
		}
	}
}
