package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/convert"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert between BibTeX and JSON article records",
	Long: `Convert a BibTeX file to a JSON array of article records, or back.

The direction follows the file extensions (.bib and .json). No repository is
needed. The output file is only replaced once conversion succeeds.

Examples:
  sr convert references.bib articles.json
  sr convert articles.json references.bib`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

// ConvertResult is the response for the convert command.
type ConvertResult struct {
	Input    string   `json:"input"`
	Output   string   `json:"output"`
	Articles int      `json:"articles"`
	Warnings []string `json:"warnings,omitempty"`
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	inExt, outExt := fileKind(in), fileKind(out)

	var records []article.Record
	var warnings []error
	var err error

	switch {
	case inExt == "bib" && outExt == "json":
		records, warnings, err = convert.LoadBibTeX(in)
		if err == nil {
			err = convert.WriteJSON(out, records)
		}
	case inExt == "json" && outExt == "bib":
		records, err = convert.LoadJSON(in)
		if err == nil {
			err = convert.WriteBibTeX(out, records)
		}
	default:
		exitWithError(ExitError, "cannot convert %s to %s (want .bib to .json or .json to .bib)", filepath.Base(in), filepath.Base(out))
	}

	if err != nil {
		exitWithError(convertExitCode(err), "%v", err)
	}

	result := ConvertResult{Input: in, Output: out, Articles: len(records)}
	for _, w := range warnings {
		slog.Warn("skipped malformed entry", "file", in, "error", w)
		result.Warnings = append(result.Warnings, w.Error())
	}

	if humanOutput {
		fmt.Printf("Converted %d articles: %s -> %s\n", result.Articles, in, out)
		if len(result.Warnings) > 0 {
			fmt.Printf("Skipped %d malformed entries:\n", len(result.Warnings))
			for _, w := range result.Warnings {
				fmt.Printf("  - %s\n", w)
			}
		}
	} else {
		outputJSON(result)
	}
	return nil
}

// fileKind classifies a path by extension as "bib", "json" or "".
func fileKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bib", ".bibtex":
		return "bib"
	case ".json":
		return "json"
	}
	return ""
}

// convertExitCode maps converter errors to exit codes.
func convertExitCode(err error) int {
	switch {
	case errors.Is(err, convert.ErrEmptyInput):
		return ExitEmptyInput
	case errors.Is(err, convert.ErrSourceUnavailable):
		return ExitError
	default:
		return ExitDataError
	}
}
