package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/matsen/sysreview/internal/aggregate"
	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/bibtex"
	"github.com/matsen/sysreview/internal/convert"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportKeys   []string
	exportStatus string
	exportLabels []string
	exportOutput string
	exportAppend bool
)

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "bibtex", "Output format (bibtex, json)")
	exportCmd.Flags().StringSliceVar(&exportKeys, "keys", nil, "Export only these citation keys")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "Export only articles with this screening status")
	exportCmd.Flags().StringArrayVar(&exportLabels, "label", nil, "Export only articles with this label (repeatable, all must match)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().BoolVar(&exportAppend, "append", false, "Append BibTeX entries not already in the output file (by DOI or key)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export articles to BibTeX or JSON",
	Long: `Export articles to BibTeX or to a JSON array of article records.

BibTeX entries are ordered by citation key. Screening status, labels and
notes are written to the note field.

Examples:
  sr export -o review.bib
  sr export --status included --format json -o included.json
  sr export --label "Radiomics" --append -o refs.bib`,
	RunE: runExport,
}

// ExportResult is the response when exporting to a file.
type ExportResult struct {
	Exported int    `json:"exported"`
	Skipped  int    `json:"skipped"`
	Path     string `json:"path"`
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "bibtex" && exportFormat != "json" {
		exitWithError(ExitError, "unknown format: %s (want bibtex or json)", exportFormat)
	}
	if exportAppend && (exportOutput == "" || exportFormat != "bibtex") {
		exitWithError(ExitError, "--append requires --output and --format bibtex")
	}

	repoRoot := mustFindRepository()
	records, err := selectForExport(mustReadArticles(repoRoot))
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if exportOutput == "" {
		writeExportToStdout(records)
		return nil
	}

	result := ExportResult{Path: exportOutput}
	switch {
	case exportAppend:
		result.Exported, result.Skipped, err = appendBibTeX(exportOutput, records)
	case exportFormat == "json":
		err = convert.WriteJSON(exportOutput, records)
		result.Exported = len(records)
	default:
		err = convert.WriteBibTeX(exportOutput, records)
		result.Exported = len(records)
	}
	if errors.Is(err, convert.ErrEmptyInput) {
		exitWithError(ExitEmptyInput, "no articles to export")
	}
	if err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOutput, err)
	}

	if humanOutput {
		fmt.Printf("Exported %d articles to %s", result.Exported, result.Path)
		if result.Skipped > 0 {
			fmt.Printf(" (%d already present)", result.Skipped)
		}
		fmt.Println()
	} else {
		outputJSON(result)
	}
	return nil
}

// selectForExport applies the key, status and label filters.
func selectForExport(records []article.Record) ([]article.Record, error) {
	if len(exportKeys) > 0 {
		byKey := make(map[string]article.Record, len(records))
		for _, r := range records {
			byKey[r.CitationKey] = r
		}
		selected := make([]article.Record, 0, len(exportKeys))
		for _, k := range exportKeys {
			r, ok := byKey[k]
			if !ok {
				return nil, fmt.Errorf("article not found: %s", k)
			}
			selected = append(selected, r)
		}
		records = selected
	}

	if exportStatus != "" {
		status, err := article.ParseStatus(exportStatus)
		if err != nil {
			return nil, err
		}
		var kept []article.Record
		for _, r := range records {
			if r.Status() == status {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	if len(exportLabels) > 0 {
		records = aggregate.FilterByLabels(records, exportLabels...)
	}
	return records, nil
}

func writeExportToStdout(records []article.Record) {
	var err error
	if exportFormat == "json" {
		err = convert.EncodeJSON(os.Stdout, nonNil(records))
	} else {
		err = bibtex.Write(os.Stdout, convert.ToEntries(records))
	}
	if err != nil {
		exitWithError(ExitError, "writing output: %v", err)
	}
}

// appendBibTeX appends entries whose DOI and key are not already in path.
func appendBibTeX(path string, records []article.Record) (int, int, error) {
	idx, err := bibtex.ParseFile(path)
	if err != nil {
		return 0, 0, err
	}

	var fresh []bibtex.Entry
	skipped := 0
	for _, r := range records {
		// Compare the raw DOI; the entry's doi field is escaped
		e := convert.ToEntry(r)
		if idx.HasEntry(e.Key, r.DOI) {
			skipped++
			continue
		}
		idx.Add(e.Key, r.DOI)
		fresh = append(fresh, e)
	}

	if len(fresh) == 0 {
		return 0, skipped, nil
	}
	if err := bibtex.AppendToFile(path, bibtex.FormatList(fresh)); err != nil {
		return 0, skipped, err
	}
	return len(fresh), skipped, nil
}
