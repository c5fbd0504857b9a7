package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/matsen/sysreview/internal/aggregate"
	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/config"
	"github.com/matsen/sysreview/internal/convert"
	"github.com/matsen/sysreview/internal/docstore"
	"github.com/matsen/sysreview/internal/taxonomy"
	"github.com/spf13/cobra"
)

var (
	reportSource   string
	reportFile     string
	reportFrom     int
	reportTo       int
	reportIncluded bool
	reportLabels   []string
)

// Report table names.
const (
	tableAll              = "all"
	tableStatus           = "status"
	tableSummary          = "summary"
	tableLabels           = "labels"
	tableTreatment        = "treatment"
	tableImaging          = "imaging"
	tableModalityClinical = "modality-clinical"
	tableDatabases        = "databases"
	tableTechniques       = "techniques"
	tableTrends           = "trends"
)

// Article sources.
const (
	sourceIndex = "index"
	sourceFile  = "file"
	sourceMongo = "mongo"
)

var reportTables = []string{
	tableAll, tableStatus, tableSummary, tableLabels, tableTreatment, tableImaging,
	tableModalityClinical, tableDatabases, tableTechniques, tableTrends,
}

func init() {
	reportCmd.Flags().StringVar(&reportSource, "source", sourceIndex, "Article source (index, file, mongo)")
	reportCmd.Flags().StringVar(&reportFile, "file", "", "JSON or JSONL file for --source file")
	reportCmd.Flags().IntVar(&reportFrom, "from", 0, "First year of the trend table (default from config)")
	reportCmd.Flags().IntVar(&reportTo, "to", 0, "Last year of the trend table (default from config)")
	reportCmd.Flags().BoolVar(&reportIncluded, "included", false, "Only count included articles (techniques table always reports both)")
	reportCmd.Flags().StringArrayVar(&reportLabels, "label", nil, "Only count articles with this label (repeatable, all must match)")
	reportCmd.Flags().String("mongo-uri", "", "MongoDB URI for --source mongo (default from SR_MONGO_URI or DATABASE_URL)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [table]",
	Short: "Aggregate the article collection into report tables",
	Long: `Aggregate the article collection into frequency tables.

Tables:
  all                every table below (default)
  status             articles per screening status
  summary            label shares and category totals
  labels             articles per label, most frequent first
  treatment          treatment-response prediction and pCR
  imaging            medical image use and modalities among predictors
  modality-clinical  clinical data use per modality
  databases          public, private and unspecified data sources
  techniques         ML/DL techniques and radiomics use
  trends             modalities and techniques per year (included articles)

Sources:
  index  the repository's query index (default)
  file   a JSON array or JSONL export (--file)
  mongo  the MongoDB collection named in the repository config

Examples:
  sr report
  sr report trends --from 2018 --to 2024 --human
  sr report techniques --included
  sr report --source file --file articles.json`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: reportTables,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlag(keyMongoURI, cmd.Flags().Lookup("mongo-uri"))
	},
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	name := tableAll
	if len(args) == 1 {
		name = strings.ToLower(args[0])
	}
	if !isReportTable(name) {
		exitWithError(ExitError, "unknown table: %s (want one of %s)", name, strings.Join(reportTables, ", "))
	}

	ctx := context.Background()
	repoRoot, cfg := findRepositoryOptional()

	tax := taxonomy.Default()
	if repoRoot != "" {
		tax = mustLoadTaxonomy(repoRoot, cfg)
	}

	from, to := cfg.TrendFrom, cfg.TrendTo
	if reportFrom != 0 {
		from = reportFrom
	}
	if reportTo != 0 {
		to = reportTo
	}
	if err := config.ValidateTrendRange(from, to); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	source, closeSource := mustOpenSource(ctx, repoRoot, cfg)
	defer closeSource()

	records, err := docstore.Filtered{Source: source, Labels: reportLabels}.Articles(ctx)
	if err != nil {
		if errors.Is(err, convert.ErrSourceUnavailable) {
			exitWithError(ExitConfigError, "%v", err)
		}
		exitWithError(ExitDataError, "reading articles: %v", err)
	}
	slog.Debug("aggregating", "source", reportSource, "articles", len(records))

	if reportIncluded {
		records = includedOnly(records)
	}
	if err := requireArticles(records); err != nil {
		exitWithError(ExitEmptyInput, "%v", err)
	}

	result, err := buildReport(aggregate.New(tax), name, records, from, to)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		printReport(name, result)
	} else {
		outputJSON(result)
	}
	return nil
}

// errNoArticles reports an empty collection after filtering.
var errNoArticles = errors.New("no articles to report")

// requireArticles rejects an empty collection so it is not reported as
// all-zero tables.
func requireArticles(records []article.Record) error {
	if len(records) == 0 {
		return errNoArticles
	}
	return nil
}

func isReportTable(name string) bool {
	for _, t := range reportTables {
		if t == name {
			return true
		}
	}
	return false
}

// findRepositoryOptional returns the repository and its config, or "" and
// the defaults when not inside one. Only the index source needs a repository.
func findRepositoryOptional() (string, *config.Config) {
	if reportSource == sourceIndex {
		root := mustFindRepository()
		return root, mustLoadConfig(root)
	}
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	root, err := config.FindRepository(start)
	if err != nil {
		return "", config.Default()
	}
	return root, mustLoadConfig(root)
}

// mustOpenSource opens the article source selected by --source.
func mustOpenSource(ctx context.Context, repoRoot string, cfg *config.Config) (docstore.Source, func()) {
	switch reportSource {
	case sourceIndex:
		db := mustOpenDatabase(repoRoot)
		return docstore.IndexSource{DB: db}, func() { db.Close() }
	case sourceFile:
		if reportFile == "" {
			exitWithError(ExitError, "--source file requires --file")
		}
		return docstore.FileSource{Path: reportFile}, func() {}
	case sourceMongo:
		coll := mustConnectMongo(ctx, cfg)
		return coll, func() { coll.Close(context.Background()) }
	default:
		exitWithError(ExitError, "unknown source: %s (want index, file or mongo)", reportSource)
	}
	return nil, nil
}

// mustConnectMongo connects to the configured MongoDB collection.
func mustConnectMongo(ctx context.Context, cfg *config.Config) *docstore.MongoCollection {
	uri := settingString(keyMongoURI)
	if uri == "" {
		exitWithError(ExitConfigError, "no MongoDB URI\n\nSet SR_MONGO_URI, pass --mongo-uri or add mongo_uri to %s", config.GlobalConfigPath())
	}
	coll, err := docstore.ConnectMongo(ctx, uri, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	slog.Debug("connected to MongoDB", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
	return coll
}

func includedOnly(records []article.Record) []article.Record {
	var out []article.Record
	for _, r := range records {
		if r.IsIncluded() {
			out = append(out, r)
		}
	}
	return out
}

// buildReport computes the named table.
func buildReport(e *aggregate.Engine, name string, records []article.Record, from, to int) (interface{}, error) {
	switch name {
	case tableStatus:
		return aggregate.StatusCounts(records), nil
	case tableSummary:
		return e.Summary(records), nil
	case tableLabels:
		return aggregate.LabelFrequencies(records), nil
	case tableTreatment:
		return e.TreatmentResponse(records), nil
	case tableImaging:
		return e.MedicalImaging(records), nil
	case tableModalityClinical:
		return e.ModalityByClinical(records), nil
	case tableDatabases:
		return e.DatabaseSources(records), nil
	case tableTechniques:
		return e.TechniqueRadiomics(records, reportIncluded), nil
	case tableTrends:
		return e.YearTrends(records, from, to)
	default:
		return e.Full(records, from, to)
	}
}

func printReport(name string, result interface{}) {
	switch r := result.(type) {
	case aggregate.Report:
		printReportSection("Screening status", func() { printStatusTable(r.Status) })
		printReportSection("Summary", func() { printSummary(r.Summary) })
		printReportSection("Treatment response", func() { printTreatment(r.TreatmentResponse) })
		printReportSection("Medical imaging", func() { printImaging(r.MedicalImaging) })
		printReportSection("Modality by clinical data", func() { printModalityClinical(r.ModalityByClinical) })
		printReportSection("Database sources", func() { printDatabases(r.DatabaseSources) })
		printReportSection("Techniques and radiomics", func() { printTechniques(r.TechniqueRadiomics) })
		printReportSection("Techniques and radiomics (included)", func() { printTechniques(r.TechniqueRadiomicsInc) })
		printReportSection("Year trends", func() { printTrends(r.Trends) })
	case aggregate.StatusCountsTable:
		printStatusTable(r)
	case aggregate.SummaryTable:
		printSummary(r)
	case []aggregate.Bucket:
		printBuckets("Label", r)
	case aggregate.TreatmentResponseTable:
		printTreatment(r)
	case aggregate.MedicalImagingTable:
		printImaging(r)
	case []aggregate.ModalityClinical:
		printModalityClinical(r)
	case aggregate.DatabaseSourcesTable:
		printDatabases(r)
	case aggregate.TechniqueRadiomicsTable:
		printTechniques(r)
	case aggregate.TrendTable:
		printTrends(r)
	default:
		outputJSON(result)
	}
}

func printReportSection(title string, body func()) {
	fmt.Println(title)
	body()
	fmt.Println()
}

func printSummary(s aggregate.SummaryTable) {
	fmt.Printf("Total articles: %d\n", s.Total)
	t := newTable("Label", "Articles", "%")
	rightAlign(t, 2, 3)
	for _, l := range s.Labels {
		t.AppendRow(table.Row{l.Label, l.Count, fmt.Sprintf("%.1f", l.Percent)})
	}
	fmt.Println(t.Render())
	printBuckets("Category", s.Categories)
}

func printTreatment(r aggregate.TreatmentResponseTable) {
	t := newTable("Treatment response", "Articles")
	rightAlign(t, 2)
	t.AppendRows([]table.Row{
		{"predicts", r.Predicts},
		{"does not predict", r.NotPredicts},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"predictors reporting pCR", r.PCR},
		{"predictors without pCR", r.NoPCR},
	})
	fmt.Println(t.Render())
}

func printImaging(r aggregate.MedicalImagingTable) {
	t := newTable("Among predictors", "Articles")
	rightAlign(t, 2)
	t.AppendRows([]table.Row{
		{"predicts", r.Predicts},
		{"uses medical images", r.UsesImages},
		{"no medical images", r.NoImages},
	})
	fmt.Println(t.Render())
	printBuckets("Modality", r.Modalities)
}

func printModalityClinical(rows []aggregate.ModalityClinical) {
	t := newTable("Modality", "Clinical", "Non-clinical")
	rightAlign(t, 2, 3)
	for _, r := range rows {
		t.AppendRow(table.Row{r.Modality, r.Clinical, r.NonClinical})
	}
	fmt.Println(t.Render())
}

func printDatabases(r aggregate.DatabaseSourcesTable) {
	t := newTable("Database", "Articles")
	rightAlign(t, 2)
	t.AppendRows([]table.Row{
		{"public", r.Public},
		{"private", r.Private},
		{"unspecified", r.Unspecified},
	})
	t.AppendFooter(table.Row{"cohort", r.Cohort})
	fmt.Println(t.Render())
}

func printTechniques(r aggregate.TechniqueRadiomicsTable) {
	t := newTable("Technique", "Articles", "Radiomics", "No radiomics")
	rightAlign(t, 2, 3, 4)
	for _, tc := range r.Techniques {
		t.AppendRow(table.Row{tc.Technique, tc.Count, tc.Radiomics, tc.NoRadiomics})
	}
	t.AppendFooter(table.Row{"cohort", r.Cohort, "", ""})
	fmt.Println(t.Render())
}

func printTrends(r aggregate.TrendTable) {
	if len(r.Years) == 0 {
		fmt.Printf("No years in %d-%d\n", r.From, r.To)
		return
	}

	// Columns follow the first year's bucket order, which every year shares
	var header []interface{}
	header = append(header, "Year", "Articles")
	for _, b := range r.Years[0].Modalities {
		header = append(header, b.Name)
	}
	for _, b := range r.Years[0].Techniques {
		header = append(header, b.Name)
	}

	t := newTable(header...)
	cols := make([]int, 0, len(header)-1)
	for i := 2; i <= len(header); i++ {
		cols = append(cols, i)
	}
	rightAlign(t, cols...)

	years := append([]aggregate.YearTrend(nil), r.Years...)
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })
	for _, y := range years {
		row := table.Row{y.Year, y.Articles}
		for _, b := range y.Modalities {
			row = append(row, b.Count)
		}
		for _, b := range y.Techniques {
			row = append(row, b.Count)
		}
		t.AppendRow(row)
	}
	fmt.Println(t.Render())
}

