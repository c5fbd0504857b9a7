// Package main provides the sr CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/config"
	"github.com/matsen/sysreview/internal/storage"
	"github.com/matsen/sysreview/internal/taxonomy"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sr",
	Short: "Systematic literature review CLI",
	Long: `sr manages the article collection of a systematic literature review.

Core features:
  - BibTeX import and export, lossless conversion to JSON article records
  - Screening (pending, included, excluded, maybe) and multi-label tagging
  - Label suggestion from abstracts via a local Ollama model
  - Aggregate reports: treatment response, imaging modalities, clinical
    data, database sources, techniques and year trends
  - Seeding a MongoDB collection with the article records

Data is stored in git-versionable JSONL with ephemeral SQLite for queries.
All commands output JSON by default for AI agent integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(settingBool(keyVerbose))
	},
}

func init() {
	cobra.OnInitialize(initSettings)

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log progress to stderr")
	bindFlag(keyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))
	rootCmd.Version = Version
}

// setupLogging installs the default logger on stderr. Results go to stdout.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// getStartingDirectory returns the directory to start searching for a repository.
// Checks SR_ROOT and the global store_path first, then current working directory.
func getStartingDirectory() (string, int) {
	if root := settingString(keyRoot); root != "" {
		return config.ExpandPath(root), 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindRepository finds and validates the repository, exits on error.
// Returns the repository root path.
func mustFindRepository() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	repoRoot, err := config.FindRepository(start)
	if err != nil {
		if humanOutput {
			fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		} else {
			outputJSON(ErrorResponse{Error: err.Error()})
		}
		os.Exit(ExitConfigError)
	}
	slog.Debug("using repository", "root", repoRoot)
	return repoRoot
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(repoRoot), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustLoadTaxonomy loads the repository's label taxonomy, exits on error.
func mustLoadTaxonomy(repoRoot string, cfg *config.Config) *taxonomy.Taxonomy {
	tax, err := taxonomy.LoadOrDefault(cfg.ResolvedTaxonomyPath(repoRoot))
	if err != nil {
		exitWithError(ExitConfigError, "loading taxonomy: %v", err)
	}
	return tax
}

// mustReadArticles reads the JSONL source of truth, exits on error.
func mustReadArticles(repoRoot string) []article.Record {
	records, err := storage.ReadAll(config.ArticlesPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "reading articles: %v", err)
	}
	return records
}

// mustWriteArticles rewrites the JSONL file and refreshes the query index.
func mustWriteArticles(repoRoot string, records []article.Record) {
	if err := storage.WriteAll(config.ArticlesPath(repoRoot), records); err != nil {
		exitWithError(ExitError, "writing articles: %v", err)
	}
	db := mustOpenDatabase(repoRoot)
	defer db.Close()
	count, err := db.Rebuild(records)
	if err != nil {
		exitWithError(ExitDataError, "rebuilding index: %v", err)
	}
	slog.Debug("index refreshed", "articles", count)
}
