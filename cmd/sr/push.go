package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/matsen/sysreview/internal/article"
	"github.com/spf13/cobra"
)

var (
	pushStatus     string
	pushDatabase   string
	pushCollection string
	pushDryRun     bool
)

func init() {
	pushCmd.Flags().StringVar(&pushStatus, "status", "", "Only push articles with this screening status")
	pushCmd.Flags().StringVar(&pushDatabase, "database", "", "MongoDB database (default from config)")
	pushCmd.Flags().StringVar(&pushCollection, "collection", "", "MongoDB collection (default from config)")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "Show what would be pushed without connecting")
	pushCmd.Flags().String("mongo-uri", "", "MongoDB URI (default from SR_MONGO_URI or DATABASE_URL)")
	rootCmd.AddCommand(pushCmd)
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Seed a MongoDB collection with the article records",
	Long: `Replace the contents of a MongoDB collection with the repository's articles.

Every document in the target collection is deleted first. The documents use
the same field names as the JSON export.

Examples:
  sr push --dry-run
  sr push --status included --collection included_papers`,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlag(keyMongoURI, cmd.Flags().Lookup("mongo-uri"))
	},
	RunE: runPush,
}

// PushResult is the response for the push command.
type PushResult struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Pushed     int    `json:"pushed"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

func runPush(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	if pushDatabase != "" {
		cfg.MongoDatabase = pushDatabase
	}
	if pushCollection != "" {
		cfg.MongoCollection = pushCollection
	}

	records := mustReadArticles(repoRoot)
	if pushStatus != "" {
		status, err := article.ParseStatus(pushStatus)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		var kept []article.Record
		for _, r := range records {
			if r.Status() == status {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	if len(records) == 0 {
		exitWithError(ExitEmptyInput, "no articles to push")
	}

	result := PushResult{
		Database:   cfg.MongoDatabase,
		Collection: cfg.MongoCollection,
		Pushed:     len(records),
		DryRun:     pushDryRun,
	}

	if !pushDryRun {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		coll := mustConnectMongo(ctx, cfg)
		defer coll.Close(context.Background())

		n, err := coll.Replace(ctx, records)
		if err != nil {
			exitWithError(ExitError, "pushing articles: %v", err)
		}
		result.Pushed = n
		slog.Info("pushed articles", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection, "count", n)
	}

	if humanOutput {
		verb := "Pushed"
		if pushDryRun {
			verb = "Would push"
		}
		fmt.Printf("%s %d articles to %s.%s\n", verb, result.Pushed, result.Database, result.Collection)
	} else {
		outputJSON(result)
	}
	return nil
}
