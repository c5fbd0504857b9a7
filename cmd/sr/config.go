package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/sysreview/internal/config"
	"github.com/matsen/sysreview/internal/taxonomy"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set repository configuration values.

Usage:
  sr config                            # Show all config
  sr config trend-from                 # Get specific value
  sr config trend-from 2018            # Set value
  sr config taxonomy-path labels.yml   # Use a custom label taxonomy

Keys:
  taxonomy-path     YAML label taxonomy (empty = built-in)
  trend-from        First year of the trends report
  trend-to          Last year of the trends report
  mongo-database    MongoDB database for push and report --source mongo
  mongo-collection  MongoDB collection for push and report --source mongo

Machine-wide settings (store_path, ollama_url, label_model, mongo_uri) live in
~/.config/sr/config.yml and can be overridden with SR_* environment variables.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the response for config get commands.
type ConfigResponse struct {
	TaxonomyPath    string `json:"taxonomy_path"`
	TrendFrom       int    `json:"trend_from"`
	TrendTo         int    `json:"trend_to"`
	MongoDatabase   string `json:"mongo_database"`
	MongoCollection string `json:"mongo_collection"`
	OllamaURL       string `json:"ollama_url"`
	LabelModel      string `json:"label_model"`
	MongoURISet     bool   `json:"mongo_uri_set"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	if len(args) == 0 {
		resp := ConfigResponse{
			TaxonomyPath:    cfg.TaxonomyPath,
			TrendFrom:       cfg.TrendFrom,
			TrendTo:         cfg.TrendTo,
			MongoDatabase:   cfg.MongoDatabase,
			MongoCollection: cfg.MongoCollection,
			OllamaURL:       settingString(keyOllamaURL),
			LabelModel:      settingString(keyLabelModel),
			MongoURISet:     settingString(keyMongoURI) != "",
		}
		if humanOutput {
			fmt.Printf("taxonomy-path:    %s\n", resp.TaxonomyPath)
			fmt.Printf("trend-from:       %d\n", resp.TrendFrom)
			fmt.Printf("trend-to:         %d\n", resp.TrendTo)
			fmt.Printf("mongo-database:   %s\n", resp.MongoDatabase)
			fmt.Printf("mongo-collection: %s\n", resp.MongoCollection)
			fmt.Printf("ollama-url:       %s\n", resp.OllamaURL)
			fmt.Printf("label-model:      %s\n", resp.LabelModel)
			fmt.Printf("mongo-uri set:    %t\n", resp.MongoURISet)
		} else {
			outputJSON(resp)
		}
		return nil
	}

	key := normalizeKey(args[0])

	if len(args) == 1 {
		value, ok := getConfigValue(cfg, key)
		if !ok {
			exitWithError(ExitError, "unknown configuration key: %s", args[0])
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	value := args[1]
	if err := setConfigValue(cfg, repoRoot, key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}
	return nil
}

func getConfigValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "taxonomy-path":
		return cfg.TaxonomyPath, true
	case "trend-from":
		return strconv.Itoa(cfg.TrendFrom), true
	case "trend-to":
		return strconv.Itoa(cfg.TrendTo), true
	case "mongo-database":
		return cfg.MongoDatabase, true
	case "mongo-collection":
		return cfg.MongoCollection, true
	}
	return "", false
}

// setConfigValue validates value and stores it in cfg.
func setConfigValue(cfg *config.Config, repoRoot, key, value string) error {
	switch key {
	case "taxonomy-path":
		cfg.TaxonomyPath = value
		path := cfg.ResolvedTaxonomyPath(repoRoot)
		if err := config.ValidateTaxonomyPath(path); err != nil {
			return err
		}
		if path != "" {
			if _, err := taxonomy.Load(path); err != nil {
				return err
			}
		}
	case "trend-from", "trend-to":
		year, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be a year: %q", key, value)
		}
		from, to := cfg.TrendFrom, cfg.TrendTo
		if key == "trend-from" {
			from = year
		} else {
			to = year
		}
		if err := config.ValidateTrendRange(from, to); err != nil {
			return err
		}
		cfg.TrendFrom, cfg.TrendTo = from, to
	case "mongo-database":
		if value == "" {
			return fmt.Errorf("mongo-database cannot be empty")
		}
		cfg.MongoDatabase = value
	case "mongo-collection":
		if value == "" {
			return fmt.Errorf("mongo-collection cannot be empty")
		}
		cfg.MongoCollection = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// normalizeKey converts key formats (trend-from, trend_from, TREND_FROM) to consistent format
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}
