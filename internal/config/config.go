// Package config handles repository and global configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/sysreview/internal/aggregate"
)

// Config represents repository configuration stored in .sysreview/config.json.
type Config struct {
	TaxonomyPath    string `json:"taxonomy_path,omitempty"`    // YAML label taxonomy; empty uses the built-in one
	TrendFrom       int    `json:"trend_from"`                 // First year of trend reports
	TrendTo         int    `json:"trend_to"`                   // Last year of trend reports
	MongoDatabase   string `json:"mongo_database,omitempty"`   // Database used by push and report --source mongo
	MongoCollection string `json:"mongo_collection,omitempty"` // Collection within MongoDatabase
}

const (
	SysreviewDir = ".sysreview"
	ConfigFile   = "config.json"
	ArticlesFile = "articles.jsonl"
	CacheDir     = "cache"
	DBFile       = "articles.db"

	DefaultTrendFrom       = 2020
	DefaultTrendTo         = 2025
	DefaultMongoDatabase   = "sysreview"
	DefaultMongoCollection = "papers"
)

// Default returns the configuration written by init.
func Default() *Config {
	return &Config{
		TrendFrom:       DefaultTrendFrom,
		TrendTo:         DefaultTrendTo,
		MongoDatabase:   DefaultMongoDatabase,
		MongoCollection: DefaultMongoCollection,
	}
}

// SysreviewPath returns the path to the .sysreview directory from a root path.
func SysreviewPath(root string) string {
	return filepath.Join(root, SysreviewDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, SysreviewDir, ConfigFile)
}

// ArticlesPath returns the path to articles.jsonl from a root path.
func ArticlesPath(root string) string {
	return filepath.Join(root, SysreviewDir, ArticlesFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, SysreviewDir, CacheDir)
}

// DBPath returns the path to articles.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, SysreviewDir, CacheDir, DBFile)
}

// IsRepository checks if the given path contains a review repository.
func IsRepository(root string) bool {
	info, err := os.Stat(SysreviewPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a review repository.
// Returns the repository root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a review repository (no .sysreview directory found)")
		}
		abs = parent
	}
}

// Load reads configuration from the repository at the given root.
// Fields missing from the file keep their defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ResolvedTaxonomyPath returns the taxonomy path, relative paths taken from root.
func (c *Config) ResolvedTaxonomyPath(root string) string {
	if c.TaxonomyPath == "" {
		return ""
	}
	p := ExpandPath(c.TaxonomyPath)
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	return p
}

// ValidateTrendRange checks that from <= to, both are four-digit years and
// the range is short enough to tabulate.
func ValidateTrendRange(from, to int) error {
	return aggregate.ValidateRange(from, to)
}

// ValidateTaxonomyPath checks that the taxonomy file exists.
func ValidateTaxonomyPath(path string) error {
	if path == "" {
		return nil // Empty uses the built-in taxonomy
	}

	expandedPath := ExpandPath(path)

	info, err := os.Stat(expandedPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", expandedPath)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory: %s", expandedPath)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
