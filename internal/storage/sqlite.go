package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- One row per article; record_json holds the full document
		CREATE TABLE IF NOT EXISTS articles (
			bibtex_id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			doi TEXT,
			title TEXT NOT NULL,
			year INTEGER,
			screening_status TEXT NOT NULL,
			record_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_articles_doi ON articles(doi) WHERE doi IS NOT NULL AND doi != '';
		CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(screening_status);
		CREATE INDEX IF NOT EXISTS idx_articles_year ON articles(year);

		CREATE TABLE IF NOT EXISTS article_labels (
			bibtex_id TEXT NOT NULL,
			label TEXT NOT NULL,
			PRIMARY KEY (bibtex_id, label)
		);

		CREATE INDEX IF NOT EXISTS idx_article_labels_label ON article_labels(label);

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
			bibtex_id,
			title,
			abstract,
			authors_text,
			keywords_text
		);

		-- Label suggestion bookkeeping, kept across rebuilds
		CREATE TABLE IF NOT EXISTS suggestion_metadata (
			bibtex_id TEXT PRIMARY KEY,
			model_name TEXT NOT NULL,
			suggested_at INTEGER NOT NULL,
			abstract_hash TEXT NOT NULL,
			labels_json TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the index and rebuilds it from a JSONL file.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	records, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}
	return d.Rebuild(records)
}

// Rebuild replaces the index contents with records, in one transaction.
func (d *DB) Rebuild(records []article.Record) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"articles", "article_labels", "articles_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	articleStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO articles (
			bibtex_id, position, doi, title, year, screening_status, record_json
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing articles insert: %w", err)
	}
	defer articleStmt.Close()

	labelStmt, err := tx.Prepare(`INSERT OR IGNORE INTO article_labels (bibtex_id, label) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing labels insert: %w", err)
	}
	defer labelStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO articles_fts (bibtex_id, title, abstract, authors_text, keywords_text)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for i, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("marshaling %s: %w", rec.CitationKey, err)
		}

		var year sql.NullInt64
		if y, ok := rec.YearValue(); ok {
			year = sql.NullInt64{Int64: int64(y), Valid: true}
		}

		_, err = articleStmt.Exec(
			rec.CitationKey, i, nullableStringValue(rec.DOI), rec.Title, year,
			string(rec.Status()), string(recordJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting article %s: %w", rec.CitationKey, err)
		}

		for _, label := range rec.Labels {
			if _, err := labelStmt.Exec(rec.CitationKey, label); err != nil {
				return 0, fmt.Errorf("inserting label for %s: %w", rec.CitationKey, err)
			}
		}

		_, err = ftsStmt.Exec(rec.CitationKey, rec.Title, rec.Abstract,
			formatAuthorsText(rec.Authors), strings.Join(rec.Keywords, ", "))
		if err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", rec.CitationKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(records), nil
}

// formatAuthorsText creates a searchable text representation of authors.
func formatAuthorsText(authors []article.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.DisplayName())
	}
	return strings.Join(names, ", ")
}

// GetByKey retrieves a record by citation key. Returns nil if absent.
func (d *DB) GetByKey(key string) (*article.Record, error) {
	row := d.db.QueryRow(`SELECT record_json FROM articles WHERE bibtex_id = ?`, key)
	return scanRecord(row)
}

// Search performs a full-text search over title, abstract, authors and keywords.
func (d *DB) Search(query string, limit int) ([]article.Record, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT record_json
		FROM articles
		WHERE bibtex_id IN (SELECT bibtex_id FROM articles_fts WHERE articles_fts MATCH ?)
		ORDER BY position
		LIMIT ?`, ftsQuery, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Filter selects records by exact and range criteria. Zero values are ignored.
type Filter struct {
	Status   article.ScreeningStatus // Exact screening status
	Labels   []string                // Records must carry every label
	YearFrom int                     // Minimum year, inclusive
	YearTo   int                     // Maximum year, inclusive
	Limit    int                     // Maximum results (0 = no limit)
}

// Query returns the records matching every criterion of f, in source order.
func (d *DB) Query(f Filter) ([]article.Record, error) {
	query := `SELECT record_json FROM articles WHERE 1=1`
	var args []interface{}

	if f.Status != "" {
		query += " AND screening_status = ?"
		args = append(args, string(f.Status))
	}
	for _, label := range f.Labels {
		query += " AND bibtex_id IN (SELECT bibtex_id FROM article_labels WHERE label = ?)"
		args = append(args, label)
	}
	if f.YearFrom > 0 {
		query += " AND year >= ?"
		args = append(args, f.YearFrom)
	}
	if f.YearTo > 0 {
		query += " AND year <= ?"
		args = append(args, f.YearTo)
	}

	query += " ORDER BY position LIMIT ?"
	args = append(args, normalizeLimit(f.Limit))

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListAll returns all records in source order, optionally limited.
func (d *DB) ListAll(limit int) ([]article.Record, error) {
	return d.Query(Filter{Limit: limit})
}

// Count returns the total number of records.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

// StatusCounts returns the number of records per normalized status.
func (d *DB) StatusCounts() (map[article.ScreeningStatus]int, error) {
	rows, err := d.db.Query(`SELECT screening_status, COUNT(*) FROM articles GROUP BY screening_status`)
	if err != nil {
		return nil, fmt.Errorf("counting statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[article.ScreeningStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[article.ScreeningStatus(status)] = n
	}
	return counts, rows.Err()
}

// LabelCounts returns the number of records carrying each label.
func (d *DB) LabelCounts() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT label, COUNT(*) FROM article_labels GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("counting labels: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*article.Record, error) {
	var recordJSON string
	if err := s.Scan(&recordJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var rec article.Record
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("parsing record JSON: %w", err)
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]article.Record, error) {
	var records []article.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, rows.Err()
}

// normalizeLimit maps "no limit" to SQLite's LIMIT -1.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	// FTS5 uses double quotes for phrase matching
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

// SuggestionMetadata records when labels were last suggested for an article.
type SuggestionMetadata struct {
	CitationKey  string
	ModelName    string
	SuggestedAt  int64  // Unix timestamp
	AbstractHash string // SHA256 of abstract
	Labels       []string
}

// SaveSuggestionMetadata saves or updates suggestion metadata for an article.
func (d *DB) SaveSuggestionMetadata(meta SuggestionMetadata) error {
	labelsJSON, err := json.Marshal(meta.Labels)
	if err != nil {
		return fmt.Errorf("marshaling labels: %w", err)
	}
	_, err = d.db.Exec(`
		INSERT OR REPLACE INTO suggestion_metadata (bibtex_id, model_name, suggested_at, abstract_hash, labels_json)
		VALUES (?, ?, ?, ?, ?)
	`, meta.CitationKey, meta.ModelName, meta.SuggestedAt, meta.AbstractHash, string(labelsJSON))
	return err
}

// GetSuggestionMetadata retrieves suggestion metadata. Returns nil if absent.
func (d *DB) GetSuggestionMetadata(key string) (*SuggestionMetadata, error) {
	var meta SuggestionMetadata
	var labelsJSON string
	err := d.db.QueryRow(`
		SELECT bibtex_id, model_name, suggested_at, abstract_hash, labels_json
		FROM suggestion_metadata
		WHERE bibtex_id = ?
	`, key).Scan(&meta.CitationKey, &meta.ModelName, &meta.SuggestedAt, &meta.AbstractHash, &labelsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(labelsJSON), &meta.Labels); err != nil {
		return nil, fmt.Errorf("parsing suggested labels for %s: %w", key, err)
	}
	return &meta, nil
}

// ClearSuggestionMetadata removes all suggestion metadata.
func (d *DB) ClearSuggestionMetadata() error {
	_, err := d.db.Exec("DELETE FROM suggestion_metadata")
	return err
}
