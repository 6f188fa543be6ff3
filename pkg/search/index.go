// Package search writes and queries a SQLite FTS5 index of the site's pages.
//
// The index is a single file, search.sqlite3 next to the built site, so the
// CLI can query a build without reloading the content folder.
package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/vanderheijden86/marktree/pkg/debug"
	"github.com/vanderheijden86/marktree/pkg/metrics"

	_ "modernc.org/sqlite"
)

// FileName is the index file written into the output folder.
const FileName = "search.sqlite3"

// DefaultLimit caps results when Search is called with limit <= 0.
const DefaultLimit = 20

// ErrNoIndex is returned by Search when the index file does not exist.
var ErrNoIndex = errors.New("search index not found")

// Column weights for bm25: key, route, title, tags, body.
const rankExpr = `bm25(pages, 0.0, 0.0, 10.0, 5.0, 1.0)`

const schemaSQL = `
	CREATE VIRTUAL TABLE pages USING fts5(
		key UNINDEXED,
		route UNINDEXED,
		title,
		tags,
		body,
		tokenize = 'porter unicode61'
	)
`

// Hit is one search result.
type Hit struct {
	Key     string  `json:"key"`
	Route   string  `json:"route"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Rank    float64 `json:"rank"`
}

// BuildIndex writes docs to a fresh index at path, replacing any existing
// file.
func BuildIndex(ctx context.Context, path string, docs []Document) error {
	defer metrics.Timer(metrics.IndexBuild)()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing index: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
	}()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create FTS5 table: %w", err)
	}
	if err := insertDocuments(ctx, db, docs); err != nil {
		return fmt.Errorf("insert pages: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO pages(pages) VALUES('optimize')`); err != nil {
		return fmt.Errorf("optimize index: %w", err)
	}
	if _, err := db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum index: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	dbClosed = true
	debug.Log("search: indexed %d pages into %s", len(docs), path)
	return nil
}

func insertDocuments(ctx context.Context, db *sql.DB, docs []Document) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pages (key, route, title, tags, body) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.Key, d.Route, d.Title, d.Tags, d.Body); err != nil {
			return fmt.Errorf("%s: %w", d.Key, err)
		}
	}
	return tx.Commit()
}

// Search returns the best matches for query, best first. An empty query
// returns no hits.
func Search(ctx context.Context, path, query string, limit int) ([]Hit, error) {
	defer metrics.Timer(metrics.SearchQuery)()

	match := MatchExpr(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoIndex, path)
		}
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT key, route, title, snippet(pages, -1, '[', ']', '…', 12), `+rankExpr+` AS rank
		FROM pages
		WHERE pages MATCH ?
		ORDER BY rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Key, &h.Route, &h.Title, &h.Snippet, &h.Rank); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// MatchExpr turns free text into an FTS5 match expression: every word is
// quoted so punctuation cannot break the query syntax, and the last word
// matches as a prefix. Words without a letter or digit are dropped.
func MatchExpr(query string) string {
	var terms []string
	for _, w := range strings.Fields(query) {
		if !strings.ContainsFunc(w, isWordRune) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(w, `"`, `""`)+`"`)
	}
	if len(terms) == 0 {
		return ""
	}
	terms[len(terms)-1] += "*"
	return strings.Join(terms, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
