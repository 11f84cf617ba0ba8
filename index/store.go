// Package index keeps decoded catalogs in a SQLite database to search
// clips across several catalogs
package index

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/Luzifer/cag-extract/cag"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion must be bumped whenever schema.sql changes
const schemaVersion = 1

// ErrSchemaMismatch signals the database was created by another version
var ErrSchemaMismatch = errors.New("schema version mismatch")

type (
	// Store manages the catalog index backed by SQLite
	Store struct {
		db   *sql.DB
		path string
	}

	// Clip is a search result
	Clip struct {
		Source       string
		ClipID       uint32
		Filename     string
		Subdirectory string
	}
)

// Open connects to the index database, creating it when needed
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection, a single connection keeps foreign_keys
	// (and with it the cascading deletes in Put) in effect
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path}
	if err = s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has %d, expected %d (remove %s to rebuild)", ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

// Put stores the catalog, replacing an earlier version of the same source
func (s *Store) Put(ctx context.Context, c *cag.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM catalogs WHERE source = ?", c.Source); err != nil {
		return fmt.Errorf("delete previous catalog: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO catalogs (
            source, unknown1, unknown2, category_count, unknown3, terminating_tag, indexed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Source,
		c.Header.Unknown1,
		c.Header.Unknown2,
		c.Header.CategoryCount,
		c.Header.Unknown3,
		uint32(c.TerminatingTag),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert catalog: %w", err)
	}

	catalogID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("catalog id: %w", err)
	}

	if err = putCategories(ctx, tx, catalogID, c); err != nil {
		return err
	}

	if err = putDeclarations(ctx, tx, catalogID, c); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func putCategories(ctx context.Context, tx *sql.Tx, catalogID int64, c *cag.Catalog) error {
	for ci, cat := range c.Categories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO categories (catalog_id, position, title, is_master, unknown1) VALUES (?, ?, ?, ?, ?)",
			catalogID, ci, cat.Title, ci == c.MasterCategory, cat.Unknown1,
		); err != nil {
			return fmt.Errorf("insert category %q: %w", cat.Title, err)
		}

		for pos, id := range cat.ClipIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO category_clips (catalog_id, category_position, position, clip_id) VALUES (?, ?, ?, ?)",
				catalogID, ci, pos, id,
			); err != nil {
				return fmt.Errorf("insert clip %d of category %q: %w", id, cat.Title, err)
			}
		}
	}

	return nil
}

func putDeclarations(ctx context.Context, tx *sql.Tx, catalogID int64, c *cag.Catalog) error {
	for pos, d := range c.Declarations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO declarations (
                catalog_id, position, clip_id, record_type, filename, subdirectory
            ) VALUES (?, ?, ?, ?, ?, ?)`,
			catalogID, pos, d.ID, uint32(d.Type), d.Filename, d.Subdirectory,
		); err != nil {
			return fmt.Errorf("insert declaration %q: %w", d.Filename, err)
		}

		for _, kw := range d.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO declaration_keywords (catalog_id, declaration_position, keyword) VALUES (?, ?, ?)",
				catalogID, pos, kw,
			); err != nil {
				return fmt.Errorf("insert keyword of %q: %w", d.Filename, err)
			}
		}

		for _, title := range d.Categories {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO declaration_categories (catalog_id, declaration_position, title) VALUES (?, ?, ?)",
				catalogID, pos, title,
			); err != nil {
				return fmt.Errorf("insert category of %q: %w", d.Filename, err)
			}
		}
	}

	return nil
}

// FindByKeyword returns all clips tagged with the keyword, ignoring case
func (s *Store) FindByKeyword(ctx context.Context, keyword string) ([]Clip, error) {
	return s.find(ctx,
		`SELECT DISTINCT c.source, d.clip_id, d.filename, d.subdirectory
        FROM declaration_keywords k
        JOIN declarations d ON d.catalog_id = k.catalog_id AND d.position = k.declaration_position
        JOIN catalogs c ON c.id = d.catalog_id
        WHERE k.keyword = ? COLLATE NOCASE
        ORDER BY c.source, d.position`,
		strings.TrimSpace(keyword),
	)
}

// FindByCategory returns all clips listed in a category with the title
func (s *Store) FindByCategory(ctx context.Context, title string) ([]Clip, error) {
	return s.find(ctx,
		`SELECT DISTINCT c.source, d.clip_id, d.filename, d.subdirectory
        FROM declaration_categories dc
        JOIN declarations d ON d.catalog_id = dc.catalog_id AND d.position = dc.declaration_position
        JOIN catalogs c ON c.id = d.catalog_id
        WHERE dc.title = ?
        ORDER BY c.source, d.position`,
		title,
	)
}

func (s *Store) find(ctx context.Context, query string, args ...any) ([]Clip, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var clips []Clip
	for rows.Next() {
		var c Clip
		if err = rows.Scan(&c.Source, &c.ClipID, &c.Filename, &c.Subdirectory); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clips = append(clips, c)
	}

	return clips, rows.Err()
}
