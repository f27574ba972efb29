// Package storage provides SQLite implementation of the AnnotationStore interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/anveshak/internal/models"
)

// SQLiteStorage implements AnnotationStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS annotations (
		id TEXT PRIMARY KEY,
		dataset TEXT NOT NULL,
		footprint TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL DEFAULT '',
		geojson TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_annotations_dataset ON annotations(dataset, footprint);
	CREATE INDEX IF NOT EXISTS idx_annotations_created_at ON annotations(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateAnnotation inserts an annotation, assigning a UUID when ID is empty.
func (s *SQLiteStorage) CreateAnnotation(ctx context.Context, a *models.Annotation) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO annotations (id, dataset, footprint, label, geojson, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Dataset, a.Footprint, a.Label, string(a.GeoJSON), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert annotation %s: %w", a.ID, err)
	}
	return nil
}

// GetAnnotation returns an annotation by ID.
func (s *SQLiteStorage) GetAnnotation(ctx context.Context, id string) (*models.Annotation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, footprint, label, geojson, created_at, updated_at
		 FROM annotations WHERE id = ?`, id,
	)
	a, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAnnotationNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAnnotation applies the non-nil fields of upd and returns the stored result.
func (s *SQLiteStorage) UpdateAnnotation(ctx context.Context, id string, upd *models.AnnotationUpdate) (*models.Annotation, error) {
	a, err := s.GetAnnotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Label != nil {
		a.Label = *upd.Label
	}
	if len(upd.GeoJSON) > 0 {
		a.GeoJSON = upd.GeoJSON
	}
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE annotations SET label = ?, geojson = ?, updated_at = ? WHERE id = ?`,
		a.Label, string(a.GeoJSON), a.UpdatedAt, id,
	)
	if err != nil {
		return nil, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAnnotationNotFound, id)
	}
	return a, nil
}

// DeleteAnnotation removes an annotation by ID.
func (s *SQLiteStorage) DeleteAnnotation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrAnnotationNotFound, id)
	}
	return nil
}

// ListAnnotations returns annotations, optionally filtered by dataset.
func (s *SQLiteStorage) ListAnnotations(ctx context.Context, dataset string) ([]*models.Annotation, error) {
	query := `SELECT id, dataset, footprint, label, geojson, created_at, updated_at FROM annotations`
	var args []any
	if dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Annotation{}
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAnnotations returns the total number of annotations.
func (s *SQLiteStorage) CountAnnotations(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM annotations`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row scanner) (*models.Annotation, error) {
	var a models.Annotation
	var geo string
	if err := row.Scan(&a.ID, &a.Dataset, &a.Footprint, &a.Label, &geo, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.GeoJSON = []byte(geo)
	return &a, nil
}
