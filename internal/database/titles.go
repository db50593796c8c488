// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/recolibre/recolibre/internal/models"
)

// ErrTitleNotFound is returned when a lookup matches no title.
var ErrTitleNotFound = errors.New("title not found")

// TrainingFilter selects which titles enter a training corpus.
// Keys takes precedence over Theme; with neither set all titles with
// extracted text are selected. Limit of 0 means no limit.
type TrainingFilter struct {
	Keys  []string
	Theme string
	Limit int
}

const titleColumns = `id, identifier, publisher, theme, name, complete_text, vector_file, created_at, updated_at`

func scanTitle(row interface{ Scan(...any) error }) (*models.Title, error) {
	var t models.Title
	err := row.Scan(&t.ID, &t.Identifier, &t.Publisher, &t.Theme, &t.Name,
		&t.CompleteText, &t.VectorFile, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTitle inserts a title, skipping rows whose identifier already
// exists. Returns true when a row was inserted.
func (db *DB) InsertTitle(ctx context.Context, t *models.Title) (bool, error) {
	exists, err := db.TitleExists(ctx, t.Identifier)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	stmt, err := db.prepareStmt(ctx,
		`INSERT INTO titles (identifier, publisher, theme, name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return false, err
	}
	if _, err := stmt.ExecContext(ctx, t.Identifier, t.Publisher, t.Theme, t.Name); err != nil {
		return false, fmt.Errorf("failed to insert title %s: %w", t.Identifier, err)
	}
	return true, nil
}

// TitleExists reports whether a title with the given identifier exists.
func (db *DB) TitleExists(ctx context.Context, identifier string) (bool, error) {
	stmt, err := db.prepareStmt(ctx, `SELECT COUNT(*) FROM titles WHERE identifier = ?`)
	if err != nil {
		return false, err
	}
	var count int
	if err := stmt.QueryRowContext(ctx, identifier).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check title existence: %w", err)
	}
	return count > 0, nil
}

// GetByIdentifier fetches a single title by its sync key.
func (db *DB) GetByIdentifier(ctx context.Context, identifier string) (*models.Title, error) {
	stmt, err := db.prepareStmt(ctx,
		`SELECT `+titleColumns+` FROM titles WHERE identifier = ?`)
	if err != nil {
		return nil, err
	}
	t, err := scanTitle(stmt.QueryRowContext(ctx, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTitleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch title %s: %w", identifier, err)
	}
	return t, nil
}

// UpdateCompleteText stores the extracted text for a title.
func (db *DB) UpdateCompleteText(ctx context.Context, identifier, text string) error {
	stmt, err := db.prepareStmt(ctx,
		`UPDATE titles SET complete_text = ?, updated_at = CURRENT_TIMESTAMP WHERE identifier = ?`)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, text, identifier)
	if err != nil {
		return fmt.Errorf("failed to update text for %s: %w", identifier, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTitleNotFound
	}
	return nil
}

// UpdateVectorFile records the path of the persisted term-count vector
// for a title.
func (db *DB) UpdateVectorFile(ctx context.Context, id int64, path string) error {
	stmt, err := db.prepareStmt(ctx,
		`UPDATE titles SET vector_file = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, path, id)
	if err != nil {
		return fmt.Errorf("failed to update vector file for title %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTitleNotFound
	}
	return nil
}

// ListForTraining returns titles eligible for training, newest first.
// Titles without extracted text are always excluded.
func (db *DB) ListForTraining(ctx context.Context, filter TrainingFilter) ([]*models.Title, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + titleColumns + ` FROM titles WHERE complete_text <> ''`)

	switch {
	case len(filter.Keys) > 0:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Keys)), ", ")
		query.WriteString(` AND identifier IN (` + placeholders + `)`)
		for _, k := range filter.Keys {
			args = append(args, k)
		}
	case filter.Theme != "":
		query.WriteString(` AND theme = ?`)
		args = append(args, filter.Theme)
	}

	query.WriteString(` ORDER BY id DESC`)
	if filter.Limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list training titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var titles []*models.Title
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan title row: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("title row iteration failed: %w", err)
	}
	return titles, nil
}

// ListMissingText returns identifiers of titles whose text has not been
// extracted yet.
func (db *DB) ListMissingText(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT identifier FROM titles WHERE complete_text = '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles missing text: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var identifiers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		identifiers = append(identifiers, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identifier row iteration failed: %w", err)
	}
	return identifiers, nil
}

// ListAllIdentifiers returns every title identifier in insertion order.
func (db *DB) ListAllIdentifiers(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT identifier FROM titles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list identifiers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var identifiers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		identifiers = append(identifiers, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identifier row iteration failed: %w", err)
	}
	return identifiers, nil
}

// CountTitles returns the total number of titles in the catalog.
func (db *DB) CountTitles(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM titles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count titles: %w", err)
	}
	return count, nil
}
