package state

import (
	"context"
	"fmt"
)

// SetDependencies sets the templates a page uses.
// This replaces any existing dependencies.
func (s *SQLiteStore) SetDependencies(pagePath string, templates []string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Delete existing dependencies
	if _, err := tx.Exec(`DELETE FROM dependencies WHERE page_path = ?`, pagePath); err != nil {
		return fmt.Errorf("failed to delete existing dependencies: %w", err)
	}

	// Insert new dependencies
	for _, tmpl := range templates {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO dependencies (page_path, template_path) VALUES (?, ?)`,
			pagePath, tmpl,
		); err != nil {
			return fmt.Errorf("failed to insert dependency: %w", err)
		}
	}

	return tx.Commit()
}

// GetDependencies retrieves the templates a page uses, sorted by path.
func (s *SQLiteStore) GetDependencies(pagePath string) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return s.queryStrings(`SELECT template_path FROM dependencies WHERE page_path = ? ORDER BY template_path`, pagePath)
}

// GetDependents retrieves the pages using a template, sorted by path.
func (s *SQLiteStore) GetDependents(templatePath string) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return s.queryStrings(`SELECT page_path FROM dependencies WHERE template_path = ? ORDER BY page_path`, templatePath)
}

func (s *SQLiteStore) queryStrings(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
