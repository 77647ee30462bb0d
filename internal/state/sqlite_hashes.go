package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetContentHash retrieves the dependency hash stored for a page.
func (s *SQLiteStore) GetContentHash(language, sourcePath string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	var hash string
	err := s.db.QueryRow(
		`SELECT content_hash FROM content_hashes WHERE language = ? AND source_path = ?`,
		language, sourcePath,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil // Not found, return empty string
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content hash: %w", err)
	}

	return hash, nil
}

// SetContentHash stores the dependency hash of a page and where it was
// written.
func (s *SQLiteStore) SetContentHash(language, sourcePath, hash, outputPath string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(
		`INSERT INTO content_hashes (language, source_path, content_hash, output_path, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (language, source_path) DO UPDATE SET
		     content_hash = excluded.content_hash,
		     output_path = excluded.output_path,
		     updated_at = excluded.updated_at`,
		language, sourcePath, hash, outputPath, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set content hash: %w", err)
	}
	return nil
}

// DeleteContentHash removes the dependency hash of a page.
func (s *SQLiteStore) DeleteContentHash(language, sourcePath string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if _, err := s.db.Exec(
		`DELETE FROM content_hashes WHERE language = ? AND source_path = ?`,
		language, sourcePath,
	); err != nil {
		return fmt.Errorf("failed to delete content hash: %w", err)
	}
	return nil
}
