package state

import (
	"database/sql"
	"fmt"
)

// RecordPageResult stores the outcome of one page. An empty ID is filled in.
func (s *SQLiteStore) RecordPageResult(result *PageResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if result.ID == "" {
		result.ID = generateID()
	}

	_, err := s.db.Exec(
		`INSERT INTO page_results (id, run_id, language, source_path, output_path, status, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.RunID, result.Language, result.SourcePath, result.OutputPath,
		string(result.Status), result.DurationMS, nullString(result.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record page result: %w", err)
	}
	return nil
}

// GetPageResults retrieves the page results of a run ordered by language and
// source path.
func (s *SQLiteStore) GetPageResults(runID string) ([]*PageResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, language, source_path, output_path, status, duration_ms, error
		 FROM page_results WHERE run_id = ? ORDER BY language, source_path`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get page results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*PageResult
	for rows.Next() {
		r := &PageResult{}
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Language, &r.SourcePath, &r.OutputPath, &status, &r.DurationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan page result: %w", err)
		}
		r.Status = PageStatus(status)
		r.Error = errMsg.String
		results = append(results, r)
	}
	return results, rows.Err()
}
