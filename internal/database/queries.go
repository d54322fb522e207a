package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reyeslabs/lexigrade/internal/models"
)

// ErrNotFound is returned when no analysis exists for the given ID.
var ErrNotFound = errors.New("analysis not found")

// verdictJSON serializes whichever verdict variant the analysis carries.
func verdictJSON(analysis *models.Analysis) ([]byte, error) {
	switch {
	case analysis.Proficiency != nil:
		return json.Marshal(analysis.Proficiency)
	case analysis.Complexity != nil:
		return json.Marshal(analysis.Complexity)
	default:
		return nil, nil
	}
}

// SaveAnalysis inserts a new analysis record.
func (db *DB) SaveAnalysis(analysis *models.Analysis) error {
	verdict, err := verdictJSON(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}

	var issues []byte
	if len(analysis.Issues) > 0 {
		issues, err = json.Marshal(analysis.Issues)
		if err != nil {
			return fmt.Errorf("failed to marshal issues: %w", err)
		}
	}

	_, err = db.conn.Exec(`
		INSERT INTO analyses (id, kind, text, language, reference_text, stage, verdict, issues, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, analysis.ID, analysis.Kind, analysis.Text, analysis.Language,
		emptyToNull(analysis.ReferenceText), analysis.Stage,
		nullableString(verdict), nullableString(issues), emptyToNull(analysis.LastError),
		analysis.CreatedAt, analysis.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// UpdateAnalysis replaces the mutable fields of an existing record: stage,
// verdict, issues, and last error.
func (db *DB) UpdateAnalysis(analysis *models.Analysis) error {
	verdict, err := verdictJSON(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}

	var issues []byte
	if len(analysis.Issues) > 0 {
		issues, err = json.Marshal(analysis.Issues)
		if err != nil {
			return fmt.Errorf("failed to marshal issues: %w", err)
		}
	}

	result, err := db.conn.Exec(`
		UPDATE analyses
		SET stage = ?, verdict = ?, issues = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, analysis.Stage, nullableString(verdict), nullableString(issues),
		emptyToNull(analysis.LastError), time.Now().UTC(), analysis.ID)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// GetAnalysis retrieves an analysis by ID
func (db *DB) GetAnalysis(id string) (*models.Analysis, error) {
	row := db.conn.QueryRow(`
		SELECT id, kind, text, language, reference_text, stage, verdict, issues, last_error, created_at, updated_at
		FROM analyses
		WHERE id = ?
	`, id)

	analysis, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	return analysis, nil
}

// ListAnalyses retrieves analyses ordered newest first, optionally filtered
// by kind. An empty kind matches everything.
func (db *DB) ListAnalyses(kind string, limit, offset int) ([]*models.Analysis, error) {
	query := `
		SELECT id, kind, text, language, reference_text, stage, verdict, issues, last_error, created_at, updated_at
		FROM analyses
	`
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []*models.Analysis{}
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		analyses = append(analyses, analysis)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return analyses, nil
}

// CountAnalyses returns the total number of stored analyses, optionally
// filtered by kind.
func (db *DB) CountAnalyses(kind string) (int, error) {
	query := "SELECT COUNT(*) FROM analyses"
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}

	var count int
	if err := db.conn.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

// DeleteAnalysis deletes an analysis by ID
func (db *DB) DeleteAnalysis(id string) error {
	result, err := db.conn.Exec("DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanAnalysis.
type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*models.Analysis, error) {
	var (
		analysis  models.Analysis
		reference sql.NullString
		verdict   sql.NullString
		issues    sql.NullString
		lastError sql.NullString
	)

	err := s.Scan(&analysis.ID, &analysis.Kind, &analysis.Text, &analysis.Language,
		&reference, &analysis.Stage, &verdict, &issues, &lastError,
		&analysis.CreatedAt, &analysis.UpdatedAt)
	if err != nil {
		return nil, err
	}

	analysis.ReferenceText = reference.String
	analysis.LastError = lastError.String

	if issues.Valid && issues.String != "" {
		if err := json.Unmarshal([]byte(issues.String), &analysis.Issues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
		}
	}

	if verdict.Valid && verdict.String != "" {
		switch analysis.Kind {
		case models.KindProficiency:
			analysis.Proficiency = &models.StudentDiagnosisResult{}
			if err := json.Unmarshal([]byte(verdict.String), analysis.Proficiency); err != nil {
				return nil, fmt.Errorf("failed to unmarshal proficiency verdict: %w", err)
			}
		case models.KindComplexity:
			analysis.Complexity = &models.TextComplexityResult{}
			if err := json.Unmarshal([]byte(verdict.String), analysis.Complexity); err != nil {
				return nil, fmt.Errorf("failed to unmarshal complexity verdict: %w", err)
			}
		}
	}

	return &analysis, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
