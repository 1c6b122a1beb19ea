package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Outcome is the terminal result recorded for a source file.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Record is one catalog row: the last known terminal outcome for a source file.
type Record struct {
	ID           int64
	SourcePath   string
	OutputPath   string
	Status       Outcome
	ErrorMessage string
	ConvertedAt  time.Time
}

// Summary aggregates catalog counts.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// RecordSuccess upserts a successful conversion for sourcePath.
func (s *Store) RecordSuccess(ctx context.Context, sourcePath, outputPath string) error {
	return s.upsert(ctx, sourcePath, outputPath, OutcomeSucceeded, "")
}

// RecordFailure upserts a failed conversion attempt for sourcePath. The file
// stays convertible; the error is retained for presentation.
func (s *Store) RecordFailure(ctx context.Context, sourcePath, message string) error {
	return s.upsert(ctx, sourcePath, "", OutcomeFailed, message)
}

func (s *Store) upsert(ctx context.Context, sourcePath, outputPath string, status Outcome, message string) error {
	if sourcePath == "" {
		return errors.New("source path required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO conversions (source_path, output_path, status, error_message, converted_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(source_path) DO UPDATE SET
             output_path = excluded.output_path,
             status = excluded.status,
             error_message = excluded.error_message,
             converted_at = excluded.converted_at`,
		sourcePath,
		nullableString(outputPath),
		string(status),
		nullableString(message),
		now,
	)
	if err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}
	return nil
}

// Lookup fetches the record for a source path, or nil when absent.
func (s *Store) Lookup(ctx context.Context, sourcePath string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, source_path, output_path, status, error_message, converted_at
         FROM conversions WHERE source_path = ?`,
		sourcePath,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup conversion: %w", err)
	}
	return record, nil
}

// ConvertedSet returns every source path with a successful conversion.
// The scanner consults this to decide which candidates still need conversion.
func (s *Store) ConvertedSet(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT source_path FROM conversions WHERE status = ?`,
		string(OutcomeSucceeded),
	)
	if err != nil {
		return nil, fmt.Errorf("list converted: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan converted row: %w", err)
		}
		set[path] = struct{}{}
	}
	return set, rows.Err()
}

// List returns catalog records, most recent first. A limit of zero returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := `SELECT id, source_path, output_path, status, error_message, converted_at
              FROM conversions ORDER BY converted_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion row: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns aggregate catalog counts.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM conversions GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("catalog stats: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan stats row: %w", err)
		}
		summary.Total += count
		switch Outcome(status) {
		case OutcomeSucceeded:
			summary.Succeeded = count
		case OutcomeFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

// Clear removes every catalog record.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM conversions`)
	if err != nil {
		return 0, fmt.Errorf("clear catalog: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record      Record
		output      sql.NullString
		message     sql.NullString
		convertedAt string
	)
	if err := row.Scan(&record.ID, &record.SourcePath, &output, &record.Status, &message, &convertedAt); err != nil {
		return nil, err
	}
	record.OutputPath = output.String
	record.ErrorMessage = message.String
	if ts, err := time.Parse(time.RFC3339Nano, convertedAt); err == nil {
		record.ConvertedAt = ts
	}
	return &record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
