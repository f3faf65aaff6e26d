package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite-backed persistence for resolved addresses and resolver
// pass history.
type Store struct {
	DB *sql.DB // Export for direct database access
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS geocode_cache (
            file_name TEXT PRIMARY KEY,
            payload_json TEXT NOT NULL,
            resolved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS resolver_passes (
            id TEXT PRIMARY KEY,
            status TEXT NOT NULL,
            file_count INTEGER,
            stats_json TEXT,
            started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            completed_at TIMESTAMP,
            error_message TEXT
        );`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// LoadAddresses returns every stored address payload keyed by file name.
func (s *Store) LoadAddresses(ctx context.Context) (map[string]json.RawMessage, error) {
	if s == nil {
		return nil, errors.New("store not initialized")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT file_name, payload_json FROM geocode_cache;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, err
		}
		out[name] = json.RawMessage(payload)
	}
	return out, rows.Err()
}

// ReplaceAddresses overwrites the stored addresses with entries in a single
// transaction.
func (s *Store) ReplaceAddresses(ctx context.Context, entries map[string]json.RawMessage) error {
	if s == nil {
		return errors.New("store not initialized")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM geocode_cache;`); err != nil {
		return fmt.Errorf("clear geocode cache: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO geocode_cache (file_name, payload_json) VALUES (?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for name, payload := range entries {
		if _, err := stmt.ExecContext(ctx, name, string(payload)); err != nil {
			return fmt.Errorf("store address for %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// PassRecord captures a persisted resolver pass.
type PassRecord struct {
	ID          string
	Status      string
	FileCount   int
	StatsJSON   string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RecordPassStart inserts a running pass.
func (s *Store) RecordPassStart(ctx context.Context, id string, files int) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `INSERT OR REPLACE INTO resolver_passes (id, status, file_count) VALUES (?, 'running', ?);`, id, files)
	return err
}

// RecordPassResult finalizes a pass with status and stats.
func (s *Store) RecordPassResult(ctx context.Context, id, status string, stats map[string]any, errMsg string) error {
	if s == nil {
		return nil
	}
	statsJSON, _ := json.Marshal(stats)
	_, err := s.DB.ExecContext(ctx, `UPDATE resolver_passes SET status=?, stats_json=?, completed_at=CURRENT_TIMESTAMP, error_message=? WHERE id=?;`,
		status, string(statsJSON), errMsg, id)
	return err
}

// RecentPasses returns the latest passes up to limit.
func (s *Store) RecentPasses(ctx context.Context, limit int) ([]PassRecord, error) {
	if s == nil {
		return nil, errors.New("store not initialized")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, status, file_count, stats_json, started_at, completed_at, error_message FROM resolver_passes ORDER BY started_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []PassRecord
	for rows.Next() {
		var rec PassRecord
		var started time.Time
		var completed sql.NullTime
		var stats, errorMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.FileCount, &stats, &started, &completed, &errorMsg); err != nil {
			return nil, err
		}
		rec.StartedAt = started
		if completed.Valid {
			rec.CompletedAt = &completed.Time
		}
		rec.StatsJSON = stats.String
		rec.Error = errorMsg.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
