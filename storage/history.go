// Package storage provides SQLite persistence for enhancement history.
//
// The usage ledger stays in memory; what is persisted here is the audit
// trail of enhancement runs: the original request, the produced result, and
// which backend served it at what cost.

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"issueforge/model"
)

// HistoryRecord is one persisted enhancement run.
type HistoryRecord struct {
	ID        string                   `json:"id"`
	CreatedAt time.Time                `json:"created_at"`
	Request   model.EnhancementRequest `json:"request"`
	Result    model.EnhancementResult  `json:"result"`
}

// HistoryStore persists enhancement runs in SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens or creates a history database at the given path.
// Creates parent directories if they don't exist.
func OpenHistory(path string) (*HistoryStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &HistoryStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewHistoryInMemory creates an in-memory history store (useful for testing).
func NewHistoryInMemory() (*HistoryStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &HistoryStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func (s *HistoryStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS enhancements (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			kind TEXT NOT NULL,
			provider TEXT NOT NULL,
			priority TEXT NOT NULL,
			cost_usd REAL NOT NULL,
			request TEXT NOT NULL,
			result TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_enhancements_created
		ON enhancements(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_enhancements_provider
		ON enhancements(provider, created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save persists one enhancement run and returns its generated ID.
func (s *HistoryStore) Save(ctx context.Context, req model.EnhancementRequest, result model.EnhancementResult) (string, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO enhancements (id, created_at, kind, provider, priority, cost_usd, request, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().Unix(), string(req.Kind),
		result.Metadata.Provider, string(result.Priority), result.Metadata.CostUSD,
		string(reqJSON), string(resultJSON))
	if err != nil {
		return "", fmt.Errorf("failed to save enhancement: %w", err)
	}
	return id, nil
}

// Get retrieves one run by ID. Returns sql.ErrNoRows when absent.
func (s *HistoryStore) Get(ctx context.Context, id string) (HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, request, result
		FROM enhancements WHERE id = ?`, id)
	return scanRecord(row)
}

// Recent returns the most recent runs, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, request, result
		FROM enhancements ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// CostByProvider sums persisted cost per backend across all recorded runs.
func (s *HistoryStore) CostByProvider(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, SUM(cost_usd) FROM enhancements GROUP BY provider`)
	if err != nil {
		return nil, fmt.Errorf("failed to query costs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var provider string
		var cost float64
		if err := rows.Scan(&provider, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan cost row: %w", err)
		}
		out[provider] = cost
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (HistoryRecord, error) {
	var record HistoryRecord
	var createdAt int64
	var reqJSON, resultJSON string

	if err := row.Scan(&record.ID, &createdAt, &reqJSON, &resultJSON); err != nil {
		return HistoryRecord{}, err
	}
	record.CreatedAt = time.Unix(createdAt, 0).UTC()

	if err := json.Unmarshal([]byte(reqJSON), &record.Request); err != nil {
		return HistoryRecord{}, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &record.Result); err != nil {
		return HistoryRecord{}, fmt.Errorf("failed to decode result: %w", err)
	}
	return record, nil
}
