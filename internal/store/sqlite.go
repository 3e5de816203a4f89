package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS predictions (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  id         TEXT    NOT NULL UNIQUE,
  ts         TEXT    NOT NULL,
  source     TEXT    NOT NULL,
  action     TEXT    NOT NULL,
  document   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_ts ON predictions(ts);

CREATE TABLE IF NOT EXISTS sensor_readings (
  seq         INTEGER PRIMARY KEY AUTOINCREMENT,
  id          TEXT    NOT NULL UNIQUE,
  received_at TEXT    NOT NULL,
  document    TEXT    NOT NULL
);
`

// SQLiteStore persists evaluation records and sensor readings in SQLite.
// Rows keep the full JSON document so the schema does not track every field.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// Single writer keeps "database is locked" out of the picture.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite path is empty")
	}

	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// Append inserts an evaluation record.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, ts, source, action, document) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UTC().Format(time.RFC3339Nano), string(rec.Trigger), string(rec.Recommendation.Action), string(doc),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM predictions ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode prediction: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveReading inserts a sensor report.
func (s *SQLiteStore) SaveReading(ctx context.Context, r SensorReading) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (id, received_at, document) VALUES (?, ?, ?)`,
		r.ID, r.ReceivedAt.UTC().Format(time.RFC3339Nano), string(doc),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// LatestReading returns the most recently inserted sensor report.
func (s *SQLiteStore) LatestReading(ctx context.Context) (SensorReading, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM sensor_readings ORDER BY seq DESC LIMIT 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return SensorReading{}, ErrNotFound
	}
	if err != nil {
		return SensorReading{}, fmt.Errorf("query reading: %w", err)
	}

	var r SensorReading
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return SensorReading{}, fmt.Errorf("decode reading: %w", err)
	}
	return r, nil
}
