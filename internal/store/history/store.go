package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/z-interview/backend/internal/model/report"
)

const schema = `CREATE TABLE IF NOT EXISTS interviews (
	session_id   TEXT PRIMARY KEY,
	language     TEXT NOT NULL,
	scenario     TEXT NOT NULL,
	turn_count   INTEGER NOT NULL,
	score        INTEGER NOT NULL,
	band         TEXT NOT NULL,
	report       TEXT NOT NULL,
	completed_at INTEGER NOT NULL
)`

// Store 将已完成面试的报告存入 SQLite，供历史记录查询。
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path. Use ":memory:" in tests.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a finished interview. Saving the same session again replaces it.
func (s *Store) Save(ctx context.Context, rec report.Record) error {
	body, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO interviews
		(session_id, language, scenario, turn_count, score, band, report, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Language, rec.Scenario, rec.TurnCount,
		rec.Report.OverallScore, string(rec.Band), string(body), rec.CompletedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save interview %s: %w", rec.SessionID, err)
	}
	return nil
}

// List returns the most recent interviews first. limit <= 0 means 20.
func (s *Store) List(ctx context.Context, limit int) ([]report.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, language, scenario, turn_count, band, report, completed_at
		FROM interviews ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var out []report.Record
	for rows.Next() {
		var (
			rec       report.Record
			band      string
			body      string
			completed int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.Language, &rec.Scenario, &rec.TurnCount, &band, &body, &completed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &rec.Report); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", rec.SessionID, err)
		}
		rec.Band = report.Band(band)
		rec.CompletedAt = time.UnixMilli(completed).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
