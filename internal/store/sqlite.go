package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/umit-portal/internal/domain"
	"github.com/ashureev/umit-portal/internal/shared"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
	mu sync.Mutex // serializes writes to avoid SQLITE_BUSY
}

type sessionRow struct {
	SessionID      string         `db:"session_id"`
	Authenticated  bool           `db:"authenticated"`
	CurrentPage    string         `db:"current_page"`
	StudentID      sql.NullString `db:"student_id"`
	TranscriptJSON sql.NullString `db:"transcript_json"`
	CreatedAt      int64          `db:"created_at"`
	UpdatedAt      int64          `db:"updated_at"`
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite store requires a database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS portal_sessions (
		session_id TEXT PRIMARY KEY,
		authenticated INTEGER NOT NULL DEFAULT 0,
		current_page TEXT NOT NULL,
		student_id TEXT,
		transcript_json TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_portal_sessions_updated ON portal_sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	query := `
		SELECT session_id, authenticated, current_page, student_id,
		       transcript_json, created_at, updated_at
		FROM portal_sessions WHERE session_id = ?`

	var row sessionRow
	err := s.db.GetContext(ctx, &row, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return row.record()
}

// UpsertSession creates or replaces a session record.
func (s *SQLiteStore) UpsertSession(ctx context.Context, rec *domain.SessionRecord) error {
	row, err := newSessionRow(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO portal_sessions (
		session_id, authenticated, current_page, student_id,
		transcript_json, created_at, updated_at
	) VALUES (
		:session_id, :authenticated, :current_page, :student_id,
		:transcript_json, :created_at, :updated_at
	)
	ON CONFLICT(session_id) DO UPDATE SET
		authenticated = excluded.authenticated,
		current_page = excluded.current_page,
		student_id = excluded.student_id,
		transcript_json = excluded.transcript_json,
		updated_at = excluded.updated_at`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
// Retries with exponential backoff on SQLITE_BUSY errors.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.deleteSessionOnce(ctx, sessionID)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
		slog.Debug("DeleteSession failed with SQLITE_BUSY, retrying",
			"session_id", sessionID,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("delete session %s: %w", sessionID, err)
}

func (s *SQLiteStore) deleteSessionOnce(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE session_id = ?`, sessionID)
	return err
}

// GetExpiredSessions returns sessions not updated within ttl.
func (s *SQLiteStore) GetExpiredSessions(ctx context.Context, ttl time.Duration) ([]*domain.SessionRecord, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `
		SELECT session_id, authenticated, current_page, student_id,
		       transcript_json, created_at, updated_at
		FROM portal_sessions WHERE updated_at < ?`

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, query, threshold); err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}

	records := make([]*domain.SessionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func newSessionRow(rec *domain.SessionRecord) (sessionRow, error) {
	row := sessionRow{
		SessionID:     rec.SessionID,
		Authenticated: rec.State.Authenticated,
		CurrentPage:   string(rec.State.CurrentPage),
		StudentID:     sql.NullString{String: rec.State.StudentID, Valid: rec.State.StudentID != ""},
		CreatedAt:     rec.CreatedAt.Unix(),
		UpdatedAt:     rec.UpdatedAt.Unix(),
	}
	if rec.State.Transcript != nil {
		data, err := json.Marshal(rec.State.Transcript)
		if err != nil {
			return sessionRow{}, fmt.Errorf("marshal transcript: %w", err)
		}
		row.TranscriptJSON = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

func (r sessionRow) record() (*domain.SessionRecord, error) {
	rec := &domain.SessionRecord{
		SessionID: r.SessionID,
		State: domain.State{
			Authenticated: r.Authenticated,
			CurrentPage:   domain.Page(r.CurrentPage),
			StudentID:     r.StudentID.String,
		},
		CreatedAt: time.Unix(r.CreatedAt, 0),
		UpdatedAt: time.Unix(r.UpdatedAt, 0),
	}
	if r.TranscriptJSON.Valid {
		var transcript []domain.ChatMessage
		if err := json.Unmarshal([]byte(r.TranscriptJSON.String), &transcript); err != nil {
			return nil, fmt.Errorf("unmarshal transcript for %s: %w", r.SessionID, err)
		}
		if transcript == nil {
			transcript = []domain.ChatMessage{}
		}
		rec.State.Transcript = transcript
	}
	return rec, nil
}
