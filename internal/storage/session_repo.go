package storage

import (
	"context"
	"errors"
	"fmt"

	"docchat/internal/models"
	"docchat/internal/util"

	"github.com/jackc/pgx/v5"
)

type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s models.Session) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO sessions (session_id, title) VALUES ($1, $2)`, s.SessionID, s.Title)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (models.Session, error) {
	var s models.Session
	err := r.db.Pool.QueryRow(ctx, `
SELECT session_id, title, created_at, last_updated
FROM sessions WHERE session_id=$1`, sessionID).
		Scan(&s.SessionID, &s.Title, &s.CreatedAt, &s.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Session{}, fmt.Errorf("session %s: %w", sessionID, util.ErrSessionNotFound)
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
SELECT filename FROM session_files WHERE session_id=$1 ORDER BY position`, sessionID)
	if err != nil {
		return models.Session{}, fmt.Errorf("list session files: %w", err)
	}
	defer rows.Close()
	s.UploadedFiles = make([]string, 0)
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return models.Session{}, fmt.Errorf("scan session file: %w", err)
		}
		s.UploadedFiles = append(s.UploadedFiles, f)
	}
	if err := rows.Err(); err != nil {
		return models.Session{}, fmt.Errorf("iterate session files: %w", err)
	}

	mrows, err := r.db.Pool.Query(ctx, `
SELECT role, content, created_at FROM messages WHERE session_id=$1 ORDER BY position`, sessionID)
	if err != nil {
		return models.Session{}, fmt.Errorf("list messages: %w", err)
	}
	defer mrows.Close()
	s.ChatHistory = make([]models.Message, 0)
	for mrows.Next() {
		var m models.Message
		if err := mrows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return models.Session{}, fmt.Errorf("scan message: %w", err)
		}
		s.ChatHistory = append(s.ChatHistory, m)
	}
	if err := mrows.Err(); err != nil {
		return models.Session{}, fmt.Errorf("iterate messages: %w", err)
	}
	return s, nil
}

func (r *SessionRepo) List(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT session_id, title, last_updated
FROM sessions ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	out := make([]models.SessionSummary, 0)
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.Title, &s.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// AppendMessages appends the given messages in order as one transaction and
// refreshes last_updated. A chat turn appends its user and assistant entries
// in a single call, so a transcript can never hold half a turn.
func (r *SessionRepo) AppendMessages(ctx context.Context, sessionID string, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx append messages: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `UPDATE sessions SET last_updated=NOW() WHERE session_id=$1`, sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, util.ErrSessionNotFound)
	}

	var next int
	if err := tx.QueryRow(ctx, `
SELECT COALESCE(MAX(position)+1, 0) FROM messages WHERE session_id=$1`, sessionID).Scan(&next); err != nil {
		return fmt.Errorf("next message position: %w", err)
	}
	for i, m := range msgs {
		if _, err := tx.Exec(ctx, `
INSERT INTO messages (session_id, position, role, content, created_at)
VALUES ($1, $2, $3, $4, $5)`, sessionID, next+i, m.Role, m.Content, m.CreatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append messages: %w", err)
	}
	return nil
}

// Rename updates the title only. Renaming to the current title still
// refreshes last_updated: every mutation touches it.
func (r *SessionRepo) Rename(ctx context.Context, sessionID, title string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE sessions SET title=$2, last_updated=NOW() WHERE session_id=$1`, sessionID, title)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, util.ErrSessionNotFound)
	}
	return nil
}

func (r *SessionRepo) AddUploadedFiles(ctx context.Context, sessionID string, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx add files: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `UPDATE sessions SET last_updated=NOW() WHERE session_id=$1`, sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, util.ErrSessionNotFound)
	}

	var next int
	if err := tx.QueryRow(ctx, `
SELECT COALESCE(MAX(position)+1, 0) FROM session_files WHERE session_id=$1`, sessionID).Scan(&next); err != nil {
		return fmt.Errorf("next file position: %w", err)
	}
	for i, f := range filenames {
		if _, err := tx.Exec(ctx, `
INSERT INTO session_files (session_id, position, filename)
VALUES ($1, $2, $3)`, sessionID, next+i, f); err != nil {
			return fmt.Errorf("insert session file: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit add files: %w", err)
	}
	return nil
}

// Delete removes the session record and its child rows. It reports whether a
// record existed so callers can stay idempotent on "already absent".
func (r *SessionRepo) Delete(ctx context.Context, sessionID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE session_id=$1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
