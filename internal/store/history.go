package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"unityarchitect/internal/models"
)

// Fixed width so that lexical order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// SaveSession records a finished session.
func (s *Store) SaveSession(ctx context.Context, session models.Session) error {
	findings := session.Findings
	if findings == nil {
		findings = []models.Finding{}
	}
	smells, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("failed to encode findings: %w", err)
	}
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO history (session_id, user_id, created_at, title, intent, original_code, ai_suggestion, smells)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		session.ID, session.UserID, createdAt.UTC().Format(timeLayout), session.Title,
		string(session.Intent), session.SourceText, session.FinalText, string(smells),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// ListHistory returns the user's sessions, newest first.
func (s *Store) ListHistory(ctx context.Context, userID string) ([]models.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT session_id, created_at, title, intent FROM history
		WHERE user_id = ? ORDER BY created_at DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	out := []models.SessionSummary{}
	for rows.Next() {
		var (
			item      models.SessionSummary
			createdAt string
			intent    string
		)
		if err := rows.Scan(&item.ID, &createdAt, &item.Title, &intent); err != nil {
			return nil, fmt.Errorf("failed to read history row: %w", err)
		}
		item.Intent = models.Intent(intent)
		if item.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("bad timestamp for session %s: %w", item.ID, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetSession returns one full session.
func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	var (
		session   models.Session
		createdAt string
		intent    string
		smells    string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT session_id, user_id, created_at, title, intent, original_code, ai_suggestion, smells
		FROM history WHERE session_id = ?`), id,
	).Scan(&session.ID, &session.UserID, &createdAt, &session.Title, &intent,
		&session.SourceText, &session.FinalText, &smells)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	session.Intent = models.Intent(intent)
	if session.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return models.Session{}, fmt.Errorf("bad timestamp for session %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(smells), &session.Findings); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode findings of session %s: %w", id, err)
	}
	return session, nil
}

// RenameSession changes the title of a session.
func (s *Store) RenameSession(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE history SET title = ? WHERE session_id = ?`), title, id)
	if err != nil {
		return fmt.Errorf("failed to rename session %s: %w", id, err)
	}
	return expectOne(res, id)
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM history WHERE session_id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}
