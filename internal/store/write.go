package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

// Session is one recorded VirtualDom run.
type Session struct {
	ID       string
	Name     string
	Encoding mutation.Format
	Seq      int64
}

// CreateSession starts a new session whose batches are stored in encoding f.
// The session gets the next logical seq.
func (s *Store) CreateSession(ctx context.Context, name string, f mutation.Format) (Session, error) {
	if _, err := mutation.ParseFormat(string(f)); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, fmt.Errorf("create session: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions`).Scan(&seq); err != nil {
		return Session{}, fmt.Errorf("create session: next seq: %w", err)
	}

	sess := Session{ID: s.ids.NewID(), Name: name, Encoding: f, Seq: seq}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, name, encoding, seq)
		VALUES (?, ?, ?, ?)
	`, sess.ID, sess.Name, string(sess.Encoding), sess.Seq); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("create session: commit: %w", err)
	}
	return sess, nil
}

// WriteBatch stores b under the session, encoded in the session's format.
// Uses ON CONFLICT DO NOTHING so a batch recorded twice is ignored; inserted
// reports whether a row was written. Templates registered by b are stored
// by fingerprint in the same transaction. Empty batches are not stored.
func (s *Store) WriteBatch(ctx context.Context, sess Session, b mutation.Batch) (inserted bool, err error) {
	if len(b.Edits) == 0 {
		return false, nil
	}

	payload, err := mutation.Encode(sess.Encoding, b)
	if err != nil {
		return false, fmt.Errorf("write batch: %w", err)
	}

	log := mutation.Log{Edits: b.Edits}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write batch: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO batches (session_id, generation, edits, structural, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, generation) DO NOTHING
	`, sess.ID, b.Generation, log.Len(), log.Structural(), payload)
	if err != nil {
		return false, fmt.Errorf("write batch: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write batch: rows affected: %w", err)
	}

	for _, m := range b.Edits {
		if m.Kind != mutation.KindRegisterTemplate {
			continue
		}
		if err := writeTemplate(ctx, tx, m.Template); err != nil {
			return false, fmt.Errorf("write batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write batch: commit: %w", err)
	}
	return rows > 0, nil
}

func writeTemplate(ctx context.Context, tx *sql.Tx, t *template.Template) error {
	shape, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template %s: %w", t.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO templates (fingerprint, template_id, shape)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, t.Fingerprint(), string(t.ID), string(shape))
	if err != nil {
		return fmt.Errorf("write template %s: %w", t.ID, err)
	}
	return nil
}

// Recorder returns a flush function for VirtualDom.Run that stores every
// batch in sess.
func (s *Store) Recorder(ctx context.Context, sess Session) func(mutation.Batch) error {
	return func(b mutation.Batch) error {
		_, err := s.WriteBatch(ctx, sess, b)
		return err
	}
}

// DeleteSession removes a session and its batches.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}
