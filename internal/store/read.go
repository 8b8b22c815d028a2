package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("store: session not found")

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, encoding, seq
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

// LatestSession returns the session with the highest seq.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, encoding, seq
		FROM sessions
		ORDER BY seq DESC
		LIMIT 1
	`)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("latest session: %w", ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("latest session: %w", err)
	}
	return sess, nil
}

// ListSessions returns every session ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if there are no sessions.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, encoding, seq
		FROM sessions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadBatches decodes every batch of a session in generation order.
//
// Returns an empty slice (not nil) if the session has no batches.
func (s *Store) ReadBatches(ctx context.Context, sess Session) ([]mutation.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT generation, payload
		FROM batches
		WHERE session_id = ?
		ORDER BY generation ASC
	`, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []mutation.Batch{}
	for rows.Next() {
		var gen uint64
		var payload []byte
		if err := rows.Scan(&gen, &payload); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b, err := mutation.Decode(sess.Encoding, payload)
		if err != nil {
			return nil, fmt.Errorf("batch generation %d: %w", gen, err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// ReadTemplates returns every stored shape of a template id, ordered by
// fingerprint.
func (s *Store) ReadTemplates(ctx context.Context, id template.ID) ([]*template.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT shape
		FROM templates
		WHERE template_id = ?
		ORDER BY fingerprint COLLATE BINARY ASC
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	out := []*template.Template{}
	for rows.Next() {
		var shape string
		if err := rows.Scan(&shape); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		var t template.Template
		if err := json.Unmarshal([]byte(shape), &t); err != nil {
			return nil, fmt.Errorf("unmarshal template %s: %w", id, err)
		}
		rebuilt, err := template.Rebuild(&t)
		if err != nil {
			return nil, err
		}
		out = append(out, rebuilt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

// SessionStats summarizes a session's recorded work.
type SessionStats struct {
	Batches        int
	Edits          int
	Structural     int
	LastGeneration uint64
}

// Stats aggregates the batches of a session.
func (s *Store) Stats(ctx context.Context, sess Session) (SessionStats, error) {
	var st SessionStats
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(edits), 0), COALESCE(SUM(structural), 0), MAX(generation)
		FROM batches
		WHERE session_id = ?
	`, sess.ID).Scan(&st.Batches, &st.Edits, &st.Structural, &last)
	if err != nil {
		return SessionStats{}, fmt.Errorf("session stats: %w", err)
	}
	if last.Valid {
		st.LastGeneration = uint64(last.Int64)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var encoding string
	if err := row.Scan(&sess.ID, &sess.Name, &encoding, &sess.Seq); err != nil {
		return Session{}, err
	}
	sess.Encoding = mutation.Format(encoding)
	return sess, nil
}
