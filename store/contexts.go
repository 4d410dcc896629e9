package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/osawyer/domscope/inspect/capture"
)

// InsertContext persists one captured context.
func (s *Store) InsertContext(ctx context.Context, c capture.Context) error {
	payload, err := capture.MarshalContext(&c)
	if err != nil {
		return fmt.Errorf("store: marshal context: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO contexts (id, seq, page_url, chat_id, captured_at, truncated, size_bytes, payload)
		VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.Seq, c.URL, c.ChatID, c.Timestamp, boolInt(c.Truncated), len(payload), string(payload),
	)
	if err != nil {
		return fmt.Errorf("store: insert context: %w", err)
	}
	return nil
}

// LatestContext returns the most recent context for a URL, or nil when
// none exists. An empty URL matches any page.
func (s *Store) LatestContext(ctx context.Context, url string) (*capture.Context, error) {
	q := `SELECT payload FROM contexts ORDER BY captured_at DESC, seq DESC LIMIT 1`
	args := []any{}
	if url != "" {
		q = `SELECT payload FROM contexts WHERE page_url = ? ORDER BY captured_at DESC, seq DESC LIMIT 1`
		args = append(args, url)
	}

	var payload string
	err := s.DB.QueryRowContext(ctx, q, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest context: %w", err)
	}
	return capture.UnmarshalContext([]byte(payload))
}

// ListContexts returns up to limit recent contexts, newest first.
func (s *Store) ListContexts(ctx context.Context, limit int) ([]capture.Context, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT payload FROM contexts ORDER BY captured_at DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list contexts: %w", err)
	}
	defer rows.Close()

	var out []capture.Context
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan context: %w", err)
		}
		c, err := capture.UnmarshalContext([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// PruneContexts deletes all but the newest keep rows.
func (s *Store) PruneContexts(ctx context.Context, keep int) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM contexts WHERE id NOT IN (
			SELECT id FROM contexts ORDER BY captured_at DESC, seq DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("store: prune contexts: %w", err)
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
