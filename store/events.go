package store

import (
	"context"
	"fmt"

	"github.com/osawyer/domscope/inspect/capture"
)

// InsertEvent persists one rendering event.
func (s *Store) InsertEvent(ctx context.Context, pageURL string, ev capture.Event) error {
	payload, err := capture.MarshalEvent(&ev)
	if err != nil {
		return fmt.Errorf("store: marshal event: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO events (type, page_url, xpath, emitted_at, payload)
		VALUES (?,?,?,?,?)`,
		string(ev.Type), pageURL, ev.Element.XPath, ev.Timestamp, string(payload),
	)
	if err != nil {
		return fmt.Errorf("store: insert event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first. An empty
// eventType matches all types.
func (s *Store) RecentEvents(ctx context.Context, eventType string, limit int) ([]capture.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	q := `SELECT payload FROM events ORDER BY emitted_at DESC, id DESC LIMIT ?`
	args := []any{limit}
	if eventType != "" {
		q = `SELECT payload FROM events WHERE type = ? ORDER BY emitted_at DESC, id DESC LIMIT ?`
		args = []any{eventType, limit}
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: recent events: %w", err)
	}
	defer rows.Close()

	var out []capture.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		ev, err := capture.UnmarshalEvent([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}
