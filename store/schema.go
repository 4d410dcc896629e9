package store

// Schema contains the complete DDL for the inspector tables.
const Schema = `
-- Captured contexts: one row per aggregation tick.
CREATE TABLE IF NOT EXISTS contexts (
    id          TEXT PRIMARY KEY,
    seq         INTEGER NOT NULL,
    page_url    TEXT NOT NULL DEFAULT '',
    chat_id     TEXT NOT NULL DEFAULT '',
    captured_at INTEGER NOT NULL,
    truncated   INTEGER NOT NULL DEFAULT 0,
    size_bytes  INTEGER NOT NULL DEFAULT 0,
    payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contexts_url ON contexts(page_url, seq DESC);
CREATE INDEX IF NOT EXISTS idx_contexts_at ON contexts(captured_at);

-- Rendering events: visibility changes, dynamic renders, patterns.
CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    type       TEXT NOT NULL,
    page_url   TEXT NOT NULL DEFAULT '',
    xpath      TEXT NOT NULL DEFAULT '',
    emitted_at INTEGER NOT NULL,
    payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type, emitted_at DESC);

-- Settings: chat ID, exported configuration, misc key/value.
CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`
