// ABOUTME: SQLite database schema for the correspondence index
// ABOUTME: Language columns are added at runtime with ALTER TABLE
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- One row per correspondence; one TEXT column per language, added on demand
CREATE TABLE IF NOT EXISTS correspondence (
    id INTEGER PRIMARY KEY AUTOINCREMENT
);

-- Column order, since PRAGMA table_info order is not something to rely on for display
CREATE TABLE IF NOT EXISTS languages (
    position INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE
);

-- Review ledger: target records a human has vetted
CREATE TABLE IF NOT EXISTS reviewed (
    language TEXT NOT NULL,
    hash TEXT NOT NULL,
    reviewed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (language, hash)
);
`
