package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// equipment.available_qty carries a non-negativity CHECK as a backstop, but
// the [0, total_qty] invariant itself is enforced by the store layer on every
// mutation, not by the database.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'employee' CHECK (role IN ('admin', 'supervisor', 'employee')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS equipment (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    category      TEXT,
    total_qty     INTEGER NOT NULL CHECK (total_qty >= 0),
    available_qty INTEGER NOT NULL CHECK (available_qty >= 0),
    image         BLOB,
    image_mime    TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS transactions (
    id            TEXT PRIMARY KEY,
    project_name  TEXT NOT NULL,
    project_owner TEXT,
    user_id       INTEGER NOT NULL REFERENCES users(id),
    status        TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
    checkout_time DATETIME NOT NULL,
    shoot_time    DATETIME,
    return_time   DATETIME,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transaction_assistants (
    transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    user_id        INTEGER NOT NULL REFERENCES users(id),
    PRIMARY KEY (transaction_id, user_id)
);

CREATE TABLE IF NOT EXISTS transaction_items (
    id             INTEGER PRIMARY KEY,
    transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    equipment_id   INTEGER NOT NULL REFERENCES equipment(id),
    qty            INTEGER NOT NULL CHECK (qty > 0),
    returned_qty   INTEGER,
    damaged        INTEGER NOT NULL DEFAULT 0,
    damage_notes   TEXT,
    lost           INTEGER NOT NULL DEFAULT 0,
    lost_notes     TEXT,
    admin_verified INTEGER NOT NULL DEFAULT 0,
    settled_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_transaction_items_transaction
    ON transaction_items(transaction_id);

CREATE INDEX IF NOT EXISTS idx_transaction_items_equipment
    ON transaction_items(equipment_id);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at the
// end.
var migrations = []string{}

// Migrate creates the schema and runs all migrations. Safe to call on every
// startup.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
