// Package postgres implements the domain repositories on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS schemes (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	category             TEXT NOT NULL DEFAULT '',
	state                TEXT NOT NULL DEFAULT '',
	government_level     TEXT NOT NULL DEFAULT '',
	target_beneficiaries TEXT NOT NULL DEFAULT '',
	benefit_amount       DOUBLE PRECISION NOT NULL DEFAULT 0,
	documents            TEXT[] NOT NULL DEFAULT '{}',
	rules                JSONB,
	status               TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	seq                  BIGSERIAL
);
CREATE UNIQUE INDEX IF NOT EXISTS schemes_name_key ON schemes (LOWER(name));

CREATE TABLE IF NOT EXISTS applications (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	scheme_id      TEXT NOT NULL,
	scheme_name    TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT 'general',
	status         TEXT NOT NULL,
	form_data      JSONB NOT NULL DEFAULT '{}',
	remarks        TEXT NOT NULL DEFAULT '',
	status_history JSONB NOT NULL DEFAULT '[]',
	date_applied   TIMESTAMPTZ NOT NULL,
	last_updated   TIMESTAMPTZ NOT NULL,
	version        BIGINT NOT NULL DEFAULT 1
);
-- one non-rejected application per user and scheme
CREATE UNIQUE INDEX IF NOT EXISTS applications_active_key
	ON applications (user_id, scheme_id) WHERE status <> 'rejected';

CREATE TABLE IF NOT EXISTS audit_log (
	id                TEXT PRIMARY KEY,
	action_type       TEXT NOT NULL,
	performed_by      TEXT NOT NULL,
	performed_by_role TEXT NOT NULL,
	target_id         TEXT NOT NULL DEFAULT '',
	target_type       TEXT NOT NULL DEFAULT '',
	timestamp         TIMESTAMPTZ NOT NULL,
	metadata          JSONB
);
CREATE INDEX IF NOT EXISTS audit_log_timestamp_idx ON audit_log (timestamp DESC);

CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	target      TEXT NOT NULL,
	type        TEXT NOT NULL,
	read        BOOLEAN NOT NULL DEFAULT FALSE,
	sent_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_target_title_idx ON notifications (target, title, sent_at DESC);

CREATE TABLE IF NOT EXISTS user_contacts (
	user_id TEXT PRIMARY KEY,
	email   TEXT NOT NULL DEFAULT '',
	phone   TEXT NOT NULL DEFAULT ''
);
`

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// conditions accumulates "col = $n" terms for optional filters.
type conditions struct {
	terms []string
	args  []interface{}
}

func (c *conditions) eq(column string, value interface{}) {
	c.args = append(c.args, value)
	c.terms = append(c.terms, fmt.Sprintf("%s = $%d", column, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.terms) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.terms, " AND ")
}
