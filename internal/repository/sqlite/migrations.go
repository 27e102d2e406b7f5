package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		api_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		plan TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_api_id ON subscriptions(api_id);`,

	`CREATE TABLE IF NOT EXISTS request_logs (
		id TEXT PRIMARY KEY,
		subscription_id TEXT NOT NULL,
		endpoint_path TEXT NOT NULL,
		method TEXT NOT NULL,
		request_headers TEXT,
		request_query TEXT,
		request_body TEXT,
		requested_at TEXT NOT NULL,
		status_code INTEGER,
		response_time_ms INTEGER,
		response_headers TEXT,
		response_body_kind TEXT,
		response_body TEXT,
		error TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_subscription_id_requested_at ON request_logs(subscription_id, requested_at);`,
}

func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range migrationStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
