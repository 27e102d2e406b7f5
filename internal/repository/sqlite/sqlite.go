package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suar-net/suar-probe/internal/repository"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed record store.
type Store struct {
	db            *sql.DB
	requestLogs   *requestLogRepository
	subscriptions *subscriptionRepository
}

var _ repository.IRepository = (*Store)(nil)

// Open connects to dsn, applies migrations and returns a ready store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{
		db:            db,
		requestLogs:   &requestLogRepository{db: db},
		subscriptions: &subscriptionRepository{db: db},
	}
}

func (s *Store) RequestLogs() repository.IRequestLogRepository {
	return s.requestLogs
}

func (s *Store) Subscriptions() repository.ISubscriptionRepository {
	return s.subscriptions
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Timestamps are stored as fixed-width UTC text so that lexical order is
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err == nil {
		return t, nil
	}
	t, err2 := time.Parse(time.RFC3339Nano, v)
	if err2 == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseNullableStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func marshalJSONNullable(v map[string]string) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalJSONMap(v sql.NullString) (map[string]string, error) {
	out := map[string]string{}
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, fmt.Errorf("unmarshal json map: %w", err)
	}
	return out, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
