package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/suar-net/suar-probe/internal/repository"
)

// Store is the Postgres-backed record store.
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.IRepository = (*Store)(nil)

// New wraps a connected pool and applies pending migrations.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) RequestLogs() repository.IRequestLogRepository {
	return &requestLogRepository{pool: s.pool}
}

func (s *Store) Subscriptions() repository.ISubscriptionRepository {
	return &subscriptionRepository{pool: s.pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func jsonbOrNull(v map[string]string) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func decodeMap(b []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(b) == 0 || string(b) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal json map: %w", err)
	}
	return out, nil
}
