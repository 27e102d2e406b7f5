package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
)

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

var _ repository.ISubscriptionRepository = (*subscriptionRepository)(nil)

func (r *subscriptionRepository) Create(ctx context.Context, sub model.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO subscriptions (id, api_id, user_id, plan, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.APIID, sub.UserID, sub.Plan, sub.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (model.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Subscription{}, fmt.Errorf("id is required")
	}
	var sub model.Subscription
	row := r.pool.QueryRow(ctx, `SELECT id, api_id, user_id, plan, created_at FROM subscriptions WHERE id = $1`, id)
	if err := row.Scan(&sub.ID, &sub.APIID, &sub.UserID, &sub.Plan, &sub.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Subscription{}, repository.ErrNotFound
		}
		return model.Subscription{}, fmt.Errorf("select subscription by id: %w", err)
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	return sub, nil
}

func (r *subscriptionRepository) ListByAPI(ctx context.Context, apiID string) ([]model.Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, api_id, user_id, plan, created_at
		FROM subscriptions WHERE api_id = $1 ORDER BY created_at ASC, id ASC`, apiID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]model.Subscription, 0)
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(&sub.ID, &sub.APIID, &sub.UserID, &sub.Plan, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.CreatedAt = sub.CreatedAt.UTC()
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}
