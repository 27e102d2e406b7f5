package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
)

type subscriptionRepository struct {
	db *sql.DB
}

var _ repository.ISubscriptionRepository = (*subscriptionRepository)(nil)

const subscriptionColumns = `id, api_id, user_id, plan, created_at`

func (r *subscriptionRepository) Create(ctx context.Context, sub model.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?);`,
		sub.ID,
		sub.APIID,
		sub.UserID,
		sub.Plan,
		formatTime(sub.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (model.Subscription, error) {
	if strings.TrimSpace(id) == "" {
		return model.Subscription{}, fmt.Errorf("id is required")
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? LIMIT 1;`, id)
	return scanSubscription(row)
}

func (r *subscriptionRepository) ListByAPI(ctx context.Context, apiID string) ([]model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE api_id = ? ORDER BY created_at ASC, id ASC;`, apiID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	out := []model.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(s scanner) (model.Subscription, error) {
	var sub model.Subscription
	var createdAt string
	if err := s.Scan(&sub.ID, &sub.APIID, &sub.UserID, &sub.Plan, &createdAt); err != nil {
		return model.Subscription{}, mapNotFound(err)
	}
	parsed, err := parseTime(createdAt)
	if err != nil {
		return model.Subscription{}, err
	}
	sub.CreatedAt = parsed
	return sub, nil
}
