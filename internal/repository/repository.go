package repository

import (
	"context"
	"errors"
	"time"

	"github.com/suar-net/suar-probe/internal/model"
)

var ErrNotFound = errors.New("not found")

// IRequestLogRepository is append-only: records are inserted once and never
// updated or deleted.
type IRequestLogRepository interface {
	Insert(ctx context.Context, record model.RequestLogRecord) (string, error)
	// ListBySubscriptions returns records of the given subscriptions with a
	// timestamp at or after since, ascending by timestamp.
	ListBySubscriptions(ctx context.Context, subscriptionIDs []string, since time.Time) ([]model.RequestLogRecord, error)
}

type ISubscriptionRepository interface {
	Create(ctx context.Context, subscription model.Subscription) error
	GetByID(ctx context.Context, id string) (model.Subscription, error)
	ListByAPI(ctx context.Context, apiID string) ([]model.Subscription, error)
}

// IRepository is the record store. Exactly one implementation is selected at
// startup; callers never branch on which one is active.
type IRepository interface {
	RequestLogs() IRequestLogRepository
	Subscriptions() ISubscriptionRepository
	Ping(ctx context.Context) error
	Close() error
}
