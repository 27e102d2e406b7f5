package service

import (
	"context"

	"github.com/suar-net/suar-probe/internal/model"
)

type IProbeService interface {
	Execute(ctx context.Context, subscriptionID string, desc model.RequestDescription, auth model.AuthConfig) (*ExecuteResult, error)
	ProcessRequest(ctx context.Context, dto *model.DTOExecuteRequest) (*model.DTOExecuteResponse, error)
}

type IAnalyticsService interface {
	ComputeAnalytics(records []model.RequestLogRecord, tr model.TimeRange) (model.AnalyticsSummary, error)
	ForAPI(ctx context.Context, apiID string, tr model.TimeRange) (model.AnalyticsSummary, error)
	ForSubscription(ctx context.Context, subscriptionID string, tr model.TimeRange) (model.AnalyticsSummary, error)
	ListLogs(ctx context.Context, subscriptionID string, tr model.TimeRange) ([]model.RequestLogRecord, error)
}

type ISubscriptionService interface {
	Create(ctx context.Context, dto *model.DTOCreateSubscriptionRequest) (*model.Subscription, error)
	ListByAPI(ctx context.Context, apiID string) ([]model.Subscription, error)
}

var (
	_ IProbeService        = (*ProbeService)(nil)
	_ IAnalyticsService    = (*AnalyticsService)(nil)
	_ ISubscriptionService = (*SubscriptionService)(nil)
)
