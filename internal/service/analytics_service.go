package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
)

type AnalyticsConfig struct {
	Location *time.Location
	Now      func() time.Time
}

// AnalyticsService materializes records from the store and hands them to the
// Aggregator. Nothing it computes is persisted.
type AnalyticsService struct {
	subscriptions repository.ISubscriptionRepository
	requestLogs   repository.IRequestLogRepository
	aggregator    Aggregator
	now           func() time.Time
}

func NewAnalyticsService(repo repository.IRepository, cfg AnalyticsConfig) *AnalyticsService {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &AnalyticsService{
		subscriptions: repo.Subscriptions(),
		requestLogs:   repo.RequestLogs(),
		aggregator:    Aggregator{Location: cfg.Location},
		now:           nowFn,
	}
}

// ComputeAnalytics resolves the preset against the current instant and
// aggregates records.
func (s *AnalyticsService) ComputeAnalytics(records []model.RequestLogRecord, tr model.TimeRange) (model.AnalyticsSummary, error) {
	start, end, err := resolveWindow(tr, s.now())
	if err != nil {
		return model.AnalyticsSummary{}, err
	}
	return s.aggregator.Compute(records, start, end)
}

// ForAPI aggregates the records of every subscription of apiID.
func (s *AnalyticsService) ForAPI(ctx context.Context, apiID string, tr model.TimeRange) (model.AnalyticsSummary, error) {
	start, end, err := resolveWindow(tr, s.now())
	if err != nil {
		return model.AnalyticsSummary{}, err
	}

	subs, err := s.subscriptions.ListByAPI(ctx, apiID)
	if err != nil {
		return model.AnalyticsSummary{}, fmt.Errorf("list subscriptions: %w", err)
	}
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}

	records, err := s.requestLogs.ListBySubscriptions(ctx, ids, start)
	if err != nil {
		return model.AnalyticsSummary{}, fmt.Errorf("list request logs: %w", err)
	}
	return s.aggregator.Compute(records, start, end)
}

func (s *AnalyticsService) ForSubscription(ctx context.Context, subscriptionID string, tr model.TimeRange) (model.AnalyticsSummary, error) {
	start, end, err := resolveWindow(tr, s.now())
	if err != nil {
		return model.AnalyticsSummary{}, err
	}
	records, err := s.subscriptionLogs(ctx, subscriptionID, start)
	if err != nil {
		return model.AnalyticsSummary{}, err
	}
	return s.aggregator.Compute(records, start, end)
}

// ListLogs returns the raw records of one subscription inside the window.
func (s *AnalyticsService) ListLogs(ctx context.Context, subscriptionID string, tr model.TimeRange) ([]model.RequestLogRecord, error) {
	start, end, err := resolveWindow(tr, s.now())
	if err != nil {
		return nil, err
	}
	records, err := s.subscriptionLogs(ctx, subscriptionID, start)
	if err != nil {
		return nil, err
	}
	out := make([]model.RequestLogRecord, 0, len(records))
	for _, rec := range records {
		if !rec.Timestamp.After(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *AnalyticsService) subscriptionLogs(ctx context.Context, subscriptionID string, since time.Time) ([]model.RequestLogRecord, error) {
	if _, err := s.subscriptions.GetByID(ctx, subscriptionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	records, err := s.requestLogs.ListBySubscriptions(ctx, []string{subscriptionID}, since)
	if err != nil {
		return nil, fmt.Errorf("list request logs: %w", err)
	}
	return records, nil
}

func resolveWindow(tr model.TimeRange, now time.Time) (time.Time, time.Time, error) {
	if tr == "" {
		tr = model.TimeRangeLast7d
	}
	start, end, err := tr.Window(now)
	if err != nil {
		return time.Time{}, time.Time{}, newValidationError("range", "%v", err)
	}
	return start, end, nil
}
