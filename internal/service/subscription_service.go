package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
)

type SubscriptionService struct {
	repo repository.ISubscriptionRepository
	now  func() time.Time
}

func NewSubscriptionService(repo repository.ISubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{repo: repo, now: time.Now}
}

func (s *SubscriptionService) Create(ctx context.Context, dto *model.DTOCreateSubscriptionRequest) (*model.Subscription, error) {
	apiID := strings.TrimSpace(dto.APIID)
	userID := strings.TrimSpace(dto.UserID)
	if apiID == "" {
		return nil, newValidationError("api_id", "is required")
	}
	if userID == "" {
		return nil, newValidationError("user_id", "is required")
	}

	sub := model.Subscription{
		ID:        uuid.NewString(),
		APIID:     apiID,
		UserID:    userID,
		Plan:      strings.TrimSpace(dto.Plan),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return &sub, nil
}

func (s *SubscriptionService) ListByAPI(ctx context.Context, apiID string) ([]model.Subscription, error) {
	subs, err := s.repo.ListByAPI(ctx, apiID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
