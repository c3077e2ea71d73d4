package service

import (
	"context"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type NotificationQueryService struct {
	repo ports.NotificationRepository
}

func NewNotificationQueryService(repo ports.NotificationRepository) *NotificationQueryService {
	return &NotificationQueryService{
		repo: repo,
	}
}

// List returns a page of the user's notifications, newest first. Pages start at 1.
func (s *NotificationQueryService) List(ctx context.Context, userID uuid.UUID, page, size int) ([]*domain.Notification, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)

	return s.repo.ListNotifications(ctx, userID, size, (page-1)*size)
}

func (s *NotificationQueryService) GetCounter(ctx context.Context, userID uuid.UUID) (*domain.NotificationCounter, error) {
	return s.repo.GetCounter(ctx, userID)
}

// MarkRead flags ids as read and lowers the counter by the number of rows
// that actually changed. The counter is not reconciled against the log.
func (s *NotificationQueryService) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*domain.NotificationCounter, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidationError("at least one notification id is required")
	}

	changed, err := s.repo.MarkRead(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	if changed > 0 {
		if err := s.repo.DecrementCounter(ctx, userID, changed); err != nil {
			return nil, err
		}
	}

	return s.repo.GetCounter(ctx, userID)
}
