package services

import (
	"context"
	"errors"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/google/uuid"
)

// Publisher pushes a stored notification to the live sessions of its user.
// Delivery is best effort.
type Publisher interface {
	Publish(userID string, n *models.Notification)
}

const (
	notificationListLimit = 50
	readRetention         = 30 * 24 * time.Hour
)

type NotificationService struct {
	repo      repository.NotificationRepository
	publisher Publisher
	now       func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, now: time.Now}
}

// SetPublisher attaches the realtime hub once it exists.
func (s *NotificationService) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *NotificationService) Create(ctx context.Context, userID string, req models.CreateNotificationRequest) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(userID, n)
	}
	return n, nil
}

// Notify is the internal shortcut used by the jobs and the gamification hooks.
func (s *NotificationService) Notify(ctx context.Context, userID, kind, title, message string, data map[string]any) (*models.Notification, error) {
	return s.Create(ctx, userID, models.CreateNotificationRequest{
		Type:    kind,
		Title:   title,
		Message: message,
		Data:    data,
	})
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	list, err := s.repo.List(ctx, userID, notificationListLimit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// PurgeRead drops read notifications older than the retention window.
func (s *NotificationService) PurgeRead(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeRead(ctx, s.now().Add(-readRetention))
	utils.LogJob("purge_notifications", n, err)
	return n, err
}
