package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
)

// UserService gathers everything stored about an account for the personal
// data export.
type UserService struct {
	store *repository.Store
	now   func() time.Time
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store, now: time.Now}
}

func (s *UserService) Export(ctx context.Context, userID string) (*models.UserExport, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	out := &models.UserExport{User: *u, ExportedAt: s.now().UTC().Format(time.RFC3339)}

	if out.Categories, err = s.store.Categories.List(ctx, userID); err != nil {
		return nil, fmt.Errorf("export categories: %w", err)
	}
	all := models.ExpenseFilter{Page: 1, Limit: math.MaxInt32}
	if out.Expenses, _, err = s.store.Expenses.List(ctx, userID, all); err != nil {
		return nil, fmt.Errorf("export expenses: %w", err)
	}
	if out.Budgets, err = s.store.Budgets.List(ctx, userID); err != nil {
		return nil, fmt.Errorf("export budgets: %w", err)
	}
	if out.Achievements, err = s.store.Achievements.List(ctx, userID); err != nil {
		return nil, fmt.Errorf("export achievements: %w", err)
	}
	if out.Notifications, err = s.store.Notifications.List(ctx, userID, math.MaxInt32); err != nil {
		return nil, fmt.Errorf("export notifications: %w", err)
	}

	if out.Categories == nil {
		out.Categories = []models.Category{}
	}
	if out.Expenses == nil {
		out.Expenses = []models.Expense{}
	}
	if out.Budgets == nil {
		out.Budgets = []models.Budget{}
	}
	if out.Achievements == nil {
		out.Achievements = []models.Achievement{}
	}
	if out.Notifications == nil {
		out.Notifications = []models.Notification{}
	}
	return out, nil
}
