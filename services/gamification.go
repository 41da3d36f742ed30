package services

import (
	"context"
	"fmt"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/google/uuid"
)

// ExperiencePerExpense is granted for every recorded expense.
const ExperiencePerExpense = 10

type milestone struct {
	key, name, description, icon string
	count                        int
}

var expenseMilestones = []milestone{
	{"first_expense", "First Step", "Recorded your first expense", "🎯", 1},
	{"expense_10", "Getting Started", "Recorded 10 expenses", "📈", 10},
	{"expense_100", "Tracking Pro", "Recorded 100 expenses", "🏆", 100},
}

type GamificationService struct {
	users         repository.UserRepository
	achievements  repository.AchievementRepository
	expenses      repository.ExpenseRepository
	notifications *NotificationService
	now           func() time.Time
}

func NewGamificationService(store *repository.Store, notifications *NotificationService) *GamificationService {
	return &GamificationService{
		users:         store.Users,
		achievements:  store.Achievements,
		expenses:      store.Expenses,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *GamificationService) Achievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	list, err := s.achievements.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Achievement{}
	}
	return list, nil
}

// RecordExpense grants experience and unlocks the expense count milestones.
// It returns the achievements unlocked by this call.
func (s *GamificationService) RecordExpense(ctx context.Context, userID string) ([]models.Achievement, error) {
	if _, err := s.users.AddExperience(ctx, userID, ExperiencePerExpense); err != nil {
		return nil, fmt.Errorf("add experience: %w", err)
	}

	count, err := s.expenses.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count expenses: %w", err)
	}

	var unlocked []models.Achievement
	for _, m := range expenseMilestones {
		if count < m.count {
			break
		}
		now := s.now()
		a := models.Achievement{
			ID:          uuid.New().String(),
			UserID:      userID,
			Key:         m.key,
			Name:        m.name,
			Description: m.description,
			Icon:        m.icon,
			Progress:    m.count,
			MaxProgress: m.count,
			UnlockedAt:  &now,
		}
		created, err := s.achievements.Unlock(ctx, &a)
		if err != nil {
			return unlocked, fmt.Errorf("unlock %s: %w", m.key, err)
		}
		if !created {
			continue
		}
		unlocked = append(unlocked, a)
		utils.SafeInfo("Achievement %s unlocked for user %s", m.key, utils.MaskID(userID))

		if s.notifications != nil {
			_, err := s.notifications.Notify(ctx, userID, models.NotificationAchievement,
				m.icon+" "+m.name, m.description, map[string]any{"achievement": m.key})
			if err != nil {
				utils.SafeWarn("Achievement notification failed: %v", err)
			}
		}
	}
	return unlocked, nil
}
