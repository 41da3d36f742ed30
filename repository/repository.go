// Package repository declares the storage contracts used by the services.
// Implementations live in the postgres and memory subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrInUse     = errors.New("record is still referenced")
)

// Store groups every repository behind one value.
type Store struct {
	Users         UserRepository
	Categories    CategoryRepository
	Expenses      ExpenseRepository
	Budgets       BudgetRepository
	Notifications NotificationRepository
	Achievements  AchievementRepository
}

type UserRepository interface {
	// Create fails with ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Update persists name, avatar and preferences.
	Update(ctx context.Context, u *models.User) error
	UpdateTOTP(ctx context.Context, id, encryptedSecret string, enabled bool) error
	// AddExperience adds xp and recomputes the level as 1 + experience/100.
	AddExperience(ctx context.Context, id string, xp int) (*models.User, error)
}

type CategoryRepository interface {
	// Create fails with ErrDuplicate when the user already has that name.
	Create(ctx context.Context, c *models.Category) error
	Get(ctx context.Context, userID, id string) (*models.Category, error)
	GetByName(ctx context.Context, userID, name string) (*models.Category, error)
	List(ctx context.Context, userID string) ([]models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	// Delete fails with ErrInUse while expenses still reference the category.
	Delete(ctx context.Context, userID, id string) error
	// RecomputeSpent rewrites every spent total from the expense table and
	// returns how many categories changed.
	RecomputeSpent(ctx context.Context) (int64, error)
}

type ExpenseRepository interface {
	// List returns one page ordered by date descending and the total match count.
	List(ctx context.Context, userID string, f models.ExpenseFilter) ([]models.Expense, int, error)
	Get(ctx context.Context, userID, id string) (*models.Expense, error)
	// Between returns expenses with from <= date < to, newest first.
	Between(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error)
	Count(ctx context.Context, userID string) (int, error)
	// WithTx runs fn atomically; any error rolls back every write made through tx.
	WithTx(ctx context.Context, fn func(tx ExpenseTx) error) error
}

// ExpenseTx is the set of writes that must commit together with the
// matching category spent adjustments.
type ExpenseTx interface {
	Get(ctx context.Context, userID, id string) (*models.Expense, error)
	CategoryExists(ctx context.Context, userID, categoryID string) (bool, error)
	Insert(ctx context.Context, e *models.Expense) error
	Update(ctx context.Context, e *models.Expense) error
	Delete(ctx context.Context, userID, id string) error
	AdjustCategorySpent(ctx context.Context, categoryID string, delta decimal.Decimal) error
}

type BudgetRepository interface {
	Create(ctx context.Context, b *models.Budget) error
	Get(ctx context.Context, userID, id string) (*models.Budget, error)
	List(ctx context.Context, userID string) ([]models.Budget, error)
	Update(ctx context.Context, b *models.Budget) error
	Delete(ctx context.Context, userID, id string) error
	// ListActive returns the active budgets of every user.
	ListActive(ctx context.Context) ([]models.Budget, error)
	MarkAlerted(ctx context.Context, id string, at time.Time) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	// List returns the latest notifications first.
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	// PurgeRead deletes read notifications created before olderThan.
	PurgeRead(ctx context.Context, olderThan time.Time) (int64, error)
}

type AchievementRepository interface {
	List(ctx context.Context, userID string) ([]models.Achievement, error)
	// Unlock stores a unless its (user, key) pair exists; created is false
	// when it was already unlocked.
	Unlock(ctx context.Context, a *models.Achievement) (created bool, err error)
}
