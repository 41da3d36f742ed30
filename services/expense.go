package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/parser"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/google/uuid"
)

const defaultCurrency = "USD"

type ExpenseService struct {
	expenses     repository.ExpenseRepository
	categories   repository.CategoryRepository
	users        repository.UserRepository
	gamification *GamificationService
	now          func() time.Time
}

func NewExpenseService(store *repository.Store, gamification *GamificationService) *ExpenseService {
	return &ExpenseService{
		expenses:     store.Expenses,
		categories:   store.Categories,
		users:        store.Users,
		gamification: gamification,
		now:          time.Now,
	}
}

// ParseResult is the outcome of a free-text parse; Expense is set when the
// caller asked for the parsed expense to be stored.
type ParseResult struct {
	Parsed  *parser.ParsedExpense `json:"parsed"`
	Expense *models.Expense       `json:"expense,omitempty"`
}

func (s *ExpenseService) List(ctx context.Context, userID string, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	list, total, err := s.expenses.List(ctx, userID, filter)
	if err != nil {
		return nil, nil, err
	}
	if list == nil {
		list = []models.Expense{}
	}
	return list, models.NewPagination(filter.Page, filter.Limit, total), nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, id string) (*models.Expense, error) {
	e, err := s.expenses.Get(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return e, err
}

func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return defaultCurrency
	}
	return code
}

func requireCategory(ctx context.Context, tx repository.ExpenseTx, userID, categoryID string) error {
	ok, err := tx.CategoryExists(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCategoryNotFound
	}
	return nil
}

// Create stores the expense and moves its amount onto the category's spent
// total in one transaction.
func (s *ExpenseService) Create(ctx context.Context, userID string, req models.CreateExpenseRequest) (*models.Expense, error) {
	now := s.now()
	e := &models.Expense{
		ID:               uuid.New().String(),
		UserID:           userID,
		Amount:           req.Amount,
		Currency:         normalizeCurrency(req.Currency),
		Description:      strings.TrimSpace(req.Description),
		CategoryID:       req.CategoryID,
		Date:             req.Date,
		Location:         req.Location,
		Tags:             req.Tags,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: req.RecurringPattern,
		Mood:             req.Mood,
		Merchant:         strings.TrimSpace(req.Merchant),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if e.Date.IsZero() {
		e.Date = now
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if !e.IsRecurring {
		e.RecurringPattern = nil
	}

	err := s.expenses.WithTx(ctx, func(tx repository.ExpenseTx) error {
		if err := requireCategory(ctx, tx, userID, e.CategoryID); err != nil {
			return err
		}
		if err := tx.Insert(ctx, e); err != nil {
			return err
		}
		return tx.AdjustCategorySpent(ctx, e.CategoryID, e.Amount)
	})
	if err != nil {
		return nil, err
	}
	utils.LogExpenseAction("created", e.ID, userID)

	if s.gamification != nil {
		if _, err := s.gamification.RecordExpense(ctx, userID); err != nil {
			utils.SafeWarn("Gamification update failed: %v", err)
		}
	}

	// Relecture pour embarquer la catégorie
	if stored, err := s.expenses.Get(ctx, userID, e.ID); err == nil {
		return stored, nil
	}
	return e, nil
}

// Update applies req and rebalances the spent totals of the old and new
// categories in the same transaction.
func (s *ExpenseService) Update(ctx context.Context, userID, id string, req models.UpdateExpenseRequest) (*models.Expense, error) {
	err := s.expenses.WithTx(ctx, func(tx repository.ExpenseTx) error {
		e, err := tx.Get(ctx, userID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		oldAmount, oldCategory := e.Amount, e.CategoryID

		if req.Amount != nil {
			e.Amount = *req.Amount
		}
		if req.Currency != nil {
			e.Currency = normalizeCurrency(*req.Currency)
		}
		if req.Description != nil {
			e.Description = strings.TrimSpace(*req.Description)
		}
		if req.CategoryID != nil {
			e.CategoryID = *req.CategoryID
		}
		if req.Date != nil {
			e.Date = *req.Date
		}
		if req.Location != nil {
			e.Location = req.Location
		}
		if req.Tags != nil {
			e.Tags = req.Tags
		}
		if req.IsRecurring != nil {
			e.IsRecurring = *req.IsRecurring
		}
		if req.RecurringPattern != nil {
			e.RecurringPattern = req.RecurringPattern
		}
		if !e.IsRecurring {
			e.RecurringPattern = nil
		}
		if req.Mood != nil {
			e.Mood = *req.Mood
		}
		if req.Merchant != nil {
			e.Merchant = strings.TrimSpace(*req.Merchant)
		}
		e.UpdatedAt = s.now()

		if e.CategoryID != oldCategory {
			if err := requireCategory(ctx, tx, userID, e.CategoryID); err != nil {
				return err
			}
		}
		if err := tx.Update(ctx, e); err != nil {
			return err
		}

		if e.CategoryID != oldCategory {
			if err := tx.AdjustCategorySpent(ctx, oldCategory, oldAmount.Neg()); err != nil {
				return err
			}
			return tx.AdjustCategorySpent(ctx, e.CategoryID, e.Amount)
		}
		if delta := e.Amount.Sub(oldAmount); !delta.IsZero() {
			return tx.AdjustCategorySpent(ctx, e.CategoryID, delta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogExpenseAction("updated", id, userID)
	return s.Get(ctx, userID, id)
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	err := s.expenses.WithTx(ctx, func(tx repository.ExpenseTx) error {
		e, err := tx.Get(ctx, userID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(ctx, userID, id); err != nil {
			return err
		}
		return tx.AdjustCategorySpent(ctx, e.CategoryID, e.Amount.Neg())
	})
	if err != nil {
		return err
	}
	utils.LogExpenseAction("deleted", id, userID)
	return nil
}

// Parse runs the text parser with the user's preferred currency. With create
// set, the result is stored under the user's category of the same name,
// falling back to "other".
func (s *ExpenseService) Parse(ctx context.Context, userID, text string, create bool) (*ParseResult, error) {
	currency := defaultCurrency
	if u, err := s.users.GetByID(ctx, userID); err == nil && u.Preferences.Currency != "" {
		currency = u.Preferences.Currency
	}

	p := parser.New(parser.WithClock(s.now), parser.WithDefaultCurrency(currency))
	parsed, err := p.Parse(text)
	if err != nil {
		return nil, err
	}
	result := &ParseResult{Parsed: parsed}
	if !create {
		return result, nil
	}

	category, err := s.categoryFor(ctx, userID, parsed.Category)
	if err != nil {
		return nil, err
	}
	req := models.CreateExpenseRequest{
		Amount:      parsed.Amount,
		Currency:    parsed.Currency,
		Description: parsed.Description,
		CategoryID:  category.ID,
		Date:        parsed.Timestamp,
		Mood:        parsed.Mood,
	}
	if parsed.Location != "" {
		req.Tags = []string{parsed.Location}
	}
	expense, err := s.Create(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("store parsed expense: %w", err)
	}
	result.Expense = expense
	return result, nil
}

// Categorize suggests a category for a bank or receipt label.
func (s *ExpenseService) Categorize(label string) models.CategorizeResponse {
	category, source := parser.New().Categorize(label)
	return models.CategorizeResponse{Label: label, Category: category, Source: source}
}

func (s *ExpenseService) categoryFor(ctx context.Context, userID, name string) (*models.Category, error) {
	for _, candidate := range []string{name, parser.CategoryOther} {
		c, err := s.categories.GetByName(ctx, userID, candidate)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrCategoryNotFound
}
