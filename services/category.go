package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/parser"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/google/uuid"
)

var defaultCategoryStyle = map[string][2]string{
	parser.CategoryCoffee:        {"☕", "#8B4513"},
	parser.CategoryFood:          {"🍽️", "#FF6B6B"},
	parser.CategoryTransport:     {"🚗", "#4ECDC4"},
	parser.CategoryShopping:      {"🛍️", "#FFD93D"},
	parser.CategoryEntertainment: {"🎬", "#A78BFA"},
	parser.CategoryBills:         {"📋", "#6B7280"},
	parser.CategoryHealth:        {"🏥", "#34D399"},
	parser.CategoryGroceries:     {"🛒", "#60A5FA"},
	parser.CategoryOther:         {"📝", "#9CA3AF"},
}

// DefaultCategories returns one category per parser label so parsed
// expenses always find a home.
func DefaultCategories(userID string) []models.Category {
	labels := parser.Categories()
	out := make([]models.Category, 0, len(labels))
	for _, label := range labels {
		style := defaultCategoryStyle[label]
		out = append(out, models.Category{
			ID:     uuid.New().String(),
			UserID: userID,
			Name:   label,
			Icon:   style[0],
			Color:  style[1],
		})
	}
	return out
}

type CategoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// Seed creates the default categories for a new account.
func (s *CategoryService) Seed(ctx context.Context, userID string) error {
	for _, c := range DefaultCategories(userID) {
		if err := s.categories.Create(ctx, &c); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

func (s *CategoryService) List(ctx context.Context, userID string) ([]models.Category, error) {
	list, err := s.categories.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Category{}
	}
	return list, nil
}

func (s *CategoryService) Get(ctx context.Context, userID, id string) (*models.Category, error) {
	c, err := s.categories.Get(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *CategoryService) checkParent(ctx context.Context, userID string, parentID *string, selfID string) error {
	if parentID == nil || *parentID == "" {
		return nil
	}
	if *parentID == selfID {
		return ErrCategoryNotFound
	}
	if _, err := s.categories.Get(ctx, userID, *parentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, userID string, req models.CreateCategoryRequest) (*models.Category, error) {
	if err := s.checkParent(ctx, userID, req.ParentID, ""); err != nil {
		return nil, err
	}
	c := &models.Category{
		ID:       uuid.New().String(),
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Icon:     req.Icon,
		Color:    req.Color,
		ParentID: req.ParentID,
		Budget:   req.Budget,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, id string, req models.UpdateCategoryRequest) (*models.Category, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Icon != nil {
		c.Icon = *req.Icon
	}
	if req.Color != nil {
		c.Color = *req.Color
	}
	if req.ParentID != nil {
		if err := s.checkParent(ctx, userID, req.ParentID, id); err != nil {
			return nil, err
		}
		c.ParentID = req.ParentID
		if *req.ParentID == "" {
			c.ParentID = nil
		}
	}
	if req.Budget != nil {
		c.Budget = req.Budget
	}

	if err := s.categories.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrCategoryExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	err := s.categories.Delete(ctx, userID, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrInUse):
		return ErrCategoryInUse
	}
	return err
}
