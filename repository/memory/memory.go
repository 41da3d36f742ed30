// Package memory is an in-process implementation of the repository
// contracts, used by tests and by STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/shopspring/decimal"
)

type db struct {
	mu            sync.Mutex
	seq           int64
	order         map[string]int64
	users         map[string]models.User
	categories    map[string]models.Category
	expenses      map[string]models.Expense
	budgets       map[string]models.Budget
	notifications map[string]models.Notification
	achievements  map[string]models.Achievement
}

// New returns a Store backed by fresh in-memory tables.
func New() *repository.Store {
	d := &db{
		order:         map[string]int64{},
		users:         map[string]models.User{},
		categories:    map[string]models.Category{},
		expenses:      map[string]models.Expense{},
		budgets:       map[string]models.Budget{},
		notifications: map[string]models.Notification{},
		achievements:  map[string]models.Achievement{},
	}
	return &repository.Store{
		Users:         &users{d},
		Categories:    &categories{d},
		Expenses:      &expenses{d},
		Budgets:       &budgets{d},
		Notifications: &notifications{d},
		Achievements:  &achievements{d},
	}
}

// track records insertion order so equal timestamps still sort stably.
func (d *db) track(id string) {
	d.seq++
	d.order[id] = d.seq
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// ============================================================================
// USERS
// ============================================================================

type users struct{ d *db }

func (r *users) Create(_ context.Context, u *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.Level == 0 {
		u.Level = 1
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	r.d.users[u.ID] = *u
	r.d.track(u.ID)
	return nil
}

func (r *users) GetByID(_ context.Context, id string) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, u := range r.d.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *users) Update(_ context.Context, u *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = u.Name
	stored.Avatar = u.Avatar
	stored.Preferences = u.Preferences
	stored.UpdatedAt = time.Now().UTC()
	r.d.users[u.ID] = stored
	*u = stored
	return nil
}

func (r *users) UpdateTOTP(_ context.Context, id, secret string, enabled bool) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.TOTPSecret = secret
	u.TOTPEnabled = enabled
	u.UpdatedAt = time.Now().UTC()
	r.d.users[id] = u
	return nil
}

func (r *users) AddExperience(_ context.Context, id string, xp int) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Experience += xp
	u.Level = 1 + u.Experience/100
	r.d.users[id] = u
	return &u, nil
}

// ============================================================================
// CATEGORIES
// ============================================================================

type categories struct{ d *db }

func (d *db) categoryNameTaken(userID, name, exceptID string) bool {
	for _, c := range d.categories {
		if c.UserID == userID && c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (r *categories) Create(_ context.Context, c *models.Category) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if r.d.categoryNameTaken(c.UserID, c.Name, "") {
		return repository.ErrDuplicate
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	r.d.categories[c.ID] = *c
	r.d.track(c.ID)
	return nil
}

func (r *categories) Get(_ context.Context, userID, id string) (*models.Category, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	c, ok := r.d.categories[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *categories) GetByName(_ context.Context, userID, name string) (*models.Category, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, c := range r.d.categories {
		if c.UserID == userID && strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *categories) List(_ context.Context, userID string) ([]models.Category, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var out []models.Category
	for _, c := range r.d.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *categories) Update(_ context.Context, c *models.Category) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.categories[c.ID]
	if !ok || stored.UserID != c.UserID {
		return repository.ErrNotFound
	}
	if r.d.categoryNameTaken(c.UserID, c.Name, c.ID) {
		return repository.ErrDuplicate
	}
	c.Spent = stored.Spent
	c.CreatedAt = stored.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	r.d.categories[c.ID] = *c
	return nil
}

func (r *categories) Delete(_ context.Context, userID, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	c, ok := r.d.categories[id]
	if !ok || c.UserID != userID {
		return repository.ErrNotFound
	}
	for _, e := range r.d.expenses {
		if e.CategoryID == id {
			return repository.ErrInUse
		}
	}
	for childID, child := range r.d.categories {
		if child.ParentID != nil && *child.ParentID == id {
			child.ParentID = nil
			r.d.categories[childID] = child
		}
	}
	delete(r.d.categories, id)
	return nil
}

func (r *categories) RecomputeSpent(_ context.Context) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	sums := map[string]decimal.Decimal{}
	for _, e := range r.d.expenses {
		sums[e.CategoryID] = sums[e.CategoryID].Add(e.Amount)
	}
	var changed int64
	for id, c := range r.d.categories {
		if !c.Spent.Equal(sums[id]) {
			c.Spent = sums[id]
			r.d.categories[id] = c
			changed++
		}
	}
	return changed, nil
}

// ============================================================================
// EXPENSES
// ============================================================================

type expenses struct{ d *db }

func (d *db) withCategory(e models.Expense) models.Expense {
	if c, ok := d.categories[e.CategoryID]; ok {
		e.Category = &c
	}
	return e
}

func (d *db) sortExpenses(list []models.Expense) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		return d.order[list[i].ID] > d.order[list[j].ID]
	})
}

func matches(e models.Expense, f models.ExpenseFilter) bool {
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	if f.StartDate != nil && e.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.Date.After(*f.EndDate) {
		return false
	}
	if f.MinAmount != nil && e.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && e.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

func (r *expenses) List(_ context.Context, userID string, f models.ExpenseFilter) ([]models.Expense, int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var all []models.Expense
	for _, e := range r.d.expenses {
		if e.UserID == userID && matches(e, f) {
			all = append(all, r.d.withCategory(e))
		}
	}
	r.d.sortExpenses(all)

	total := len(all)
	start := min(f.Offset(), total)
	end := min(start+f.Limit, total)
	return all[start:end], total, nil
}

func (r *expenses) Get(_ context.Context, userID, id string) (*models.Expense, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.d.getExpense(userID, id)
}

func (d *db) getExpense(userID, id string) (*models.Expense, error) {
	e, ok := d.expenses[id]
	if !ok || e.UserID != userID {
		return nil, repository.ErrNotFound
	}
	e = d.withCategory(e)
	return &e, nil
}

func (r *expenses) Between(_ context.Context, userID string, from, to time.Time) ([]models.Expense, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var out []models.Expense
	for _, e := range r.d.expenses {
		if e.UserID == userID && !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, r.d.withCategory(e))
		}
	}
	r.d.sortExpenses(out)
	return out, nil
}

func (r *expenses) Count(_ context.Context, userID string) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	n := 0
	for _, e := range r.d.expenses {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

// WithTx holds the store lock for the whole callback and restores the
// expense and category tables when fn fails.
func (r *expenses) WithTx(_ context.Context, fn func(tx repository.ExpenseTx) error) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	expensesBefore := maps.Clone(r.d.expenses)
	categoriesBefore := maps.Clone(r.d.categories)

	if err := fn(&expenseTx{r.d}); err != nil {
		r.d.expenses = expensesBefore
		r.d.categories = categoriesBefore
		return err
	}
	return nil
}

// expenseTx methods run with the lock already held.
type expenseTx struct{ d *db }

func (t *expenseTx) Get(_ context.Context, userID, id string) (*models.Expense, error) {
	return t.d.getExpense(userID, id)
}

func (t *expenseTx) CategoryExists(_ context.Context, userID, categoryID string) (bool, error) {
	c, ok := t.d.categories[categoryID]
	return ok && c.UserID == userID, nil
}

func (t *expenseTx) Insert(_ context.Context, e *models.Expense) error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("insert expense: amount must be positive")
	}
	if _, ok := t.d.categories[e.CategoryID]; !ok {
		return fmt.Errorf("insert expense: unknown category %s", e.CategoryID)
	}
	stamp(&e.CreatedAt, &e.UpdatedAt)
	stored := *e
	stored.Category = nil
	t.d.expenses[e.ID] = stored
	t.d.track(e.ID)
	return nil
}

func (t *expenseTx) Update(_ context.Context, e *models.Expense) error {
	stored, ok := t.d.expenses[e.ID]
	if !ok || stored.UserID != e.UserID {
		return repository.ErrNotFound
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("update expense: amount must be positive")
	}
	e.CreatedAt = stored.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	updated := *e
	updated.Category = nil
	t.d.expenses[e.ID] = updated
	return nil
}

func (t *expenseTx) Delete(_ context.Context, userID, id string) error {
	e, ok := t.d.expenses[id]
	if !ok || e.UserID != userID {
		return repository.ErrNotFound
	}
	delete(t.d.expenses, id)
	return nil
}

func (t *expenseTx) AdjustCategorySpent(_ context.Context, categoryID string, delta decimal.Decimal) error {
	c, ok := t.d.categories[categoryID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Spent = c.Spent.Add(delta)
	t.d.categories[categoryID] = c
	return nil
}

// ============================================================================
// BUDGETS
// ============================================================================

type budgets struct{ d *db }

func (r *budgets) Create(_ context.Context, b *models.Budget) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stamp(&b.CreatedAt, &b.UpdatedAt)
	b.CategoryIDs = append([]string(nil), b.CategoryIDs...)
	r.d.budgets[b.ID] = *b
	r.d.track(b.ID)
	return nil
}

func (r *budgets) Get(_ context.Context, userID, id string) (*models.Budget, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b, ok := r.d.budgets[id]
	if !ok || b.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (d *db) sortedBudgets(keep func(models.Budget) bool) []models.Budget {
	var out []models.Budget
	for _, b := range d.budgets {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return d.order[out[i].ID] < d.order[out[j].ID] })
	return out
}

func (r *budgets) List(_ context.Context, userID string) ([]models.Budget, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.d.sortedBudgets(func(b models.Budget) bool { return b.UserID == userID }), nil
}

func (r *budgets) Update(_ context.Context, b *models.Budget) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.budgets[b.ID]
	if !ok || stored.UserID != b.UserID {
		return repository.ErrNotFound
	}
	b.CreatedAt = stored.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	b.CategoryIDs = append([]string(nil), b.CategoryIDs...)
	r.d.budgets[b.ID] = *b
	return nil
}

func (r *budgets) Delete(_ context.Context, userID, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b, ok := r.d.budgets[id]
	if !ok || b.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.d.budgets, id)
	return nil
}

func (r *budgets) ListActive(_ context.Context) ([]models.Budget, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.d.sortedBudgets(func(b models.Budget) bool { return b.IsActive }), nil
}

func (r *budgets) MarkAlerted(_ context.Context, id string, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b, ok := r.d.budgets[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.LastAlertedAt = &at
	r.d.budgets[id] = b
	return nil
}

// ============================================================================
// NOTIFICATIONS
// ============================================================================

type notifications struct{ d *db }

func (r *notifications) Create(_ context.Context, n *models.Notification) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.d.notifications[n.ID] = *n
	r.d.track(n.ID)
	return nil
}

func (r *notifications) List(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var out []models.Notification
	for _, n := range r.d.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.d.order[out[i].ID] > r.d.order[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notifications) CountUnread(_ context.Context, userID string) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	count := 0
	for _, n := range r.d.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *notifications) MarkRead(_ context.Context, userID, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	n, ok := r.d.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	r.d.notifications[id] = n
	return nil
}

func (r *notifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var changed int64
	for id, n := range r.d.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			r.d.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r *notifications) Delete(_ context.Context, userID, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	n, ok := r.d.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.d.notifications, id)
	return nil
}

func (r *notifications) PurgeRead(_ context.Context, olderThan time.Time) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var purged int64
	for id, n := range r.d.notifications {
		if n.IsRead && n.CreatedAt.Before(olderThan) {
			delete(r.d.notifications, id)
			purged++
		}
	}
	return purged, nil
}

// ============================================================================
// ACHIEVEMENTS
// ============================================================================

type achievements struct{ d *db }

func (r *achievements) List(_ context.Context, userID string) ([]models.Achievement, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var out []models.Achievement
	for _, a := range r.d.achievements {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.d.order[out[i].ID] < r.d.order[out[j].ID] })
	return out, nil
}

func (r *achievements) Unlock(_ context.Context, a *models.Achievement) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	key := a.UserID + "/" + a.Key
	if _, ok := r.d.achievements[key]; ok {
		return false, nil
	}
	if a.UnlockedAt == nil {
		now := time.Now().UTC()
		a.UnlockedAt = &now
	}
	r.d.achievements[key] = *a
	r.d.track(a.ID)
	return true, nil
}
