// Package tracker is the standalone, single-user expense tracker. All state
// lives in an injected Store and is written back after every mutation.
package tracker

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/LovationAdmin/trackit-api/insights"
	"github.com/LovationAdmin/trackit-api/parser"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store keys.
const (
	KeyExpenses     = "expenses"
	KeyGoals        = "goals"
	KeySettings     = "settings"
	KeyAchievements = "achievements"
	KeyArchived     = "archivedExpenses"
)

const (
	defaultListLimit = 10
	archiveThreshold = 1000
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidGoal   = errors.New("invalid goal")
)

type Expense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Mood        string          `json:"mood"`
	Location    string          `json:"location,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	RawInput    string          `json:"raw_input,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	AIProcessed bool            `json:"ai_processed"`
}

type Settings struct {
	MonthlyBudget    float64 `json:"monthly_budget"`
	Currency         string  `json:"currency"`
	Notifications    bool    `json:"notifications"`
	LocationTracking bool    `json:"location_tracking"`
	AIInsights       bool    `json:"ai_insights"`
}

func DefaultSettings() Settings {
	return Settings{
		MonthlyBudget:    2000,
		Currency:         "USD",
		Notifications:    true,
		LocationTracking: true,
		AIInsights:       true,
	}
}

// Dashboard is the headline summary. Month figures cover now's calendar month.
type Dashboard struct {
	TotalSpent        float64 `json:"total_spent"`
	TodaySpent        float64 `json:"today_spent"`
	MonthlySpent      float64 `json:"monthly_spent"`
	AverageDaily      float64 `json:"average_daily"`
	BudgetLeft        float64 `json:"budget_left"`
	BudgetUsedPercent int     `json:"budget_used_percent"`
}

// ListFilter narrows List. Search matches description or category,
// case-insensitively.
type ListFilter struct {
	Search   string
	Category string
	Limit    int
}

type Tracker struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
	newID func() string

	expenses     []Expense
	goals        []Goal
	settings     Settings
	achievements []Achievement
}

type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New loads the tracker state from store. Missing keys fall back to an empty
// history, the starter goals and the default settings.
func New(store Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(t)
	}

	if _, err := store.Get(KeyExpenses, &t.expenses); err != nil {
		return nil, err
	}
	found, err := store.Get(KeyGoals, &t.goals)
	if err != nil {
		return nil, err
	}
	if !found {
		t.goals = starterGoals(t.now(), t.newID)
	}
	t.settings = DefaultSettings()
	if _, err := store.Get(KeySettings, &t.settings); err != nil {
		return nil, err
	}
	if _, err := store.Get(KeyAchievements, &t.achievements); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

// UpdateSettings stores s, keeping defaults for a non-positive budget or an
// empty currency.
func (t *Tracker) UpdateSettings(s Settings) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	def := DefaultSettings()
	if s.MonthlyBudget <= 0 {
		s.MonthlyBudget = def.MonthlyBudget
	}
	if s.Currency == "" {
		s.Currency = def.Currency
	}
	s.Currency = strings.ToUpper(s.Currency)
	if err := t.store.Set(KeySettings, s); err != nil {
		return err
	}
	t.settings = s
	return nil
}

// ============================================================================
// CAPTURE
// ============================================================================

// AddText parses free text and records the result as the newest expense.
func (t *Tracker) AddText(input string) (*Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := parser.New(parser.WithClock(t.now), parser.WithDefaultCurrency(t.settings.Currency))
	parsed, err := p.Parse(input)
	if err != nil {
		return nil, err
	}
	e := Expense{
		Amount:      parsed.Amount,
		Currency:    parsed.Currency,
		Description: parsed.Description,
		Category:    parsed.Category,
		Mood:        parsed.Mood,
		Location:    parsed.Location,
		RawInput:    parsed.RawInput,
		Timestamp:   parsed.Timestamp,
		AIProcessed: true,
	}
	if err := t.add(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

var quickAmounts = map[string]string{
	"coffee":   "5.99",
	"food":     "12.99",
	"gas":      "35.00",
	"shopping": "25.99",
}

// QuickAdd records a canned expense for category.
func (t *Tracker) QuickAdd(category string) (*Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = parser.CategoryOther
	}
	amount, ok := quickAmounts[category]
	if !ok {
		amount = "10.00"
	}
	e := Expense{
		Amount:      decimal.RequireFromString(amount),
		Description: fmt.Sprintf("Quick %s expense", capitalize(category)),
		Category:    category,
		Mood:        parser.MoodNeutral,
	}
	if err := t.add(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// AddExpense records e, filling in id, timestamp, currency, category and mood
// when they are empty.
func (t *Tracker) AddExpense(e Expense) (*Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.add(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *Tracker) add(e *Expense) error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.ID == "" {
		e.ID = t.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}
	if e.Currency == "" {
		e.Currency = t.settings.Currency
	}
	if e.Category == "" {
		e.Category = parser.CategoryOther
	}
	if e.Mood == "" {
		e.Mood = parser.MoodNeutral
	}
	if e.Description == "" {
		e.Description = parser.CannedDescription(e.Category)
	}

	expenses := append([]Expense{*e}, t.expenses...)
	if err := t.store.Set(KeyExpenses, expenses); err != nil {
		return err
	}
	t.expenses = expenses
	return nil
}

// ============================================================================
// QUERIES
// ============================================================================

// List returns matching expenses newest first, at most f.Limit of them
// (10 when unset).
func (t *Tracker) List(f ListFilter) []Expense {
	t.mu.Lock()
	defer t.mu.Unlock()

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []Expense{}
	for _, e := range t.expenses {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Description), search) &&
			!strings.Contains(strings.ToLower(e.Category), search) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (t *Tracker) entries() []insights.Entry {
	out := make([]insights.Entry, 0, len(t.expenses))
	for _, e := range t.expenses {
		out = append(out, insights.Entry{
			Amount:      e.Amount.InexactFloat64(),
			Category:    e.Category,
			Mood:        e.Mood,
			Merchant:    e.Merchant,
			Description: e.Description,
			Time:        e.Timestamp,
		})
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (t *Tracker) Dashboard() Dashboard {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entries := t.entries()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthly := insights.MonthlySpent(entries, now)
	budget := t.settings.MonthlyBudget

	d := Dashboard{
		TotalSpent:   round2(insights.Sum(entries)),
		TodaySpent:   round2(insights.Sum(insights.Between(entries, today, today.AddDate(0, 0, 1)))),
		MonthlySpent: round2(monthly),
		AverageDaily: round2(monthly / float64(now.Day())),
		BudgetLeft:   round2(budget - monthly),
	}
	if budget > 0 {
		d.BudgetUsedPercent = int(math.Round(monthly / budget * 100))
	}
	return d
}

// PeriodTotals sums spend per category over "week" (trailing seven days),
// "month" or "year".
func (t *Tracker) PeriodTotals(period string) (map[string]float64, error) {
	switch period {
	case "week", "month", "year":
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	totals := insights.PeriodTotals(t.entries(), t.now(), period)
	for k, v := range totals {
		totals[k] = round2(v)
	}
	return totals, nil
}

// Insights is empty when insights are switched off in the settings.
func (t *Tracker) Insights() []insights.Insight {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insights()
}

func (t *Tracker) insights() []insights.Insight {
	if !t.settings.AIInsights {
		return []insights.Insight{}
	}
	out := insights.Generate(t.entries(), insights.Options{
		Now:           t.now(),
		MonthlyBudget: t.settings.MonthlyBudget,
		Currency:      t.settings.Currency,
	})
	if out == nil {
		out = []insights.Insight{}
	}
	return out
}

func (t *Tracker) Tree() insights.Tree {
	t.mu.Lock()
	defer t.mu.Unlock()
	return insights.SavingsTree(t.entries(), t.now(), t.settings.MonthlyBudget)
}

// ============================================================================
// MAINTENANCE
// ============================================================================

// Archive moves expenses older than one year to the archive once the active
// history exceeds 1000 entries. It returns the number of expenses moved.
func (t *Tracker) Archive() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.expenses) <= archiveThreshold {
		return 0, nil
	}
	cutoff := t.now().AddDate(-1, 0, 0)

	var recent, old []Expense
	for _, e := range t.expenses {
		if e.Timestamp.After(cutoff) {
			recent = append(recent, e)
		} else {
			old = append(old, e)
		}
	}
	if len(old) == 0 {
		return 0, nil
	}

	var previous []Expense
	hadArchive, err := t.store.Get(KeyArchived, &previous)
	if err != nil {
		return 0, err
	}
	archived := append(append([]Expense{}, previous...), old...)
	sort.SliceStable(archived, func(i, j int) bool {
		return archived[i].Timestamp.After(archived[j].Timestamp)
	})
	if err := t.store.Set(KeyArchived, archived); err != nil {
		return 0, err
	}

	if recent == nil {
		recent = []Expense{}
	}
	if err := t.store.Set(KeyExpenses, recent); err != nil {
		// Remet l'archive dans son état précédent
		if hadArchive {
			_ = t.store.Set(KeyArchived, previous)
		} else {
			_ = t.store.Remove(KeyArchived)
		}
		return 0, err
	}
	t.expenses = recent
	return len(old), nil
}

// Archived returns the archived expenses, newest first.
func (t *Tracker) Archived() ([]Expense, error) {
	var archived []Expense
	if _, err := t.store.Get(KeyArchived, &archived); err != nil {
		return nil, err
	}
	return archived, nil
}
