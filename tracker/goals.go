package tracker

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/LovationAdmin/trackit-api/insights"
)

const (
	GoalSavings  = "savings"
	GoalCategory = "category"
	GoalTotal    = "total"
)

const goalBasePoints = 100

var goalMultiplier = map[string]float64{
	GoalSavings:  2,
	GoalCategory: 1.5,
	GoalTotal:    1,
}

// Goal tracks progress towards a target. For savings goals Current is the
// budget left this month, for category goals the headroom left under Target,
// for total goals the amount spent this month.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Target      float64    `json:"target"`
	Current     float64    `json:"current"`
	Type        string     `json:"type"`
	Category    string     `json:"category,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type GoalInput struct {
	Title    string
	Target   float64
	Type     string
	Category string
	Deadline *time.Time
}

type Achievement struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at"`
	Points      int       `json:"points"`
}

func starterGoals(now time.Time, newID func() string) []Goal {
	month := now.AddDate(0, 0, 30)
	week := now.AddDate(0, 0, 7)
	return []Goal{
		{ID: newID(), Title: "Save $500 this month", Target: 500, Current: 320, Type: GoalSavings, Deadline: &month, CreatedAt: now},
		{ID: newID(), Title: "Coffee budget: $30/week", Target: 30, Current: 18, Type: GoalCategory, Category: "coffee", Deadline: &week, CreatedAt: now},
	}
}

func (t *Tracker) Goals() []Goal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Goal(nil), t.goals...)
}

func (t *Tracker) Achievements() []Achievement {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Achievement(nil), t.achievements...)
}

// CreateGoal adds a goal and immediately evaluates progress, so a goal that is
// already met completes on creation.
func (t *Tracker) CreateGoal(in GoalInput) (*Goal, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidGoal)
	case in.Target <= 0:
		return nil, fmt.Errorf("%w: target must be positive", ErrInvalidGoal)
	case goalMultiplier[in.Type] == 0:
		return nil, fmt.Errorf("%w: type must be savings, category or total", ErrInvalidGoal)
	case in.Type == GoalCategory && in.Category == "":
		return nil, fmt.Errorf("%w: category goals need a category", ErrInvalidGoal)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	g := Goal{
		ID:        t.newID(),
		Title:     in.Title,
		Target:    in.Target,
		Type:      in.Type,
		Category:  in.Category,
		Deadline:  in.Deadline,
		CreatedAt: t.now(),
	}
	t.goals = append(t.goals, g)
	if _, err := t.updateGoalProgress(); err != nil {
		return nil, err
	}
	for i := range t.goals {
		if t.goals[i].ID == g.ID {
			out := t.goals[i]
			return &out, nil
		}
	}
	return &g, nil
}

// UpdateGoalProgress recomputes every open goal and returns the achievements
// awarded for goals completed by this call.
func (t *Tracker) UpdateGoalProgress() ([]Achievement, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updateGoalProgress()
}

func (t *Tracker) updateGoalProgress() ([]Achievement, error) {
	now := t.now()
	entries := t.entries()
	monthly := insights.MonthlySpent(entries, now)

	var awarded []Achievement
	for i := range t.goals {
		g := &t.goals[i]
		if g.Completed {
			continue
		}
		switch g.Type {
		case GoalSavings:
			g.Current = math.Max(0, t.settings.MonthlyBudget-monthly)
		case GoalCategory:
			g.Current = math.Max(0, g.Target-categoryMonthly(entries, now, g.Category))
		case GoalTotal:
			g.Current = monthly
		}
		g.Current = round2(g.Current)

		if g.Current >= g.Target {
			g.Completed = true
			done := now
			g.CompletedAt = &done
			awarded = append(awarded, t.award(*g, now))
		}
	}

	if err := t.store.Set(KeyGoals, t.goals); err != nil {
		return nil, err
	}
	if len(awarded) > 0 {
		t.achievements = append(t.achievements, awarded...)
		if err := t.store.Set(KeyAchievements, t.achievements); err != nil {
			return nil, err
		}
	}
	return awarded, nil
}

func categoryMonthly(entries []insights.Entry, now time.Time, category string) float64 {
	var in []insights.Entry
	for _, e := range entries {
		if e.Category == category {
			in = append(in, e)
		}
	}
	return insights.MonthlySpent(in, now)
}

func (t *Tracker) award(g Goal, now time.Time) Achievement {
	return Achievement{
		ID:          t.newID(),
		Type:        "goal_completed",
		Title:       "Goal Master: " + g.Title,
		Description: "Completed goal: " + g.Title,
		EarnedAt:    now,
		Points:      GoalPoints(g, now),
	}
}

// GoalPoints scores a completed goal: 100 points times the type multiplier,
// times 1.5 when completed before the deadline.
func GoalPoints(g Goal, now time.Time) int {
	mult, ok := goalMultiplier[g.Type]
	if !ok {
		mult = 1
	}
	bonus := 1.0
	if g.Deadline != nil && now.Before(*g.Deadline) {
		bonus = 1.5
	}
	return int(math.Round(goalBasePoints * mult * bonus))
}
