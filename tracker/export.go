package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LovationAdmin/trackit-api/insights"
)

const ExportVersion = "2.0"

var ErrInvalidImport = errors.New("import failed: invalid data format")

type DateRange struct {
	Oldest *time.Time `json:"oldest"`
	Newest *time.Time `json:"newest"`
}

type ExportMetadata struct {
	ExportDate    time.Time `json:"export_date"`
	Version       string    `json:"version"`
	TotalExpenses int       `json:"total_expenses"`
	DateRange     DateRange `json:"date_range"`
}

type ExportAnalytics struct {
	MonthlySpent      float64            `json:"monthly_spent"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	Insights          []insights.Insight `json:"insights"`
	TreeHealth        int                `json:"tree_health"`
}

// Document is the backup format written by Export and read by Import.
type Document struct {
	Metadata     ExportMetadata  `json:"metadata"`
	Expenses     []Expense       `json:"expenses"`
	Goals        []Goal          `json:"goals"`
	Achievements []Achievement   `json:"achievements"`
	Settings     Settings        `json:"settings"`
	Analytics    ExportAnalytics `json:"analytics"`
}

// Export snapshots the whole tracker state with derived analytics.
func (t *Tracker) Export() *Document {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entries := t.entries()
	doc := &Document{
		Metadata: ExportMetadata{
			ExportDate:    now.UTC(),
			Version:       ExportVersion,
			TotalExpenses: len(t.expenses),
		},
		Expenses:     append([]Expense{}, t.expenses...),
		Goals:        append([]Goal{}, t.goals...),
		Achievements: append([]Achievement{}, t.achievements...),
		Settings:     t.settings,
		Analytics: ExportAnalytics{
			MonthlySpent:      round2(insights.MonthlySpent(entries, now)),
			CategoryBreakdown: insights.PeriodTotals(entries, now, "month"),
			Insights:          t.insights(),
			TreeHealth:        insights.SavingsTree(entries, now, t.settings.MonthlyBudget).Health,
		},
	}

	for _, e := range t.expenses {
		ts := e.Timestamp
		if doc.Metadata.DateRange.Oldest == nil || ts.Before(*doc.Metadata.DateRange.Oldest) {
			doc.Metadata.DateRange.Oldest = &ts
		}
		if doc.Metadata.DateRange.Newest == nil || ts.After(*doc.Metadata.DateRange.Newest) {
			doc.Metadata.DateRange.Newest = &ts
		}
	}
	return doc
}

// importDocument keeps settings raw so absent fields can fall back to the
// defaults instead of zero values.
type importDocument struct {
	Expenses []Expense      `json:"expenses"`
	Goals    []Goal          `json:"goals"`
	Settings json.RawMessage `json:"settings"`
}

// Import restores a backup. Expenses and goals are replaced when present,
// settings are merged over the defaults. Nothing is written when the document
// does not decode.
func (t *Tracker) Import(raw []byte) error {
	var doc importDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	settings := DefaultSettings()
	hasSettings := len(doc.Settings) > 0 && string(doc.Settings) != "null"
	if hasSettings {
		if err := json.Unmarshal(doc.Settings, &settings); err != nil {
			return fmt.Errorf("%w: settings: %v", ErrInvalidImport, err)
		}
	}
	for i, e := range doc.Expenses {
		if !e.Amount.IsPositive() {
			return fmt.Errorf("%w: expense %d has a non-positive amount", ErrInvalidImport, i)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if doc.Expenses != nil {
		for i := range doc.Expenses {
			if doc.Expenses[i].ID == "" {
				doc.Expenses[i].ID = t.newID()
			}
		}
		t.expenses = doc.Expenses
		if err := t.store.Set(KeyExpenses, t.expenses); err != nil {
			return err
		}
	}
	if doc.Goals != nil {
		t.goals = doc.Goals
		if err := t.store.Set(KeyGoals, t.goals); err != nil {
			return err
		}
	}
	if hasSettings {
		t.settings = settings
		if err := t.store.Set(KeySettings, t.settings); err != nil {
			return err
		}
	}
	return nil
}
