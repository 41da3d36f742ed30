// Package migration holds one-off data repair jobs run from the admin
// endpoint or at startup.
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/utils"
)

// Result summarises one repair run.
type Result struct {
	Job      string `json:"job"`
	Updated  int64  `json:"updated"`
	Duration string `json:"duration"`
}

// RecomputeCategorySpent rewrites every category's spent total from the
// expenses that reference it. Totals that already match are left untouched.
func RecomputeCategorySpent(ctx context.Context, categories repository.CategoryRepository) (*Result, error) {
	start := time.Now()
	utils.SafeInfo("🚀 Recomputing category spent totals...")

	updated, err := categories.RecomputeSpent(ctx)
	utils.LogJob("recompute_spent", updated, err)
	if err != nil {
		return nil, fmt.Errorf("recompute spent: %w", err)
	}

	res := &Result{
		Job:      "recompute_spent",
		Updated:  updated,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	utils.SafeInfo("📊 Spent totals repaired: %d categories in %s", updated, res.Duration)
	return res, nil
}
