package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/lib/pq"
)

// ============================================================================
// BUDGETS
// ============================================================================

type BudgetRepo struct {
	db *sql.DB
}

const budgetColumns = `id, user_id, name, amount, currency, period, category_ids, start_date, end_date,
	is_active, last_alerted_at, created_at, updated_at`

func scanBudget(row scanner) (*models.Budget, error) {
	var b models.Budget
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &b.Currency, &b.Period, pq.Array(&b.CategoryIDs),
		&b.StartDate, &b.EndDate, &b.IsActive, &b.LastAlertedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BudgetRepo) list(ctx context.Context, query string, args ...any) ([]models.Budget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BudgetRepo) Create(ctx context.Context, b *models.Budget) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO budgets (id, user_id, name, amount, currency, period, category_ids, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, b.ID, b.UserID, b.Name, b.Amount, b.Currency, b.Period, pq.Array(nonNil(b.CategoryIDs)),
		b.StartDate, b.EndDate, b.IsActive).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *BudgetRepo) Get(ctx context.Context, userID, id string) (*models.Budget, error) {
	return scanBudget(r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *BudgetRepo) List(ctx context.Context, userID string) ([]models.Budget, error) {
	return r.list(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (r *BudgetRepo) Update(ctx context.Context, b *models.Budget) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE budgets SET name = $3, amount = $4, period = $5, category_ids = $6, end_date = $7,
			is_active = $8, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`, b.ID, b.UserID, b.Name, b.Amount, b.Period, pq.Array(nonNil(b.CategoryIDs)), b.EndDate, b.IsActive).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	return notFound(err)
}

func (r *BudgetRepo) Delete(ctx context.Context, userID, id string) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *BudgetRepo) ListActive(ctx context.Context) ([]models.Budget, error) {
	return r.list(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE is_active ORDER BY user_id, created_at`)
}

func (r *BudgetRepo) MarkAlerted(ctx context.Context, id string, at time.Time) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, `UPDATE budgets SET last_alerted_at = $2 WHERE id = $1`, id, at))
}

// ============================================================================
// NOTIFICATIONS
// ============================================================================

type NotificationRepo struct {
	db *sql.DB
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	data, err := jsonValue(n.Data)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, n.ID, n.UserID, n.Type, n.Title, n.Message, data, n.IsRead).Scan(&n.CreatedAt)
}

func (r *NotificationRepo) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, data, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, err
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id string) error {
	return affectedOrNotFound(r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) Delete(ctx context.Context, userID, id string) error {
	return affectedOrNotFound(r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *NotificationRepo) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read AND created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
