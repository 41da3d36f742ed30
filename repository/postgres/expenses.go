package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ============================================================================
// CATEGORIES
// ============================================================================

type CategoryRepo struct {
	db *sql.DB
}

const categoryColumns = `id, user_id, name, icon, color, parent_id, budget, spent, created_at, updated_at`

func scanCategory(row scanner) (*models.Category, error) {
	var c models.Category
	var parent sql.NullString
	var budget decimal.NullDecimal
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &c.Color, &parent, &budget, &c.Spent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	if budget.Valid {
		c.Budget = &budget.Decimal
	}
	return &c, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c *models.Category) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, user_id, name, icon, color, parent_id, budget)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING spent, created_at, updated_at
	`, c.ID, c.UserID, c.Name, c.Icon, c.Color, c.ParentID, c.Budget).Scan(&c.Spent, &c.CreatedAt, &c.UpdatedAt)
	if pqCode(err) == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

func (r *CategoryRepo) Get(ctx context.Context, userID, id string) (*models.Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *CategoryRepo) GetByName(ctx context.Context, userID, name string) (*models.Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND LOWER(name) = LOWER($2)`, userID, name))
}

func (r *CategoryRepo) List(ctx context.Context, userID string) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) Update(ctx context.Context, c *models.Category) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE categories SET name = $3, icon = $4, color = $5, parent_id = $6, budget = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING spent, created_at, updated_at
	`, c.ID, c.UserID, c.Name, c.Icon, c.Color, c.ParentID, c.Budget).Scan(&c.Spent, &c.CreatedAt, &c.UpdatedAt)
	if pqCode(err) == uniqueViolation {
		return repository.ErrDuplicate
	}
	return notFound(err)
}

func (r *CategoryRepo) Delete(ctx context.Context, userID, id string) error {
	err := affectedOrNotFound(r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID))
	if pqCode(err) == foreignKeyViolation {
		return repository.ErrInUse
	}
	return err
}

func (r *CategoryRepo) RecomputeSpent(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories c SET spent = s.total, updated_at = NOW()
		FROM (
			SELECT c2.id, COALESCE(SUM(e.amount), 0) AS total
			FROM categories c2
			LEFT JOIN expenses e ON e.category_id = c2.id
			GROUP BY c2.id
		) s
		WHERE c.id = s.id AND c.spent <> s.total
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ============================================================================
// EXPENSES
// ============================================================================

type ExpenseRepo struct {
	db *sql.DB
}

const expenseSelect = `
	SELECT e.id, e.user_id, e.amount, e.currency, e.description, e.category_id, e.date,
	       e.location, e.tags, e.is_recurring, e.recurring_pattern,
	       COALESCE(e.mood, ''), COALESCE(e.merchant, ''), e.created_at, e.updated_at,
	       c.id, c.user_id, c.name, c.icon, c.color, c.parent_id, c.budget, c.spent, c.created_at, c.updated_at
	FROM expenses e
	JOIN categories c ON c.id = e.category_id`

func scanExpense(row scanner) (*models.Expense, error) {
	var e models.Expense
	var c models.Category
	var location, pattern []byte
	var parent sql.NullString
	var budget decimal.NullDecimal

	err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.Description, &e.CategoryID, &e.Date,
		&location, pq.Array(&e.Tags), &e.IsRecurring, &pattern,
		&e.Mood, &e.Merchant, &e.CreatedAt, &e.UpdatedAt,
		&c.ID, &c.UserID, &c.Name, &c.Icon, &c.Color, &parent, &budget, &c.Spent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	if len(location) > 0 {
		e.Location = &models.Location{}
		if err := decodeJSON(location, e.Location); err != nil {
			return nil, err
		}
	}
	if len(pattern) > 0 {
		e.RecurringPattern = &models.RecurringPattern{}
		if err := decodeJSON(pattern, e.RecurringPattern); err != nil {
			return nil, err
		}
	}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	if budget.Valid {
		c.Budget = &budget.Decimal
	}
	e.Category = &c
	return &e, nil
}

func collectExpenses(rows *sql.Rows) ([]models.Expense, error) {
	defer rows.Close()
	var out []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func filterClause(userID string, f models.ExpenseFilter) (string, []any) {
	conds := []string{"e.user_id = $1"}
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.CategoryID != "" {
		add("e.category_id = $%d", f.CategoryID)
	}
	if f.StartDate != nil {
		add("e.date >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("e.date <= $%d", *f.EndDate)
	}
	if f.MinAmount != nil {
		add("e.amount >= $%d", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		add("e.amount <= $%d", *f.MaxAmount)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *ExpenseRepo) List(ctx context.Context, userID string, f models.ExpenseFilter) ([]models.Expense, int, error) {
	where, args := filterClause(userID, f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := expenseSelect + where +
		fmt.Sprintf(" ORDER BY e.date DESC, e.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectExpenses(rows)
	return list, total, err
}

func (r *ExpenseRepo) Get(ctx context.Context, userID, id string) (*models.Expense, error) {
	return getExpense(ctx, r.db, userID, id)
}

func getExpense(ctx context.Context, q querier, userID, id string) (*models.Expense, error) {
	return scanExpense(q.QueryRowContext(ctx, expenseSelect+` WHERE e.id = $1 AND e.user_id = $2`, id, userID))
}

func (r *ExpenseRepo) Between(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		expenseSelect+` WHERE e.user_id = $1 AND e.date >= $2 AND e.date < $3 ORDER BY e.date DESC`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

func (r *ExpenseRepo) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *ExpenseRepo) WithTx(ctx context.Context, fn func(tx repository.ExpenseTx) error) error {
	return utils.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&expenseTx{tx: tx})
	})
}

type expenseTx struct {
	tx *sql.Tx
}

func (t *expenseTx) Get(ctx context.Context, userID, id string) (*models.Expense, error) {
	// Lock the row so concurrent updates of the same expense serialise.
	return scanExpense(t.tx.QueryRowContext(ctx,
		expenseSelect+` WHERE e.id = $1 AND e.user_id = $2 FOR UPDATE OF e`, id, userID))
}

func (t *expenseTx) CategoryExists(ctx context.Context, userID, categoryID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND user_id = $2)`, categoryID, userID).Scan(&exists)
	return exists, err
}

func (t *expenseTx) Insert(ctx context.Context, e *models.Expense) error {
	location, err := jsonValue(e.Location)
	if err != nil {
		return err
	}
	pattern, err := jsonValue(e.RecurringPattern)
	if err != nil {
		return err
	}
	return t.tx.QueryRowContext(ctx, `
		INSERT INTO expenses (id, user_id, category_id, amount, currency, description, date,
			location, tags, is_recurring, recurring_pattern, mood, merchant)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''))
		RETURNING created_at, updated_at
	`, e.ID, e.UserID, e.CategoryID, e.Amount, e.Currency, e.Description, e.Date,
		location, pq.Array(nonNil(e.Tags)), e.IsRecurring, pattern, e.Mood, e.Merchant).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (t *expenseTx) Update(ctx context.Context, e *models.Expense) error {
	location, err := jsonValue(e.Location)
	if err != nil {
		return err
	}
	pattern, err := jsonValue(e.RecurringPattern)
	if err != nil {
		return err
	}
	err = t.tx.QueryRowContext(ctx, `
		UPDATE expenses SET category_id = $3, amount = $4, currency = $5, description = $6, date = $7,
			location = $8, tags = $9, is_recurring = $10, recurring_pattern = $11,
			mood = NULLIF($12, ''), merchant = NULLIF($13, ''), updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`, e.ID, e.UserID, e.CategoryID, e.Amount, e.Currency, e.Description, e.Date,
		location, pq.Array(nonNil(e.Tags)), e.IsRecurring, pattern, e.Mood, e.Merchant).Scan(&e.UpdatedAt)
	return notFound(err)
}

func (t *expenseTx) Delete(ctx context.Context, userID, id string) error {
	return affectedOrNotFound(t.tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID))
}

func (t *expenseTx) AdjustCategorySpent(ctx context.Context, categoryID string, delta decimal.Decimal) error {
	return affectedOrNotFound(t.tx.ExecContext(ctx,
		`UPDATE categories SET spent = spent + $2, updated_at = NOW() WHERE id = $1`, categoryID, delta))
}
