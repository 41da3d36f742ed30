// Package postgres implements the repository contracts with database/sql
// and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// New wires every repository to db.
func New(db *sql.DB) *repository.Store {
	return &repository.Store{
		Users:         &UserRepo{db: db},
		Categories:    &CategoryRepo{db: db},
		Expenses:      &ExpenseRepo{db: db},
		Budgets:       &BudgetRepo{db: db},
		Notifications: &NotificationRepo{db: db},
		Achievements:  &AchievementRepo{db: db},
	}
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// jsonValue encodes v for a JSONB column; nil pointers and maps become NULL.
func jsonValue(v any) (any, error) {
	switch t := v.(type) {
	case *models.Location:
		if t == nil {
			return nil, nil
		}
	case *models.RecurringPattern:
		if t == nil {
			return nil, nil
		}
	case map[string]any:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ============================================================================
// USERS
// ============================================================================

type UserRepo struct {
	db *sql.DB
}

const userColumns = `id, email, password_hash, name, COALESCE(avatar, ''), preferences,
	level, experience, COALESCE(totp_secret, ''), totp_enabled, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var prefs []byte
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Avatar, &prefs,
		&u.Level, &u.Experience, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := decodeJSON(prefs, &u.Preferences); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return err
	}
	if u.Level == 0 {
		u.Level = 1
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, avatar, preferences, level, experience)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, u.Name, u.Avatar, string(prefs), u.Level, u.Experience).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if pqCode(err) == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `
		UPDATE users SET name = $2, avatar = NULLIF($3, ''), preferences = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.Name, u.Avatar, string(prefs)).Scan(&u.UpdatedAt)
	return notFound(err)
}

func (r *UserRepo) UpdateTOTP(ctx context.Context, id, secret string, enabled bool) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = NULLIF($2, ''), totp_enabled = $3, updated_at = NOW()
		WHERE id = $1
	`, id, secret, enabled))
}

func (r *UserRepo) AddExperience(ctx context.Context, id string, xp int) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET experience = experience + $2, level = 1 + (experience + $2) / 100
		WHERE id = $1
		RETURNING `+userColumns, id, xp))
}

// ============================================================================
// ACHIEVEMENTS
// ============================================================================

type AchievementRepo struct {
	db *sql.DB
}

func (r *AchievementRepo) List(ctx context.Context, userID string) ([]models.Achievement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, key, name, description, icon, progress, max_progress, unlocked_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY unlocked_at ASC NULLS LAST
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Key, &a.Name, &a.Description, &a.Icon,
			&a.Progress, &a.MaxProgress, &a.UnlockedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AchievementRepo) Unlock(ctx context.Context, a *models.Achievement) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO achievements (id, user_id, key, name, description, icon, progress, max_progress, unlocked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		ON CONFLICT (user_id, key) DO NOTHING
	`, a.ID, a.UserID, a.Key, a.Name, a.Description, a.Icon, a.Progress, a.MaxProgress, a.UnlockedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
