package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByID retrieves a user. Returns ErrUserNotFound if no row exists.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT id, email, display_name, created_at FROM users WHERE id = ?`

	var u model.User
	var createdAt string
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.DisplayName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user %d: %w", id, driven.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &u, nil
}

// Add inserts a user row. Exposed for tests and bootstrap tooling; account
// creation itself lives outside the engine.
func (r *UserRepo) Add(ctx context.Context, u model.User) (model.User, error) {
	const query = `INSERT INTO users (email, display_name, created_at) VALUES (?, ?, ?)`

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := r.db.Writer.ExecContext(ctx, query, u.Email, u.DisplayName, createdAt.Format(time.RFC3339))
	if err != nil {
		return model.User{}, fmt.Errorf("add user %s: %w", u.Email, err)
	}

	u.ID, err = res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("user insert id: %w", err)
	}
	u.CreatedAt = createdAt

	return u, nil
}

// parseTime tries the SQLite datetime formats the driver may hand back.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
