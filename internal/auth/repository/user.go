package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
)

// User represents a system user
type User struct {
	ID        int64  `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Password  string `db:"password" json:"-"`
	Role      string `db:"role" json:"role"` // admin, operator
	CreatedAt string `db:"created_at" json:"created_at"`
}

// UserRepository handles user persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByUsername gets a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user,
		"SELECT id, username, password, role, created_at FROM users WHERE username = ?", username)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user. Duplicate usernames surface as a conflict.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password, role, created_at) VALUES (?, ?, ?, ?)",
		user.Username, user.Password, user.Role, user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.Conflict("username already exists")
		}
		return err
	}
	user.ID, _ = res.LastInsertId()
	return nil
}

// Delete removes a user by username.
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("user")
	}
	return nil
}

// List returns all users ordered by creation time. Password hashes are
// not loaded.
func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	users := []*User{}
	err := r.db.SelectContext(ctx, &users,
		"SELECT id, username, role, created_at FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	return users, nil
}
