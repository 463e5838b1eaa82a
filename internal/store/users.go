package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront-service/internal/models"
)

func insertUser(ctx context.Context, q sqlx.ExtContext, u *models.User) error {
	u.Username = models.NormalizeUsername(u.Username)
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now().UTC()
	}

	query := q.Rebind(`
		INSERT INTO users (username, password_hash, salt, role, email, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := sqlx.GetContext(ctx, q, &u.ID, query,
		u.Username, u.PasswordHash, nullString(u.Salt), u.Role, nullString(u.Email), u.RegisteredAt)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return queryErr(err)
}

// CreateUser inserts a user with a normalized username and sets its ID
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return insertUser(ctx, s.db, u)
}

// GetUserByUsername retrieves a user by normalized username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := selectOne[models.User](ctx, s.db, userColumns,
		s.db.Rebind(userSelect+" WHERE username = ?"), models.NormalizeUsername(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := selectOne[models.User](ctx, s.db, userColumns, s.db.Rebind(userSelect+" WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UserExists checks if a username is registered
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		s.db.Rebind("SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)"), models.NormalizeUsername(username))
	return exists, queryErr(err)
}

// GetUserRole returns the role of a user
func (s *Store) GetUserRole(ctx context.Context, username string) (string, error) {
	var role string
	err := s.db.GetContext(ctx, &role,
		s.db.Rebind("SELECT role FROM users WHERE username = ?"), models.NormalizeUsername(username))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return role, queryErr(err)
}

// GetUsers lists every user ordered by username
func (s *Store) GetUsers(ctx context.Context) ([]models.User, error) {
	return selectAll[models.User](ctx, s.db, userColumns, userSelect+" ORDER BY username ASC")
}

// GetUsersByRole lists the users of one role ordered by username
func (s *Store) GetUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	return selectAll[models.User](ctx, s.db, userColumns,
		s.db.Rebind(userSelect+" WHERE role = ? ORDER BY username ASC"), role)
}

// CountUsersByRole counts the users of one role
func (s *Store) CountUsersByRole(ctx context.Context, role string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind("SELECT COUNT(*) FROM users WHERE role = ?"), role)
	return count, queryErr(err)
}

// GetRoles returns the distinct roles in use
func (s *Store) GetRoles(ctx context.Context) ([]string, error) {
	var roles []string
	err := s.db.SelectContext(ctx, &roles, "SELECT DISTINCT role FROM users ORDER BY role ASC")
	return roles, queryErr(err)
}

// GetRoleStats counts users per role, largest group first
func (s *Store) GetRoleStats(ctx context.Context) ([]models.RoleStat, error) {
	var stats []models.RoleStat
	err := s.db.SelectContext(ctx, &stats,
		"SELECT role, COUNT(*) AS count FROM users GROUP BY role ORDER BY count DESC, role ASC")
	return stats, queryErr(err)
}

func (s *Store) updateUser(ctx context.Context, query, username string, args ...interface{}) (int64, error) {
	args = append(args, models.NormalizeUsername(username))
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, queryErr(err)
	}
	return res.RowsAffected()
}

// UpdateUserRole changes the role of a user, returning the rows affected
func (s *Store) UpdateUserRole(ctx context.Context, username, role string) (int64, error) {
	return s.updateUser(ctx, "UPDATE users SET role = ? WHERE username = ?", username, role)
}

// UpdateUserEmail changes the email of a user, returning the rows affected
func (s *Store) UpdateUserEmail(ctx context.Context, username, email string) (int64, error) {
	return s.updateUser(ctx, "UPDATE users SET email = ? WHERE username = ?", username, nullString(email))
}

// UpdateUserPassword stores a new hash and salt, returning the rows affected
func (s *Store) UpdateUserPassword(ctx context.Context, username, hash, salt string) (int64, error) {
	return s.updateUser(ctx, "UPDATE users SET password_hash = ?, salt = ? WHERE username = ?", username, hash, salt)
}

// DeleteUser removes a user, returning the rows affected
func (s *Store) DeleteUser(ctx context.Context, username string) (int64, error) {
	return s.updateUser(ctx, "DELETE FROM users WHERE username = ?", username)
}
