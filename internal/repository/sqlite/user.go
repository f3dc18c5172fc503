package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at, last_login`

// CreateUser inserts a user. The email UNIQUE constraint turns a duplicate
// registration into apperror.Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := db.now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("an account with this email already exists")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	for _, facultyID := range user.Favorites {
		if err := db.AddFavorite(ctx, user.ID, facultyID); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}

	favs, err := db.favoritesFor(ctx, []string{u.ID})
	if err != nil {
		return nil, err
	}
	u.Favorites = nonNil(favs[u.ID])
	return u, nil
}

func (db *DB) ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Role != "" {
		where = append(where, `role = ?`)
		args = append(args, string(filter.Role))
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []model.User{}, nil
		}
		where = append(where, `id IN (`+placeholders(len(filter.IDs))+`)`)
		args = append(args, stringArgs(filter.IDs)...)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	rows.Close()

	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	favs, err := db.favoritesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Favorites = nonNil(favs[users[i].ID])
	}
	return users, nil
}

func (db *DB) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), db.now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: setting last login for %s: %w", id, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func (db *DB) AddFavorite(ctx context.Context, userID, facultyID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_favorites (user_id, faculty_id) VALUES (?, ?)`,
		userID, facultyID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("faculty is already in favorites")
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return apperror.NotFound("user", userID)
		}
		return fmt.Errorf("sqlite: adding favorite %s for %s: %w", facultyID, userID, err)
	}
	return nil
}

func (db *DB) RemoveFavorite(ctx context.Context, userID, facultyID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = ? AND faculty_id = ?`,
		userID, facultyID)
	if err != nil {
		return fmt.Errorf("sqlite: removing favorite %s for %s: %w", facultyID, userID, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("favorite", facultyID)
	}
	return nil
}

func (db *DB) RemoveFavoriteEverywhere(ctx context.Context, facultyID string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE faculty_id = ?`, facultyID); err != nil {
		return fmt.Errorf("sqlite: removing favorite %s from all users: %w", facultyID, err)
	}
	return nil
}

// DeleteUser removes the account; favorites go with it via ON DELETE CASCADE.
// Reviews are not touched here.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, "users")
}

// favoritesFor loads favorite faculty ids for the given users, in insertion order.
func (db *DB) favoritesFor(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, faculty_id FROM user_favorites
		 WHERE user_id IN (`+placeholders(len(userIDs))+`)
		 ORDER BY rowid`,
		stringArgs(userIDs)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading favorites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, facultyID string
		if err := rows.Scan(&userID, &facultyID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning favorite row: %w", err)
		}
		out[userID] = append(out[userID], facultyID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating favorites: %w", err)
	}
	return out, nil
}

func (db *DB) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting %s: %w", table, err)
	}
	return n, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u         model.User
		role      string
		lastLogin sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
