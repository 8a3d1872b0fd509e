package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nanacrew/appgate/internal/models"
)

const userColumns = `id, app_id, user_identifier, password_hash, name, email,
			      phone, status, notes, created_at, updated_at`

// CreateUser сохраняет нового пользователя и возвращает его ID.
// Возвращает ErrUserExists, если пара (app_id, user_identifier) уже занята.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO users (app_id, user_identifier, password_hash, name, email,
			      phone, status, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.AppID, user.UserIdentifier, user.PasswordHash, user.Name, user.Email,
		user.Phone, user.Status, user.Notes).Scan(&newID); err != nil {
		if isUniqueViolation(err, "users_app_identifier_unique") {
			return 0, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUserByIdentifier возвращает пользователя приложения appID по его логину.
func (s *Storage) GetUserByIdentifier(ctx context.Context, appID, userIdentifier string) (*models.User, error) {
	const op = "storage.GetUserByIdentifier"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE app_id = $1 AND user_identifier = $2`
	row := s.DB.QueryRowContext(ctx, query, appID, userIdentifier)
	return scanUser(row, op)
}

// GetUser возвращает пользователя по его ID.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, userID)
	return scanUser(row, op)
}

// UpdateUserPassword устанавливает новый хэш пароля пользователя.
func (s *Storage) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	const op = "storage.UpdateUserPassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET password_hash = $1,
			      updated_at = now()
			  WHERE id = $2`
	result, err := s.DB.ExecContext(ctx, query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

func scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var passwordHash, name, email, phone, notes sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&u.ID, &u.AppID, &u.UserIdentifier, &passwordHash, &name,
		&email, &phone, &u.Status, &notes, &u.CreatedAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	if name.Valid {
		u.Name = &name.String
	}
	if email.Valid {
		u.Email = &email.String
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	if notes.Valid {
		u.Notes = &notes.String
	}
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	return u, nil
}
