package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nanacrew/appgate/internal/models"
)

// GetAdminByEmail возвращает администратора панели по электронной почте.
func (s *Storage) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	const op = "storage.GetAdminByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, password_hash, name, created_at
			  FROM admin_users
			  WHERE email = $1`
	admin := &models.AdminUser{}
	row := s.DB.QueryRowContext(ctx, query, email)
	if err := row.Scan(&admin.ID, &admin.Email, &admin.PasswordHash,
		&admin.Name, &admin.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrAdminNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return admin, nil
}
