package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nanacrew/appgate/internal/models"
)

const sessionColumns = `id, subscription_id, user_id, session_token, device_info,
			      ip_address, last_active, expires_at, created_at`

// CreateSession сохраняет новую сессию и возвращает её ID.
// Нарушение уникального ограничения user_sessions(user_id) возвращается
// как ErrSessionExists: именно хранилище, а не предварительная проверка,
// гарантирует единственность живой сессии при конкурирующих входах.
func (s *Storage) CreateSession(ctx context.Context, session models.Session) (int64, error) {
	const op = "storage.CreateSession"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO user_sessions (subscription_id, user_id, session_token,
			      device_info, ip_address, last_active, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		session.SubscriptionID, session.UserID, session.SessionToken,
		session.DeviceInfo, session.IPAddress, session.LastActive,
		session.ExpiresAt).Scan(&newID); err != nil {
		if isUniqueViolation(err, "user_sessions_user_unique") {
			return 0, fmt.Errorf("%s: %w", op, ErrSessionExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSessionByUserID возвращает сессию пользователя, живую или истёкшую.
func (s *Storage) GetSessionByUserID(ctx context.Context, userID int64) (*models.Session, error) {
	const op = "storage.GetSessionByUserID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + sessionColumns + `
			  FROM user_sessions
			  WHERE user_id = $1`
	row := s.DB.QueryRowContext(ctx, query, userID)
	return scanSession(row, op)
}

// GetSessionByToken возвращает сессию по её токену.
func (s *Storage) GetSessionByToken(ctx context.Context, sessionToken string) (*models.Session, error) {
	const op = "storage.GetSessionByToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + sessionColumns + `
			  FROM user_sessions
			  WHERE session_token = $1`
	row := s.DB.QueryRowContext(ctx, query, sessionToken)
	return scanSession(row, op)
}

// DeleteExpiredSessionsByUser удаляет истёкшие к моменту now сессии
// пользователя и возвращает количество удалённых строк.
func (s *Storage) DeleteExpiredSessionsByUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	const op = "storage.DeleteExpiredSessionsByUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM user_sessions
			  WHERE user_id = $1 AND expires_at <= $2`
	result, err := s.DB.ExecContext(ctx, query, userID, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// DeleteSessionsBySubscription удаляет все сессии подписки и возвращает
// количество удалённых строк. Ноль строк — не ошибка.
func (s *Storage) DeleteSessionsBySubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	const op = "storage.DeleteSessionsBySubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM user_sessions WHERE subscription_id = $1`
	result, err := s.DB.ExecContext(ctx, query, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// ListSessionTokensBySubscription возвращает токены всех сессий подписки.
// Используется для инвалидации кеша перед принудительным выходом.
func (s *Storage) ListSessionTokensBySubscription(ctx context.Context, subscriptionID int64) ([]string, error) {
	const op = "storage.ListSessionTokensBySubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT session_token FROM user_sessions WHERE subscription_id = $1`
	rows, err := s.DB.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var tokens []string
	for rows.Next() {
		var token string
		if err = rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tokens = append(tokens, token)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tokens, nil
}

// TouchSession обновляет время последней активности сессии.
func (s *Storage) TouchSession(ctx context.Context, sessionID int64, lastActive time.Time) error {
	const op = "storage.TouchSession"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_sessions
			  SET last_active = $1
			  WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, lastActive, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanSession(row *sql.Row, op string) (*models.Session, error) {
	session := &models.Session{}
	var deviceInfo, ipAddress sql.NullString
	if err := row.Scan(&session.ID, &session.SubscriptionID, &session.UserID,
		&session.SessionToken, &deviceInfo, &ipAddress, &session.LastActive,
		&session.ExpiresAt, &session.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if deviceInfo.Valid {
		session.DeviceInfo = &deviceInfo.String
	}
	if ipAddress.Valid {
		session.IPAddress = &ipAddress.String
	}
	return session, nil
}
