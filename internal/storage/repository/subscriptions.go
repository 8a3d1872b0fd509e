package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nanacrew/appgate/internal/models"
)

// CreateSubscription сохраняет новую подписку и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO subscriptions (app_id, user_id, subscription_type, status,
			      start_date, end_date, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		sub.AppID, sub.UserID, sub.SubscriptionType, sub.Status,
		sub.StartDate, sub.EndDate, sub.Notes).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscriptionByUserID возвращает подписку пользователя.
// Подписка адресуется каноническим ключом user_id; поиск по логину
// выполняется сервисами через GetUserByIdentifier.
func (s *Storage) GetSubscriptionByUserID(ctx context.Context, userID int64) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByUserID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, app_id, user_id, subscription_type, status, start_date,
			      end_date, notes, created_at
			  FROM subscriptions
			  WHERE user_id = $1`
	row := s.DB.QueryRowContext(ctx, query, userID)

	sub := &models.Subscription{}
	var endDate sql.NullTime
	var notes sql.NullString
	if err := row.Scan(&sub.ID, &sub.AppID, &sub.UserID, &sub.SubscriptionType,
		&sub.Status, &sub.StartDate, &endDate, &notes, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	if notes.Valid {
		sub.Notes = &notes.String
	}
	return sub, nil
}

// MarkSubscriptionExpired переводит подписку в статус expired.
// Операция идемпотентна: повторный вызов и гонка двух наблюдателей
// не меняют результат — условие status <> 'expired' делает запись однократной.
func (s *Storage) MarkSubscriptionExpired(ctx context.Context, subscriptionID int64) error {
	const op = "storage.MarkSubscriptionExpired"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = 'expired'
			  WHERE id = $1 AND status <> 'expired'`
	_, err := s.DB.ExecContext(ctx, query, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
