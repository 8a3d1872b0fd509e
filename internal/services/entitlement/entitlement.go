// Package services реализует проверку права доступа мобильного пользователя
// к приложению (гейт подписки).
//
// Проверки упорядочены от самых общих к самым специфичным и обрываются на
// первой неуспешной: существование пользователя, статус учётной записи,
// наличие подписки, статус подписки, истечение по дате. Побочный эффект один —
// ленивый перевод подписки в expired при наблюдении просроченной даты.
// Сам гейт сессии не создаёт: успешный проход передаёт управление
// менеджеру сессий.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nanacrew/appgate/internal/lib/sl"
	"github.com/nanacrew/appgate/internal/models"
	"github.com/nanacrew/appgate/internal/services/audit"
	sessionservice "github.com/nanacrew/appgate/internal/services/session"
	"github.com/nanacrew/appgate/internal/storage/repository"
)

// Причины отказа гейта. Для каждого вызова возвращается ровно одна.
const (
	ReasonUserNotFound         = "user_not_found"
	ReasonUserInactive         = "user_inactive"
	ReasonNoSubscription       = "no_subscription"
	ReasonInactiveSubscription = "inactive_subscription"
	ReasonExpired              = "expired"
	ReasonDuplicateLogin       = "duplicate_login"
)

// UserRepository описывает доступ к пользователям.
type UserRepository interface {
	GetUserByIdentifier(ctx context.Context, appID, userIdentifier string) (*models.User, error)
}

// SubscriptionRepository описывает доступ к подпискам.
type SubscriptionRepository interface {
	GetSubscriptionByUserID(ctx context.Context, userID int64) (*models.Subscription, error)
	// MarkSubscriptionExpired идемпотентно переводит подписку в expired.
	MarkSubscriptionExpired(ctx context.Context, subscriptionID int64) error
}

// SessionManager выдаёт сессию после успешного прохода гейта.
type SessionManager interface {
	Acquire(ctx context.Context, subscriptionID, userID int64, deviceInfo, ipAddress *string) (*sessionservice.Grant, error)
}

// CheckRequest входные данные проверки доступа.
type CheckRequest struct {
	AppID          string
	UserIdentifier string
	DeviceInfo     *string
	IPAddress      *string
}

// CheckResult исход проверки доступа. Ровно один вариант:
// либо Allowed с токеном сессии и сводкой подписки,
// либо отказ с причиной и готовым для показа сообщением.
type CheckResult struct {
	Allowed      bool
	Reason       string
	Message      string
	LastActive   *time.Time // только для duplicate_login
	SessionToken string
	ExpiresAt    time.Time
	Subscription *models.SubscriptionSummary
}

// EntitlementService гейт подписки.
type EntitlementService struct {
	users    UserRepository
	subs     SubscriptionRepository
	sessions SessionManager
	events   audit.Publisher
	log      *slog.Logger
	now      func() time.Time
}

// NewEntitlementService создает новый экземпляр EntitlementService.
func NewEntitlementService(users UserRepository, subs SubscriptionRepository,
	sessions SessionManager, events audit.Publisher, log *slog.Logger) *EntitlementService {
	return &EntitlementService{
		users:    users,
		subs:     subs,
		sessions: sessions,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// Check решает, вправе ли пользователь приложения получить сессию.
//
// Доменные отказы возвращаются внутри CheckResult, ошибкой — только сбои
// хранилища и инфраструктуры.
func (s *EntitlementService) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	const op = "entitlement.Check"

	user, err := s.users.GetUserByIdentifier(ctx, req.AppID, req.UserIdentifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.deny(req, ReasonUserNotFound, "account is not registered", nil), nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Status != models.UserStatusActive {
		msg := "account is deactivated, contact the administrator"
		if user.Status == models.UserStatusSuspended {
			msg = "account is suspended, contact the administrator"
		}
		return s.deny(req, ReasonUserInactive, msg, nil), nil
	}

	sub, err := s.subs.GetSubscriptionByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return s.deny(req, ReasonNoSubscription, "no subscription is registered for this account", nil), nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if sub.Status != models.SubscriptionStatusActive {
		var msg string
		switch sub.Status {
		case models.SubscriptionStatusExpired:
			msg = "subscription has expired, renew to continue"
		case models.SubscriptionStatusCancelled:
			msg = "subscription has been cancelled"
		default:
			msg = fmt.Sprintf("subscription is %s", sub.Status)
		}
		return s.deny(req, ReasonInactiveSubscription, msg, nil), nil
	}

	if sub.IsEnded(s.now()) {
		// ленивое истечение: наблюдаемую просрочку фиксируем в хранилище;
		// запись идемпотентна и терпима к гонке двух наблюдателей
		if err := s.subs.MarkSubscriptionExpired(ctx, sub.ID); err != nil {
			s.log.Warn("failed to mark subscription expired", sl.Err(err),
				slog.Int64("subscription_id", sub.ID))
		}
		return s.deny(req, ReasonExpired, "subscription has expired, renew to continue", nil), nil
	}

	grant, err := s.sessions.Acquire(ctx, sub.ID, user.ID, req.DeviceInfo, req.IPAddress)
	if err != nil {
		var dup *sessionservice.DuplicateLoginError
		if errors.As(err, &dup) {
			return s.deny(req, ReasonDuplicateLogin,
				"already logged in on another device", &dup.LastActive), nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	gateChecksTotal.WithLabelValues("allowed").Inc()
	s.publish(audit.NewEvent("auth", "gate_allowed", req.AppID, map[string]any{
		"user_identifier": req.UserIdentifier,
	}))

	return &CheckResult{
		Allowed:      true,
		SessionToken: grant.SessionToken,
		ExpiresAt:    grant.ExpiresAt,
		Subscription: &models.SubscriptionSummary{
			Type:    sub.SubscriptionType,
			Status:  sub.Status,
			EndDate: sub.EndDate,
		},
	}, nil
}

func (s *EntitlementService) deny(req CheckRequest, reason, message string, lastActive *time.Time) *CheckResult {
	gateChecksTotal.WithLabelValues(reason).Inc()
	s.publish(audit.NewEvent("auth", "gate_denied", req.AppID, map[string]any{
		"user_identifier": req.UserIdentifier,
		"reason":          reason,
	}))
	return &CheckResult{
		Allowed:    false,
		Reason:     reason,
		Message:    message,
		LastActive: lastActive,
	}
}

// publish отправляет событие аудита; сбой публикации не влияет на ответ.
func (s *EntitlementService) publish(event audit.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(event); err != nil {
		s.log.Warn("failed to publish audit event", sl.Err(err))
	}
}
