// Package services содержит бизнес-логику управления сессиями мобильных
// приложений: выдачу, проверку и принудительное снятие.
//
// Центральный инвариант — не более одной живой сессии на пользователя.
// Он обеспечивается уникальным индексом user_sessions(user_id) в хранилище;
// предварительная проверка в Acquire лишь даёт клиенту точный ответ
// с last_active занявшего устройства.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nanacrew/appgate/internal/lib/sl"
	"github.com/nanacrew/appgate/internal/lib/token"
	"github.com/nanacrew/appgate/internal/models"
	"github.com/nanacrew/appgate/internal/storage/repository"
)

// ErrSessionExpired сессия найдена, но срок её действия истёк.
var ErrSessionExpired = errors.New("session expired")

// ErrSessionNotFound сессия не найдена.
var ErrSessionNotFound = errors.New("session not found")

// DuplicateLoginError возвращается из Acquire, когда живую сессию
// уже держит другое устройство. LastActive помогает пользователю
// и администратору понять, какое именно.
type DuplicateLoginError struct {
	LastActive time.Time
}

func (e *DuplicateLoginError) Error() string {
	return fmt.Sprintf("another device already holds the session, last active %s",
		e.LastActive.Format(time.RFC3339))
}

// SessionRepository определяет методы для работы с сессиями в хранилище.
type SessionRepository interface {
	// CreateSession сохраняет сессию; ErrSessionExists при конкурирующем входе.
	CreateSession(ctx context.Context, session models.Session) (int64, error)
	// GetSessionByUserID возвращает сессию пользователя, живую или истёкшую.
	GetSessionByUserID(ctx context.Context, userID int64) (*models.Session, error)
	// GetSessionByToken возвращает сессию по токену.
	GetSessionByToken(ctx context.Context, sessionToken string) (*models.Session, error)
	// DeleteExpiredSessionsByUser удаляет истёкшие сессии пользователя.
	DeleteExpiredSessionsByUser(ctx context.Context, userID int64, now time.Time) (int64, error)
	// DeleteSessionsBySubscription удаляет все сессии подписки.
	DeleteSessionsBySubscription(ctx context.Context, subscriptionID int64) (int64, error)
	// ListSessionTokensBySubscription возвращает токены сессий подписки.
	ListSessionTokensBySubscription(ctx context.Context, subscriptionID int64) ([]string, error)
	// TouchSession обновляет время последней активности.
	TouchSession(ctx context.Context, sessionID int64, lastActive time.Time) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Grant результат успешной выдачи сессии.
type Grant struct {
	SessionToken string
	ExpiresAt    time.Time
}

// SessionService выдаёт и снимает сессии.
type SessionService struct {
	repo  SessionRepository
	cache Cache
	log   *slog.Logger
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionService создает новый экземпляр SessionService.
// ttl — срок жизни сессии, по умолчанию 30 суток.
func NewSessionService(repo SessionRepository, cache Cache, log *slog.Logger, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionService{
		repo:  repo,
		cache: cache,
		log:   log,
		ttl:   ttl,
		now:   time.Now,
	}
}

const cacheKeyPrefix = "session:"

// Acquire выдаёт новую сессию для пары подписка/пользователь.
//
// Живая сессия другого устройства приводит к *DuplicateLoginError —
// это жёсткий конфликт без ожидания и повторов; истёкшая сессия
// сначала удаляется. Повторная гонка на вставке разрешается хранилищем:
// нарушение уникальности трактуется как тот же конфликт.
func (s *SessionService) Acquire(ctx context.Context, subscriptionID, userID int64, deviceInfo, ipAddress *string) (*Grant, error) {
	const op = "session.Acquire"
	now := s.now()

	existing, err := s.repo.GetSessionByUserID(ctx, userID)
	switch {
	case err == nil:
		if !existing.IsExpired(now) {
			return nil, &DuplicateLoginError{LastActive: existing.LastActive}
		}
		if _, err := s.repo.DeleteExpiredSessionsByUser(ctx, userID, now); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		_ = s.cache.Invalidate(cacheKeyPrefix + existing.SessionToken)
	case errors.Is(err, repository.ErrSessionNotFound):
		// сессии нет, путь свободен
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessionToken, err := token.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	expiresAt := now.Add(s.ttl)

	_, err = s.repo.CreateSession(ctx, models.Session{
		SubscriptionID: subscriptionID,
		UserID:         userID,
		SessionToken:   sessionToken,
		DeviceInfo:     deviceInfo,
		IPAddress:      ipAddress,
		LastActive:     now,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionExists) {
			// проиграли гонку конкурирующему входу
			lastActive := now
			if winner, gerr := s.repo.GetSessionByUserID(ctx, userID); gerr == nil {
				lastActive = winner.LastActive
			}
			return nil, &DuplicateLoginError{LastActive: lastActive}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("session acquired",
		slog.Int64("user_id", userID),
		slog.Int64("subscription_id", subscriptionID))

	return &Grant{SessionToken: sessionToken, ExpiresAt: expiresAt}, nil
}

// ForceLogout безусловно удаляет все сессии подписки.
// Идемпотентна: отсутствие сессий — тоже успех.
func (s *SessionService) ForceLogout(ctx context.Context, subscriptionID int64) error {
	const op = "session.ForceLogout"

	tokens, err := s.repo.ListSessionTokensBySubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, t := range tokens {
		if err := s.cache.Invalidate(cacheKeyPrefix + t); err != nil {
			s.log.Warn("failed to invalidate session cache", sl.Err(err))
		}
	}

	deleted, err := s.repo.DeleteSessionsBySubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("forced logout",
		slog.Int64("subscription_id", subscriptionID),
		slog.Int64("sessions_deleted", deleted))
	return nil
}

// Validate проверяет токен сессии и возвращает саму сессию.
// Возвращает ErrSessionNotFound для неизвестного токена и
// ErrSessionExpired для истёкшей сессии.
func (s *SessionService) Validate(ctx context.Context, sessionToken string) (*models.Session, error) {
	const op = "session.Validate"
	now := s.now()
	cacheKey := cacheKeyPrefix + sessionToken

	var session *models.Session
	found, err := s.cache.Get(cacheKey, &session)
	if err != nil {
		s.log.Warn("session cache lookup failed", sl.Err(err))
	}
	if !found || session == nil {
		session, err = s.repo.GetSessionByToken(ctx, sessionToken)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ttl := cacheTTL(session.ExpiresAt, now); ttl > 0 {
			if err := s.cache.Set(cacheKey, session, ttl); err != nil {
				s.log.Warn("failed to cache session", slog.String("key", cacheKey), sl.Err(err))
			}
		}
	}

	if session.IsExpired(now) {
		return nil, ErrSessionExpired
	}

	if err := s.repo.TouchSession(ctx, session.ID, now); err != nil {
		s.log.Warn("failed to touch session", sl.Err(err))
	}
	return session, nil
}

// cacheTTL ограничивает время жизни записи в кеше сроком самой сессии.
// Для уже истёкших сессий возвращает ноль: кешировать их не нужно.
func cacheTTL(expiresAt, now time.Time) time.Duration {
	ttl := 5 * time.Minute
	if until := expiresAt.Sub(now); until < ttl {
		ttl = until
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}
