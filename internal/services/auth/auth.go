// Package services содержит логику парольного входа мобильных пользователей,
// регистрации и восстановления пароля.
//
// Парольный вход — отдельный путь аутентификации, не связанный с гейтом
// подписки и менеджером сессий: он выдаёт bearer-токен JWT и не занимает
// слот единственной сессии.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nanacrew/appgate/internal/lib/jwt"
	"github.com/nanacrew/appgate/internal/lib/password"
	"github.com/nanacrew/appgate/internal/lib/sl"
	"github.com/nanacrew/appgate/internal/models"
	"github.com/nanacrew/appgate/internal/storage/repository"
)

// Доменные исходы парольного входа и восстановления пароля.
// Обработчики превращают их в errorType и HTTP-статусы.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrPasswordNotSet   = errors.New("password is not set for this account")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrAccountInactive  = errors.New("account is inactive")
	ErrAccountSuspended = errors.New("account is suspended")
	ErrPhoneMismatch    = errors.New("phone does not match")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (int64, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetUserByIdentifier(ctx context.Context, appID, userIdentifier string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
}

// SubscriptionRepository описывает контракт для работы с подписками.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	GetSubscriptionByUserID(ctx context.Context, userID int64) (*models.Subscription, error)
}

// AuthService отвечает за парольный вход, регистрацию и восстановление пароля.
type AuthService struct {
	users    UserRepository
	subs     SubscriptionRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, subs SubscriptionRepository,
	jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		subs:     subs,
		jwtMaker: jwtMaker,
		log:      log,
		now:      time.Now,
	}
}

// LoginResult успешный исход парольного входа.
// Subscription может быть nil; SubscriptionStatus — статус для показа
// клиенту, учитывающий просрочку по дате без записи в хранилище.
type LoginResult struct {
	Token              string
	User               *models.User
	Subscription       *models.Subscription
	SubscriptionStatus string
}

// Login проверяет пароль пользователя и выдаёт JWT.
//
// Порядок проверок: существование → наличие пароля → совпадение пароля →
// статус учётной записи. Сводка подписки отражает просрочку по дате
// только в отображаемом статусе, без записи в хранилище.
func (s *AuthService) Login(ctx context.Context, appID, userIdentifier, rawPassword string) (*LoginResult, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByIdentifier(ctx, appID, userIdentifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return nil, ErrPasswordNotSet
	}
	if err := password.CompareHash(*user.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidPassword
	}

	switch user.Status {
	case models.UserStatusInactive:
		return nil, ErrAccountInactive
	case models.UserStatusSuspended:
		return nil, ErrAccountSuspended
	}

	token, err := s.jwtMaker.GenerateAppToken(user.ID, user.UserIdentifier, user.AppID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &LoginResult{
		Token: token,
		User:  user,
	}
	sub, err := s.subs.GetSubscriptionByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub != nil {
		result.Subscription = sub
		result.SubscriptionStatus = sub.Status
		if sub.IsEnded(s.now()) {
			result.SubscriptionStatus = models.SubscriptionStatusExpired
		}
	}

	return result, nil
}

// Register создает нового пользователя с хэшированием пароля
// и бессрочной бесплатной подпиской по умолчанию.
func (s *AuthService) Register(ctx context.Context, appID, userIdentifier, rawPassword string, name, phone *string) (*models.User, error) {
	const op = "auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := s.users.CreateUser(ctx, models.User{
		AppID:          appID,
		UserIdentifier: userIdentifier,
		PasswordHash:   &hashed,
		Name:           name,
		Phone:          phone,
		Status:         models.UserStatusActive,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.subs.CreateSubscription(ctx, models.Subscription{
		AppID:            appID,
		UserID:           userID,
		SubscriptionType: "free",
		Status:           models.SubscriptionStatusActive,
		StartDate:        s.now().UTC(),
	}); err != nil {
		// учётная запись уже создана, подписку доведёт администратор
		s.log.Warn("failed to create default subscription", sl.Err(err),
			slog.Int64("user_id", userID))
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// VerifyResetIdentity подтверждает личность по логину и номеру телефона
// перед сменой пароля. Сравниваются только цифры номеров.
func (s *AuthService) VerifyResetIdentity(ctx context.Context, appID, userIdentifier, phone string) error {
	const op = "auth.VerifyResetIdentity"

	user, err := s.activeUser(ctx, appID, userIdentifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	stored := ""
	if user.Phone != nil {
		stored = digitsOnly(*user.Phone)
	}
	if stored == "" || digitsOnly(phone) != stored {
		return ErrPhoneMismatch
	}
	return nil
}

// ResetPassword устанавливает новый пароль активного пользователя.
func (s *AuthService) ResetPassword(ctx context.Context, appID, userIdentifier, newPassword string) error {
	const op = "auth.ResetPassword"

	user, err := s.activeUser(ctx, appID, userIdentifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Me возвращает профиль пользователя со сводкой подписки.
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, *models.SubscriptionSummary, error) {
	const op = "auth.Me"

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	summary, err := s.subscriptionSummary(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, summary, nil
}

// activeUser возвращает пользователя, если он существует и активен.
// Неактивные и приостановленные учётки для восстановления пароля
// неотличимы от отсутствующих.
func (s *AuthService) activeUser(ctx context.Context, appID, userIdentifier string) (*models.User, error) {
	user, err := s.users.GetUserByIdentifier(ctx, appID, userIdentifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) subscriptionSummary(ctx context.Context, userID int64) (*models.SubscriptionSummary, error) {
	sub, err := s.subs.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	status := sub.Status
	if sub.IsEnded(s.now()) {
		status = models.SubscriptionStatusExpired
	}
	return &models.SubscriptionSummary{
		Type:    sub.SubscriptionType,
		Status:  status,
		EndDate: sub.EndDate,
	}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
