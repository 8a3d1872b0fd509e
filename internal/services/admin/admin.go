// Package services содержит аутентификацию администраторов панели.
// Админка взаимодействует с ядром только в двух точках: вход с выдачей
// подписанной cookie и принудительный выход пользователя.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nanacrew/appgate/internal/lib/jwt"
	"github.com/nanacrew/appgate/internal/lib/password"
	"github.com/nanacrew/appgate/internal/models"
	"github.com/nanacrew/appgate/internal/storage/repository"
)

// ErrInvalidCredentials неверная пара email/пароль.
// Несуществующий администратор и неверный пароль неотличимы.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AdminRepository описывает доступ к учётным записям администраторов.
type AdminRepository interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

// AdminService проверяет учётные данные администраторов и выдаёт токены.
type AdminService struct {
	admins   AdminRepository
	jwtMaker jwt.Maker
}

// NewAdminService создает новый экземпляр AdminService.
func NewAdminService(admins AdminRepository, jwtMaker jwt.Maker) *AdminService {
	return &AdminService{
		admins:   admins,
		jwtMaker: jwtMaker,
	}
}

// Login проверяет пароль администратора и возвращает JWT для cookie.
func (s *AdminService) Login(ctx context.Context, email, rawPassword string) (string, *models.AdminUser, error) {
	const op = "admin.Login"

	admin, err := s.admins.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(admin.PasswordHash, rawPassword); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwtMaker.GenerateAdminToken(admin.ID, admin.Email)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, admin, nil
}

// ValidateToken проверяет токен администратора из cookie.
func (s *AdminService) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	const op = "admin.ValidateToken"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if claims.Subject != jwt.SubjectAdmin {
		return nil, fmt.Errorf("%s: not an admin token", op)
	}
	return claims, nil
}
