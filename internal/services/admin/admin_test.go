package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customjwt "github.com/nanacrew/appgate/internal/lib/jwt"
	"github.com/nanacrew/appgate/internal/lib/password"
	"github.com/nanacrew/appgate/internal/models"
	services "github.com/nanacrew/appgate/internal/services/admin"
	"github.com/nanacrew/appgate/internal/storage/repository"
)

// Мок для AdminRepository
type AdminRepoMock struct {
	mock.Mock
}

func (m *AdminRepoMock) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminUser), args.Error(1)
}

func TestAdminService_Login(t *testing.T) {
	hashedPassword, err := password.GetHash("adminpass")
	require.NoError(t, err)

	admin := &models.AdminUser{
		ID:           1,
		Email:        "admin@example.com",
		PasswordHash: hashedPassword,
	}
	maker := customjwt.NewJWTMaker("test_secret", time.Hour, time.Hour)

	tests := []struct {
		name       string
		email      string
		password   string
		setupMocks func(r *AdminRepoMock)
		wantErr    error
	}{
		{
			name:     "successful login",
			email:    "admin@example.com",
			password: "adminpass",
			setupMocks: func(r *AdminRepoMock) {
				r.On("GetAdminByEmail", mock.Anything, "admin@example.com").
					Return(admin, nil).Once()
			},
		},
		{
			name:     "unknown email",
			email:    "ghost@example.com",
			password: "adminpass",
			setupMocks: func(r *AdminRepoMock) {
				r.On("GetAdminByEmail", mock.Anything, "ghost@example.com").
					Return(nil, repository.ErrAdminNotFound).Once()
			},
			wantErr: services.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "admin@example.com",
			password: "wrongpass",
			setupMocks: func(r *AdminRepoMock) {
				r.On("GetAdminByEmail", mock.Anything, "admin@example.com").
					Return(admin, nil).Once()
			},
			wantErr: services.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(AdminRepoMock)
			svc := services.NewAdminService(repo, maker)
			tt.setupMocks(repo)

			token, got, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, admin.Email, got.Email)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestAdminService_ValidateToken(t *testing.T) {
	maker := customjwt.NewJWTMaker("test_secret", time.Hour, time.Hour)
	svc := services.NewAdminService(new(AdminRepoMock), maker)

	t.Run("valid admin token", func(t *testing.T) {
		token, err := maker.GenerateAdminToken(1, "admin@example.com")
		require.NoError(t, err)

		claims, err := svc.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, int64(1), claims.UserID)
		assert.Equal(t, "admin@example.com", claims.Username)
	})

	t.Run("app token is rejected", func(t *testing.T) {
		token, err := maker.GenerateAppToken(7, "555-0101", "app1")
		require.NoError(t, err)

		_, err = svc.ValidateToken(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken(context.Background(), "garbage")
		assert.Error(t, err)
	})
}
