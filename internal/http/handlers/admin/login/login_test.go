package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nanacrew/appgate/internal/http/middlewarectx"
	"github.com/nanacrew/appgate/internal/models"
	adminservice "github.com/nanacrew/appgate/internal/services/admin"
)

type AdminsMock struct {
	mock.Mock
}

func (m *AdminsMock) Login(ctx context.Context, email, password string) (string, *models.AdminUser, error) {
	args := m.Called(ctx, email, password)
	var admin *models.AdminUser
	if args.Get(1) != nil {
		admin = args.Get(1).(*models.AdminUser)
	}
	return args.String(0), admin, args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestAdminLoginHandler_ServeHTTP(t *testing.T) {
	admin := &models.AdminUser{ID: 1, Email: "admin@example.com", Name: "Admin"}

	tests := []struct {
		name           string
		requestBody    interface{}
		mockToken      string
		mockAdmin      *models.AdminUser
		mockErr        error
		wantStatusCode int
		wantCookie     bool
	}{
		{
			name:           "successful login sets the session cookie",
			requestBody:    Request{Email: "admin@example.com", Password: "adminpass"},
			mockToken:      "signed-token",
			mockAdmin:      admin,
			wantStatusCode: http.StatusOK,
			wantCookie:     true,
		},
		{
			name:           "invalid credentials",
			requestBody:    Request{Email: "admin@example.com", Password: "wrong"},
			mockErr:        adminservice.ErrInvalidCredentials,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "malformed email fails validation",
			requestBody:    Request{Email: "not-an-email", Password: "adminpass"},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "service failure",
			requestBody:    Request{Email: "admin@example.com", Password: "adminpass"},
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admins := new(AdminsMock)
			if tt.mockToken != "" || tt.mockErr != nil {
				req := tt.requestBody.(Request)
				admins.On("Login", mock.Anything, req.Email, req.Password).
					Return(tt.mockToken, tt.mockAdmin, tt.mockErr).Once()
			}

			handler := New(newNoopLogger(), admins, 24*time.Hour)

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", bytes.NewReader(bodyBytes))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var sessionCookie *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == middlewarectx.AdminSessionCookie {
					sessionCookie = c
				}
			}

			if tt.wantCookie {
				require.NotNil(t, sessionCookie)
				assert.Equal(t, "signed-token", sessionCookie.Value)
				assert.True(t, sessionCookie.HttpOnly)
				assert.Equal(t, int((24 * time.Hour).Seconds()), sessionCookie.MaxAge)

				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "OK", body["status"])
				data, ok := body["data"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "admin@example.com", data["email"])
			} else {
				assert.Nil(t, sessionCookie)
			}

			admins.AssertExpectations(t)
		})
	}
}
