package forcelogout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SessionsMock struct {
	mock.Mock
}

func (m *SessionsMock) ForceLogout(ctx context.Context, subscriptionID int64) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestForceLogoutHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		subscriptionID string
		setupMocks     func(m *SessionsMock)
		wantStatusCode int
		wantSuccess    bool
		wantError      string
	}{
		{
			name:           "sessions removed",
			subscriptionID: "5",
			setupMocks: func(m *SessionsMock) {
				m.On("ForceLogout", mock.Anything, int64(5)).Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantSuccess:    true,
		},
		{
			name:           "no sessions is still success",
			subscriptionID: "6",
			setupMocks: func(m *SessionsMock) {
				m.On("ForceLogout", mock.Anything, int64(6)).Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantSuccess:    true,
		},
		{
			name:           "invalid id",
			subscriptionID: "abc",
			setupMocks:     func(m *SessionsMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid subscription id",
		},
		{
			name:           "service failure",
			subscriptionID: "5",
			setupMocks: func(m *SessionsMock) {
				m.On("ForceLogout", mock.Anything, int64(5)).
					Return(errors.New("db down")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "failed to log out user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(SessionsMock)
			tt.setupMocks(sessions)

			handler := New(newNoopLogger(), sessions)

			r := chi.NewRouter()
			r.Post("/subscriptions/{id}/logout", handler.ServeHTTP)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+tt.subscriptionID+"/logout", nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			} else {
				assert.Equal(t, tt.wantSuccess, body["success"])
			}

			sessions.AssertExpectations(t)
		})
	}
}
