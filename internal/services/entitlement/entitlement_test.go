package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nanacrew/appgate/internal/models"
	"github.com/nanacrew/appgate/internal/services/audit"
	sessionservice "github.com/nanacrew/appgate/internal/services/session"
	"github.com/nanacrew/appgate/internal/storage/repository"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) GetUserByIdentifier(ctx context.Context, appID, userIdentifier string) (*models.User, error) {
	args := m.Called(ctx, appID, userIdentifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// Мок для SubscriptionRepository
type SubRepoMock struct {
	mock.Mock
}

func (m *SubRepoMock) GetSubscriptionByUserID(ctx context.Context, userID int64) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *SubRepoMock) MarkSubscriptionExpired(ctx context.Context, subscriptionID int64) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

// Мок для SessionManager
type SessionManagerMock struct {
	mock.Mock
}

func (m *SessionManagerMock) Acquire(ctx context.Context, subscriptionID, userID int64, deviceInfo, ipAddress *string) (*sessionservice.Grant, error) {
	args := m.Called(ctx, subscriptionID, userID, deviceInfo, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionservice.Grant), args.Error(1)
}

// Мок для audit.Publisher
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(event audit.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newTestGate(users *UserRepoMock, subs *SubRepoMock, sessions *SessionManagerMock,
	events *PublisherMock, now time.Time) *EntitlementService {
	svc := NewEntitlementService(users, subs, sessions, events, testLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func activeUser() *models.User {
	return &models.User{
		ID:             7,
		AppID:          "app1",
		UserIdentifier: "555-0101",
		Status:         models.UserStatusActive,
	}
}

func activeSubscription(endDate *time.Time) *models.Subscription {
	return &models.Subscription{
		ID:               3,
		AppID:            "app1",
		UserID:           7,
		SubscriptionType: "premium",
		Status:           models.SubscriptionStatusActive,
		EndDate:          endDate,
	}
}

func TestEntitlementService_Check_Denials(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pastDate := now.Add(-48 * time.Hour)

	tests := []struct {
		name        string
		setupMocks  func(u *UserRepoMock, s *SubRepoMock, sm *SessionManagerMock)
		wantReason  string
		wantMessage string
	}{
		{
			name: "unknown user",
			setupMocks: func(u *UserRepoMock, s *SubRepoMock, sm *SessionManagerMock) {
				u.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
					Return(nil, repository.ErrUserNotFound).Once()
			},
			wantReason:  ReasonUserNotFound,
			wantMessage: "account is not registered",
		},
		{
			name: "deactivated user wins over missing subscription",
			setupMocks: func(u *UserRepoMock, s *SubRepoMock, sm *SessionManagerMock) {
				user := activeUser()
				user.Status = models.UserStatusInactive
				u.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
					Return(user, nil).Once()
			},
			wantReason:  ReasonUserInactive,
			wantMessage: "account is deactivated, contact the administrator",
		},
		{
			name: "suspended user gets its own message",
			setupMocks: func(u *UserRepoMock, s *SubRepoMock, sm *SessionManagerMock) {
				user := activeUser()
				user.Status = models.UserStatusSuspended
				u.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
					Return(user, nil).Once()
			},
			wantReason:  ReasonUserInactive,
			wantMessage: "account is suspended, contact the administrator",
		},
		{
			name: "no subscription",
			setupMocks: func(u *UserRepoMock, s *SubRepoMock, sm *SessionManagerMock) {
				u.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
					Return(activeUser(), nil).Once()
				s.On("GetSubscriptionByUserID", mock.Anything, int64(7)).
					Return(nil, repository.ErrSubscriptionNotFound).Once()
			},
			wantReason:  ReasonNoSubscription,
			wantMessage: "no subscription is registered for this account",
		},
		{
			name: "cancelled subscription",
			setupMocks: func(u *UserRepoMock, s *SubRepoMock, sm *SessionManagerMock) {
				sub := activeSubscription(nil)
				sub.Status = models.SubscriptionStatusCancelled
				u.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
					Return(activeUser(), nil).Once()
				s.On("GetSubscriptionByUserID", mock.Anything, int64(7)).
					Return(sub, nil).Once()
			},
			wantReason:  ReasonInactiveSubscription,
			wantMessage: "subscription has been cancelled",
		},
		{
			name: "already expired status",
			setupMocks: func(u *UserRepoMock, s *SubRepoMock, sm *SessionManagerMock) {
				sub := activeSubscription(nil)
				sub.Status = models.SubscriptionStatusExpired
				u.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
					Return(activeUser(), nil).Once()
				s.On("GetSubscriptionByUserID", mock.Anything, int64(7)).
					Return(sub, nil).Once()
			},
			wantReason:  ReasonInactiveSubscription,
			wantMessage: "subscription has expired, renew to continue",
		},
		{
			name: "active subscription past its end date",
			setupMocks: func(u *UserRepoMock, s *SubRepoMock, sm *SessionManagerMock) {
				u.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
					Return(activeUser(), nil).Once()
				s.On("GetSubscriptionByUserID", mock.Anything, int64(7)).
					Return(activeSubscription(&pastDate), nil).Once()
				s.On("MarkSubscriptionExpired", mock.Anything, int64(3)).
					Return(nil).Once()
			},
			wantReason:  ReasonExpired,
			wantMessage: "subscription has expired, renew to continue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserRepoMock)
			subs := new(SubRepoMock)
			sessions := new(SessionManagerMock)
			events := new(PublisherMock)
			events.On("Publish", mock.Anything).Return(nil)

			svc := newTestGate(users, subs, sessions, events, now)
			tt.setupMocks(users, subs, sessions)

			result, err := svc.Check(context.Background(), CheckRequest{
				AppID:          "app1",
				UserIdentifier: "555-0101",
			})
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.False(t, result.Allowed)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.Equal(t, tt.wantMessage, result.Message)
			assert.Empty(t, result.SessionToken)

			// отказ до выдачи сессии не должен трогать менеджер сессий
			sessions.AssertNotCalled(t, "Acquire",
				mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

			users.AssertExpectations(t)
			subs.AssertExpectations(t)
		})
	}
}

func TestEntitlementService_Check_Allowed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	endDate := now.Add(20 * 24 * time.Hour)
	expiresAt := now.Add(30 * 24 * time.Hour)

	users := new(UserRepoMock)
	subs := new(SubRepoMock)
	sessions := new(SessionManagerMock)
	events := new(PublisherMock)
	events.On("Publish", mock.MatchedBy(func(e audit.Event) bool {
		return e.Category == "auth" && e.Action == "gate_allowed"
	})).Return(nil).Once()

	users.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
		Return(activeUser(), nil).Once()
	subs.On("GetSubscriptionByUserID", mock.Anything, int64(7)).
		Return(activeSubscription(&endDate), nil).Once()

	device := "Pixel 9"
	sessions.On("Acquire", mock.Anything, int64(3), int64(7), &device, (*string)(nil)).
		Return(&sessionservice.Grant{SessionToken: "fresh-token", ExpiresAt: expiresAt}, nil).Once()

	svc := newTestGate(users, subs, sessions, events, now)
	result, err := svc.Check(context.Background(), CheckRequest{
		AppID:          "app1",
		UserIdentifier: "555-0101",
		DeviceInfo:     &device,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Allowed)
	assert.Empty(t, result.Reason)
	assert.Equal(t, "fresh-token", result.SessionToken)
	assert.Equal(t, expiresAt, result.ExpiresAt)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, "premium", result.Subscription.Type)
	assert.Equal(t, models.SubscriptionStatusActive, result.Subscription.Status)

	users.AssertExpectations(t)
	subs.AssertExpectations(t)
	sessions.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestEntitlementService_Check_DuplicateLogin(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lastActive := now.Add(-30 * time.Minute)

	users := new(UserRepoMock)
	subs := new(SubRepoMock)
	sessions := new(SessionManagerMock)
	events := new(PublisherMock)
	events.On("Publish", mock.Anything).Return(nil)

	users.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
		Return(activeUser(), nil).Once()
	subs.On("GetSubscriptionByUserID", mock.Anything, int64(7)).
		Return(activeSubscription(nil), nil).Once()
	sessions.On("Acquire", mock.Anything, int64(3), int64(7), (*string)(nil), (*string)(nil)).
		Return(nil, &sessionservice.DuplicateLoginError{LastActive: lastActive}).Once()

	svc := newTestGate(users, subs, sessions, events, now)
	result, err := svc.Check(context.Background(), CheckRequest{
		AppID:          "app1",
		UserIdentifier: "555-0101",
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, ReasonDuplicateLogin, result.Reason)
	assert.Equal(t, "already logged in on another device", result.Message)
	require.NotNil(t, result.LastActive)
	assert.Equal(t, lastActive, *result.LastActive)
}

func TestEntitlementService_Check_LazyExpiryFailureStillDenies(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pastDate := now.Add(-time.Hour)

	users := new(UserRepoMock)
	subs := new(SubRepoMock)
	sessions := new(SessionManagerMock)
	events := new(PublisherMock)
	events.On("Publish", mock.Anything).Return(nil)

	users.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
		Return(activeUser(), nil).Once()
	subs.On("GetSubscriptionByUserID", mock.Anything, int64(7)).
		Return(activeSubscription(&pastDate), nil).Once()
	subs.On("MarkSubscriptionExpired", mock.Anything, int64(3)).
		Return(errors.New("db down")).Once()

	svc := newTestGate(users, subs, sessions, events, now)
	result, err := svc.Check(context.Background(), CheckRequest{
		AppID:          "app1",
		UserIdentifier: "555-0101",
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, ReasonExpired, result.Reason)
	subs.AssertExpectations(t)
}

func TestEntitlementService_Check_InfrastructureError(t *testing.T) {
	users := new(UserRepoMock)
	subs := new(SubRepoMock)
	sessions := new(SessionManagerMock)

	users.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
		Return(nil, errors.New("db down")).Once()

	svc := newTestGate(users, subs, sessions, nil, time.Now())
	result, err := svc.Check(context.Background(), CheckRequest{
		AppID:          "app1",
		UserIdentifier: "555-0101",
	})
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestEntitlementService_Check_PublishFailureIsTolerated(t *testing.T) {
	users := new(UserRepoMock)
	subs := new(SubRepoMock)
	sessions := new(SessionManagerMock)
	events := new(PublisherMock)
	events.On("Publish", mock.Anything).Return(errors.New("broker down"))

	users.On("GetUserByIdentifier", mock.Anything, "app1", "555-0101").
		Return(nil, repository.ErrUserNotFound).Once()

	svc := newTestGate(users, subs, sessions, events, time.Now())
	result, err := svc.Check(context.Background(), CheckRequest{
		AppID:          "app1",
		UserIdentifier: "555-0101",
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonUserNotFound, result.Reason)
}
