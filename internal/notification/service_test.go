package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carworld-backend/internal/notification/domain"
	"carworld-backend/internal/notification/repository"
	userdomain "carworld-backend/internal/user/domain"
	userrepo "carworld-backend/internal/user/repository"
	"carworld-backend/pkg/fcm"
	"carworld-backend/pkg/idempotency"
)

// fakeSender records calls and returns canned multicast results.
type fakeSender struct {
	singleCalls []string
	multiCalls  [][]string

	singleErr error
	result    *fcm.MulticastResult
	err       error
}

func (f *fakeSender) SendToDevice(_ context.Context, token string, _ fcm.NotificationData) error {
	f.singleCalls = append(f.singleCalls, token)
	return f.singleErr
}

func (f *fakeSender) SendToDevices(_ context.Context, tokens []string, _ fcm.NotificationData) (*fcm.MulticastResult, error) {
	f.multiCalls = append(f.multiCalls, tokens)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type serviceFixture struct {
	svc       *Service
	users     *userrepo.MemoryUserRepository
	tokenRepo *repository.MemoryDeviceTokenRepository
	queueRepo *repository.MemoryNotificationQueueRepository
	sender    *fakeSender
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	users := userrepo.NewMemoryUserRepository()
	tokenRepo := repository.NewMemoryDeviceTokenRepository()
	queueRepo := repository.NewMemoryNotificationQueueRepository()
	sender := &fakeSender{}
	svc := NewService(users, tokenRepo, queueRepo, idempotency.NewMemoryLocker(0), sender)

	return &serviceFixture{
		svc:       svc,
		users:     users,
		tokenRepo: tokenRepo,
		queueRepo: queueRepo,
		sender:    sender,
	}
}

func (f *serviceFixture) addUser(t *testing.T, id string) *userdomain.User {
	t.Helper()

	user := &userdomain.User{ID: id, Email: id + "@example.com"}
	require.NoError(t, f.users.Create(user))
	return user
}

func TestRegisterToken(t *testing.T) {
	t.Run("idempotent registration", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addUser(t, "u1")

		require.NoError(t, f.svc.RegisterToken("u1", "tok-1", "IOS"))
		require.NoError(t, f.svc.RegisterToken("u1", "tok-1", "IOS"))

		tokens, err := f.tokenRepo.FindByUserID("u1")
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "tok-1", tokens[0].Token)
		assert.Equal(t, domain.PlatformIOS, tokens[0].Platform)

		user, err := f.users.FindByID("u1")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", user.FCMToken)
	})

	t.Run("reassigns owner on re-registration", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addUser(t, "u1")
		f.addUser(t, "u2")

		require.NoError(t, f.svc.RegisterToken("u1", "tok-1", "ANDROID"))
		require.NoError(t, f.svc.RegisterToken("u2", "tok-1", "WEB"))

		u1Tokens, err := f.tokenRepo.FindByUserID("u1")
		require.NoError(t, err)
		assert.Empty(t, u1Tokens)

		u2Tokens, err := f.tokenRepo.FindByUserID("u2")
		require.NoError(t, err)
		require.Len(t, u2Tokens, 1)
		assert.Equal(t, domain.PlatformWeb, u2Tokens[0].Platform)
	})

	t.Run("unknown platform defaults to android", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addUser(t, "u1")

		require.NoError(t, f.svc.RegisterToken("u1", "tok-1", "blackberry"))

		tokens, err := f.tokenRepo.FindByUserID("u1")
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, domain.PlatformAndroid, tokens[0].Platform)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.svc.RegisterToken("nobody", "tok-1", "IOS")
		assert.Error(t, err)
	})
}

func TestUnregisterToken(t *testing.T) {
	f := newServiceFixture(t)
	f.addUser(t, "u1")
	require.NoError(t, f.svc.RegisterToken("u1", "tok-1", "IOS"))

	require.NoError(t, f.svc.UnregisterToken("tok-1"))
	// Deleting again is a no-op, not an error.
	require.NoError(t, f.svc.UnregisterToken("tok-1"))

	tokens, err := f.tokenRepo.FindByUserID("u1")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestUnregisterDevice_ClearsLegacyField(t *testing.T) {
	f := newServiceFixture(t)
	f.addUser(t, "u1")
	require.NoError(t, f.svc.RegisterDevice("u1", "tok-1"))

	require.NoError(t, f.svc.UnregisterDevice("u1", "tok-1"))

	user, err := f.users.FindByID("u1")
	require.NoError(t, err)
	assert.Empty(t, user.FCMToken)
}

func TestQueuePush(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending row", func(t *testing.T) {
		f := newServiceFixture(t)

		f.svc.QueuePush(ctx, "u1", "Hi", "Body", map[string]string{"chat_id": "42"}, "")

		rows := f.queueRepo.All()
		require.Len(t, rows, 1)
		assert.Equal(t, "u1", rows[0].UserID)
		assert.Equal(t, "Hi", rows[0].Title)
		assert.Equal(t, "Body", rows[0].Body)
		assert.Equal(t, domain.StatusPending, rows[0].Status)
		assert.Equal(t, 0, rows[0].Attempts)
		assert.JSONEq(t, `{"chat_id":"42"}`, rows[0].Metadata)
	})

	t.Run("suppresses duplicates within the same minute", func(t *testing.T) {
		f := newServiceFixture(t)
		fixed := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)
		f.svc.nowFunc = func() time.Time { return fixed }

		f.svc.QueuePush(ctx, "u1", "Hi", "Body", nil, "")
		f.svc.QueuePush(ctx, "u1", "Hi", "Body", nil, "")

		assert.Len(t, f.queueRepo.All(), 1)
	})

	t.Run("different minute bucket enqueues again", func(t *testing.T) {
		f := newServiceFixture(t)
		fixed := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)
		f.svc.nowFunc = func() time.Time { return fixed }

		f.svc.QueuePush(ctx, "u1", "Hi", "Body", nil, "")
		f.svc.nowFunc = func() time.Time { return fixed.Add(90 * time.Second) }
		f.svc.QueuePush(ctx, "u1", "Hi", "Body", nil, "")

		assert.Len(t, f.queueRepo.All(), 2)
	})

	t.Run("different content enqueues separately", func(t *testing.T) {
		f := newServiceFixture(t)
		fixed := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)
		f.svc.nowFunc = func() time.Time { return fixed }

		f.svc.QueuePush(ctx, "u1", "Hi", "Body", nil, "")
		f.svc.QueuePush(ctx, "u1", "Hi", "Other body", nil, "")

		assert.Len(t, f.queueRepo.All(), 2)
	})

	t.Run("explicit idempotency key wins over content", func(t *testing.T) {
		f := newServiceFixture(t)

		f.svc.QueuePush(ctx, "u1", "Hi", "Body", nil, "order-77")
		f.svc.QueuePush(ctx, "u1", "Completely different", "message", nil, "order-77")

		assert.Len(t, f.queueRepo.All(), 1)
	})
}

func TestSendPushImmediately(t *testing.T) {
	ctx := context.Background()

	t.Run("no devices is success", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addUser(t, "u1")

		ok := f.svc.SendPushImmediately(ctx, "u1", "Hi", "Body", nil)

		assert.True(t, ok)
		assert.Empty(t, f.sender.singleCalls)
		assert.Empty(t, f.sender.multiCalls)
	})

	t.Run("falls back to legacy token", func(t *testing.T) {
		f := newServiceFixture(t)
		user := f.addUser(t, "u1")
		user.FCMToken = "legacy-tok"
		require.NoError(t, f.users.Update(user))

		ok := f.svc.SendPushImmediately(ctx, "u1", "Hi", "Body", nil)

		assert.True(t, ok)
		assert.Equal(t, []string{"legacy-tok"}, f.sender.singleCalls)
	})

	t.Run("unknown user fails", func(t *testing.T) {
		f := newServiceFixture(t)

		ok := f.svc.SendPushImmediately(ctx, "nobody", "Hi", "Body", nil)
		assert.False(t, ok)
	})

	t.Run("partial multicast success prunes unregistered tokens", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addUser(t, "u1")
		require.NoError(t, f.svc.RegisterToken("u1", "tok-a", "ANDROID"))
		require.NoError(t, f.svc.RegisterToken("u1", "tok-b", "ANDROID"))
		require.NoError(t, f.svc.RegisterToken("u1", "tok-c", "ANDROID"))

		f.sender.result = &fcm.MulticastResult{
			SuccessCount: 1,
			FailureCount: 2,
			Outcomes: []fcm.SendOutcome{
				{Token: "tok-a", Success: true},
				{Token: "tok-b", Permanent: true, Err: errors.New("unregistered")},
				{Token: "tok-c", Permanent: true, Err: errors.New("unregistered")},
			},
		}

		ok := f.svc.SendPushImmediately(ctx, "u1", "Hi", "Body", nil)
		assert.True(t, ok)

		tokens, err := f.tokenRepo.FindByUserID("u1")
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "tok-a", tokens[0].Token)
	})

	t.Run("transient failures keep tokens", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addUser(t, "u1")
		require.NoError(t, f.svc.RegisterToken("u1", "tok-a", "ANDROID"))
		require.NoError(t, f.svc.RegisterToken("u1", "tok-b", "ANDROID"))

		f.sender.result = &fcm.MulticastResult{
			SuccessCount: 0,
			FailureCount: 2,
			Outcomes: []fcm.SendOutcome{
				{Token: "tok-a", Err: errors.New("unavailable")},
				{Token: "tok-b", Err: errors.New("unavailable")},
			},
		}

		ok := f.svc.SendPushImmediately(ctx, "u1", "Hi", "Body", nil)
		assert.False(t, ok)

		tokens, err := f.tokenRepo.FindByUserID("u1")
		require.NoError(t, err)
		assert.Len(t, tokens, 2)
	})

	t.Run("total transport failure", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addUser(t, "u1")
		require.NoError(t, f.svc.RegisterToken("u1", "tok-a", "ANDROID"))

		f.sender.err = errors.New("fcm unreachable")

		ok := f.svc.SendPushImmediately(ctx, "u1", "Hi", "Body", nil)
		assert.False(t, ok)
	})
}

func TestDeriveKey(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)

	assert.Equal(t, deriveKey("u1", "Hi", "Body", now), deriveKey("u1", "Hi", "Body", now.Add(30*time.Second)))
	assert.NotEqual(t, deriveKey("u1", "Hi", "Body", now), deriveKey("u1", "Hi", "Body", now.Add(2*time.Minute)))
	assert.NotEqual(t, deriveKey("u1", "Hi", "Body", now), deriveKey("u2", "Hi", "Body", now))
	assert.NotEqual(t, deriveKey("u1", "Hi", "Body", now), deriveKey("u1", "Hi", "Other", now))
}
