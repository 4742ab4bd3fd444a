package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"time"

	"carworld-backend/internal/notification/domain"
	"carworld-backend/internal/notification/repository"
	userrepo "carworld-backend/internal/user/repository"
	"carworld-backend/pkg/fcm"
	"carworld-backend/pkg/idempotency"
)

// PushSender is the slice of the FCM client the service needs. Satisfied
// by *fcm.Client; stubbed in tests.
type PushSender interface {
	SendToDevice(ctx context.Context, token string, notification fcm.NotificationData) error
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) (*fcm.MulticastResult, error)
}

// Service handles device token registration and queued push delivery.
// QueuePush is fire-and-forget: it never surfaces an error to the caller,
// the only observable signal is the queue row itself.
type Service struct {
	userRepo  userrepo.UserRepository
	tokenRepo repository.DeviceTokenRepository
	queueRepo repository.NotificationQueueRepository
	locker    idempotency.Locker
	sender    PushSender

	sendTimeout time.Duration
	nowFunc     func() time.Time
}

// NewService creates a notification service.
func NewService(
	userRepo userrepo.UserRepository,
	tokenRepo repository.DeviceTokenRepository,
	queueRepo repository.NotificationQueueRepository,
	locker idempotency.Locker,
	sender PushSender,
) *Service {
	return &Service{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		queueRepo:   queueRepo,
		locker:      locker,
		sender:      sender,
		sendTimeout: 30 * time.Second,
		nowFunc:     time.Now,
	}
}

// RegisterToken registers a device token for a user (multi-device
// support). Re-registering an existing token reassigns its owner and
// platform, which covers app reinstalls and device handoffs. Safe to call
// repeatedly with the same arguments.
func (s *Service) RegisterToken(userID, token, platform string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}

	normalized := domain.ParsePlatform(platform)

	existing, err := s.tokenRepo.FindByToken(token)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.UserID = userID
		existing.Platform = normalized
		if err := s.tokenRepo.Save(existing); err != nil {
			return err
		}
	} else {
		if err := s.tokenRepo.Save(&domain.DeviceToken{
			UserID:   userID,
			Token:    token,
			Platform: normalized,
		}); err != nil {
			return err
		}
	}

	// Keep the legacy single-token field on the user in sync for callers
	// that predate multi-device support.
	user.FCMToken = token
	if err := s.userRepo.Update(user); err != nil {
		return err
	}

	log.Printf("[Notification] Registered device token for user %s", userID)
	return nil
}

// RegisterDevice is the legacy single-device entry point.
func (s *Service) RegisterDevice(userID, token string) error {
	return s.RegisterToken(userID, token, string(domain.PlatformAndroid))
}

// UnregisterToken deletes a device token. Deleting an unknown token is
// not an error.
func (s *Service) UnregisterToken(token string) error {
	if err := s.tokenRepo.DeleteToken(token); err != nil {
		return err
	}
	log.Printf("[Notification] Unregistered device token")
	return nil
}

// UnregisterDevice is the legacy counterpart of RegisterDevice. It also
// clears the user's legacy token field when it matches.
func (s *Service) UnregisterDevice(userID, token string) error {
	if err := s.UnregisterToken(token); err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil || user == nil {
		return err
	}
	if token != "" && user.FCMToken == token {
		user.FCMToken = ""
		return s.userRepo.Update(user)
	}
	return nil
}

// SendToUser queues a push notification with a derived dedup key.
func (s *Service) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) {
	s.QueuePush(ctx, userID, title, body, data, "")
}

// QueuePush queues a push notification with deduplication. When the
// caller supplies no idempotency key, one is derived from the target
// user, the message content, and a one-minute time bucket, so identical
// messages to the same user within the same minute collapse to one row.
// Duplicates are suppressed silently; failures are logged, never
// returned.
func (s *Service) QueuePush(ctx context.Context, userID, title, body string, data map[string]string, idempotencyKey string) {
	key := idempotencyKey
	if key == "" {
		key = deriveKey(userID, title, body, s.nowFunc())
	}

	if !s.locker.TryLock(ctx, key) {
		log.Printf("[Notification] Duplicate push suppressed, key: %s", key)
		return
	}

	var metadata string
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			log.Printf("[Notification] Failed to encode push metadata for user %s: %v", userID, err)
			return
		}
		metadata = string(encoded)
	}

	item := &domain.NotificationQueue{
		UserID:      userID,
		Title:       title,
		Body:        body,
		Metadata:    metadata,
		Status:      domain.StatusPending,
		Attempts:    0,
		NextRetryAt: s.nowFunc(), // ready immediately
	}
	if err := s.queueRepo.Save(item); err != nil {
		log.Printf("[Notification] Failed to queue push for user %s: %v", userID, err)
		return
	}

	log.Printf("[Notification] Queued push for user %s", userID)
}

// SendPushImmediately delivers a push to every device a user has,
// bypassing the queue. The processor is its only intended caller.
//
// A user with no devices counts as success; there is simply no one to
// notify. Tokens that fail for permanent reasons (unregistered, rejected
// as invalid) are pruned from the store; transient failures keep their
// tokens for the next cycle. Returns false only on total transport
// failure.
func (s *Service) SendPushImmediately(ctx context.Context, userID, title, body string, data map[string]string) bool {
	if s.sender == nil {
		log.Printf("[Notification] Push transport not configured, cannot send to user %s", userID)
		return false
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		log.Printf("[Notification] Failed to look up user %s: %v", userID, err)
		return false
	}
	if user == nil {
		return false
	}

	tokens, err := s.tokenRepo.FindByUserID(userID)
	if err != nil {
		log.Printf("[Notification] Failed to load tokens for user %s: %v", userID, err)
		return false
	}

	notification := fcm.NotificationData{
		Title: title,
		Body:  body,
		Data:  data,
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if len(tokens) == 0 {
		// Fall back to the legacy single-token field.
		if user.FCMToken != "" {
			if err := s.sender.SendToDevice(sendCtx, user.FCMToken, notification); err != nil {
				log.Printf("[Notification] Failed to send to legacy token for user %s: %v", userID, err)
			}
		}
		return true
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	result, err := s.sender.SendToDevices(sendCtx, tokenStrings, notification)
	if err != nil {
		log.Printf("[Notification] Error sending push to user %s: %v", userID, err)
		return false
	}

	log.Printf("[Notification] Sent push to user %s: %d successes, %d failures",
		userID, result.SuccessCount, result.FailureCount)

	if result.FailureCount > 0 {
		s.pruneInvalidTokens(result.Outcomes)
	}

	return result.SuccessCount > 0 || result.FailureCount < len(tokenStrings)
}

// pruneInvalidTokens deletes tokens whose failure is permanent. Transient
// failures keep their tokens intact for the next cycle.
func (s *Service) pruneInvalidTokens(outcomes []fcm.SendOutcome) {
	for _, outcome := range outcomes {
		if outcome.Success || !outcome.Permanent {
			continue
		}
		if err := s.tokenRepo.DeleteToken(outcome.Token); err != nil {
			log.Printf("[Notification] Failed to delete invalid token: %v", err)
		}
	}
}

// deriveKey builds the content-based dedup key:
// push:<userID>:<hash(title+body)>:<unix minute>.
func deriveKey(userID, title, body string, now time.Time) string {
	h := fnv.New32a()
	h.Write([]byte(title + body))
	bucket := now.Unix() / 60
	return fmt.Sprintf("push:%s:%d:%d", userID, h.Sum32(), bucket)
}
