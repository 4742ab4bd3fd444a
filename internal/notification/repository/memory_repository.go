package repository

import (
	"sort"
	"sync"
	"time"

	"carworld-backend/internal/notification/domain"

	"github.com/google/uuid"
)

// MemoryDeviceTokenRepository is an in-memory DeviceTokenRepository for
// tests and local development.
type MemoryDeviceTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]domain.DeviceToken // keyed by token value
}

func NewMemoryDeviceTokenRepository() *MemoryDeviceTokenRepository {
	return &MemoryDeviceTokenRepository{
		tokens: make(map[string]domain.DeviceToken),
	}
}

func (r *MemoryDeviceTokenRepository) Save(token *domain.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.New().String()
		token.CreatedAt = time.Now()
	}
	token.UpdatedAt = time.Now()
	r.tokens[token.Token] = *token
	return nil
}

func (r *MemoryDeviceTokenRepository) FindByToken(token string) (*domain.DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.tokens[token]; ok {
		found := t
		return &found, nil
	}
	return nil, nil
}

func (r *MemoryDeviceTokenRepository) FindByUserID(userID string) ([]domain.DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.DeviceToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryDeviceTokenRepository) DeleteToken(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
	return nil
}

func (r *MemoryDeviceTokenRepository) DeleteByUserID(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

// MemoryNotificationQueueRepository is an in-memory
// NotificationQueueRepository for tests and local development.
type MemoryNotificationQueueRepository struct {
	mu    sync.RWMutex
	items map[string]domain.NotificationQueue

	// SaveErr, when set, makes Save fail for the row with the matching ID.
	// Lets tests exercise per-row persistence failures.
	SaveErr   error
	SaveErrID string
}

func NewMemoryNotificationQueueRepository() *MemoryNotificationQueueRepository {
	return &MemoryNotificationQueueRepository{
		items: make(map[string]domain.NotificationQueue),
	}
}

func (r *MemoryNotificationQueueRepository) Save(item *domain.NotificationQueue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.SaveErr != nil && item.ID == r.SaveErrID {
		return r.SaveErr
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
		item.CreatedAt = time.Now()
	}
	item.UpdatedAt = time.Now()
	r.items[item.ID] = *item
	return nil
}

func (r *MemoryNotificationQueueRepository) FindDue(now time.Time, limit int) ([]domain.NotificationQueue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []domain.NotificationQueue
	for _, item := range r.items {
		if item.Status == domain.StatusPending && !item.NextRetryAt.After(now) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRetryAt.Before(due[j].NextRetryAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *MemoryNotificationQueueRepository) FindByID(id string) (*domain.NotificationQueue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if item, ok := r.items[id]; ok {
		found := item
		return &found, nil
	}
	return nil, nil
}

func (r *MemoryNotificationQueueRepository) CountByStatus(status domain.NotificationStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, item := range r.items {
		if item.Status == status {
			count++
		}
	}
	return count, nil
}

// All returns a snapshot of every row, for test assertions.
func (r *MemoryNotificationQueueRepository) All() []domain.NotificationQueue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.NotificationQueue, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, item)
	}
	return result
}
