package repository

import (
	"sync"
	"time"

	userdomain "carworld-backend/internal/user/domain"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory UserRepository for tests and local
// development.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]userdomain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]userdomain.User),
	}
}

func (r *MemoryUserRepository) Create(user *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) FindByID(id string) (*userdomain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if user, ok := r.users[id]; ok {
		found := user
		return &found, nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) Update(user *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}
