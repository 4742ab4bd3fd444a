package repository

import (
	"errors"
	"time"

	userdomain "carworld-backend/internal/user/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository is the slice of user persistence the notification
// subsystem depends on.
type UserRepository interface {
	Create(user *userdomain.User) error
	FindByID(id string) (*userdomain.User, error)
	Update(user *userdomain.User) error
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of userRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Create(user *userdomain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	return r.db.Create(user).Error
}

func (r *userRepository) FindByID(id string) (*userdomain.User, error) {
	var user userdomain.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(user *userdomain.User) error {
	user.UpdatedAt = time.Now()
	return r.db.Save(user).Error
}
