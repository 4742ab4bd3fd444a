package repository

import (
	"errors"
	"time"

	"carworld-backend/internal/notification/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceTokenRepository defines the interface for push token operations
type DeviceTokenRepository interface {
	Save(token *domain.DeviceToken) error
	FindByToken(token string) (*domain.DeviceToken, error)
	FindByUserID(userID string) ([]domain.DeviceToken, error)
	DeleteToken(token string) error
	DeleteByUserID(userID string) error
}

// deviceTokenRepository implements DeviceTokenRepository interface
type deviceTokenRepository struct {
	db *gorm.DB
}

// NewDeviceTokenRepository creates a new instance of deviceTokenRepository
func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{
		db: db,
	}
}

func (r *deviceTokenRepository) Save(token *domain.DeviceToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
		token.CreatedAt = time.Now()
	}
	token.UpdatedAt = time.Now()
	return r.db.Save(token).Error
}

func (r *deviceTokenRepository) FindByToken(token string) (*domain.DeviceToken, error) {
	var deviceToken domain.DeviceToken
	err := r.db.Where("token = ?", token).First(&deviceToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deviceToken, nil
}

func (r *deviceTokenRepository) FindByUserID(userID string) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	err := r.db.Where("user_id = ?", userID).Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *deviceTokenRepository) DeleteToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&domain.DeviceToken{}).Error
}

func (r *deviceTokenRepository) DeleteByUserID(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&domain.DeviceToken{}).Error
}
