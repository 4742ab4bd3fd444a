package repository

import (
	"time"

	"carworld-backend/internal/notification/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationQueueRepository defines the persistence contract for queued
// notifications. Each row is its own unit of work; no cross-row
// transactions are needed.
type NotificationQueueRepository interface {
	// Save inserts or updates a single queue row.
	Save(item *domain.NotificationQueue) error
	// FindDue returns up to limit PENDING rows whose next_retry_at has
	// passed, oldest-due first.
	FindDue(now time.Time, limit int) ([]domain.NotificationQueue, error)
	FindByID(id string) (*domain.NotificationQueue, error)
	CountByStatus(status domain.NotificationStatus) (int64, error)
}

// notificationQueueRepository implements NotificationQueueRepository
type notificationQueueRepository struct {
	db *gorm.DB
}

// NewNotificationQueueRepository creates a new instance of notificationQueueRepository
func NewNotificationQueueRepository(db *gorm.DB) NotificationQueueRepository {
	return &notificationQueueRepository{
		db: db,
	}
}

func (r *notificationQueueRepository) Save(item *domain.NotificationQueue) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
		item.CreatedAt = time.Now()
	}
	item.UpdatedAt = time.Now()
	return r.db.Save(item).Error
}

func (r *notificationQueueRepository) FindDue(now time.Time, limit int) ([]domain.NotificationQueue, error) {
	var items []domain.NotificationQueue
	err := r.db.
		Where("status = ? AND next_retry_at <= ?", domain.StatusPending, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *notificationQueueRepository) FindByID(id string) (*domain.NotificationQueue, error) {
	var item domain.NotificationQueue
	err := r.db.Where("id = ?", id).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *notificationQueueRepository) CountByStatus(status domain.NotificationStatus) (int64, error) {
	var count int64
	err := r.db.Model(&domain.NotificationQueue{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
