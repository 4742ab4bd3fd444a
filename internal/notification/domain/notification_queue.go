package domain

import "time"

// NotificationStatus is the lifecycle state of a queued notification.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "PENDING"
	StatusSent    NotificationStatus = "SENT"
	StatusFailed  NotificationStatus = "FAILED"
)

// NotificationQueue is one durable unit of pending-to-send push work.
// Rows are created PENDING and only ever move forward: PENDING -> SENT
// on a successful attempt, or PENDING -> FAILED once retries run out.
// SENT and FAILED are terminal.
type NotificationQueue struct {
	ID          string             `json:"id" gorm:"primaryKey"`
	UserID      string             `json:"user_id" gorm:"index;not null"`
	Title       string             `json:"title"`
	Body        string             `json:"body" gorm:"type:text"`
	Metadata    string             `json:"metadata" gorm:"type:text"` // JSON-encoded data payload
	Status      NotificationStatus `json:"status" gorm:"index;not null"`
	Attempts    int                `json:"attempts"`
	NextRetryAt time.Time          `json:"next_retry_at" gorm:"index"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (NotificationQueue) TableName() string {
	return "notification_queue"
}
