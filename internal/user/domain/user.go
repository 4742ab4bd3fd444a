package domain

import "time"

type User struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"uniqueIndex"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	// Legacy single-device token, kept in sync by token registration for
	// callers that predate multi-device support.
	FCMToken  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
