package domain

import (
	"strings"
	"time"
)

// Platform identifies the device family a push token belongs to.
type Platform string

const (
	PlatformAndroid Platform = "ANDROID"
	PlatformIOS     Platform = "IOS"
	PlatformWeb     Platform = "WEB"
)

// ParsePlatform normalizes a platform string, defaulting to ANDROID
// for anything unrecognized.
func ParsePlatform(s string) Platform {
	switch Platform(strings.ToUpper(s)) {
	case PlatformIOS:
		return PlatformIOS
	case PlatformWeb:
		return PlatformWeb
	default:
		return PlatformAndroid
	}
}

// DeviceToken represents one registered push token. A user may own several
// (multi-device); the token value itself is globally unique, so
// re-registering an existing token reassigns ownership.
type DeviceToken struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Token     string    `json:"-" gorm:"uniqueIndex;not null;size:512"` // Don't expose token in JSON
	Platform  Platform  `json:"platform" gorm:"size:20"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DeviceToken) TableName() string {
	return "user_device_tokens"
}
