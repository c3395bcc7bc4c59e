package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey lets a scanning station call the attendance endpoints without an
// interactive admin session.
type APIKey struct {
	gorm.Model
	Owner      string     `json:"owner" gorm:"index"`
	Key        string     `json:"key" gorm:"uniqueIndex"`
	Name       string     `json:"name"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
