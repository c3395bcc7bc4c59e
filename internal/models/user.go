package models

import (
	"time"

	"gorm.io/gorm"
)

// StaffUser is an organizer who signed in through Discord. The built-in
// admin account has no row.
type StaffUser struct {
	gorm.Model
	DiscordID   string `gorm:"uniqueIndex"`
	Username    string
	Email       string
	Avatar      string
	LastLoginAt time.Time
}

// Subject is the session subject stored in the JWT.
func (u StaffUser) Subject() string {
	return StaffSubjectPrefix + u.DiscordID
}

const StaffSubjectPrefix = "discord:"
