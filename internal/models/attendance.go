package models

import (
	"time"
)

// Attendance is one ledger entry. The composite unique index keeps at most
// one entry per (event, participant) pair.
type Attendance struct {
	ID            string    `json:"attendance_id" gorm:"primaryKey"`
	EventID       string    `json:"event_id" gorm:"not null;uniqueIndex:idx_event_participant"`
	ParticipantID string    `json:"user_id" gorm:"not null;uniqueIndex:idx_event_participant;index"`
	EventYear     string    `json:"event_year" gorm:"index"`
	PointsEarned  int       `json:"points_earned" gorm:"default:0"`
	AttendedAt    time.Time `json:"attendance_date" gorm:"not null;index"`
	ScannedAt     time.Time `json:"scan_time"`
}
