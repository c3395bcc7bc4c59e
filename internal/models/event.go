package models

import (
	"time"
)

type Event struct {
	ID           string    `json:"event_id" gorm:"primaryKey"`
	Name         string    `json:"event_name" gorm:"not null"`
	Year         string    `json:"event_year" gorm:"not null;index"`
	Description  string    `json:"event_description"`
	Date         string    `json:"event_date"`
	Time         string    `json:"event_time"`
	Points       int       `json:"event_points" gorm:"default:0"`
	Category     string    `json:"event_category"`
	Capacity     *int      `json:"event_capacity"`
	ReminderSent bool      `json:"reminder_sent" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_date"`
}
