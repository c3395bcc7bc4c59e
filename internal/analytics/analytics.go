package analytics

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"github.com/sk-sanagustin/yep-id/internal/models"
	"gorm.io/gorm"
)

type Totals struct {
	Participants        int64   `json:"total_users"`
	Events              int64   `json:"total_events"`
	UpcomingEvents      int64   `json:"active_events"`
	Attendance          int64   `json:"total_attendance"`
	Points              int64   `json:"total_points"`
	AverageAttendance   float64 `json:"avg_attendance"`
	RecentRegistrations int64   `json:"recent_registrations"`
}

type Demographics struct {
	AgeGroups       map[string]int64 `json:"age_groups"`
	Zones           map[string]int64 `json:"zones"`
	Classifications map[string]int64 `json:"classifications"`
	Sex             map[string]int64 `json:"sex_breakdown"`
}

type EventStat struct {
	EventID         string  `json:"event_id"`
	Name            string  `json:"event_name"`
	Date            string  `json:"event_date"`
	Points          int     `json:"event_points"`
	Capacity        *int    `json:"event_capacity"`
	AttendanceCount int64   `json:"attendance_count"`
	AttendanceRate  float64 `json:"attendance_rate"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type Report struct {
	Totals       Totals       `json:"stats"`
	Demographics Demographics `json:"demographics"`
	Events       []EventStat  `json:"events_data"`
	MonthlyTrend []MonthCount `json:"monthly_trends"`
}

const trendMonths = 12

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) Report(ctx context.Context) (*Report, error) {
	var (
		report Report
		err    error
	)

	if report.Events, err = s.EventStats(ctx); err != nil {
		return nil, err
	}
	if report.Totals, err = s.Totals(ctx, report.Events); err != nil {
		return nil, err
	}
	if report.Demographics, err = s.Demographics(ctx); err != nil {
		return nil, err
	}
	if report.MonthlyTrend, err = s.MonthlyTrend(ctx); err != nil {
		return nil, err
	}

	return &report, nil
}

// Totals computes the dashboard counters. The per-event stats are used for
// the average attendance, which only considers events somebody attended.
func (s *Service) Totals(ctx context.Context, stats []EventStat) (Totals, error) {
	var t Totals
	db := s.db.WithContext(ctx)
	now := s.now()

	if err := db.Model(&models.Participant{}).Count(&t.Participants).Error; err != nil {
		return t, err
	}
	if err := db.Model(&models.Event{}).Count(&t.Events).Error; err != nil {
		return t, err
	}
	if err := db.Model(&models.Event{}).
		Where("date >= ?", now.Format(time.DateOnly)).
		Count(&t.UpcomingEvents).Error; err != nil {
		return t, err
	}
	if err := db.Model(&models.Attendance{}).Count(&t.Attendance).Error; err != nil {
		return t, err
	}
	if err := db.Model(&models.Attendance{}).
		Select("COALESCE(SUM(points_earned), 0)").
		Scan(&t.Points).Error; err != nil {
		return t, err
	}
	if err := db.Model(&models.Participant{}).
		Where("registered_at >= ?", now.UTC().AddDate(0, 0, -7)).
		Count(&t.RecentRegistrations).Error; err != nil {
		return t, err
	}

	var attended, total int64
	for _, e := range stats {
		if e.AttendanceCount > 0 {
			attended++
			total += e.AttendanceCount
		}
	}
	if attended > 0 {
		t.AverageAttendance = round1(float64(total) / float64(attended))
	}

	return t, nil
}

func (s *Service) Demographics(ctx context.Context) (Demographics, error) {
	var (
		d   Demographics
		err error
	)
	if d.AgeGroups, err = s.countBy(ctx, "youth_age_group"); err != nil {
		return d, err
	}
	if d.Zones, err = s.countBy(ctx, "zone"); err != nil {
		return d, err
	}
	if d.Classifications, err = s.countBy(ctx, "youth_classification"); err != nil {
		return d, err
	}
	if d.Sex, err = s.countBy(ctx, "sex"); err != nil {
		return d, err
	}
	return d, nil
}

// countBy groups participants by a profile column. column is never user input.
func (s *Service) countBy(ctx context.Context, column string) (map[string]int64, error) {
	var rows []struct {
		Value string
		Count int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Participant{}).
		Select(column + " AS value, COUNT(*) AS count").
		Where(column + " IS NOT NULL AND " + column + " != ''").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Value] = r.Count
	}
	return counts, nil
}

// EventStats lists every event with its attendance, latest date first. The
// rate is a percentage of capacity and stays 0 for events without one.
func (s *Service) EventStats(ctx context.Context) ([]EventStat, error) {
	stats := []EventStat{}
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Select(`events.id AS event_id,
			events.name AS name,
			events.date AS date,
			events.points AS points,
			events.capacity AS capacity,
			COUNT(attendances.id) AS attendance_count`).
		Joins("LEFT JOIN attendances ON attendances.event_id = events.id").
		Group("events.id").
		Order("events.date DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	for i := range stats {
		if c := stats[i].Capacity; c != nil && *c > 0 {
			stats[i].AttendanceRate = round1(float64(stats[i].AttendanceCount) / float64(*c) * 100)
		}
	}
	return stats, nil
}

// MonthlyTrend counts entries per calendar month (UTC) for the most recent
// twelve months that have any, newest first.
func (s *Service) MonthlyTrend(ctx context.Context) ([]MonthCount, error) {
	var times []time.Time
	if err := s.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Pluck("attended_at", &times).Error; err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, t := range times {
		counts[t.UTC().Format("2006-01")]++
	}

	trend := make([]MonthCount, 0, len(counts))
	for month, n := range counts {
		trend = append(trend, MonthCount{Month: month, Count: n})
	}
	slices.SortFunc(trend, func(a, b MonthCount) int {
		return cmp.Compare(b.Month, a.Month)
	})
	if len(trend) > trendMonths {
		trend = trend[:trendMonths]
	}
	return trend, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
