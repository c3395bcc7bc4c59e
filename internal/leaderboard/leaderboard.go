package leaderboard

import (
	"context"

	"github.com/sk-sanagustin/yep-id/internal/models"
	"gorm.io/gorm"
)

// Standing is one participant's position on the leaderboard.
type Standing struct {
	ParticipantID string `json:"user_id"`
	DisplayID     string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Zone          string `json:"zone"`
	YouthAgeGroup string `json:"youth_age_group"`
	TotalPoints   int    `json:"total_points"`
	EventCount    int    `json:"events_attended"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Compute sums the points each participant earned. When year is not empty
// only entries recorded for events of that year count. Participants without
// points are left out. Ties on points go to whoever attended more events,
// then to the lower display number.
func (s *Service) Compute(ctx context.Context, year string) ([]Standing, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Select(`participants.id AS participant_id,
			participants.display_id AS display_id,
			participants.name AS name,
			participants.email AS email,
			participants.zone AS zone,
			participants.youth_age_group AS youth_age_group,
			SUM(attendances.points_earned) AS total_points,
			COUNT(attendances.id) AS event_count`).
		Joins("JOIN participants ON participants.id = attendances.participant_id")

	if year != "" {
		q = q.Where("attendances.event_year = ?", year)
	}

	standings := []Standing{}
	err := q.Group("participants.id").
		Having("SUM(attendances.points_earned) > 0").
		Order("total_points DESC, event_count DESC, CAST(SUBSTR(participants.display_id, 6) AS INTEGER) ASC, participants.display_id ASC").
		Scan(&standings).Error
	return standings, err
}

// AvailableYears lists the years that have events, newest first.
func (s *Service) AvailableYears(ctx context.Context) ([]string, error) {
	years := []string{}
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("year IS NOT NULL AND year != ''").
		Distinct().
		Order("year DESC").
		Pluck("year", &years).Error
	return years, err
}
