package attendance

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sk-sanagustin/yep-id/internal/events"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/sk-sanagustin/yep-id/internal/notifier"
	"github.com/sk-sanagustin/yep-id/internal/qr"
	"github.com/sk-sanagustin/yep-id/internal/registry"
	"gorm.io/gorm"
)

var ErrAlreadyAttended = errors.New("already marked as attended for this event")

// ScanResult describes the participant behind a scan. It is filled in for
// successful scans and for ErrAlreadyAttended.
type ScanResult struct {
	Entry           models.Attendance
	Event           models.Event
	ParticipantName string
	DisplayID       string
	PointsEarned    int
	// Warning is set when the entry was recorded but the confirmation
	// could not be delivered.
	Warning string
}

// EventAttendee is one ledger entry joined with the participant it belongs to.
type EventAttendee struct {
	models.Attendance
	Name      string `json:"name"`
	DisplayID string `json:"id"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// SearchHit is a ledger entry matched by Search.
type SearchHit struct {
	models.Attendance
	ParticipantName  string `json:"user_name"`
	ParticipantEmail string `json:"user_email"`
	DisplayID        string `json:"user_id_display"`
	EventName        string `json:"event_name"`
	EventDate        string `json:"event_date"`
}

type Service struct {
	db       *gorm.DB
	notifier notifier.Notifier
	now      func() time.Time
}

// NewService returns the attendance ledger. n may be nil, in which case no
// confirmations are sent.
func NewService(db *gorm.DB, n notifier.Notifier) *Service {
	return &Service{db: db, notifier: n, now: time.Now}
}

// RecordScan records that the participant encoded in qrData attended the
// event. The points awarded are the event's points at the moment of the
// scan. A second scan of the same participant for the same event returns
// ErrAlreadyAttended and writes nothing.
func (s *Service) RecordScan(ctx context.Context, eventID, qrData string) (ScanResult, error) {
	var (
		result      ScanResult
		participant models.Participant
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := events.Find(tx, eventID)
		if err != nil {
			return err
		}
		result.Event = *event

		payload, err := qr.Decode(qrData)
		if err != nil {
			return err
		}

		if err := tx.Where("id = ?", payload.ParticipantID).First(&participant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return registry.ErrParticipantNotFound
			}
			return err
		}
		result.ParticipantName = participant.Name
		result.DisplayID = participant.DisplayID

		var existing int64
		if err := tx.Model(&models.Attendance{}).
			Where("event_id = ? AND participant_id = ?", event.ID, participant.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyAttended
		}

		now := s.now().UTC()
		entry := models.Attendance{
			ID:            uuid.NewString(),
			EventID:       event.ID,
			ParticipantID: participant.ID,
			EventYear:     event.Year,
			PointsEarned:  event.Points,
			AttendedAt:    now,
			ScannedAt:     now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyAttended
			}
			return err
		}

		result.Entry = entry
		result.PointsEarned = entry.PointsEarned
		return nil
	})
	if err != nil {
		return result, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAttendance(participant, result.Event, result.PointsEarned); err != nil {
			log.Printf("Attendance confirmation for %s failed: %v", participant.DisplayID, err)
			result.Warning = "Attendance recorded, but the confirmation could not be sent."
		}
	}

	return result, nil
}

// ByEvent lists the event's entries, most recent first.
func (s *Service) ByEvent(ctx context.Context, eventID string) ([]EventAttendee, error) {
	var rows []EventAttendee
	err := s.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Select("attendances.*, participants.name AS name, participants.display_id AS display_id, participants.email AS email, participants.phone AS phone").
		Joins("LEFT JOIN participants ON participants.id = attendances.participant_id").
		Where("attendances.event_id = ?", eventID).
		Order("attendances.attended_at DESC").
		Scan(&rows).Error
	return rows, err
}

// ByParticipant returns a participant's entries, most recent first.
func (s *Service) ByParticipant(ctx context.Context, participantID string) ([]models.Attendance, error) {
	var entries []models.Attendance
	err := s.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("attended_at DESC").
		Find(&entries).Error
	return entries, err
}

// Search matches entries by participant name or email or by event name.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	var hits []SearchHit
	query = strings.TrimSpace(query)
	if query == "" {
		return hits, nil
	}
	if limit <= 0 {
		limit = 50
	}

	like := "%" + query + "%"
	err := s.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Select("attendances.*, participants.name AS participant_name, participants.email AS participant_email, participants.display_id AS display_id, events.name AS event_name, events.date AS event_date").
		Joins("LEFT JOIN participants ON participants.id = attendances.participant_id").
		Joins("LEFT JOIN events ON events.id = attendances.event_id").
		Where("participants.name LIKE ? OR participants.email LIKE ? OR events.name LIKE ?", like, like, like).
		Order("attendances.attended_at DESC").
		Limit(limit).
		Scan(&hits).Error
	return hits, err
}
