package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("please fill in event name and date")
)

// Fields is the raw event form. Points and capacity arrive as text and are
// coerced rather than rejected.
type Fields struct {
	Name        string
	Description string
	Date        string
	Time        string
	Points      string
	Category    string
	Capacity    string
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// YearOf returns the leading YYYY segment of a YYYY-MM-DD date.
func YearOf(date string) string {
	year, _, _ := strings.Cut(strings.TrimSpace(date), "-")
	return year
}

// ParsePoints coerces a points value; anything unparsable is 0.
func ParsePoints(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// ParseCapacity coerces a capacity value; empty or unparsable means no limit.
func ParseCapacity(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &n
}

func (s *Service) Create(ctx context.Context, f Fields) (*models.Event, error) {
	name := strings.TrimSpace(f.Name)
	date := strings.TrimSpace(f.Date)
	if name == "" || date == "" {
		return nil, ErrInvalidEvent
	}

	event := models.Event{
		ID:          uuid.NewString(),
		Name:        name,
		Year:        YearOf(date),
		Description: strings.TrimSpace(f.Description),
		Date:        date,
		Time:        strings.TrimSpace(f.Time),
		Points:      ParsePoints(f.Points),
		Category:    strings.TrimSpace(f.Category),
		Capacity:    ParseCapacity(f.Capacity),
		CreatedAt:   s.now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	return &event, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Event, error) {
	return Find(s.db.WithContext(ctx), id)
}

// Find loads an event through db, which may be a transaction.
func Find(db *gorm.DB, id string) (*models.Event, error) {
	var event models.Event
	if err := db.Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// List returns the newest years first, newest events first within a year.
func (s *Service) List(ctx context.Context) ([]models.Event, error) {
	var list []models.Event
	err := s.db.WithContext(ctx).Order("year DESC, created_at DESC").Find(&list).Error
	return list, err
}

// Delete removes the event and every attendance entry recorded for it.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := Find(tx, id); err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Event{}).Error
	})
}

func (s *Service) MarkReminderSent(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Update("reminder_sent", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Event, error) {
	var list []models.Event
	query = strings.TrimSpace(query)
	if query == "" {
		return list, nil
	}
	if limit <= 0 {
		limit = 50
	}

	like := "%" + query + "%"
	err := s.db.WithContext(ctx).
		Where("name LIKE ? OR description LIKE ? OR category LIKE ?", like, like, like).
		Order("date DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
