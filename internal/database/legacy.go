package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sk-sanagustin/yep-id/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	legacyUsersFile      = "users_data.json"
	legacyEventsFile     = "events_data.json"
	legacyAttendanceFile = "attendance_data.json"
)

type ImportReport struct {
	Participants int
	Events       int
	Attendances  int
	// Skipped counts rows with an ID that could not be inserted, such as a
	// blank or repeated email, or attendance for a participant that was
	// never imported.
	Skipped int
}

// legacyInt accepts both JSON numbers and numeric strings.
type legacyInt int

func (n *legacyInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		*n = 0
		return nil
	}
	*n = legacyInt(v)
	return nil
}

type legacyUser struct {
	UserID           string `json:"user_id"`
	ID               string `json:"id"`
	RegistrationDate string `json:"registration_date"`
	models.ProfileFields
}

type legacyEvent struct {
	EventID     string    `json:"event_id"`
	Name        string    `json:"event_name"`
	Year        string    `json:"event_year"`
	Description string    `json:"event_description"`
	Date        string    `json:"event_date"`
	Time        string    `json:"event_time"`
	Points      legacyInt `json:"event_points"`
	CreatedDate string    `json:"created_date"`
}

type legacyAttendance struct {
	AttendanceID   string    `json:"attendance_id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	EventYear      string    `json:"event_year"`
	PointsEarned   legacyInt `json:"points_earned"`
	AttendanceDate string    `json:"attendance_date"`
}

// ImportLegacyJSON loads the JSON files written by the previous version of
// the system. It runs only against an empty participant table. All three
// files are decoded before anything is written and the rows are inserted in
// a single transaction, so a failed import leaves the store empty and the
// next run starts over.
func ImportLegacyJSON(db *gorm.DB, dir string) (ImportReport, error) {
	var report ImportReport

	var count int64
	if err := db.Model(&models.Participant{}).Count(&count).Error; err != nil {
		return report, err
	}
	if count > 0 {
		return report, nil
	}

	var (
		users   []legacyUser
		events  []legacyEvent
		records []legacyAttendance
	)
	if err := readLegacyFile(filepath.Join(dir, legacyUsersFile), &users); err != nil {
		return report, err
	}
	if err := readLegacyFile(filepath.Join(dir, legacyEventsFile), &events); err != nil {
		return report, err
	}
	if err := readLegacyFile(filepath.Join(dir, legacyAttendanceFile), &records); err != nil {
		return report, err
	}

	now := time.Now().UTC()
	err := db.Transaction(func(tx *gorm.DB) error {
		imported := make(map[string]bool, len(users))
		for _, u := range users {
			if u.UserID == "" {
				continue
			}
			p := models.Participant{
				ID:            u.UserID,
				DisplayID:     u.ID,
				ProfileFields: u.ProfileFields,
				RegisteredAt:  ParseLegacyTime(u.RegistrationDate, now),
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
			if res.Error != nil {
				return fmt.Errorf("import participant %s: %w", u.UserID, res.Error)
			}
			if res.RowsAffected == 0 {
				if !imported[u.UserID] {
					log.Printf("Legacy import: skipped participant %s (%q), email %q is blank or already taken",
						u.UserID, u.Name, u.Email)
				}
				report.Skipped++
				continue
			}
			imported[u.UserID] = true
			report.Participants++
		}

		knownEvents := make(map[string]bool, len(events))
		for _, e := range events {
			if e.EventID == "" {
				continue
			}
			ev := models.Event{
				ID:          e.EventID,
				Name:        e.Name,
				Year:        e.Year,
				Description: e.Description,
				Date:        e.Date,
				Time:        e.Time,
				Points:      int(e.Points),
				CreatedAt:   ParseLegacyTime(e.CreatedDate, now),
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ev)
			if res.Error != nil {
				return fmt.Errorf("import event %s: %w", e.EventID, res.Error)
			}
			knownEvents[e.EventID] = true
			report.Events += int(res.RowsAffected)
		}

		for _, r := range records {
			if r.AttendanceID == "" || r.EventID == "" || r.UserID == "" {
				continue
			}
			if !imported[r.UserID] || !knownEvents[r.EventID] {
				log.Printf("Legacy import: skipped attendance %s, participant %s or event %s was not imported",
					r.AttendanceID, r.UserID, r.EventID)
				report.Skipped++
				continue
			}
			attendedAt := ParseLegacyTime(r.AttendanceDate, now)
			a := models.Attendance{
				ID:            r.AttendanceID,
				EventID:       r.EventID,
				ParticipantID: r.UserID,
				EventYear:     r.EventYear,
				PointsEarned:  int(r.PointsEarned),
				AttendedAt:    attendedAt,
				ScannedAt:     attendedAt,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&a)
			if res.Error != nil {
				return fmt.Errorf("import attendance %s: %w", r.AttendanceID, res.Error)
			}
			if res.RowsAffected == 0 {
				report.Skipped++
				continue
			}
			report.Attendances++
		}
		return nil
	})
	if err != nil {
		return ImportReport{}, err
	}
	return report, nil
}

func readLegacyFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseLegacyTime parses the ISO-8601 variants the old system wrote and
// falls back to def when none match.
func ParseLegacyTime(s string, def time.Time) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return def
}
