package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail      = errors.New("this email is already registered")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidAttributes   = errors.New("invalid registration")
)

// Service is the identity store. Writes that assign display IDs are
// serialized by mu so that the count-based numbering below cannot hand the
// same number to two participants served by this process.
type Service struct {
	db       *gorm.DB
	validate *validator.Validate
	mu       sync.Mutex
	now      func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		validate: validator.New(),
		now:      time.Now,
	}
}

// FormatDisplayID returns the human-facing ID for the n-th participant.
func FormatDisplayID(n int) string {
	return fmt.Sprintf("%s%03d", models.DisplayIDPrefix, n)
}

// DisplayNumber extracts the numeric suffix of a Youth### display ID.
func DisplayNumber(displayID string) (int, bool) {
	return numericSuffix(displayID, models.DisplayIDPrefix)
}

func numericSuffix(displayID, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(displayID, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func normalize(attrs models.ProfileFields) models.ProfileFields {
	fields := []*string{
		&attrs.Name, &attrs.Street, &attrs.Zone, &attrs.Sex, &attrs.Birthdate,
		&attrs.Email, &attrs.Phone, &attrs.CivilStatus, &attrs.YouthAgeGroup,
		&attrs.YouthClassification, &attrs.SpecificNeedsType,
		&attrs.EducationalBackground, &attrs.EducationalBackgroundOther,
		&attrs.WorkStatus, &attrs.WorkStatusOther, &attrs.SKVoterRegistered,
		&attrs.SKVotedLastElection, &attrs.NationalVoterRegistered,
		&attrs.AttendedKKAssembly, &attrs.KKAssemblyTimes, &attrs.KKAssemblyNoReason,
	}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
	return attrs
}

// Register stores a new participant. The display ID is Youth{N} where N is
// the number of participants already stored plus one.
func (s *Service) Register(ctx context.Context, attrs models.ProfileFields) (*models.Participant, error) {
	attrs = normalize(attrs)
	if err := s.validate.Struct(attrs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttributes, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.Participant{
		ID:            uuid.NewString(),
		ProfileFields: attrs,
		RegisteredAt:  s.now().UTC().Truncate(time.Microsecond),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Participant{}).
			Where("LOWER(email) = LOWER(?)", attrs.Email).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateEmail
		}

		var total int64
		if err := tx.Model(&models.Participant{}).Count(&total).Error; err != nil {
			return err
		}
		p.DisplayID = FormatDisplayID(int(total) + 1)

		if err := tx.Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateEmail
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// BackfillReport counts what a backfill pass changed.
type BackfillReport struct {
	Migrated int `json:"migrated"`
	Assigned int `json:"assigned"`
}

// BackfillMissingIDs rewrites legacy STU### IDs to Youth### with the same
// number and gives every participant without a display ID the next free
// Youth number, oldest registration first. Running it again once every
// participant has an ID changes nothing.
func (s *Service) BackfillMissingIDs(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken []string
		if err := tx.Model(&models.Participant{}).
			Where("display_id LIKE ?", models.DisplayIDPrefix+"%").
			Pluck("display_id", &taken).Error; err != nil {
			return err
		}
		inUse := make(map[string]bool, len(taken))
		next := 1
		for _, id := range taken {
			inUse[id] = true
			if n, ok := DisplayNumber(id); ok && n >= next {
				next = n + 1
			}
		}

		var legacy []models.Participant
		if err := tx.Where("display_id LIKE ?", models.LegacyDisplayIDPrefix+"%").
			Order("registered_at ASC").
			Find(&legacy).Error; err != nil {
			return err
		}

		var collided []models.Participant
		for _, p := range legacy {
			n, ok := numericSuffix(p.DisplayID, models.LegacyDisplayIDPrefix)
			if !ok {
				continue
			}
			suffix := strings.TrimPrefix(p.DisplayID, models.LegacyDisplayIDPrefix)
			newID := models.DisplayIDPrefix + suffix
			if inUse[newID] {
				collided = append(collided, p)
				continue
			}
			if err := setDisplayID(tx, p, newID, models.DisplayIDReasonMigration); err != nil {
				return err
			}
			inUse[newID] = true
			if n >= next {
				next = n + 1
			}
			report.Migrated++
		}

		var missing []models.Participant
		if err := tx.Where("display_id IS NULL OR display_id = ''").
			Order("registered_at ASC").
			Find(&missing).Error; err != nil {
			return err
		}
		missing = append(missing, collided...)
		slices.SortStableFunc(missing, func(a, b models.Participant) int {
			return a.RegisteredAt.Compare(b.RegisteredAt)
		})

		for _, p := range missing {
			newID := FormatDisplayID(next)
			for inUse[newID] {
				next++
				newID = FormatDisplayID(next)
			}
			if err := setDisplayID(tx, p, newID, models.DisplayIDReasonBackfill); err != nil {
				return err
			}
			inUse[newID] = true
			next++
			report.Assigned++
		}

		return nil
	})

	return report, err
}

func setDisplayID(tx *gorm.DB, p models.Participant, newID, reason string) error {
	if err := tx.Model(&models.Participant{}).
		Where("id = ?", p.ID).
		Update("display_id", newID).Error; err != nil {
		return err
	}
	return tx.Create(&models.DisplayIDChange{
		ParticipantID: p.ID,
		OldDisplayID:  p.DisplayID,
		NewDisplayID:  newID,
		Reason:        reason,
	}).Error
}

func (s *Service) FindByID(ctx context.Context, id string) (*models.Participant, error) {
	var p models.Participant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByEmail matches the whole address, ignoring case.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.Participant, error) {
	var p models.Participant
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListAll orders participants by display number; participants without a
// Youth### ID come last. Ties fall back to registration time.
func (s *Service) ListAll(ctx context.Context) ([]models.Participant, error) {
	var participants []models.Participant
	if err := s.db.WithContext(ctx).Order("registered_at ASC").Find(&participants).Error; err != nil {
		return nil, err
	}

	slices.SortStableFunc(participants, func(a, b models.Participant) int {
		na, oka := DisplayNumber(a.DisplayID)
		nb, okb := DisplayNumber(b.DisplayID)
		switch {
		case oka && !okb:
			return -1
		case !oka && okb:
			return 1
		case oka && okb && na != nb:
			return cmp.Compare(na, nb)
		}
		return a.RegisteredAt.Compare(b.RegisteredAt)
	})

	return participants, nil
}

func (s *Service) History(ctx context.Context, participantID string) ([]models.DisplayIDChange, error) {
	var changes []models.DisplayIDChange
	err := s.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("created_at ASC, id ASC").
		Find(&changes).Error
	return changes, err
}
