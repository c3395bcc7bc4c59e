package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/sk-sanagustin/yep-id/internal/models"
)

const (
	FilterAll            = "all"
	FilterZone           = "zone"
	FilterAgeGroup       = "age_group"
	FilterClassification = "classification"
)

type RecipientFilter struct {
	Kind  string
	Value string
}

// Recipients returns every participant with an email address matching f.
// Unknown filter kinds select everyone.
func (s *Service) Recipients(ctx context.Context, f RecipientFilter) ([]models.Participant, error) {
	q := s.db.WithContext(ctx).Where("email IS NOT NULL AND email != ''")

	switch f.Kind {
	case FilterZone:
		q = q.Where("zone = ?", f.Value)
	case FilterAgeGroup:
		q = q.Where("youth_age_group = ?", f.Value)
	case FilterClassification:
		q = q.Where("youth_classification = ?", f.Value)
	}

	var participants []models.Participant
	if err := q.Order("registered_at ASC").Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

type FilterOptions struct {
	Zones           []string `json:"zones"`
	AgeGroups       []string `json:"age_groups"`
	Classifications []string `json:"classifications"`
}

func (s *Service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	var opts FilterOptions

	columns := []struct {
		name string
		dst  *[]string
	}{
		{"zone", &opts.Zones},
		{"youth_age_group", &opts.AgeGroups},
		{"youth_classification", &opts.Classifications},
	}

	for _, c := range columns {
		err := s.db.WithContext(ctx).Model(&models.Participant{}).
			Distinct(c.name).
			Where(fmt.Sprintf("%s IS NOT NULL AND %s != ''", c.name, c.name)).
			Order(c.name).
			Pluck(c.name, c.dst).Error
		if err != nil {
			return opts, err
		}
	}

	return opts, nil
}

// Search does a substring match over name, email, display ID, phone and zone.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Participant, error) {
	var participants []models.Participant
	query = strings.TrimSpace(query)
	if query == "" {
		return participants, nil
	}
	if limit <= 0 {
		limit = 50
	}

	like := "%" + query + "%"
	err := s.db.WithContext(ctx).
		Where("name LIKE ? OR email LIKE ? OR display_id LIKE ? OR phone LIKE ? OR zone LIKE ?",
			like, like, like, like, like).
		Order("registered_at DESC").
		Limit(limit).
		Find(&participants).Error
	return participants, err
}
