package handlers

import (
	"net/http"
	"testing"

	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bulkRequest(f *fixture, subject, message, filter, value string) *BulkMessageRequest {
	req := &BulkMessageRequest{AuthInput: f.admin()}
	req.Body.Subject = subject
	req.Body.Message = message
	req.Body.Filter = filter
	req.Body.Value = value
	return req
}

func TestHandleBulk(t *testing.T) {
	f := newFixture(t)
	zone := func(z string) func(*models.ProfileFields) {
		return func(p *models.ProfileFields) { p.Zone = z }
	}
	f.register(t, "Ana", "ana@example.com", zone("Zone 1"))
	f.register(t, "Ben", "ben@example.com", zone("Zone 2"))
	f.register(t, "Cara", "cara@example.com", zone("Zone 1"))

	resp, err := f.handlers.Messages.HandleBulk(t.Context(), bulkRequest(f, "Assembly", "See you Saturday", "zone", "Zone 1"))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Body.Sent)
	assert.Zero(t, resp.Body.Failed)

	var to []string
	for _, s := range f.notifier.byKind("announcement") {
		to = append(to, s.to)
	}
	assert.ElementsMatch(t, []string{"ana@example.com", "cara@example.com"}, to)

	f.notifier.fail["ben@example.com"] = true
	resp, err = f.handlers.Messages.HandleBulk(t.Context(), bulkRequest(f, "Assembly", "Everyone", "", ""))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Body.Sent)
	assert.Equal(t, 1, resp.Body.Failed)
}

func TestHandleBulk_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.handlers.Messages.HandleBulk(t.Context(), bulkRequest(f, " ", "body", "", ""))
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = f.handlers.Messages.HandleBulk(t.Context(), bulkRequest(f, "Subject", "body", "zone", ""))
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestHandleFilters(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ana", "ana@example.com", func(p *models.ProfileFields) {
		p.Zone = "Zone 1"
		p.YouthAgeGroup = "Core Youth (18-24)"
	})

	resp, err := f.handlers.Messages.HandleFilters(t.Context(), &FilterOptionsInput{AuthInput: f.admin()})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zone 1"}, resp.Body.Zones)
	assert.Equal(t, []string{"Core Youth (18-24)"}, resp.Body.AgeGroups)
	assert.Empty(t, resp.Body.Classifications)
}
