package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sk-sanagustin/yep-id/internal/analytics"
	"github.com/sk-sanagustin/yep-id/internal/attendance"
	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/sk-sanagustin/yep-id/internal/events"
	"github.com/sk-sanagustin/yep-id/internal/leaderboard"
	"github.com/sk-sanagustin/yep-id/internal/metrics"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/sk-sanagustin/yep-id/internal/notifier"
	"github.com/sk-sanagustin/yep-id/internal/registry"
)

// ReportHandler serves the read-mostly admin views: leaderboard,
// analytics and search.
type ReportHandler struct {
	leaderboard *leaderboard.Service
	analytics   *analytics.Service
	registry    *registry.Service
	events      *events.Service
	ledger      *attendance.Service
	notifier    notifier.Notifier
	metrics     *metrics.Metrics
	authHandler *auth.AuthHandler
	sendLimit   int
}

func NewReportHandler(lb *leaderboard.Service, an *analytics.Service, reg *registry.Service, ev *events.Service, ledger *attendance.Service, n notifier.Notifier, m *metrics.Metrics, authHandler *auth.AuthHandler, sendLimit int) *ReportHandler {
	return &ReportHandler{
		leaderboard: lb,
		analytics:   an,
		registry:    reg,
		events:      ev,
		ledger:      ledger,
		notifier:    n,
		metrics:     m,
		authHandler: authHandler,
		sendLimit:   sendLimit,
	}
}

type LeaderboardInput struct {
	auth.AuthInput
	Year string `query:"year" doc:"Restrict to one event year; empty or 'all' for every year"`
}

type LeaderboardOutput struct {
	Body struct {
		Year      string                 `json:"year"`
		Years     []string               `json:"available_years"`
		Standings []leaderboard.Standing `json:"leaderboard"`
	}
}

func yearFilter(year string) string {
	if year == "all" {
		return ""
	}
	return year
}

func (h *ReportHandler) HandleLeaderboard(ctx context.Context, input *LeaderboardInput) (*LeaderboardOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	year := yearFilter(input.Year)
	standings, err := h.leaderboard.Compute(ctx, year)
	if err != nil {
		return nil, httpError(err, "Failed to compute leaderboard")
	}
	years, err := h.leaderboard.AvailableYears(ctx)
	if err != nil {
		return nil, httpError(err, "Failed to list years")
	}

	res := &LeaderboardOutput{}
	res.Body.Year = year
	res.Body.Years = years
	res.Body.Standings = standings
	return res, nil
}

// HandleNotifyPoints emails every ranked participant their current total.
func (h *ReportHandler) HandleNotifyPoints(ctx context.Context, input *LeaderboardInput) (*BatchOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}
	if h.notifier == nil {
		return nil, huma.Error503ServiceUnavailable("Notifications are not configured")
	}

	standings, err := h.leaderboard.Compute(ctx, yearFilter(input.Year))
	if err != nil {
		return nil, httpError(err, "Failed to compute leaderboard")
	}

	recipients := make([]models.Participant, 0, len(standings))
	totals := make(map[string]leaderboard.Standing, len(standings))
	for _, s := range standings {
		if s.Email == "" {
			continue
		}
		recipients = append(recipients, models.Participant{
			ID:            s.ParticipantID,
			DisplayID:     s.DisplayID,
			ProfileFields: models.ProfileFields{Name: s.Name, Email: s.Email},
		})
		totals[s.ParticipantID] = s
	}

	result := notifier.Dispatch(ctx, recipients, h.sendLimit, func(p models.Participant) error {
		s := totals[p.ID]
		return h.notifier.NotifyPoints(p, s.TotalPoints, s.EventCount)
	})
	h.metrics.ObserveNotifications("points", result.Sent, result.Failed)

	res := &BatchOutput{}
	res.Body.BatchResult = result
	res.Body.Message = fmt.Sprintf("Points notifications sent to %d users!", result.Sent)
	return res, nil
}

type AnalyticsInput struct {
	auth.AuthInput
}

type AnalyticsOutput struct {
	Body *analytics.Report
}

func (h *ReportHandler) HandleAnalytics(ctx context.Context, input *AnalyticsInput) (*AnalyticsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	report, err := h.analytics.Report(ctx)
	if err != nil {
		return nil, httpError(err, "Failed to build analytics")
	}
	return &AnalyticsOutput{Body: report}, nil
}

type SearchInput struct {
	auth.AuthInput
	Query string `query:"q" doc:"Search text"`
	Type  string `query:"type" enum:"all,users,events,attendance" default:"all" doc:"What to search"`
}

type SearchOutput struct {
	Body struct {
		Query      string                 `json:"query"`
		Users      []models.Participant   `json:"users"`
		Events     []models.Event         `json:"events"`
		Attendance []attendance.SearchHit `json:"attendance"`
	}
}

const searchLimit = 50

func (h *ReportHandler) HandleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	res := &SearchOutput{}
	res.Body.Query = input.Query
	res.Body.Users = []models.Participant{}
	res.Body.Events = []models.Event{}
	res.Body.Attendance = []attendance.SearchHit{}

	all := input.Type == "" || input.Type == "all"
	var err error

	if all || input.Type == "users" {
		if res.Body.Users, err = h.registry.Search(ctx, input.Query, searchLimit); err != nil {
			return nil, httpError(err, "Search failed")
		}
	}
	if all || input.Type == "events" {
		if res.Body.Events, err = h.events.Search(ctx, input.Query, searchLimit); err != nil {
			return nil, httpError(err, "Search failed")
		}
	}
	if all || input.Type == "attendance" {
		if res.Body.Attendance, err = h.ledger.Search(ctx, input.Query, searchLimit); err != nil {
			return nil, httpError(err, "Search failed")
		}
	}

	return res, nil
}
