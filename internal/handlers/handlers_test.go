package handlers

import (
	"errors"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sk-sanagustin/yep-id/internal/analytics"
	"github.com/sk-sanagustin/yep-id/internal/attendance"
	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/sk-sanagustin/yep-id/internal/config"
	"github.com/sk-sanagustin/yep-id/internal/database"
	"github.com/sk-sanagustin/yep-id/internal/events"
	"github.com/sk-sanagustin/yep-id/internal/leaderboard"
	"github.com/sk-sanagustin/yep-id/internal/metrics"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/sk-sanagustin/yep-id/internal/qr"
	"github.com/sk-sanagustin/yep-id/internal/registry"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sent struct {
	kind string
	to   string
	text string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
	fail map[string]bool
}

func (n *recordingNotifier) record(kind, to, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[to] {
		return errors.New("mailbox unavailable")
	}
	n.sent = append(n.sent, sent{kind: kind, to: to, text: text})
	return nil
}

func (n *recordingNotifier) NotifyRegistration(p models.Participant, qrPNG []byte) error {
	if len(qrPNG) == 0 {
		return errors.New("missing qr image")
	}
	return n.record("registration", p.Email, p.DisplayID)
}

func (n *recordingNotifier) NotifyAttendance(p models.Participant, event models.Event, points int) error {
	return n.record("attendance", p.Email, event.Name)
}

func (n *recordingNotifier) NotifyReminder(p models.Participant, event models.Event) error {
	return n.record("reminder", p.Email, event.Name)
}

func (n *recordingNotifier) NotifyPoints(p models.Participant, total, count int) error {
	return n.record("points", p.Email, p.Name)
}

func (n *recordingNotifier) Announce(p models.Participant, subject, message string) error {
	return n.record("announcement", p.Email, subject)
}

func (n *recordingNotifier) byKind(kind string) []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sent
	for _, s := range n.sent {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
	notifier    *recordingNotifier
	metrics     *metrics.Metrics
	registry    *registry.Service
	events      *events.Service
	handlers    Handlers
	cookie      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)

	store, err := qr.NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		AdminUsername: "admin",
		AdminPassword: "admin123",
	}
	authHandler := auth.NewAuthHandler(cfg, db)
	n := &recordingNotifier{fail: map[string]bool{}}
	m := metrics.New(prometheus.NewRegistry())

	reg := registry.NewService(db)
	ev := events.NewService(db)
	ledger := attendance.NewService(db, n)

	token, err := authHandler.GenerateToken("admin")
	require.NoError(t, err)

	return &fixture{
		db:          db,
		authHandler: authHandler,
		notifier:    n,
		metrics:     m,
		registry:    reg,
		events:      ev,
		cookie:      auth.CookieName + "=" + token,
		handlers: Handlers{
			Participants: NewParticipantHandler(reg, ledger, store, n, m, authHandler),
			Events:       NewEventHandler(ev, ledger, reg, n, m, authHandler, 2),
			Reports:      NewReportHandler(leaderboard.NewService(db), analytics.NewService(db), reg, ev, ledger, n, m, authHandler, 2),
			Messages:     NewMessageHandler(reg, n, m, authHandler, 2),
			APIKeys:      NewAPIKeyHandler(db, authHandler),
		},
	}
}

func (f *fixture) admin() auth.AuthInput {
	return auth.AuthInput{Cookie: f.cookie}
}

func (f *fixture) router() *chi.Mux {
	r := chi.NewRouter()
	RegisterRoutes(r, f.authHandler, f.handlers, f.metrics, RouteOptions{})
	return r
}

func (f *fixture) register(t *testing.T, name, email string, mutate ...func(*models.ProfileFields)) models.Participant {
	t.Helper()
	attrs := models.ProfileFields{Name: name, Email: email}
	for _, fn := range mutate {
		fn(&attrs)
	}
	p, err := f.registry.Register(t.Context(), attrs)
	require.NoError(t, err)
	return *p
}

func (f *fixture) event(t *testing.T, name, date, points string) models.Event {
	t.Helper()
	e, err := f.events.Create(t.Context(), events.Fields{Name: name, Date: date, Points: points})
	require.NoError(t, err)
	return *e
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected a huma status error, got %v", err)
	return se.GetStatus()
}
