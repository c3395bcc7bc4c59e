package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/sk-sanagustin/yep-id/internal/qr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRegister(t *testing.T) {
	f := newFixture(t)

	input := &RegisterRequest{}
	input.Body = models.ProfileFields{Name: " Ana Cruz ", Email: "ana@example.com", Zone: "Zone 1"}

	resp, err := f.handlers.Participants.HandleRegister(t.Context(), input)
	require.NoError(t, err)

	p := resp.Body.Participant
	assert.Equal(t, "Youth001", p.DisplayID)
	assert.Equal(t, "Ana Cruz", p.Name)
	assert.Equal(t, "Registration successful! Your ID is Youth001", resp.Body.Message)
	assert.Empty(t, resp.Body.Warning)

	_, err = os.Stat(f.handlers.Participants.qrStore.Path(p.ID))
	assert.NoError(t, err, "expected the QR image to be stored")

	confirmations := f.notifier.byKind("registration")
	require.Len(t, confirmations, 1)
	assert.Equal(t, "ana@example.com", confirmations[0].to)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Registrations))
}

func TestHandleRegister_SequentialIDs(t *testing.T) {
	f := newFixture(t)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		input := &RegisterRequest{}
		input.Body = models.ProfileFields{Name: "Participant", Email: email}
		resp, err := f.handlers.Participants.HandleRegister(t.Context(), input)
		require.NoError(t, err)
		assert.Equal(t, []string{"Youth001", "Youth002", "Youth003"}[i], resp.Body.Participant.DisplayID)
	}
}

func TestHandleRegister_Errors(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ana", "ana@example.com")

	tests := []struct {
		name   string
		attrs  models.ProfileFields
		status int
	}{
		{"DuplicateEmailIgnoringCase", models.ProfileFields{Name: "Other Ana", Email: "ANA@example.com"}, http.StatusConflict},
		{"BlankName", models.ProfileFields{Name: "   ", Email: "new@example.com"}, http.StatusBadRequest},
		{"BadEmail", models.ProfileFields{Name: "Ben", Email: "not-an-email"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.handlers.Participants.HandleRegister(t.Context(), &RegisterRequest{Body: tt.attrs})
			require.Error(t, err)
			assert.Equal(t, tt.status, statusOf(t, err))
		})
	}

	var count int64
	f.db.Model(&models.Participant{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestHandleRegister_NotificationFailureWarns(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail["ana@example.com"] = true

	resp, err := f.handlers.Participants.HandleRegister(t.Context(), &RegisterRequest{
		Body: models.ProfileFields{Name: "Ana", Email: "ana@example.com"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Body.Warning)

	_, err = f.registry.FindByID(t.Context(), resp.Body.Participant.ID)
	assert.NoError(t, err, "participant must stay registered")
}

func TestHandleGetParticipant(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "Ana", "ana@example.com")
	e := f.event(t, "Clean-up Drive", "2024-03-01", "5")

	code, err := qr.Encode(p)
	require.NoError(t, err)
	_, err = f.handlers.Events.HandleScan(t.Context(), scanRequest(f, e.ID, code))
	require.NoError(t, err)

	resp, err := f.handlers.Participants.HandleGet(t.Context(), &GetParticipantInput{AuthInput: f.admin(), ID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, p.DisplayID, resp.Body.Participant.DisplayID)
	require.Len(t, resp.Body.Attendance, 1)
	assert.Equal(t, 5, resp.Body.Attendance[0].PointsEarned)

	_, err = f.handlers.Participants.HandleGet(t.Context(), &GetParticipantInput{AuthInput: f.admin(), ID: "missing"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = f.handlers.Participants.HandleGet(t.Context(), &GetParticipantInput{ID: p.ID})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestHandleBackfill(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ana", "ana@example.com")
	f.db.Create(&models.Participant{
		ID:            "legacy-1",
		DisplayID:     "STU007",
		ProfileFields: models.ProfileFields{Name: "Old", Email: "old@example.com"},
	})
	f.db.Create(&models.Participant{
		ID:            "blank-1",
		ProfileFields: models.ProfileFields{Name: "Blank", Email: "blank@example.com"},
	})

	resp, err := f.handlers.Participants.HandleBackfill(t.Context(), &BackfillInput{AuthInput: f.admin()})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Body.Report.Migrated)
	assert.Equal(t, 1, resp.Body.Report.Assigned)

	legacy, err := f.registry.FindByID(t.Context(), "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, "Youth007", legacy.DisplayID)

	resp, err = f.handlers.Participants.HandleBackfill(t.Context(), &BackfillInput{AuthInput: f.admin()})
	require.NoError(t, err)
	assert.Equal(t, "All users already have IDs.", resp.Body.Message)
}

func TestHandleQRCode(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "Ana", "ana@example.com")
	router := f.router()

	req := httptest.NewRequest(http.MethodGet, "/participants/"+p.ID+"/qr", nil)
	req.Header.Set("Cookie", f.cookie)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, []byte("\x89PNG"), rr.Body.Bytes()[:4])

	req = httptest.NewRequest(http.MethodGet, "/participants/missing/qr", nil)
	req.Header.Set("Cookie", f.cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleGenerateQR(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleGenerateQR(rr, httptest.NewRequest(http.MethodGet, "/qr?data=hello", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	HandleGenerateQR(rr, httptest.NewRequest(http.MethodGet, "/qr", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
