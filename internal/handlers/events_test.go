package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sk-sanagustin/yep-id/internal/export"
	"github.com/sk-sanagustin/yep-id/internal/metrics"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/sk-sanagustin/yep-id/internal/qr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func scanRequest(f *fixture, eventID, data string) *ScanRequest {
	req := &ScanRequest{AuthInput: f.admin(), ID: eventID}
	req.Body.QRData = data
	return req
}

func TestHandleCreateEvent(t *testing.T) {
	f := newFixture(t)

	input := &CreateEventRequest{AuthInput: f.admin()}
	input.Body.Name = "Clean-up Drive"
	input.Body.Date = "2024-03-01"
	input.Body.Points = float64(5)
	input.Body.Capacity = "40"

	resp, err := f.handlers.Events.HandleCreate(t.Context(), input)
	require.NoError(t, err)
	assert.Equal(t, "2024", resp.Body.Year)
	assert.Equal(t, 5, resp.Body.Points)
	require.NotNil(t, resp.Body.Capacity)
	assert.Equal(t, 40, *resp.Body.Capacity)

	input.Body.Points = "lots"
	input.Body.Capacity = nil
	resp, err = f.handlers.Events.HandleCreate(t.Context(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Body.Points, "unparsable points are coerced to 0")
	assert.Nil(t, resp.Body.Capacity)

	input.Body.Date = ""
	_, err = f.handlers.Events.HandleCreate(t.Context(), input)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestHandleScan(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "Ana", "ana@example.com")
	e := f.event(t, "Clean-up Drive", "2024-03-01", "5")
	code, err := qr.Encode(p)
	require.NoError(t, err)

	resp, err := f.handlers.Events.HandleScan(t.Context(), scanRequest(f, e.ID, code))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.True(t, resp.Body.Success)
	assert.Equal(t, "Ana", resp.Body.UserName)
	assert.Equal(t, "Youth001", resp.Body.UserID)
	assert.Equal(t, 5, resp.Body.PointsEarned)
	assert.Empty(t, resp.Body.Warning)

	resp, err = f.handlers.Events.HandleScan(t.Context(), scanRequest(f, e.ID, code))
	require.NoError(t, err)
	assert.False(t, resp.Body.Success)
	assert.True(t, resp.Body.AlreadyAttended)
	assert.Equal(t, "Ana", resp.Body.UserName)

	var entries int64
	f.db.Model(&models.Attendance{}).Count(&entries)
	assert.Equal(t, int64(1), entries)

	assert.Len(t, f.notifier.byKind("attendance"), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Scans.WithLabelValues(metrics.ScanRecorded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Scans.WithLabelValues(metrics.ScanDuplicate)))
}

func TestHandleScan_Failures(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "Ana", "ana@example.com")
	e := f.event(t, "Clean-up Drive", "2024-03-01", "5")
	code, err := qr.Encode(p)
	require.NoError(t, err)

	ghost, err := qr.Encode(models.Participant{ID: "ghost", ProfileFields: models.ProfileFields{Name: "Ghost"}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		eventID string
		data    string
		status  int
		message string
	}{
		{"NoData", e.ID, "", http.StatusBadRequest, "No QR code data provided"},
		{"NotJSON", e.ID, "Youth001", http.StatusBadRequest, "Invalid QR code format."},
		{"MissingID", e.ID, `{"name":"Ana"}`, http.StatusBadRequest, "Invalid QR code format."},
		{"UnknownParticipant", e.ID, ghost, http.StatusNotFound, "User not found in system."},
		{"UnknownEvent", "missing", code, http.StatusNotFound, "Event not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.handlers.Events.HandleScan(t.Context(), scanRequest(f, tt.eventID, tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.Status)
			assert.False(t, resp.Body.Success)
			assert.Equal(t, tt.message, resp.Body.Error)
		})
	}

	var entries int64
	f.db.Model(&models.Attendance{}).Count(&entries)
	assert.Zero(t, entries)
}

func TestHandleScan_RequiresAuthorization(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, "Clean-up Drive", "2024-03-01", "5")

	req := &ScanRequest{ID: e.ID}
	req.Body.QRData = "{}"
	_, err := f.handlers.Events.HandleScan(t.Context(), req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestHandleDeleteEvent(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "Ana", "ana@example.com")
	e := f.event(t, "Clean-up Drive", "2024-03-01", "5")
	code, _ := qr.Encode(p)
	_, err := f.handlers.Events.HandleScan(t.Context(), scanRequest(f, e.ID, code))
	require.NoError(t, err)

	_, err = f.handlers.Events.HandleDelete(t.Context(), &EventIDInput{AuthInput: f.admin(), ID: e.ID})
	require.NoError(t, err)

	var entries int64
	f.db.Model(&models.Attendance{}).Count(&entries)
	assert.Zero(t, entries)

	_, err = f.handlers.Events.HandleGet(t.Context(), &EventIDInput{AuthInput: f.admin(), ID: e.ID})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = f.handlers.Events.HandleDelete(t.Context(), &EventIDInput{AuthInput: f.admin(), ID: e.ID})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestHandleReminders(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ana", "ana@example.com")
	f.register(t, "Ben", "ben@example.com")
	f.register(t, "Cara", "cara@example.com")
	f.notifier.fail["ben@example.com"] = true
	e := f.event(t, "Clean-up Drive", "2024-03-01", "5")

	resp, err := f.handlers.Events.HandleReminders(t.Context(), &EventIDInput{AuthInput: f.admin(), ID: e.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Body.Sent)
	assert.Equal(t, 1, resp.Body.Failed)
	assert.Len(t, f.notifier.byKind("reminder"), 2)

	got, err := f.events.Get(t.Context(), e.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
}

func TestHandleExport(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "Ana", "ana@example.com")
	e := f.event(t, "Clean-up Drive", "2024-03-01", "5")
	code, _ := qr.Encode(p)
	_, err := f.handlers.Events.HandleScan(t.Context(), scanRequest(f, e.ID, code))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/events/"+e.ID+"/export", nil)
	req.Header.Set("Cookie", f.cookie)
	rr := httptest.NewRecorder()
	f.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, export.ContentType, rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment; filename=\"Attendance_Clean-up Drive_2024_"))

	book, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	name, err := book.GetCellValue(export.RecordsSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Ana", name)
}
