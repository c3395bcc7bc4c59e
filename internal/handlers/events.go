package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/sk-sanagustin/yep-id/internal/attendance"
	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/sk-sanagustin/yep-id/internal/events"
	"github.com/sk-sanagustin/yep-id/internal/export"
	"github.com/sk-sanagustin/yep-id/internal/metrics"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/sk-sanagustin/yep-id/internal/notifier"
	"github.com/sk-sanagustin/yep-id/internal/qr"
	"github.com/sk-sanagustin/yep-id/internal/registry"
)

type EventHandler struct {
	events      *events.Service
	ledger      *attendance.Service
	registry    *registry.Service
	notifier    notifier.Notifier
	metrics     *metrics.Metrics
	authHandler *auth.AuthHandler
	sendLimit   int
	now         func() time.Time
}

func NewEventHandler(ev *events.Service, ledger *attendance.Service, reg *registry.Service, n notifier.Notifier, m *metrics.Metrics, authHandler *auth.AuthHandler, sendLimit int) *EventHandler {
	return &EventHandler{
		events:      ev,
		ledger:      ledger,
		registry:    reg,
		notifier:    n,
		metrics:     m,
		authHandler: authHandler,
		sendLimit:   sendLimit,
		now:         time.Now,
	}
}

type CreateEventRequest struct {
	auth.AuthInput
	Body struct {
		Name        string `json:"event_name" doc:"Name of the event"`
		Description string `json:"event_description,omitempty"`
		Date        string `json:"event_date" doc:"YYYY-MM-DD"`
		Time        string `json:"event_time,omitempty" doc:"HH:MM"`
		Points      any    `json:"event_points,omitempty" doc:"Points awarded per attendance; unparsable values count as 0"`
		Category    string `json:"event_category,omitempty"`
		Capacity    any    `json:"event_capacity,omitempty" doc:"Maximum attendance; empty means no limit"`
	}
}

type EventOutput struct {
	Body models.Event
}

func (h *EventHandler) HandleCreate(ctx context.Context, input *CreateEventRequest) (*EventOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	event, err := h.events.Create(ctx, events.Fields{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		Date:        input.Body.Date,
		Time:        input.Body.Time,
		Points:      numberText(input.Body.Points),
		Category:    input.Body.Category,
		Capacity:    numberText(input.Body.Capacity),
	})
	if err != nil {
		return nil, httpError(err, "Failed to create event")
	}
	log.Printf("Event %q created for %s", event.Name, event.Date)

	return &EventOutput{Body: *event}, nil
}

// numberText accepts a JSON number or string and returns its text form so
// the event store can coerce it.
func numberText(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	default:
		return fmt.Sprint(n)
	}
}

type ListEventsInput struct {
	auth.AuthInput
}

type ListEventsOutput struct {
	Body []models.Event
}

func (h *EventHandler) HandleList(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	list, err := h.events.List(ctx)
	if err != nil {
		return nil, httpError(err, "Failed to list events")
	}
	return &ListEventsOutput{Body: list}, nil
}

type EventIDInput struct {
	auth.AuthInput
	ID string `path:"id" doc:"Event ID"`
}

type GetEventOutput struct {
	Body struct {
		Event      models.Event               `json:"event"`
		Attendance []attendance.EventAttendee `json:"attendance"`
		Total      int                        `json:"total_attendance"`
	}
}

func (h *EventHandler) HandleGet(ctx context.Context, input *EventIDInput) (*GetEventOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	event, err := h.events.Get(ctx, input.ID)
	if err != nil {
		return nil, httpError(err, "Failed to load event")
	}
	rows, err := h.ledger.ByEvent(ctx, event.ID)
	if err != nil {
		return nil, httpError(err, "Failed to load attendance")
	}

	res := &GetEventOutput{}
	res.Body.Event = *event
	res.Body.Attendance = rows
	res.Body.Total = len(rows)
	return res, nil
}

type MessageOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func (h *EventHandler) HandleDelete(ctx context.Context, input *EventIDInput) (*MessageOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	if err := h.events.Delete(ctx, input.ID); err != nil {
		return nil, httpError(err, "Failed to delete event")
	}

	res := &MessageOutput{}
	res.Body.Message = "Event and related attendance records deleted successfully!"
	return res, nil
}

type ScanRequest struct {
	auth.AuthInput
	ID   string `path:"id" doc:"Event ID"`
	Body struct {
		QRData string `json:"qr_data,omitempty" doc:"Decoded QR code text"`
	}
}

type ScanBody struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
	AlreadyAttended bool   `json:"already_attended,omitempty"`
	UserName        string `json:"user_name,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	PointsEarned    int    `json:"points_earned,omitempty"`
	Warning         string `json:"warning,omitempty"`
}

type ScanResponse struct {
	Status int
	Body   ScanBody
}

// HandleScan records attendance from a scanning station. Scan failures are
// reported in the body so the station can show them.
func (h *EventHandler) HandleScan(ctx context.Context, input *ScanRequest) (*ScanResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	start := time.Now()
	fail := func(status int, outcome, msg string) *ScanResponse {
		h.metrics.ObserveScan(outcome, start)
		return &ScanResponse{Status: status, Body: ScanBody{Error: msg}}
	}

	if input.Body.QRData == "" {
		return fail(http.StatusBadRequest, metrics.ScanInvalidPayload, "No QR code data provided"), nil
	}

	result, err := h.ledger.RecordScan(ctx, input.ID, input.Body.QRData)
	switch {
	case err == nil:
	case errors.Is(err, attendance.ErrAlreadyAttended):
		res := fail(http.StatusOK, metrics.ScanDuplicate, fmt.Sprintf("%s has already been marked as attended for this event.", result.ParticipantName))
		res.Body.AlreadyAttended = true
		res.Body.UserName = result.ParticipantName
		res.Body.UserID = result.DisplayID
		return res, nil
	case errors.Is(err, events.ErrEventNotFound):
		return fail(http.StatusNotFound, metrics.ScanNotFound, "Event not found"), nil
	case errors.Is(err, registry.ErrParticipantNotFound):
		return fail(http.StatusNotFound, metrics.ScanNotFound, "User not found in system."), nil
	case errors.Is(err, qr.ErrMalformedPayload), errors.Is(err, qr.ErrMissingParticipantID):
		return fail(http.StatusBadRequest, metrics.ScanInvalidPayload, "Invalid QR code format."), nil
	default:
		log.Printf("Scan for event %s failed: %v", input.ID, err)
		return fail(http.StatusInternalServerError, metrics.ScanError, "Error processing attendance"), nil
	}

	h.metrics.ObserveScan(metrics.ScanRecorded, start)
	if h.notifier != nil {
		if result.Warning != "" {
			h.metrics.ObserveNotifications("attendance", 0, 1)
		} else {
			h.metrics.ObserveNotifications("attendance", 1, 0)
		}
	}

	return &ScanResponse{
		Status: http.StatusOK,
		Body: ScanBody{
			Success:      true,
			Message:      fmt.Sprintf("Attendance marked for %s! +%d points", result.ParticipantName, result.PointsEarned),
			UserName:     result.ParticipantName,
			UserID:       result.DisplayID,
			PointsEarned: result.PointsEarned,
			Warning:      result.Warning,
		},
	}, nil
}

// HandleExport streams the event's attendance as an xlsx workbook.
func (h *EventHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	rows, err := h.ledger.ByEvent(r.Context(), event.ID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	now := h.now()
	book, err := export.AttendanceWorkbook(*event, rows, now)
	if err != nil {
		log.Printf("Export for event %s failed: %v", event.ID, err)
		http.Error(w, "Failed to build workbook", http.StatusInternalServerError)
		return
	}
	defer book.Close()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(*event, now)+`"`)
	if err := book.Write(w); err != nil {
		log.Printf("Writing export for event %s failed: %v", event.ID, err)
	}
}

type BatchOutput struct {
	Body struct {
		Message string `json:"message"`
		notifier.BatchResult
	}
}

// HandleReminders emails every participant about the event and marks the
// reminder as sent.
func (h *EventHandler) HandleReminders(ctx context.Context, input *EventIDInput) (*BatchOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}
	if h.notifier == nil {
		return nil, huma.Error503ServiceUnavailable("Notifications are not configured")
	}

	event, err := h.events.Get(ctx, input.ID)
	if err != nil {
		return nil, httpError(err, "Failed to load event")
	}
	recipients, err := h.registry.Recipients(ctx, registry.RecipientFilter{Kind: registry.FilterAll})
	if err != nil {
		return nil, httpError(err, "Failed to load recipients")
	}

	result := notifier.Dispatch(ctx, recipients, h.sendLimit, func(p models.Participant) error {
		return h.notifier.NotifyReminder(p, *event)
	})
	h.metrics.ObserveNotifications("reminder", result.Sent, result.Failed)

	if err := h.events.MarkReminderSent(ctx, event.ID); err != nil {
		return nil, httpError(err, "Failed to update event")
	}

	res := &BatchOutput{}
	res.Body.BatchResult = result
	res.Body.Message = fmt.Sprintf("Reminders sent to %d users!", result.Sent)
	return res, nil
}
