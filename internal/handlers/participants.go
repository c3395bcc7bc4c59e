package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sk-sanagustin/yep-id/internal/attendance"
	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/sk-sanagustin/yep-id/internal/metrics"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/sk-sanagustin/yep-id/internal/notifier"
	"github.com/sk-sanagustin/yep-id/internal/qr"
	"github.com/sk-sanagustin/yep-id/internal/registry"
)

type ParticipantHandler struct {
	registry    *registry.Service
	ledger      *attendance.Service
	qrStore     *qr.Store
	notifier    notifier.Notifier
	metrics     *metrics.Metrics
	authHandler *auth.AuthHandler
}

func NewParticipantHandler(reg *registry.Service, ledger *attendance.Service, qrStore *qr.Store, n notifier.Notifier, m *metrics.Metrics, authHandler *auth.AuthHandler) *ParticipantHandler {
	return &ParticipantHandler{
		registry:    reg,
		ledger:      ledger,
		qrStore:     qrStore,
		notifier:    n,
		metrics:     m,
		authHandler: authHandler,
	}
}

type RegisterRequest struct {
	Body models.ProfileFields
}

type RegisterResponse struct {
	Body struct {
		Message     string             `json:"message"`
		Participant models.Participant `json:"participant"`
		Warning     string             `json:"warning,omitempty"`
	}
}

// HandleRegister is the public registration form. The participant is
// stored first; a failure to render the QR code or send the confirmation
// only adds a warning.
func (h *ParticipantHandler) HandleRegister(ctx context.Context, input *RegisterRequest) (*RegisterResponse, error) {
	p, err := h.registry.Register(ctx, input.Body)
	if err != nil {
		return nil, httpError(err, "Failed to process registration")
	}
	h.metrics.IncrementRegistrations()

	res := &RegisterResponse{}
	res.Body.Participant = *p
	res.Body.Message = "Registration successful! Your ID is " + p.DisplayID

	png, err := h.qrStore.Save(*p)
	if err != nil {
		log.Printf("Failed to save QR code for %s: %v", p.ID, err)
		res.Body.Warning = "Registration successful, but the QR code could not be generated."
		return res, nil
	}

	if h.notifier == nil {
		return res, nil
	}
	if err := h.notifier.NotifyRegistration(*p, png); err != nil {
		log.Printf("Failed to send registration confirmation to %s: %v", p.Email, err)
		h.metrics.ObserveNotifications("registration", 0, 1)
		res.Body.Warning = "Registration successful, but the confirmation email could not be sent."
		return res, nil
	}
	h.metrics.ObserveNotifications("registration", 1, 0)

	return res, nil
}

type ListParticipantsInput struct {
	auth.AuthInput
}

type ListParticipantsOutput struct {
	Body []models.Participant
}

func (h *ParticipantHandler) HandleList(ctx context.Context, input *ListParticipantsInput) (*ListParticipantsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	participants, err := h.registry.ListAll(ctx)
	if err != nil {
		return nil, httpError(err, "Failed to list participants")
	}
	return &ListParticipantsOutput{Body: participants}, nil
}

type GetParticipantInput struct {
	auth.AuthInput
	ID string `path:"id" doc:"Participant ID"`
}

type GetParticipantOutput struct {
	Body struct {
		Participant models.Participant       `json:"participant"`
		Attendance  []models.Attendance      `json:"attendance"`
		History     []models.DisplayIDChange `json:"id_history"`
	}
}

func (h *ParticipantHandler) HandleGet(ctx context.Context, input *GetParticipantInput) (*GetParticipantOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	p, err := h.registry.FindByID(ctx, input.ID)
	if err != nil {
		return nil, httpError(err, "Failed to load participant")
	}
	entries, err := h.ledger.ByParticipant(ctx, p.ID)
	if err != nil {
		return nil, httpError(err, "Failed to load attendance")
	}
	history, err := h.registry.History(ctx, p.ID)
	if err != nil {
		return nil, httpError(err, "Failed to load ID history")
	}

	res := &GetParticipantOutput{}
	res.Body.Participant = *p
	res.Body.Attendance = entries
	res.Body.History = history
	return res, nil
}

type BackfillInput struct {
	auth.AuthInput
}

type BackfillOutput struct {
	Body struct {
		Message string                  `json:"message"`
		Report  registry.BackfillReport `json:"report"`
	}
}

func (h *ParticipantHandler) HandleBackfill(ctx context.Context, input *BackfillInput) (*BackfillOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	report, err := h.registry.BackfillMissingIDs(ctx)
	if err != nil {
		return nil, httpError(err, "Failed to backfill IDs")
	}
	log.Printf("Backfill: %d migrated, %d assigned", report.Migrated, report.Assigned)

	res := &BackfillOutput{}
	res.Body.Report = report
	if report.Migrated == 0 && report.Assigned == 0 {
		res.Body.Message = "All users already have IDs."
	} else {
		res.Body.Message = "Participant IDs updated."
	}
	return res, nil
}

// HandleQRCode serves a participant's stored code image, rendering it
// first when it is missing.
func (h *ParticipantHandler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, registry.ErrParticipantNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	png, err := h.qrStore.Ensure(*p)
	if err != nil {
		log.Printf("Failed to render QR code for %s: %v", p.ID, err)
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="`+p.DisplayID+`.png"`)
	w.Write(png)
}

// HandleGenerateQR renders arbitrary text from the data query parameter.
func HandleGenerateQR(w http.ResponseWriter, r *http.Request) {
	data := r.URL.Query().Get("data")
	if data == "" {
		http.Error(w, "No data provided", http.StatusBadRequest)
		return
	}

	png, err := qr.PNG(data, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
