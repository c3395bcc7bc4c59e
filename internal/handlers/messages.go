package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/sk-sanagustin/yep-id/internal/metrics"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/sk-sanagustin/yep-id/internal/notifier"
	"github.com/sk-sanagustin/yep-id/internal/registry"
)

type MessageHandler struct {
	registry    *registry.Service
	notifier    notifier.Notifier
	metrics     *metrics.Metrics
	authHandler *auth.AuthHandler
	sendLimit   int
}

func NewMessageHandler(reg *registry.Service, n notifier.Notifier, m *metrics.Metrics, authHandler *auth.AuthHandler, sendLimit int) *MessageHandler {
	return &MessageHandler{registry: reg, notifier: n, metrics: m, authHandler: authHandler, sendLimit: sendLimit}
}

type BulkMessageRequest struct {
	auth.AuthInput
	Body struct {
		Subject string `json:"subject" doc:"Email subject"`
		Message string `json:"message" doc:"Plain text body"`
		Filter  string `json:"filter,omitempty" enum:"all,zone,age_group,classification" doc:"Recipient filter"`
		Value   string `json:"value,omitempty" doc:"Filter value"`
	}
}

func (h *MessageHandler) HandleBulk(ctx context.Context, input *BulkMessageRequest) (*BatchOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(input.Body.Subject)
	message := strings.TrimSpace(input.Body.Message)
	if subject == "" || message == "" {
		return nil, huma.Error400BadRequest("Subject and message are required")
	}
	if h.notifier == nil {
		return nil, huma.Error503ServiceUnavailable("Notifications are not configured")
	}

	filter := registry.RecipientFilter{Kind: input.Body.Filter, Value: input.Body.Value}
	if filter.Kind == "" {
		filter.Kind = registry.FilterAll
	}
	if filter.Kind != registry.FilterAll && filter.Value == "" {
		return nil, huma.Error400BadRequest("A filter value is required")
	}

	recipients, err := h.registry.Recipients(ctx, filter)
	if err != nil {
		return nil, httpError(err, "Failed to load recipients")
	}

	result := notifier.Dispatch(ctx, recipients, h.sendLimit, func(p models.Participant) error {
		return h.notifier.Announce(p, subject, message)
	})
	h.metrics.ObserveNotifications("announcement", result.Sent, result.Failed)

	res := &BatchOutput{}
	res.Body.BatchResult = result
	res.Body.Message = fmt.Sprintf("Message sent to %d users! (%d failed)", result.Sent, result.Failed)
	return res, nil
}

type FilterOptionsInput struct {
	auth.AuthInput
}

type FilterOptionsOutput struct {
	Body registry.FilterOptions
}

func (h *MessageHandler) HandleFilters(ctx context.Context, input *FilterOptionsInput) (*FilterOptionsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, &input.AuthInput); err != nil {
		return nil, err
	}

	opts, err := h.registry.FilterOptions(ctx)
	if err != nil {
		return nil, httpError(err, "Failed to load filter options")
	}
	return &FilterOptionsOutput{Body: opts}, nil
}
