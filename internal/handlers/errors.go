package handlers

import (
	"errors"
	"log"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sk-sanagustin/yep-id/internal/events"
	"github.com/sk-sanagustin/yep-id/internal/registry"
)

// httpError maps domain errors onto huma errors. Anything unrecognised is
// logged and reported as a 500 with the given message.
func httpError(err error, msg string) error {
	switch {
	case errors.Is(err, registry.ErrDuplicateEmail):
		return huma.Error409Conflict("This email is already registered!")
	case errors.Is(err, registry.ErrInvalidAttributes):
		return huma.Error400BadRequest("Please fill in all required fields (Name and Email).", err)
	case errors.Is(err, registry.ErrParticipantNotFound):
		return huma.Error404NotFound("User not found")
	case errors.Is(err, events.ErrEventNotFound):
		return huma.Error404NotFound("Event not found")
	case errors.Is(err, events.ErrInvalidEvent):
		return huma.Error400BadRequest("Please fill in event name and date!")
	}
	log.Printf("%s: %v", msg, err)
	return huma.Error500InternalServerError(msg)
}
