package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/skip2/go-qrcode"
)

var (
	ErrMalformedPayload     = errors.New("malformed qr payload")
	ErrMissingParticipantID = errors.New("qr payload has no participant id")
)

// Payload is the identity record printed inside a participant's QR code.
// It is plain JSON with no signature: scanners trust it as-is. The field
// names are shared with codes issued by earlier versions and must not change.
type Payload struct {
	ParticipantID    string `json:"user_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	RegistrationDate string `json:"registration_date"`
}

func PayloadFor(p models.Participant) Payload {
	return Payload{
		ParticipantID:    p.ID,
		Name:             p.Name,
		Email:            p.Email,
		RegistrationDate: p.RegisteredAt.UTC().Format(time.RFC3339Nano),
	}
}

// Encode serializes the participant's payload. The output is deterministic
// for identical input.
func Encode(p models.Participant) (string, error) {
	b, err := json.Marshal(PayloadFor(p))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func Decode(data string) (Payload, error) {
	var payload Payload

	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, "{") {
		return Payload{}, ErrMalformedPayload
	}

	dec := json.NewDecoder(strings.NewReader(data))
	if err := dec.Decode(&payload); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if dec.More() {
		return Payload{}, fmt.Errorf("%w: trailing data", ErrMalformedPayload)
	}

	if strings.TrimSpace(payload.ParticipantID) == "" {
		return payload, ErrMissingParticipantID
	}

	return payload, nil
}

// PNG renders data as a QR image with medium error correction.
func PNG(data string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(data, qrcode.Medium, size)
}

// ParticipantPNG renders the identity code for p.
func ParticipantPNG(p models.Participant) ([]byte, error) {
	data, err := Encode(p)
	if err != nil {
		return nil, err
	}
	return PNG(data, 370)
}
