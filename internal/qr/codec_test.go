package qr

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParticipant() models.Participant {
	return models.Participant{
		ID:        "0b6a4c1e-8d7f-4a43-9a55-2f1d6b0f9c11",
		DisplayID: "Youth001",
		ProfileFields: models.ProfileFields{
			Name:  "Ana Reyes",
			Email: "ana@example.com",
			Phone: "09171234567",
		},
		RegisteredAt: time.Date(2024, 3, 9, 8, 15, 30, 123456000, time.UTC),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := sampleParticipant()

	data, err := Encode(p)
	require.NoError(t, err)

	payload, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, p.ID, payload.ParticipantID)
	assert.Equal(t, p.Name, payload.Name)
	assert.Equal(t, p.Email, payload.Email)

	registered, err := time.Parse(time.RFC3339Nano, payload.RegistrationDate)
	require.NoError(t, err)
	assert.True(t, p.RegisteredAt.Equal(registered))
}

func TestEncodeIsDeterministic(t *testing.T) {
	p := sampleParticipant()

	first, err := Encode(p)
	require.NoError(t, err)
	second, err := Encode(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotContains(t, first, p.Phone, "payload carries only the four identity fields")
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrMalformedPayload},
		{"plain text", "Youth001", ErrMalformedPayload},
		{"truncated json", `{"user_id": "abc"`, ErrMalformedPayload},
		{"json array", `["abc"]`, ErrMalformedPayload},
		{"wrong field type", `{"user_id": 42}`, ErrMalformedPayload},
		{"trailing garbage", `{"user_id": "abc"} extra`, ErrMalformedPayload},
		{"missing id", `{"name": "Ana"}`, ErrMissingParticipantID},
		{"blank id", `{"user_id": "  "}`, ErrMissingParticipantID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDecodeAcceptsLegacyCodes(t *testing.T) {
	// Codes printed by the previous system used naive ISO timestamps.
	payload, err := Decode(`{"user_id": "legacy-1", "name": "Ben", "email": "ben@example.com", "registration_date": "2023-11-02T10:00:00.000001"}`)
	require.NoError(t, err)
	assert.Equal(t, "legacy-1", payload.ParticipantID)
	assert.Equal(t, "2023-11-02T10:00:00.000001", payload.RegistrationDate)
}

func TestParticipantPNG(t *testing.T) {
	png, err := ParticipantPNG(sampleParticipant())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestStoreEnsure(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	p := sampleParticipant()
	_, err = os.Stat(store.Path(p.ID))
	require.True(t, os.IsNotExist(err))

	png, err := store.Ensure(p)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	onDisk, err := os.ReadFile(store.Path(p.ID))
	require.NoError(t, err)
	assert.Equal(t, png, onDisk)

	again, err := store.Ensure(p)
	require.NoError(t, err)
	assert.Equal(t, png, again)
}
