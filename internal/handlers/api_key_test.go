package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyLifecycle(t *testing.T) {
	f := newFixture(t)
	keys := f.handlers.APIKeys

	create := &CreateAPIKeyInput{AuthInput: f.admin()}
	create.Body.Name = "Gate 1"
	created, err := keys.HandleCreate(t.Context(), create)
	require.NoError(t, err)
	require.Len(t, created.Body.Key, 64)

	// The new key can run a scan but cannot mint further keys.
	station := auth.AuthInput{APIKey: created.Body.Key}
	e := f.event(t, "Clean-up Drive", "2024-03-01", "5")
	scan := &ScanRequest{AuthInput: station, ID: e.ID}
	scan.Body.QRData = "not a code"
	resp, err := f.handlers.Events.HandleScan(t.Context(), scan)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	_, err = keys.HandleCreate(t.Context(), &CreateAPIKeyInput{AuthInput: station})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	list, err := keys.HandleList(t.Context(), &ListAPIKeysInput{AuthInput: f.admin()})
	require.NoError(t, err)
	require.Len(t, list.Body, 1)
	assert.True(t, strings.HasPrefix(list.Body[0].Key, "..."))
	assert.NotNil(t, list.Body[0].LastUsedAt)

	_, err = keys.HandleDelete(t.Context(), &DeleteAPIKeyInput{AuthInput: f.admin(), ID: created.Body.ID})
	require.NoError(t, err)

	_, err = f.handlers.Events.HandleScan(t.Context(), scan)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = keys.HandleDelete(t.Context(), &DeleteAPIKeyInput{AuthInput: f.admin(), ID: created.Body.ID})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
