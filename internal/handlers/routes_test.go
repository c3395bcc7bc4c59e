package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes(t *testing.T) {
	f := newFixture(t)
	router := f.router()

	do := func(method, path, body, cookie string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Health", func(t *testing.T) {
		rr := do(http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "OK", rr.Body.String())
	})

	t.Run("PublicRegistration", func(t *testing.T) {
		rr := do(http.MethodPost, "/register", `{"name":"Ana","email":"ana@example.com","zone":"Zone 1"}`, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var body struct {
			Participant struct {
				DisplayID string `json:"id"`
			} `json:"participant"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "Youth001", body.Participant.DisplayID)

		rr = do(http.MethodPost, "/register", `{"name":"Ana again","email":"Ana@Example.com"}`, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("AdminRoutesNeedSession", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/events", "", "").Code)
		assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/metrics", "", "").Code)
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/events", "", f.cookie).Code)
	})

	t.Run("LoginThenMe", func(t *testing.T) {
		rr := do(http.MethodPost, "/auth/login", `{"username":"admin","password":"admin123"}`, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var session string
		for _, c := range rr.Result().Cookies() {
			if c.Name == auth.CookieName {
				session = c.Value
			}
		}
		require.NotEmpty(t, session)

		rr = do(http.MethodGet, "/me", "", auth.CookieName+"="+session)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Contains(t, rr.Body.String(), `"username":"admin"`)
	})

	t.Run("ScanOverHTTP", func(t *testing.T) {
		e := f.event(t, "Clean-up Drive", "2024-03-01", "5")
		rr := do(http.MethodPost, "/api/scan/attendance/"+e.ID, `{}`, f.cookie)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "No QR code data provided")
	})

	t.Run("Metrics", func(t *testing.T) {
		rr := do(http.MethodGet, "/metrics", "", f.cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "yep_registrations_total")
	})
}
