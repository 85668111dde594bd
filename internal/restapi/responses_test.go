package restapi

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lmc-group/trainflow/internal/models"
)

func TestSendJSON(t *testing.T) {
	api := createTestApi(t)

	t.Run("writes bare arrays", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.sendJSON(w, httptest.NewRequest(http.MethodGet, "/test", nil), []string{"a", "b"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, "[\"a\",\"b\"]\n", w.Body.String())
	})

	t.Run("unencodable value is a server error", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.sendJSON(w, httptest.NewRequest(http.MethodGet, "/test", nil), math.Inf(1))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestSendErrorResponses(t *testing.T) {
	api := createTestApi(t)

	tests := []struct {
		name string
		send func(w http.ResponseWriter, r *http.Request)
		code int
		text string
	}{
		{"not found", api.sendNotFound, http.StatusNotFound, "resource not found"},
		{"unauthorized", api.sendUnauthorized, http.StatusUnauthorized, "permission denied"},
		{"bad request", func(w http.ResponseWriter, r *http.Request) { api.badRequest(w, r, "invalid limit") }, http.StatusBadRequest, "invalid limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.send(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response models.ResponseModel
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.code, response.Code)
			assert.Equal(t, tt.text, response.Text)
			assert.Equal(t, testNow.UnixMilli(), response.CurrentTime)
			assert.Nil(t, response.Data)
		})
	}
}

func TestSendErrorWithoutApplication(t *testing.T) {
	api := &RestAPI{}
	w := httptest.NewRecorder()
	api.sendNotFound(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	var response models.ResponseModel
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Greater(t, response.CurrentTime, int64(0), "falls back to the system clock")
}

func TestSetJSONResponseType(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("Content-Type", "text/html")
	var wInterface http.ResponseWriter = w

	setJSONResponseType(&wInterface)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
