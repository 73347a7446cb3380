package resp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/pkg/errs"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondCreated(rec, httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": "r1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"id": "r1"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestRespondErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodDelete, "/", nil), errs.NewError(errs.ErrForbidden))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(errs.ErrForbidden), body["code"])
	assert.NotEmpty(t, body["error"])
}

func TestRespondErrorPlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("db down"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, float64(errs.ErrUnknown), decode(t, rec)["code"])
}
