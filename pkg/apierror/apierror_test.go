package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, InvalidIdentifier.Status())
	assert.Equal(t, http.StatusBadRequest, ValidationFailed.Status())
	assert.Equal(t, http.StatusBadRequest, EmptyUpdate.Status())
	assert.Equal(t, http.StatusUnauthorized, Unauthenticated.Status())
	assert.Equal(t, http.StatusNotFound, NotFound.Status())
	assert.Equal(t, http.StatusInternalServerError, StoreError.Status())
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(NotFound, "Patient not found"))
	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, StoreError, KindOf(errors.New("boom")))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteClientError(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, New(ValidationFailed, "Missing required fields: %s", "name"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Missing required fields: name", decode(t, rec)["error"])
}

func TestWriteHidesStoreCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:27017: connection refused")

	rec := httptest.NewRecorder()
	Write(rec, Wrap(StoreError, "listing patients", cause))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, GenericMessage, decode(t, rec)["error"])

	rec = httptest.NewRecorder()
	Write(rec, cause)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, GenericMessage, decode(t, rec)["error"])
}

func TestErrorString(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(StoreError, "insert", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "StoreError")
	assert.Contains(t, err.Error(), "timeout")
}
