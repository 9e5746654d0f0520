package resource

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medirecords/pkg/apierror"
)

func allow(next http.Handler) http.Handler { return next }

func deny(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierror.Write(w, apierror.New(apierror.Unauthenticated, "Authentication required"))
	})
}

func newTestRouter(t *testing.T, gate func(http.Handler) http.Handler) *mux.Router {
	t.Helper()
	svc, _, _ := newTestService(t)
	r := mux.NewRouter()
	NewHandler(svc).Register(r, "/widgets", gate)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHandlerLifecycle(t *testing.T) {
	r := newTestRouter(t, allow)

	rec := do(r, http.MethodPost, "/widgets", `{"name":"gear","size":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created createResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Widget created successfully", created.Message)
	assert.True(t, primitive.IsValidObjectID(created.ID))

	rec = do(r, http.MethodGet, "/widgets/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got widget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID.Hex())
	assert.Equal(t, "gear", got.Name)
	assert.Equal(t, float64(3), got.Size)
	assert.Nil(t, got.OwnerID)
	assert.False(t, got.CreatedAt.IsZero())

	rec = do(r, http.MethodPut, "/widgets/"+created.ID, `{"note":"greased"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Widget updated successfully"}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/widgets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []widget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "greased", list[0].Note)

	rec = do(r, http.MethodDelete, "/widgets/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Widget deleted successfully"}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/widgets/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Widget not found", errorOf(t, rec))
}

func TestHandlerEmptyList(t *testing.T) {
	r := newTestRouter(t, allow)

	rec := do(r, http.MethodGet, "/widgets", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandlerClientErrors(t *testing.T) {
	r := newTestRouter(t, allow)
	missing := primitive.NewObjectID().Hex()

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		message string
	}{
		{"bad id on get", http.MethodGet, "/widgets/123", "", http.StatusBadRequest, "Invalid widget ID"},
		{"bad id on put", http.MethodPut, "/widgets/123", `{"name":"x"}`, http.StatusBadRequest, "Invalid widget ID"},
		{"bad id before bad body", http.MethodPut, "/widgets/123", `{not json`, http.StatusBadRequest, "Invalid widget ID"},
		{"operator key", http.MethodPut, "/widgets/" + missing, `{"$inc":{"size":1}}`, http.StatusBadRequest, `Invalid field name "$inc"`},
		{"bad id on delete", http.MethodDelete, "/widgets/123", "", http.StatusBadRequest, "Invalid widget ID"},
		{"missing fields", http.MethodPost, "/widgets", `{"note":"x"}`, http.StatusBadRequest, "Missing required fields: name, size"},
		{"empty create body", http.MethodPost, "/widgets", "", http.StatusBadRequest, "Missing required fields: name, size"},
		{"malformed json", http.MethodPost, "/widgets", `{"name":`, http.StatusBadRequest, "Invalid request body"},
		{"array body", http.MethodPost, "/widgets", `[1,2]`, http.StatusBadRequest, "Invalid request body"},
		{"empty update", http.MethodPut, "/widgets/" + missing, `{}`, http.StatusBadRequest, "No valid fields to update"},
		{"immutable only", http.MethodPut, "/widgets/" + missing, `{"_id":"x","createdAt":"y"}`, http.StatusBadRequest, "No valid fields to update"},
		{"update unknown", http.MethodPut, "/widgets/" + missing, `{"name":"x"}`, http.StatusNotFound, "Widget not found"},
		{"delete unknown", http.MethodDelete, "/widgets/" + missing, "", http.StatusNotFound, "Widget not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, errorOf(t, rec))
		})
	}
}

func TestHandlerBodyTooLarge(t *testing.T) {
	r := newTestRouter(t, allow)
	limited := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, 16)
		r.ServeHTTP(w, req)
	})

	rec := do(limited, http.MethodPost, "/widgets", `{"name":"a very long widget name","size":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body too large", errorOf(t, rec))
}

func TestHandlerGateCoversMutationsOnly(t *testing.T) {
	r := newTestRouter(t, deny)
	id := primitive.NewObjectID().Hex()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/widgets"},
		{http.MethodPut, "/widgets/" + id},
		{http.MethodDelete, "/widgets/" + id},
	} {
		rec := do(r, tc.method, tc.path, `{"name":"x","size":1}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method)
		assert.Equal(t, "Authentication required", errorOf(t, rec))
	}

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/widgets", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/widgets/"+id, "").Code)
}
