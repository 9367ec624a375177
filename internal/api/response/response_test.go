package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultline/internal/models"
)

func TestWriteJSON_NoHTMLEscaping(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, map[string]string{"msg": "<a> & b"}))
	assert.Equal(t, "{\"msg\":\"<a> & b\"}\n", rec.Body.String())
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, fmt.Errorf("error 9: %w", models.ErrNotFound))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["error"])
	assert.Contains(t, body["message"], "error 9")
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, []int{1, 2}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[1,2]", rec.Body.String())
}
