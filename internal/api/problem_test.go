package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"meme-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrCodeSchema, http.StatusUnprocessableEntity},
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeTemplateNotFound, http.StatusNotFound},
		{errors.ErrCodeUpstream, http.StatusBadGateway},
		{errors.ErrCodeCatalogLoadFailed, http.StatusServiceUnavailable},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{errors.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestWriteError_SchemaFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/parse_message", nil)

	WriteError(rec, req, errors.NewSchemaError("text must not be empty", "text"))

	p := decodeProblem(t, rec)
	assert.Equal(t, http.StatusUnprocessableEntity, p.Status)
	assert.Equal(t, "https://meme-workers.dev/errors/schema-error", p.Type)
	assert.Equal(t, "SCHEMA_ERROR", p.Code)
	assert.Equal(t, []string{"text"}, p.Fields)
	assert.Equal(t, "text must not be empty", p.Detail)
	assert.Equal(t, "/api/v1/tools/parse_message", p.Instance)
}

func TestWriteError_UpstreamStep(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/generate_meme", nil)

	WriteError(rec, req, errors.NewUpstreamError(errors.StepStickerConversion, fmt.Errorf("503 from converter")))

	p := decodeProblem(t, rec)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "sticker_conversion", p.Step)
	assert.Contains(t, p.Detail, "503 from converter")
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/generate_meme", nil)

	WriteError(rec, req, fmt.Errorf("nil pointer in renderer"))

	p := decodeProblem(t, rec)
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "INTERNAL_ERROR", p.Code)
	assert.NotContains(t, rec.Body.String(), "nil pointer")
}

func TestWriteProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/fetch_key_context", nil)

	WriteProblem(rec, req, http.StatusBadRequest, "Invalid JSON")

	p := decodeProblem(t, rec)
	assert.Equal(t, "about:blank", p.Type)
	assert.Equal(t, "Bad Request", p.Title)
	assert.Empty(t, p.Code)
}
