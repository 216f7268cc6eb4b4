package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaError_ListsFields(t *testing.T) {
	err := NewSchemaError("no generation strategy specified", "search", "template_key")

	assert.Equal(t, ErrCodeSchema, err.Code)
	assert.Equal(t, []string{"search", "template_key"}, err.Fields())
	assert.Contains(t, err.Error(), "no generation strategy specified")
	assert.False(t, err.Retryable)
}

func TestNewUpstreamError_KeepsStepAndCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewUpstreamError(StepImageSearch, cause)

	assert.Equal(t, StepImageSearch, err.Step())
	assert.True(t, stderrors.Is(err, cause))

	wrapped := fmt.Errorf("generate: %w", err)
	assert.True(t, IsCode(wrapped, ErrCodeUpstream))
	assert.False(t, IsCode(wrapped, ErrCodeSchema))
}

func TestNormalize(t *testing.T) {
	t.Run("standard error passes through", func(t *testing.T) {
		orig := NewTemplateNotFoundError("drake")
		assert.Same(t, orig, Normalize(fmt.Errorf("wrap: %w", orig)))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		stdErr := Normalize(fmt.Errorf("boom"))
		assert.Equal(t, ErrCodeInternal, stdErr.Code)
		assert.Equal(t, "boom", stdErr.Details)
	})
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StandardError
		wantCode string
		wantStep string
	}{
		{"schema", NewSchemaError("bad"), "MEME_SCHEMA_ERROR", ""},
		{"not found", NewTemplateNotFoundError("drake"), "MEME_TEMPLATE_NOT_FOUND", ""},
		{"upstream", NewUpstreamError(StepStickerConversion, fmt.Errorf("503")), "MEME_UPSTREAM_ERROR", StepStickerConversion},
		{"unmapped", NewLineCountMismatchError("drake", 2, 3), "LINE_COUNT_MISMATCH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.err)

			require.NotNil(t, bpmnErr)
			assert.Equal(t, tt.wantCode, bpmnErr.Code)
			assert.Equal(t, 0, bpmnErr.Retries)

			vars := bpmnErr.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			if tt.wantStep != "" {
				assert.Equal(t, tt.wantStep, vars["errorStep"])
			} else {
				assert.NotContains(t, vars, "errorStep")
			}
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeSchema))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeLineCountMismatch))
	assert.Equal(t, "CATALOG", GetErrorCategory(ErrCodeTemplateNotFound))
	assert.Equal(t, "EXTERNAL", GetErrorCategory(ErrCodeUpstream))
	assert.Equal(t, "POLICY", GetErrorCategory(ErrCodeGuardrailRejection))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
