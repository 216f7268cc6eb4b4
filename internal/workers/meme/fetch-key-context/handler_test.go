package fetchkeycontext

import (
	"context"
	"fmt"
	"testing"
	"time"

	"meme-workers/internal/catalog"
	"meme-workers/internal/common/config"
	"meme-workers/internal/common/errors"
	"meme-workers/internal/common/logger"
	"meme-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

func createTestCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	records := make(map[string]models.TemplateRecord, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("tmpl-%02d", i)
		records[key] = models.TemplateRecord{
			Name:  key,
			Lines: 2,
			Blank: fmt.Sprintf("https://api.memegen.link/images/%s.png", key),
		}
	}
	cat, err := catalog.New(records)
	require.NoError(t, err)
	return cat
}

func createTestHandler(t *testing.T, cfg *Config, cat Catalog) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{Config: cfg, Catalog: cat, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

func intPtr(v int) *int { return &v }

// ==========================
// Handler Creation Tests
// ==========================

func TestNewHandler(t *testing.T) {
	cat := createTestCatalog(t, 1)

	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{name: "defaults", opts: HandlerOptions{Catalog: cat}},
		{name: "missing catalog", opts: HandlerOptions{}, wantErr: "requires a template catalog"},
		{
			name:    "bad timeout",
			opts:    HandlerOptions{Catalog: cat, Config: &Config{DefaultLimit: 5}},
			wantErr: "timeout must be positive",
		},
		{
			name:    "negative limit",
			opts:    HandlerOptions{Catalog: cat, Config: &Config{Timeout: time.Second, DefaultLimit: -1}},
			wantErr: "default_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		Camunda:  config.CamundaConfig{MaxJobsActive: 4, Timeout: 2000},
		Pipeline: config.PipelineConfig{DefaultLimit: 7, UnboundedContext: true},
	}
	wcfg := FromAppConfig(cfg)
	assert.True(t, wcfg.Enabled)
	assert.Equal(t, 4, wcfg.MaxJobsActive)
	assert.Equal(t, 2*time.Second, wcfg.Timeout)
	assert.Equal(t, 7, wcfg.DefaultLimit)
	assert.True(t, wcfg.Unbounded)
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_LimitHandling(t *testing.T) {
	cat := createTestCatalog(t, 12)

	tests := []struct {
		name      string
		cfg       *Config
		limit     *int
		wantCount int
	}{
		{"default limit", DefaultConfig(), nil, 5},
		{"explicit limit", DefaultConfig(), intPtr(3), 3},
		{"limit above catalog size", DefaultConfig(), intPtr(50), 12},
		{"zero limit returns everything", DefaultConfig(), intPtr(0), 12},
		{"unbounded when omitted", &Config{Timeout: time.Second, DefaultLimit: 5, Unbounded: true}, nil, 12},
		{"explicit limit wins over unbounded", &Config{Timeout: time.Second, DefaultLimit: 5, Unbounded: true}, intPtr(2), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, tt.cfg, cat)
			out, err := h.Execute(context.Background(), &Input{Message: "make a meme about mondays", Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, "make a meme about mondays", out.Message)
			assert.Len(t, out.Templates, tt.wantCount)

			for key, rec := range out.Templates {
				assert.Equal(t, key, rec.ID)
				assert.True(t, cat.Has(key))
			}
		})
	}
}

func TestExecute_BlankMessage(t *testing.T) {
	h := createTestHandler(t, nil, createTestCatalog(t, 2))

	_, err := h.Execute(context.Background(), &Input{Message: "   "})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestExecute_EchoesMessageVerbatim(t *testing.T) {
	h := createTestHandler(t, nil, createTestCatalog(t, 2))

	msg := "  make a meme:\n  top line\n  bottom line  "
	out, err := h.Execute(context.Background(), &Input{Message: msg})
	require.NoError(t, err)
	assert.Equal(t, msg, out.Message)
}

func TestExecute_SampleIsUniform(t *testing.T) {
	cat := createTestCatalog(t, 10)
	h := createTestHandler(t, DefaultConfig(), cat)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		out, err := h.Execute(context.Background(), &Input{Message: "x", Limit: intPtr(2)})
		require.NoError(t, err)
		for k := range out.Templates {
			seen[k] = true
		}
	}
	assert.Len(t, seen, 10)
}
