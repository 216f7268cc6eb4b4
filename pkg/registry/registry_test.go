package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Validate())
	require.Len(t, reg.Tools, 3)

	parse, ok := reg.Get("parse_message")
	require.True(t, ok)
	assert.Equal(t, "fetch_key_context", parse.RequiresPrevious)
	assert.Equal(t, ChainMiddle, parse.ChainPosition)
	assert.Contains(t, parse.Description, "Please try a different request.")

	gen, ok := reg.Get("generate_meme")
	require.True(t, ok)
	assert.Equal(t, "meme-generate-meme", gen.TaskType)

	_, ok = reg.Get("make_meme")
	assert.False(t, ok)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ToolRegistry)
		errMsg string
	}{
		{"duplicate", func(r *ToolRegistry) { r.Tools[1].Name = r.Tools[0].Name }, "duplicate"},
		{"unknown previous", func(r *ToolRegistry) { r.Tools[2].RequiresPrevious = "nope" }, "unknown tool"},
		{"self reference", func(r *ToolRegistry) { r.Tools[1].RequiresPrevious = "parse_message" }, "unknown tool"},
		{"two starts", func(r *ToolRegistry) { r.Tools[1].ChainPosition = ChainStart }, "exactly one start"},
		{"bad position", func(r *ToolRegistry) { r.Tools[0].ChainPosition = "first" }, "unknown chain position"},
		{"empty name", func(r *ToolRegistry) { r.Tools[0].Name = "" }, "empty name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := Default()
			tt.mutate(reg)
			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.json")

	data, err := json.Marshal(Default())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, reg.Tools, 3)

	require.NoError(t, os.WriteFile(path, []byte(`{"tools":[{"name":"a","chainPosition":"start"}]}`), 0o644))
	_, err = LoadRegistry(path)
	assert.Error(t, err)

	_, err = LoadRegistry(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
