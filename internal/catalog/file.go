package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"meme-workers/internal/models"

	"gopkg.in/yaml.v3"
)

// FileSource reads a catalog file. YAML is chosen by a .yaml/.yml
// extension, anything else is JSON. Both formats accept an object keyed by
// template id or a list of records.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

func (s *FileSource) Load(ctx context.Context) (map[string]models.TemplateRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}

// DecodeJSON parses a JSON catalog document.
func DecodeJSON(data []byte) (map[string]models.TemplateRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []models.TemplateRecord
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode catalog list: %w", err)
		}
		return keyed(list)
	}

	var records map[string]models.TemplateRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode catalog object: %w", err)
	}
	return records, nil
}

// DecodeYAML parses a YAML catalog document.
func DecodeYAML(data []byte) (map[string]models.TemplateRecord, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return map[string]models.TemplateRecord{}, nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		var list []models.TemplateRecord
		if err := doc.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode catalog list: %w", err)
		}
		return keyed(list)
	}

	var records map[string]models.TemplateRecord
	if err := doc.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode catalog mapping: %w", err)
	}
	return records, nil
}
