// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// Default returns the built-in registry for the three pipeline tools.
func Default() *ToolRegistry {
	return &ToolRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-17",
		Tools: []Tool{
			{
				Name:          "fetch_key_context",
				Title:         "Step 1: Fetch Templates",
				TaskType:      "meme-fetch-key-context",
				ChainPosition: ChainStart,
				Description: "Call first. Returns the user's message together with a sample of the " +
					"predefined meme templates (id, name, keywords, lines, blank, example). Skip this step " +
					"and go straight to parse_message when the user asks to search instead of using templates.",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"message"},
					"properties": map[string]interface{}{
						"message": map[string]interface{}{"type": "string", "minLength": 1},
						"limit":   map[string]interface{}{"type": "integer", "default": 5},
					},
				},
				ErrorCodes: []string{"INVALID_INPUT"},
				Timeout:    "30s",
				Tags:       []string{"first_step", "initialization"},
			},
			{
				Name:             "parse_message",
				Title:            "Step 2: Parse Message",
				TaskType:         "meme-parse-message",
				ChainPosition:    ChainMiddle,
				RequiresPrevious: "fetch_key_context",
				Description: "Call second with your decision record. Prefer a predefined template; search " +
					"only when none fits or the user asks for it. Format: {SEARCH: <query or null>, LINK: " +
					"<link or null>, TEXT: [<one entry per template line; 1,2,3,4,5,6 or 8 entries>], " +
					"TEMPLATE_KEY: <key or null>}. Requests for hate speech, explicit sexual content, extreme " +
					"violence, illegal activity, harmful stereotypes, personal information, dangerous " +
					"misinformation, political extremism or personal attacks are refused with: \"I cannot " +
					"create this meme as it may contain inappropriate content. Please try a different request.\"",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"decision"},
					"properties": map[string]interface{}{
						"message":  map[string]interface{}{"type": "string"},
						"decision": map[string]interface{}{"type": []interface{}{"object", "string"}},
					},
				},
				ErrorCodes: []string{"SCHEMA_ERROR", "TEMPLATE_NOT_FOUND"},
				Timeout:    "10s",
				Tags:       []string{"second_step", "processing"},
			},
			{
				Name:             "generate_meme",
				Title:            "Step 3: Generate Meme",
				TaskType:         "meme-generate-meme",
				ChainPosition:    ChainEnd,
				RequiresPrevious: "parse_message",
				Description: "Call last with the validated decision record. Returns the meme link, or the " +
					"sticker link when want_tele_sticker is true. save_as_image stores a local copy.",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"decision"},
					"properties": map[string]interface{}{
						"decision":          map[string]interface{}{"type": []interface{}{"object", "string"}},
						"use_template":      map[string]interface{}{"type": "boolean"},
						"want_tele_sticker": map[string]interface{}{"type": "boolean", "default": false},
						"save_as_image":     map[string]interface{}{"type": "boolean", "default": true},
					},
				},
				ErrorCodes: []string{"SCHEMA_ERROR", "TEMPLATE_NOT_FOUND", "UPSTREAM_ERROR"},
				Timeout:    "60s",
				Tags:       []string{"final_step", "generation"},
			},
		},
	}
}

// LoadRegistry reads and validates a registry file.
func LoadRegistry(path string) (*ToolRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ToolRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Get returns the tool named name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	for _, t := range r.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Validate checks that names are unique, every requiresPrevious names a
// known tool, and the chain has exactly one start and one end.
func (r *ToolRegistry) Validate() error {
	names := make(map[string]bool, len(r.Tools))
	positions := make(map[string]int)

	for _, t := range r.Tools {
		if t.Name == "" {
			return fmt.Errorf("tool with empty name")
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate tool %q", t.Name)
		}
		names[t.Name] = true

		switch t.ChainPosition {
		case ChainStart, ChainMiddle, ChainEnd:
			positions[t.ChainPosition]++
		default:
			return fmt.Errorf("tool %q has unknown chain position %q", t.Name, t.ChainPosition)
		}
	}

	for _, t := range r.Tools {
		if t.RequiresPrevious == "" {
			continue
		}
		if t.RequiresPrevious == t.Name || !names[t.RequiresPrevious] {
			return fmt.Errorf("tool %q requires unknown tool %q", t.Name, t.RequiresPrevious)
		}
	}

	if positions[ChainStart] != 1 || positions[ChainEnd] != 1 {
		return fmt.Errorf("registry needs exactly one start and one end tool, got %d and %d",
			positions[ChainStart], positions[ChainEnd])
	}
	return nil
}
