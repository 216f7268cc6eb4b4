// internal/models/template.go
package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// allowedLineCounts lists the text slot counts a template may declare.
var allowedLineCounts = map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 8: true}

// IsAllowedLineCount reports whether n is a valid number of template text lines.
func IsAllowedLineCount(n int) bool {
	return allowedLineCounts[n]
}

// TemplateRecord is one entry of the template catalog.
type TemplateRecord struct {
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Keywords []string    `json:"keywords" yaml:"keywords"`
	Lines    int         `json:"lines" yaml:"lines"`
	Blank    string      `json:"blank" yaml:"blank"`
	Example  Example     `json:"example" yaml:"example"`
	Overlays interface{} `json:"overlays,omitempty" yaml:"overlays,omitempty"`
	Styles   interface{} `json:"styles,omitempty" yaml:"styles,omitempty"`
	Source   string      `json:"source" yaml:"source"`
}

// Example shows how text is composited on a template. Catalog feeds carry it
// either as a bare URL or as an object with the sample text.
type Example struct {
	Text []string `json:"text,omitempty" yaml:"text,omitempty"`
	URL  string   `json:"url" yaml:"url"`
}

func (e *Example) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		e.URL = url
		return nil
	}

	type plain Example
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("example: %w", err)
	}
	*e = Example(p)
	return nil
}

func (e *Example) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.URL = node.Value
		return nil
	}

	type plain Example
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("example: %w", err)
	}
	*e = Example(p)
	return nil
}
