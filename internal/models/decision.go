// internal/models/decision.go
package models

// Strategy names the generation path a decision record selects.
type Strategy string

const (
	StrategyTemplate Strategy = "template"
	StrategySearch   Strategy = "search"
)

// DecisionRecord is the structured strategy produced by the calling agent
// between parse_message and generate_meme.
type DecisionRecord struct {
	Search      string   `json:"search,omitempty"`
	Link        string   `json:"link,omitempty"`
	Text        []string `json:"text"`
	TemplateKey string   `json:"template_key,omitempty"`
}

// Strategy returns the active branch. A template key always wins.
func (d DecisionRecord) Strategy() Strategy {
	if d.TemplateKey != "" {
		return StrategyTemplate
	}
	return StrategySearch
}

// Warning is a recoverable condition found while normalizing agent output.
type Warning struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}
