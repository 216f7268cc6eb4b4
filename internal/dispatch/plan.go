package dispatch

import (
	"strings"

	"meme-workers/internal/common/errors"
	"meme-workers/internal/common/validation"
	"meme-workers/internal/models"
)

// Plan is the resolved generation strategy for one request: either a
// TemplatePlan or a SearchPlan.
type Plan interface {
	Branch() models.Strategy
	isPlan()
}

// TemplatePlan renders from a catalog template, or passes through a link the
// agent already rendered.
type TemplatePlan struct {
	Key        string
	Template   *models.TemplateRecord
	Lines      []string
	DirectLink string
	// Mismatch is set when the supplied text did not match the template's
	// line count and was fitted.
	Mismatch bool
	Supplied int
	// Overrode is set when the record named a template but the caller asked
	// for search generation.
	Overrode bool
}

func (TemplatePlan) Branch() models.Strategy { return models.StrategyTemplate }
func (TemplatePlan) isPlan()                 {}

// SearchPlan resolves an image by query and overlays a single text block.
type SearchPlan struct {
	Query string
	Text  string
}

func (SearchPlan) Branch() models.Strategy { return models.StrategySearch }
func (SearchPlan) isPlan()                 {}

// Plan resolves req into a concrete plan without touching the network.
// Catalog and schema errors surface here, before any collaborator call.
func (e *Engine) Plan(req models.DispatchRequest) (Plan, error) {
	d := req.Decision
	key := strings.TrimSpace(d.TemplateKey)
	query := strings.TrimSpace(d.Search)
	link := strings.TrimSpace(d.Link)

	if len(d.Text) == 0 {
		return nil, errors.NewSchemaError("text must contain at least one line", "text")
	}

	if key != "" {
		plan := TemplatePlan{Key: key, Overrode: !req.UseTemplate}
		if validation.IsValidURL(link) {
			plan.DirectLink = link
			return plan, nil
		}

		tmpl, err := e.catalog.Lookup(key)
		if err != nil {
			return nil, err
		}
		plan.Template = &tmpl
		plan.Supplied = len(d.Text)
		plan.Lines, plan.Mismatch = FitLines(d.Text, tmpl.Lines)
		return plan, nil
	}

	if req.UseTemplate {
		if validation.IsValidURL(link) {
			return TemplatePlan{DirectLink: link}, nil
		}
		return nil, errors.NewSchemaError("use_template requires template_key or a valid link", "template_key", "link")
	}

	if query == "" {
		return nil, errors.NewSchemaError("no generation strategy specified", "search", "template_key")
	}
	return SearchPlan{Query: query, Text: strings.Join(d.Text, " ")}, nil
}

// FitLines returns exactly n lines for a template. Text that already has n
// entries is returned unchanged. Otherwise embedded newlines are split out,
// surplus lines are joined into the last slot and missing ones are blank.
func FitLines(text []string, n int) ([]string, bool) {
	if len(text) == n {
		return append([]string(nil), text...), false
	}
	if n <= 0 {
		return nil, true
	}

	var lines []string
	for _, t := range text {
		lines = append(lines, strings.Split(t, "\n")...)
	}

	out := make([]string, n)
	switch {
	case len(lines) > n:
		copy(out, lines[:n-1])
		out[n-1] = strings.Join(lines[n-1:], " ")
	default:
		copy(out, lines)
	}
	return out, true
}
