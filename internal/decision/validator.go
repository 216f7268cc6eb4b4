// Package decision validates and normalizes the decision record an agent
// produces between parse_message and generate_meme.
package decision

import (
	"fmt"
	"strings"

	"meme-workers/internal/common/errors"
	"meme-workers/internal/common/validation"
	"meme-workers/internal/models"
)

// Warning codes.
const (
	WarnBothStrategies    = "BOTH_STRATEGIES"
	WarnLineCountMismatch = "LINE_COUNT_MISMATCH"
	WarnTextFlattened     = "TEXT_FLATTENED"
	WarnLinkIgnored       = "LINK_IGNORED"
)

// TemplateLookup resolves template keys.
type TemplateLookup interface {
	Lookup(key string) (models.TemplateRecord, error)
}

// Result is a validated decision record with its resolved strategy.
type Result struct {
	Record   models.DecisionRecord  `json:"decision"`
	Strategy models.Strategy        `json:"strategy"`
	Template *models.TemplateRecord `json:"-"`
	Warnings []models.Warning       `json:"warnings"`
}

type Validator struct {
	catalog TemplateLookup
}

func NewValidator(catalog TemplateLookup) *Validator {
	return &Validator{catalog: catalog}
}

// Validate converts raw agent output into a DecisionRecord. Structural
// problems are SCHEMA_ERROR, an unknown template key is TEMPLATE_NOT_FOUND.
// Line-count mismatches are returned as warnings.
func (v *Validator) Validate(raw interface{}) (*Result, error) {
	rec, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return v.Check(rec)
}

// Decode parses raw agent output and checks it against DecisionSchema
// without consulting the catalog.
func Decode(raw interface{}) (models.DecisionRecord, error) {
	doc, err := ParseRaw(raw)
	if err != nil {
		return models.DecisionRecord{}, err
	}

	check, err := validation.ValidateAgainstSchema(validation.DecisionSchema, doc)
	if err != nil {
		return models.DecisionRecord{}, errors.NewSchemaError(err.Error(), "decision")
	}
	if !check.Valid {
		return models.DecisionRecord{}, errors.NewSchemaError(strings.Join(check.GetErrorMessages(), "; "), check.Fields()...)
	}

	return models.DecisionRecord{
		Search:      stringField(doc, "search"),
		Link:        stringField(doc, "link"),
		TemplateKey: stringField(doc, "template_key"),
		Text:        textField(doc["text"]),
	}, nil
}

// UserContent returns the agent-authored strings of a parsed document: the
// search query followed by the text lines. Unparseable input yields nil.
func UserContent(raw interface{}) []string {
	doc, err := ParseRaw(raw)
	if err != nil {
		if s, ok := raw.(string); ok {
			return []string{s}
		}
		return nil
	}
	return append([]string{stringField(doc, "search")}, textField(doc["text"])...)
}

// Check applies the semantic rules to an already-typed record.
func (v *Validator) Check(rec models.DecisionRecord) (*Result, error) {
	rec.Search = strings.TrimSpace(rec.Search)
	rec.TemplateKey = strings.TrimSpace(rec.TemplateKey)
	rec.Link = strings.TrimSpace(rec.Link)

	if len(rec.Text) == 0 {
		return nil, errors.NewSchemaError("text must contain at least one line", "text")
	}
	if rec.Search == "" && rec.TemplateKey == "" {
		return nil, errors.NewSchemaError("no generation strategy specified", "search", "template_key")
	}

	res := &Result{Warnings: []models.Warning{}}

	if rec.Search != "" && rec.TemplateKey != "" {
		res.warn(WarnBothStrategies, "search",
			fmt.Sprintf("both search and template_key set; using template %q", rec.TemplateKey))
		rec.Search = ""
	}

	if rec.TemplateKey != "" {
		tmpl, err := v.catalog.Lookup(rec.TemplateKey)
		if err != nil {
			return nil, err
		}
		res.Template = &tmpl
		res.Strategy = models.StrategyTemplate

		if len(rec.Text) != tmpl.Lines {
			res.warn(WarnLineCountMismatch, "text",
				fmt.Sprintf("template %q takes %d line(s), got %d; text will be fitted", tmpl.ID, tmpl.Lines, len(rec.Text)))
		}
		if rec.Link != "" && !validation.IsValidURL(rec.Link) {
			res.warn(WarnLinkIgnored, "link", "link is not an absolute http(s) URL; rendering from template")
			rec.Link = ""
		}
	} else {
		res.Strategy = models.StrategySearch

		if len(rec.Text) > 1 {
			res.warn(WarnTextFlattened, "text",
				fmt.Sprintf("search generation takes one text block; %d lines will be joined", len(rec.Text)))
		}
		if rec.Link != "" {
			res.warn(WarnLinkIgnored, "link", "link is only used with a template")
			rec.Link = ""
		}
	}

	res.Record = rec
	return res, nil
}

// HasWarning reports whether a warning with code was raised.
func (r *Result) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func (r *Result) warn(code, field, msg string) {
	r.Warnings = append(r.Warnings, models.Warning{Code: code, Field: field, Message: msg})
}

func stringField(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

func textField(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	}
	return nil
}
