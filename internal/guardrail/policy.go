// Package guardrail gates meme requests against the content policy before
// any decision record is validated or dispatched.
package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RefusalMessage is returned to the agent in place of a decision record.
const RefusalMessage = "I cannot create this meme as it may contain inappropriate content. Please try a different request."

// Categories of disallowed content.
const (
	CategoryHateSpeech      = "hate_speech"
	CategorySexualContent   = "sexual_content"
	CategoryViolence        = "extreme_violence"
	CategoryIllegalActivity = "illegal_activity"
	CategoryStereotypes     = "harmful_stereotypes"
	CategoryHarassment      = "pii_harassment"
	CategoryMisinformation  = "dangerous_misinformation"
	CategoryExtremism       = "political_extremism"
	CategoryPersonalAttack  = "personal_attack"
	CategoryCustom          = "blocked_term"
)

// Verdict is the outcome of evaluating one piece of content.
type Verdict struct {
	Allowed  bool   `json:"allowed"`
	Category string `json:"category,omitempty"`
	Match    string `json:"-"`
}

// Allow is the passing verdict.
var Allow = Verdict{Allowed: true}

// Reject builds a failing verdict.
func Reject(category, match string) Verdict {
	return Verdict{Allowed: false, Category: category, Match: match}
}

// Policy decides whether content may be turned into a meme.
type Policy interface {
	Evaluate(ctx context.Context, content string) Verdict
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, content string) Verdict

func (f PolicyFunc) Evaluate(ctx context.Context, content string) Verdict {
	return f(ctx, content)
}

// AllowAll passes everything.
var AllowAll Policy = PolicyFunc(func(context.Context, string) Verdict { return Allow })

// Chain evaluates policies in order; the first rejection wins.
type Chain []Policy

func (c Chain) Evaluate(ctx context.Context, content string) Verdict {
	for _, p := range c {
		if v := p.Evaluate(ctx, content); !v.Allowed {
			return v
		}
	}
	return Allow
}

// defaultTerms are matched case-insensitively on word boundaries. They are
// phrases rather than bare words so that ordinary requests ("naked mole
// rat", "my code is stupid") pass; operators block single words through
// guardrail.blocked_terms.
var defaultTerms = map[string][]string{
	CategoryHateSpeech:      {"racial slur", "ethnic cleansing", "subhuman", "white power", "go back to your country"},
	CategorySexualContent:   {"send nudes", "nude photos", "naked photos", "porn video", "pornographic", "explicit sex", "sexual act"},
	CategoryViolence:        {"graphic gore", "behead", "beheading", "dismember", "mutilate", "torture them", "massacre them"},
	CategoryIllegalActivity: {"make a bomb", "buy drugs", "sell drugs", "counterfeit money", "how to hack", "launder money"},
	CategoryStereotypes:     {"all women are", "all men are", "those people are", "typical immigrant"},
	CategoryHarassment:      {"home address", "phone number of", "social security number", "doxx", "dox"},
	CategoryMisinformation:  {"vaccines cause autism", "drink bleach", "covid is a hoax", "election was stolen"},
	CategoryExtremism:       {"heil hitler", "nazi propaganda", "nazi salute", "terrorist propaganda", "join isis", "isis propaganda", "kkk"},
	CategoryPersonalAttack:  {"you are ugly", "you're ugly", "you are stupid", "you're stupid", "kill yourself", "kys", "worthless loser"},
}

type rule struct {
	category string
	re       *regexp.Regexp
}

// KeywordPolicy rejects content matching any per-category term.
type KeywordPolicy struct {
	rules []rule
}

// NewKeywordPolicy builds the default rule set plus extra operator-supplied
// terms, which are reported under CategoryCustom.
func NewKeywordPolicy(extraTerms ...string) (*KeywordPolicy, error) {
	categories := make([]string, 0, len(defaultTerms))
	for c := range defaultTerms {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	p := &KeywordPolicy{}
	for _, c := range categories {
		re, err := compileTerms(defaultTerms[c])
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c, err)
		}
		p.rules = append(p.rules, rule{category: c, re: re})
	}

	var extra []string
	for _, t := range extraTerms {
		if t = strings.TrimSpace(t); t != "" {
			extra = append(extra, t)
		}
	}
	if len(extra) > 0 {
		re, err := compileTerms(extra)
		if err != nil {
			return nil, fmt.Errorf("blocked terms: %w", err)
		}
		p.rules = append(p.rules, rule{category: CategoryCustom, re: re})
	}

	return p, nil
}

func compileTerms(terms []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(strings.ToLower(t)), " ", `\s+`)
	}
	return regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func (p *KeywordPolicy) Evaluate(ctx context.Context, content string) Verdict {
	if strings.TrimSpace(content) == "" {
		return Allow
	}
	for _, r := range p.rules {
		if m := r.re.FindString(content); m != "" {
			return Reject(r.category, m)
		}
	}
	return Allow
}

// Content joins the user-visible parts of a request for evaluation.
func Content(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
