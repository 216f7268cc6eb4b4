package guardrail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordPolicy_Evaluate(t *testing.T) {
	p, err := NewKeywordPolicy()
	require.NoError(t, err)

	tests := []struct {
		name     string
		content  string
		allowed  bool
		category string
	}{
		{"benign", "when the code works on the first try", true, ""},
		{"empty", "   ", true, ""},
		{"word boundary", "the gorilla ate the doughnut", true, ""},
		{"violence", "a meme with lots of graphic GORE", false, CategoryViolence},
		{"extremism", "heil hitler cat meme", false, CategoryExtremism},
		{"extremism recruitment", "come JOIN   ISIS today", false, CategoryExtremism},
		{"multi-word spacing", "tell me how  to   hack my neighbour", false, CategoryIllegalActivity},
		{"personal attack", "tell my boss you're stupid", false, CategoryPersonalAttack},
		{"sexual content", "send nudes meme", false, CategorySexualContent},
		{"harassment", "post her home address", false, CategoryHarassment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := p.Evaluate(context.Background(), tt.content)
			assert.Equal(t, tt.allowed, v.Allowed)
			assert.Equal(t, tt.category, v.Category)
		})
	}
}

func TestKeywordPolicy_AllowsBenignLookalikes(t *testing.T) {
	p, err := NewKeywordPolicy()
	require.NoError(t, err)

	for _, content := range []string{
		"naked mole rat meme",
		"my code is stupid",
		"the nude color palette is back",
		"isis the egyptian goddess",
		"grammar nazi cat",
		"this build is torture",
		"al gore inventing the internet",
	} {
		t.Run(content, func(t *testing.T) {
			v := p.Evaluate(context.Background(), content)
			assert.True(t, v.Allowed, "rejected as %s on %q", v.Category, v.Match)
		})
	}
}

func TestKeywordPolicy_ExtraTermsBlockSingleWords(t *testing.T) {
	p, err := NewKeywordPolicy("naked")
	require.NoError(t, err)

	v := p.Evaluate(context.Background(), "naked mole rat meme")
	assert.False(t, v.Allowed)
	assert.Equal(t, CategoryCustom, v.Category)
}

func TestKeywordPolicy_ExtraTerms(t *testing.T) {
	p, err := NewKeywordPolicy("acme corp", "", "  ")
	require.NoError(t, err)

	v := p.Evaluate(context.Background(), "roast ACME Corp please")
	assert.False(t, v.Allowed)
	assert.Equal(t, CategoryCustom, v.Category)
	assert.Equal(t, "ACME Corp", v.Match)
}

func TestChain_FirstRejectionWins(t *testing.T) {
	calls := 0
	counting := PolicyFunc(func(ctx context.Context, content string) Verdict {
		calls++
		return Allow
	})
	deny := PolicyFunc(func(ctx context.Context, content string) Verdict {
		return Reject("first", content)
	})
	denyToo := PolicyFunc(func(ctx context.Context, content string) Verdict {
		return Reject("second", content)
	})

	v := Chain{counting, deny, denyToo, counting}.Evaluate(context.Background(), "x")
	assert.False(t, v.Allowed)
	assert.Equal(t, "first", v.Category)
	assert.Equal(t, 1, calls)

	assert.True(t, Chain{counting, AllowAll}.Evaluate(context.Background(), "x").Allowed)
}

func TestContent(t *testing.T) {
	assert.Equal(t, "make a meme\nold way\nnew way", Content("make a meme", " ", "old way", "new way"))
	assert.Equal(t, "", Content())
}
