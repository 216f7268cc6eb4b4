package decision

import (
	"testing"

	"meme-workers/internal/catalog"
	"meme-workers/internal/common/errors"
	"meme-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	cat, err := catalog.New(map[string]models.TemplateRecord{
		"drake": {Name: "Drakeposting", Lines: 2, Blank: "https://x/drake.png"},
		"gru":   {Name: "Gru's Plan", Lines: 4, Blank: "https://x/gru.jpg"},
	})
	require.NoError(t, err)
	return NewValidator(cat)
}

// ==========================
// Parsing
// ==========================

func TestParseRaw_Variants(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
	}{
		{"upper-case keys", map[string]interface{}{"SEARCH": nil, "LINK": nil, "TEXT": []interface{}{"old way", "new way"}, "TEMPLATE_KEY": "drake"}},
		{"json text", `{"template_key": "drake", "text": ["old way", "new way"]}`},
		{"python literal", `{'SEARCH': None, 'LINK': None, 'TEXT': ['old way', 'new way'], 'TEMPLATE_KEY': 'drake'}`},
		{"fenced", "```json\n{\"template_key\": \"drake\", \"text\": [\"old way\", \"new way\"]}\n```"},
		{"trailing comma", `{"template_key": "drake", "text": ["old way", "new way"],}`},
		{"double encoded", `"{\"template_key\": \"drake\", \"text\": [\"old way\", \"new way\"]}"`},
		{"typed record", models.DecisionRecord{TemplateKey: "drake", Text: []string{"old way", "new way"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseRaw(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, "drake", doc["template_key"])
			assert.Nil(t, doc["search"])
		})
	}
}

func TestParseRaw_AbsentMarkers(t *testing.T) {
	doc, err := ParseRaw(map[string]interface{}{"search": "None", "link": " null ", "template_key": " drake ", "text": "x"})
	require.NoError(t, err)
	assert.Nil(t, doc["search"])
	assert.Nil(t, doc["link"])
	assert.Equal(t, "drake", doc["template_key"])
}

func TestParseRaw_Rejects(t *testing.T) {
	for name, raw := range map[string]interface{}{
		"nil":    nil,
		"empty":  "   ",
		"array":  `["a", "b"]`,
		"number": `42`,
		"prose":  "use drake please",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRaw(raw)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))
		})
	}
}

func TestParseRaw_CollidingKeys(t *testing.T) {
	t.Run("conflicting values are rejected every time", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			_, err := Decode(`{"TEMPLATE_KEY": "drake", "template_key": "fry", "text": ["a"]}`)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))
			assert.Contains(t, err.Error(), `"TEMPLATE_KEY"`)
			assert.Contains(t, err.Error(), `"template_key"`)
		}
	})

	t.Run("alias conflict is rejected", func(t *testing.T) {
		_, err := ParseRaw(map[string]interface{}{"search": "cats", "query": "dogs", "text": "x"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))
	})

	t.Run("set value wins over absent marker", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			doc, err := ParseRaw(map[string]interface{}{"TEMPLATE_KEY": "None", "template_key": "drake", "templatekey": nil, "text": "x"})
			require.NoError(t, err)
			assert.Equal(t, "drake", doc["template_key"])
		}
	})

	t.Run("equal values agree", func(t *testing.T) {
		doc, err := ParseRaw(`{"TEXT": ["a", "b"], "lines": ["a", "b"], "template_key": "drake"}`)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"a", "b"}, doc["text"])
	})
}

// ==========================
// Validation
// ==========================

func TestValidate_TemplateBranch(t *testing.T) {
	res, err := newValidator(t).Validate(map[string]interface{}{
		"template_key": "drake",
		"text":         []interface{}{"old way", "new way"},
		"link":         nil,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StrategyTemplate, res.Strategy)
	require.NotNil(t, res.Template)
	assert.Equal(t, "https://x/drake.png", res.Template.Blank)
	assert.Empty(t, res.Warnings)
}

func TestValidate_SearchBranch(t *testing.T) {
	res, err := newValidator(t).Validate(`{"search": "surprised pikachu", "text": ["when it works"]}`)
	require.NoError(t, err)
	assert.Equal(t, models.StrategySearch, res.Strategy)
	assert.Equal(t, "surprised pikachu", res.Record.Search)
	assert.Nil(t, res.Template)
}

func TestValidate_BothSetPrefersTemplate(t *testing.T) {
	res, err := newValidator(t).Validate(map[string]interface{}{
		"search":       "cats",
		"template_key": "drake",
		"text":         []interface{}{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StrategyTemplate, res.Strategy)
	assert.Empty(t, res.Record.Search)
	assert.True(t, res.HasWarning(WarnBothStrategies))
}

func TestValidate_NeitherSet(t *testing.T) {
	_, err := newValidator(t).Validate(map[string]interface{}{"text": []interface{}{"a"}})
	require.Error(t, err)

	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSchema, stdErr.Code)
	assert.Equal(t, []string{"search", "template_key"}, stdErr.Fields())
	assert.Contains(t, stdErr.Details, "no generation strategy specified")
}

func TestValidate_SchemaErrorsListFields(t *testing.T) {
	_, err := newValidator(t).Validate(map[string]interface{}{"template_key": 7})
	require.Error(t, err)

	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSchema, stdErr.Code)
	assert.ElementsMatch(t, []string{"template_key", "text"}, stdErr.Fields())
}

func TestValidate_UnknownTemplate(t *testing.T) {
	_, err := newValidator(t).Validate(map[string]interface{}{"template_key": "nope", "text": []interface{}{"a"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTemplateNotFound))
}

func TestValidate_LineCountMismatchIsWarning(t *testing.T) {
	res, err := newValidator(t).Validate(map[string]interface{}{
		"template_key": "gru",
		"text":         []interface{}{"step one", "step two"},
	})
	require.NoError(t, err)
	assert.True(t, res.HasWarning(WarnLineCountMismatch))
	assert.Equal(t, []string{"step one", "step two"}, res.Record.Text)
}

func TestValidate_SearchWarnings(t *testing.T) {
	res, err := newValidator(t).Validate(map[string]interface{}{
		"search": "cats",
		"link":   "https://example.com/cat.png",
		"text":   []interface{}{"line one", "line two"},
	})
	require.NoError(t, err)
	assert.True(t, res.HasWarning(WarnTextFlattened))
	assert.True(t, res.HasWarning(WarnLinkIgnored))
	assert.Empty(t, res.Record.Link)
}

func TestValidate_InvalidLinkDroppedOnTemplate(t *testing.T) {
	res, err := newValidator(t).Validate(map[string]interface{}{
		"template_key": "drake",
		"link":         "drake.png",
		"text":         []interface{}{"a", "b"},
	})
	require.NoError(t, err)
	assert.True(t, res.HasWarning(WarnLinkIgnored))
	assert.Empty(t, res.Record.Link)
}

func TestValidate_SingleStringText(t *testing.T) {
	res, err := newValidator(t).Validate(map[string]interface{}{"search": "cats", "text": "just one"})
	require.NoError(t, err)
	assert.Equal(t, []string{"just one"}, res.Record.Text)
}

func TestDecode_SkipsCatalog(t *testing.T) {
	rec, err := Decode(`{"TEMPLATE_KEY": "not-in-catalog", "TEXT": ["a"], "LINK": None}`)
	require.NoError(t, err)
	assert.Equal(t, "not-in-catalog", rec.TemplateKey)
	assert.Empty(t, rec.Link)
	assert.Equal(t, []string{"a"}, rec.Text)
}

func TestUserContent(t *testing.T) {
	assert.Equal(t, []string{"cats", "top", "bottom"},
		UserContent(map[string]interface{}{"search": "cats", "text": []interface{}{"top", "bottom"}}))
	assert.Equal(t, []string{"", "hi"}, UserContent(map[string]interface{}{"template_key": "drake", "text": "hi"}))
	assert.Equal(t, []string{"42"}, UserContent("42"))
	assert.Nil(t, UserContent(nil))
}
