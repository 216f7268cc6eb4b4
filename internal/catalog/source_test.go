package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"meme-workers/internal/common/errors"
	httpclient "meme-workers/internal/common/http"
	"meme-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// File source
// ==========================

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileSource_JSONObject(t *testing.T) {
	path := writeFile(t, "templates.json", `{
		"drake": {"name": "Drakeposting", "lines": 2, "blank": "https://x/drake.png",
		          "example": {"text": ["no", "yes"], "url": "https://x/drake/no/yes.png"}}
	}`)

	records, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, records, "drake")
	assert.Equal(t, []string{"no", "yes"}, records["drake"].Example.Text)
}

func TestFileSource_JSONList(t *testing.T) {
	path := writeFile(t, "templates.json", `[
		{"id": "fry", "name": "Futurama Fry", "lines": 2, "blank": "https://x/fry.png",
		 "example": "https://x/fry/a/b.png", "overlays": 0, "styles": []}
	]`)

	records, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://x/fry/a/b.png", records["fry"].Example.URL)
}

func TestFileSource_YAML(t *testing.T) {
	path := writeFile(t, "templates.yaml", `
drake:
  name: Drakeposting
  lines: 2
  blank: https://x/drake.png
  keywords: [prefer]
gru:
  name: Gru's Plan
  lines: 4
  blank: https://x/gru.jpg
`)

	cat, err := Load(context.Background(), NewFileSource(path))
	require.NoError(t, err)
	assert.Equal(t, []string{"drake", "gru"}, cat.Keys())
}

func TestFileSource_YAMLList(t *testing.T) {
	path := writeFile(t, "templates.yml", `
- id: pooh
  name: Tuxedo Winnie the Pooh
  lines: 2
  blank: https://x/pooh.png
`)

	records, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, records["pooh"].Lines)
}

func TestFileSource_ListRejectsDuplicateIDs(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{
			name: "json duplicate",
			file: "templates.json",
			body: `[
				{"id": "fry", "name": "Futurama Fry", "lines": 2, "blank": "https://x/fry.png"},
				{"id": "fry", "name": "Fry Again", "lines": 2, "blank": "https://x/fry2.png"}
			]`,
			want: `duplicate template id "fry"`,
		},
		{
			name: "yaml duplicate",
			file: "templates.yaml",
			body: "- {id: pooh, name: Pooh, lines: 2, blank: 'https://x/pooh.png'}\n" +
				"- {id: pooh, name: Pooh Two, lines: 2, blank: 'https://x/pooh2.png'}\n",
			want: `duplicate template id "pooh"`,
		},
		{
			name: "json missing id",
			file: "templates.json",
			body: `[{"name": "Nameless", "lines": 2, "blank": "https://x/n.png"}]`,
			want: "has no id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.body)

			_, err := NewFileSource(path).Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			_, err = Load(context.Background(), NewFileSource(path))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogLoadFailed))
		})
	}
}

func TestFileSource_Missing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	assert.Error(t, err)
}

// ==========================
// HTTP source
// ==========================

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/templates", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": "aag", "name": "Ancient Aliens Guy", "lines": 2, "overlays": 0,
			"styles": [], "blank": "https://api.memegen.link/images/aag.jpg",
			"example": {"text": ["", "aliens"], "url": "https://api.memegen.link/images/aag/_/aliens.jpg"},
			"source": "http://knowyourmeme.com/memes/ancient-aliens", "keywords": [],
			"_self": "https://api.memegen.link/templates/aag"
		}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", httpclient.NewClient(time.Second))
	cat, err := Load(context.Background(), src)
	require.NoError(t, err)

	rec, err := cat.Lookup("aag")
	require.NoError(t, err)
	assert.Equal(t, "https://api.memegen.link/images/aag.jpg", rec.Blank)
	assert.Equal(t, []string{"", "aliens"}, rec.Example.Text)
}

func TestHTTPSource_RejectsDuplicateIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "aag", "name": "Ancient Aliens Guy", "lines": 2, "blank": "https://x/aag.jpg"},
			{"id": "aag", "name": "Ancient Aliens Guy v2", "lines": 3, "blank": "https://x/aag2.jpg"}
		]`))
	}))
	defer srv.Close()

	_, err := Load(context.Background(), NewHTTPSource(srv.URL, httpclient.NewClient(time.Second)))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogLoadFailed))
	assert.Contains(t, err.Error(), `duplicate template id "aag"`)
}

// ==========================
// Redis source
// ==========================

func TestRedisSource_StoreAndLoad(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	src := NewRedisSource(rdb, "")
	assert.Equal(t, DefaultRedisKey, src.Key)

	require.NoError(t, src.Store(context.Background(), testRecords()))
	assert.True(t, mr.Exists(DefaultRedisKey))

	cat, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 5, cat.Len())

	rec, err := cat.Lookup("gru")
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Lines)
}

func TestRedisSource_BadRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mr.HSet("meme:templates", "drake", "{not json")

	_, err := NewRedisSource(rdb, "meme:templates").Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"drake"`)
}

// ==========================
// Postgres source
// ==========================

var templateColumns = []string{"id", "name", "keywords", "lines", "blank", "example", "overlays", "styles", "source"}

func TestPostgresSource_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	example, _ := json.Marshal(models.Example{Text: []string{"no", "yes"}, URL: "https://x/drake/no/yes.png"})
	rows := sqlmock.NewRows(templateColumns).
		AddRow("drake", "Drakeposting", "{prefer,choice}", 2, "https://x/drake.png", string(example), "0", "[]", "kym").
		AddRow("gru", "Gru's Plan", "{}", 4, "https://x/gru.jpg", nil, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, keywords, lines, blank, example, overlays, styles, source FROM "meme_templates"`)).
		WillReturnRows(rows)

	src, err := NewPostgresSource(db, "")
	require.NoError(t, err)

	cat, err := Load(context.Background(), src)
	require.NoError(t, err)

	drake, err := cat.Lookup("drake")
	require.NoError(t, err)
	assert.Equal(t, []string{"prefer", "choice"}, drake.Keywords)
	assert.Equal(t, []string{"no", "yes"}, drake.Example.Text)
	assert.Equal(t, float64(0), drake.Overlays)
	assert.Equal(t, "kym", drake.Source)

	gru, err := cat.Lookup("gru")
	require.NoError(t, err)
	assert.Nil(t, gru.Styles)
	assert.Empty(t, gru.Keywords)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Store(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO "meme_templates"`)
	prep.ExpectExec().
		WithArgs("drake", "Drakeposting", sqlmock.AnyArg(), 2, "https://x/drake.png", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	src, err := NewPostgresSource(db, "meme_templates")
	require.NoError(t, err)

	err = src.Store(context.Background(), map[string]models.TemplateRecord{
		"drake": {ID: "drake", Name: "Drakeposting", Lines: 2, Blank: "https://x/drake.png"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "memes"`).WillReturnResult(sqlmock.NewResult(0, 0))

	src, err := NewPostgresSource(db, "memes")
	require.NoError(t, err)
	require.NoError(t, src.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresSource_RejectsBadTable(t *testing.T) {
	_, err := NewPostgresSource(nil, "memes; DROP TABLE x")
	assert.Error(t, err)
}
