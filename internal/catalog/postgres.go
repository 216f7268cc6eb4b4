package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"meme-workers/internal/models"

	"github.com/lib/pq"
)

const DefaultTable = "meme_templates"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresSource keeps one row per template. keywords is TEXT[];
// example, overlays and styles are JSON text.
type PostgresSource struct {
	DB    *sql.DB
	Table string
}

func NewPostgresSource(db *sql.DB, table string) (*PostgresSource, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresSource{DB: db, Table: table}, nil
}

func (s *PostgresSource) Name() string {
	return "postgres:" + s.Table
}

// EnsureSchema creates the catalog table if it does not exist.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	keywords TEXT[] NOT NULL DEFAULT '{}',
	lines INTEGER NOT NULL,
	blank TEXT NOT NULL,
	example TEXT,
	overlays TEXT,
	styles TEXT,
	source TEXT
)`, pq.QuoteIdentifier(s.Table))

	if _, err := s.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.Table, err)
	}
	return nil
}

func (s *PostgresSource) Load(ctx context.Context) (map[string]models.TemplateRecord, error) {
	query := fmt.Sprintf(
		`SELECT id, name, keywords, lines, blank, example, overlays, styles, source FROM %s`,
		pq.QuoteIdentifier(s.Table),
	)

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	records := make(map[string]models.TemplateRecord)
	for rows.Next() {
		var (
			rec                      models.TemplateRecord
			keywords                 pq.StringArray
			example, overlays, style sql.NullString
			source                   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &keywords, &rec.Lines, &rec.Blank,
			&example, &overlays, &style, &source); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.Table, err)
		}

		rec.Keywords = []string(keywords)
		rec.Source = source.String
		if example.Valid && example.String != "" {
			if err := json.Unmarshal([]byte(example.String), &rec.Example); err != nil {
				return nil, fmt.Errorf("template %q example: %w", rec.ID, err)
			}
		}
		if rec.Overlays, err = decodeOpaque(overlays); err != nil {
			return nil, fmt.Errorf("template %q overlays: %w", rec.ID, err)
		}
		if rec.Styles, err = decodeOpaque(style); err != nil {
			return nil, fmt.Errorf("template %q styles: %w", rec.ID, err)
		}
		records[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.Table, err)
	}

	return records, nil
}

// Store upserts records in a single transaction.
func (s *PostgresSource) Store(ctx context.Context, records map[string]models.TemplateRecord) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (id, name, keywords, lines, blank, example, overlays, styles, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	keywords = EXCLUDED.keywords,
	lines = EXCLUDED.lines,
	blank = EXCLUDED.blank,
	example = EXCLUDED.example,
	overlays = EXCLUDED.overlays,
	styles = EXCLUDED.styles,
	source = EXCLUDED.source`, pq.QuoteIdentifier(s.Table))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for id, rec := range records {
		example, err := json.Marshal(rec.Example)
		if err != nil {
			return fmt.Errorf("template %q example: %w", id, err)
		}
		overlays, err := encodeOpaque(rec.Overlays)
		if err != nil {
			return fmt.Errorf("template %q overlays: %w", id, err)
		}
		styles, err := encodeOpaque(rec.Styles)
		if err != nil {
			return fmt.Errorf("template %q styles: %w", id, err)
		}

		if _, err := stmt.ExecContext(ctx, id, rec.Name, pq.Array(rec.Keywords), rec.Lines,
			rec.Blank, string(example), overlays, styles, rec.Source); err != nil {
			return fmt.Errorf("upsert template %q: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func decodeOpaque(v sql.NullString) (interface{}, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var out interface{}
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeOpaque(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
