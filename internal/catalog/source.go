package catalog

import (
	"context"
	"fmt"

	"meme-workers/internal/common/errors"
	"meme-workers/internal/models"
)

// Source loads raw template records from storage.
type Source interface {
	Name() string
	Load(ctx context.Context) (map[string]models.TemplateRecord, error)
}

// Load reads src and validates the result into a Catalog. Any failure is a
// CATALOG_LOAD_FAILED error naming the source.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(src.Name(), err)
	}
	if len(records) == 0 {
		return nil, errors.NewCatalogLoadFailedError(src.Name(), errEmpty)
	}
	cat, err := New(records)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(src.Name(), err)
	}
	return cat, nil
}

var errEmpty = fmt.Errorf("catalog is empty")

// keyed converts a record list into a map keyed by ID. Records without an
// ID and repeated IDs are rejected.
func keyed(list []models.TemplateRecord) (map[string]models.TemplateRecord, error) {
	out := make(map[string]models.TemplateRecord, len(list))
	for i, rec := range list {
		if rec.ID == "" {
			return nil, fmt.Errorf("template %d (%q) has no id", i, rec.Name)
		}
		if _, dup := out[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", rec.ID)
		}
		out[rec.ID] = rec
	}
	return out, nil
}
