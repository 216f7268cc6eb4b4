// Package catalog holds the immutable template catalog and the sources it
// can be loaded from.
package catalog

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"meme-workers/internal/common/errors"
	"meme-workers/internal/common/validation"
	"meme-workers/internal/models"
)

// Catalog maps template ids to records. It is never mutated after New
// returns and is safe for concurrent use without locking.
type Catalog struct {
	records map[string]models.TemplateRecord
	keys    []string
}

// New validates records and builds a catalog. A record with an empty ID
// takes its map key.
func New(records map[string]models.TemplateRecord) (*Catalog, error) {
	c := &Catalog{
		records: make(map[string]models.TemplateRecord, len(records)),
		keys:    make([]string, 0, len(records)),
	}

	for key, rec := range records {
		if key == "" {
			return nil, fmt.Errorf("template with empty key")
		}
		if rec.ID == "" {
			rec.ID = key
		}
		if rec.ID != key {
			return nil, fmt.Errorf("template %q: id %q does not match key", key, rec.ID)
		}
		if err := validateRecord(rec); err != nil {
			return nil, err
		}
		c.records[key] = rec
		c.keys = append(c.keys, key)
	}
	sort.Strings(c.keys)

	return c, nil
}

func validateRecord(rec models.TemplateRecord) error {
	if !models.IsAllowedLineCount(rec.Lines) {
		return fmt.Errorf("template %q: lines must be one of 1,2,3,4,5,6,8, got %d", rec.ID, rec.Lines)
	}
	if !validation.IsValidURL(rec.Blank) {
		return fmt.Errorf("template %q: blank %q is not an absolute URL", rec.ID, rec.Blank)
	}
	return nil
}

// Lookup returns the record for key or a TEMPLATE_NOT_FOUND error.
func (c *Catalog) Lookup(key string) (models.TemplateRecord, error) {
	rec, ok := c.records[key]
	if !ok {
		return models.TemplateRecord{}, errors.NewTemplateNotFoundError(key)
	}
	return rec, nil
}

// Has reports whether key is in the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.records[key]
	return ok
}

// All returns a copy of the full catalog.
func (c *Catalog) All() map[string]models.TemplateRecord {
	out := make(map[string]models.TemplateRecord, len(c.records))
	for k, v := range c.records {
		out[k] = v
	}
	return out
}

// Keys returns the sorted template ids.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

func (c *Catalog) Len() int {
	return len(c.records)
}

// Sample returns a uniformly random subset of at most limit records.
// limit <= 0 or limit >= Len() returns the whole catalog.
func (c *Catalog) Sample(limit int) map[string]models.TemplateRecord {
	return c.sample(limit, rand.IntN)
}

// SampleWith is Sample driven by r, for reproducible draws.
func (c *Catalog) SampleWith(limit int, r *rand.Rand) map[string]models.TemplateRecord {
	return c.sample(limit, r.IntN)
}

func (c *Catalog) sample(limit int, intN func(int) int) map[string]models.TemplateRecord {
	if limit <= 0 || limit >= len(c.keys) {
		return c.All()
	}

	// Partial Fisher-Yates over a copy of the keys.
	keys := c.Keys()
	for i := 0; i < limit; i++ {
		j := i + intN(len(keys)-i)
		keys[i], keys[j] = keys[j], keys[i]
	}

	out := make(map[string]models.TemplateRecord, limit)
	for _, k := range keys[:limit] {
		out[k] = c.records[k]
	}
	return out
}
