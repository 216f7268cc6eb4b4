package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"meme-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "meme:templates"

// RedisSource keeps the catalog in one hash: field = template id,
// value = JSON record.
type RedisSource struct {
	Client redis.Cmdable
	Key    string
}

func NewRedisSource(client redis.Cmdable, key string) *RedisSource {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSource{Client: client, Key: key}
}

func (s *RedisSource) Name() string {
	return "redis:" + s.Key
}

func (s *RedisSource) Load(ctx context.Context) (map[string]models.TemplateRecord, error) {
	fields, err := s.Client.HGetAll(ctx, s.Key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.Key, err)
	}

	records := make(map[string]models.TemplateRecord, len(fields))
	for id, raw := range fields {
		var rec models.TemplateRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode template %q: %w", id, err)
		}
		records[id] = rec
	}
	return records, nil
}

// Store replaces the hash contents with records in one transaction.
func (s *RedisSource) Store(ctx context.Context, records map[string]models.TemplateRecord) error {
	values := make([]interface{}, 0, len(records)*2)
	for id, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode template %q: %w", id, err)
		}
		values = append(values, id, payload)
	}

	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.Key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.Key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store templates in %s: %w", s.Key, err)
	}
	return nil
}
