package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phenobridge/platform/pkg/phenopacket"
	"github.com/redis/go-redis/v9"
)

// DocumentCache keeps the latest assembled document per patient in Redis
// so repeat reads skip the database.
type DocumentCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDocumentCache(client *redis.Client, ttl time.Duration) *DocumentCache {
	return &DocumentCache{client: client, ttl: ttl}
}

func cacheKey(patientID string) string {
	return fmt.Sprintf("phenopacket:%s", patientID)
}

func (c *DocumentCache) Put(ctx context.Context, patientID string, packet phenopacket.Phenopacket) error {
	data, err := json.Marshal(packet)
	if err != nil {
		return fmt.Errorf("encoding cached document: %w", err)
	}
	return c.client.Set(ctx, cacheKey(patientID), data, c.ttl).Err()
}

func (c *DocumentCache) Get(ctx context.Context, patientID string) (json.RawMessage, error) {
	data, err := c.client.Get(ctx, cacheKey(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
