package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const activeSchemesKey = "schemes:active"

// SchemeCache stores the active catalogue as one JSON value.
type SchemeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSchemeCache(client *redis.Client, ttl time.Duration) *SchemeCache {
	return &SchemeCache{client: client, ttl: ttl}
}

func (c *SchemeCache) GetActive(ctx context.Context) ([]*models.Scheme, bool, error) {
	val, err := c.client.Get(ctx, activeSchemesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewStorageError("read scheme cache", err)
	}

	var schemes []*models.Scheme
	if err := json.Unmarshal(val, &schemes); err != nil {
		return nil, false, apperrors.NewStorageError("decode scheme cache", err)
	}
	return schemes, true, nil
}

func (c *SchemeCache) SetActive(ctx context.Context, schemes []*models.Scheme) error {
	data, err := json.Marshal(schemes)
	if err != nil {
		return apperrors.NewStorageError("encode scheme cache", err)
	}
	if err := c.client.Set(ctx, activeSchemesKey, data, c.ttl).Err(); err != nil {
		return apperrors.NewStorageError("write scheme cache", err)
	}
	return nil
}

func (c *SchemeCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, activeSchemesKey).Err(); err != nil {
		return apperrors.NewStorageError("invalidate scheme cache", err)
	}
	return nil
}
