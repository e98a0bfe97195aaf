// Package redisstore keeps short-lived shared state in Redis: notification
// dedup markers and the active-scheme cache.
package redisstore

import (
	"context"
	"fmt"
	"time"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const dedupPrefix = "notif:dedup:"

// DedupGuard marks (user, title) pairs with SET NX and a TTL equal to the
// dedup window, so every process sharing the Redis sees the same answer.
type DedupGuard struct {
	client *redis.Client
	window time.Duration
	log    logger.Logger
}

func NewDedupGuard(client *redis.Client, window time.Duration, log logger.Logger) *DedupGuard {
	return &DedupGuard{
		client: client,
		window: window,
		log:    log.WithFields(map[string]interface{}{"component": "dedup-guard"}),
	}
}

// dedupKey length-prefixes the user id so ids and titles containing ':'
// cannot collide.
func dedupKey(userID, title string) string {
	return fmt.Sprintf("%s%d:%s:%s", dedupPrefix, len(userID), userID, title)
}

func (g *DedupGuard) Acquire(ctx context.Context, userID, title string) (bool, error) {
	ok, err := g.client.SetNX(ctx, dedupKey(userID, title), 1, g.window).Result()
	if err != nil {
		return false, apperrors.NewStorageError("notification dedup marker", err)
	}
	return ok, nil
}

func (g *DedupGuard) Release(ctx context.Context, userID, title string) {
	if err := g.client.Del(ctx, dedupKey(userID, title)).Err(); err != nil {
		g.log.Warn("failed to release dedup marker", map[string]interface{}{
			"userId": userID,
			"title":  title,
			"error":  err,
		})
	}
}
