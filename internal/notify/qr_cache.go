package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guestlist-service/internal/persistence"
)

// QRURLCache remembers the public image-host URL of a guest's QR so a
// resend does not re-upload an identical PNG. Redis being unavailable
// only costs the extra upload; every operation degrades to a miss.
type QRURLCache struct {
	redis  *persistence.Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewQRURLCache builds the cache around the shared redis wrapper.
func NewQRURLCache(redis *persistence.Redis, ttl time.Duration, logger *zap.Logger) *QRURLCache {
	return &QRURLCache{redis: redis, ttl: ttl, logger: logger}
}

func (c *QRURLCache) key(guestID string) string {
	return "qr_url:" + guestID
}

// Get returns the cached public URL for a guest, or "" on miss.
func (c *QRURLCache) Get(ctx context.Context, guestID string) string {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return ""
	}
	url, err := c.redis.Client.Get(ctx, c.key(guestID)).Result()
	if err != nil {
		return ""
	}
	return url
}

// Set stores the public URL with the configured TTL.
func (c *QRURLCache) Set(ctx context.Context, guestID, url string) {
	if c == nil || c.redis == nil || c.redis.Client == nil || url == "" {
		return
	}
	if err := c.redis.Client.Set(ctx, c.key(guestID), url, c.ttl).Err(); err != nil {
		c.logger.Debug("qr url cache write failed", zap.String("guest_id", guestID), zap.Error(err))
	}
}
