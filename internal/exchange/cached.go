package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/models"
)

// CachedGateway wraps another gateway with a short-lived redis quote cache
// so one scan cycle does not hit the upstream source twice for the same
// (exchange, symbol). The cache is a performance layer only: redis being
// down degrades to pass-through, and entries expire at the configured TTL
// so stale data is never served.
type CachedGateway struct {
	inner  Gateway
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

var _ Gateway = (*CachedGateway)(nil)

// NewCachedGateway decorates inner with a quote cache of the given TTL.
func NewCachedGateway(inner Gateway, client *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedGateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedGateway{
		inner:  inner,
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedGateway) Name() string { return c.inner.Name() }

func (c *CachedGateway) GetQuote(ctx context.Context, exchangeID, symbol string) (*models.Quote, error) {
	key := quoteKey(exchangeID, symbol)

	if cached, err := c.redis.Get(ctx, key).Result(); err == nil {
		var quote models.Quote
		if err := json.Unmarshal([]byte(cached), &quote); err == nil {
			return &quote, nil
		}
		c.logger.WithField("key", key).Warn("Discarding undecodable cached quote")
	} else if err != redis.Nil {
		c.logger.WithError(err).Debug("Quote cache read failed, falling through")
	}

	quote, err := c.inner.GetQuote(ctx, exchangeID, symbol)
	if err != nil || quote == nil {
		return quote, err
	}

	if payload, err := json.Marshal(quote); err == nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WithError(err).Debug("Quote cache write failed")
		}
	}

	return quote, nil
}

func quoteKey(exchangeID, symbol string) string {
	return fmt.Sprintf("quote:%s:%s", exchangeID, symbol)
}
