package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/config"
	"github.com/welllog/welllog-api/internal/metrics"
)

const (
	cacheFieldType = "content_type"
	cacheFieldBody = "body"
)

// bodyRecorder copies what the handler writes so a 200 can be stored after
// the response has gone out. Bodies above limit are not kept.
type bodyRecorder struct {
	http.ResponseWriter
	code     int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.body.Len()+len(b) > r.limit {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheKey hashes route and query. Catalog responses do not depend on the
// caller, so the user is not part of the key.
func cacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "|" + c.Request().URL.Path + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// NewRedisCache serves GET requests of the model catalog from Redis and
// stores 200 responses as a hash of content type and body for cfg.TTL.
// Other methods pass through. Redis errors degrade to a miss.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c)

			entry, err := rdb.HGetAll(ctx, key).Result()
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache lookup failed")
			}
			if body, ok := entry[cacheFieldBody]; ok {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, entry[cacheFieldType], []byte(body))
			}
			metrics.CacheLookups.WithLabelValues("miss").Inc()

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, code: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.code != http.StatusOK || rec.overflow {
				return nil
			}
			store(context.WithoutCancel(ctx), rdb, key, ttl,
				c.Response().Header().Get(echo.HeaderContentType), rec.body.Bytes())
			return nil
		}
	}
}

func store(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration, contentType string, body []byte) {
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, cacheFieldType, contentType, cacheFieldBody, body)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache store failed")
	}
}

// InvalidateCache drops every cached response under prefix. Catalog writes
// call it so readers never see a stale list for a full TTL.
func InvalidateCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	if rdb == nil {
		return nil
	}
	var keys []string
	iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}
