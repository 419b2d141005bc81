// README: Redis-backed cache of resolved routes keyed by the normalized request.
package maps

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	routeKeyPrefix  = "maps:route:%s"
	defaultRouteTTL = 6 * time.Hour
)

type RedisRouteCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisRouteCache(redis *redis.Client, ttl time.Duration) *RedisRouteCache {
	if ttl <= 0 {
		ttl = defaultRouteTTL
	}
	return &RedisRouteCache{redis: redis, ttl: ttl}
}

func (c *RedisRouteCache) Get(ctx context.Context, req RouteRequest) (Route, bool, error) {
	val, err := c.redis.Get(ctx, routeKey(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Route{}, false, nil
	}
	if err != nil {
		return Route{}, false, err
	}
	var route Route
	if err := json.Unmarshal(val, &route); err != nil {
		return Route{}, false, fmt.Errorf("decode cached route: %w", err)
	}
	return route, true, nil
}

func (c *RedisRouteCache) Set(ctx context.Context, req RouteRequest, route Route) error {
	b, err := json.Marshal(route)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, routeKey(req), b, c.ttl).Err()
}

// routeKey is case-insensitive on addresses and order-sensitive on waypoints.
func routeKey(req RouteRequest) string {
	parts := make([]string, 0, len(req.Waypoints)+2)
	parts = append(parts, strings.ToLower(req.Origin))
	for _, w := range req.Waypoints {
		parts = append(parts, strings.ToLower(w))
	}
	parts = append(parts, strings.ToLower(req.Destination))
	sum := sha1.Sum([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf(routeKeyPrefix, hex.EncodeToString(sum[:]))
}
