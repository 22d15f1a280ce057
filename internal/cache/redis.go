package cache

import (
	"context"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Client is the process-wide connection used for the latest-cycle rows cache.
var Client *redis.Client

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

func InitRedis(ctx context.Context, addr string) {
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			log.Fatalf("failed to parse Redis URL: %v", err)
		}
		opts = parsed
	}

	Client = newRedisClient(opts)
	if err := pingRedis(ctx, Client); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")
}
