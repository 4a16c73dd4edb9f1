package config

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects the shared store used by the magic-link rate
// limiter. A failed ping is logged but not fatal: the limiter degrades to
// letting requests through rather than locking everyone out.
func ConnectRedis(cfg *Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unreachable at %s: %v", cfg.Redis.Addr, err)
	} else {
		log.Printf("✅ Redis connected [%s]", cfg.Redis.Addr)
	}

	return rdb
}
