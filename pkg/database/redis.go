package database

import (
	"context"
	"log"
	"sync"
	"time"

	"minitalk/internal/config"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// InitRedis initializes the Redis client used for the presence mirror
// and the session-context cache. Mongo stays authoritative; a Redis
// outage degrades lookups, it never fails requests.
func InitRedis(cfg config.RedisConfig) error {
	var initErr error

	redisOnce.Do(func() {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			initErr = err
			return
		}

		if cfg.Password != "" {
			opt.Password = cfg.Password
		}
		opt.DB = cfg.DB
		opt.PoolSize = cfg.PoolSize
		opt.DialTimeout = 5 * time.Second
		opt.ReadTimeout = 3 * time.Second
		opt.WriteTimeout = 3 * time.Second

		redisClient = redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis unavailable: %v", err)
		} else {
			log.Println("Connected to Redis")
		}
	})

	return initErr
}

// GetRedis returns the Redis client, or nil when Redis was never
// initialized (tests, minimal deployments).
func GetRedis() *redis.Client {
	return redisClient
}

// CloseRedis closes the Redis connection.
func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
