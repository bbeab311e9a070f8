package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init connects the shared client used by the list cache and the scope locker.
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"addr": cfg.Addr(),
		"db":   cfg.DB,
	})

	c := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A client that never answered is not kept; callers fall back to in-process locks.
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"addr": cfg.Addr(),
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client = c
	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	logger.Info("Closing Redis connection", nil)
	err := client.Close()
	client = nil
	return err
}
