package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberredis "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/ecomdemo/cardsync/internal/pkg/config"
)

const (
	// bookkeeping (unmatched inbox, outcome counters) uses DB 0
	bookkeepingDB = 0
	// rate limiter buckets use DB 1
	limiterDB = 1
)

// NewClient connects to the Redis server used for webhook bookkeeping. A
// failed ping is only logged: every caller treats Redis as best effort.
func NewClient(cfg config.CacheConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       bookkeepingDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}

	return client
}

// NewLimiterStorage returns a fiber.Storage for the webhook rate limiter so
// the limit holds across replicas. The storage driver panics when Redis is
// unreachable; that is turned into an error here.
func NewLimiterStorage(cfg config.CacheConfig) (storage fiber.Storage, err error) {
	port, convErr := strconv.Atoi(cfg.Port)
	if convErr != nil {
		port = 6379
	}

	defer func() {
		if r := recover(); r != nil {
			storage = nil
			err = fmt.Errorf("redis limiter storage: %v", r)
		}
	}()

	return fiberredis.New(fiberredis.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: limiterDB,
		Reset:    false,
	}), nil
}
