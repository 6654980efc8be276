package app

import (
	"context"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridehail/internal/config"
	internalRedis "ridehail/internal/redis"
	"ridehail/internal/repository/memory"
)

// NewRedisClient connects to the Redis instance holding driver locations,
// settlement locks and cached price schedules.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if nrApp != nil {
		client.AddHook(&nrRedisHook{app: nrApp})
	}

	// Verify connection.
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// RedisStores groups the Redis-backed collaborators of the services. Lock
// and Cache stay nil interfaces when Redis is disabled so callers can test
// them against nil.
type RedisStores struct {
	Locations internalRedis.LocationStoreInterface
	Lock      internalRedis.LockStoreInterface
	Cache     internalRedis.CacheStoreInterface
}

// NewRedisStores wraps client. With a nil client, driver locations fall
// back to an in-process store and locking and caching are disabled.
func NewRedisStores(client *redis.Client) RedisStores {
	if client == nil {
		return RedisStores{Locations: memory.NewLocationStore()}
	}
	return RedisStores{
		Locations: internalRedis.NewLocationStore(client),
		Lock:      internalRedis.NewLockStore(client),
		Cache:     internalRedis.NewCacheStore(client),
	}
}

// nrRedisHook implements redis.Hook for New Relic instrumentation.
type nrRedisHook struct {
	app *newrelic.Application
}

func (h *nrRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *nrRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		txn := newrelic.FromContext(ctx)
		if txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  cmd.Name(),
				Collection: "redis",
			}
			defer segment.End()
		}
		return next(ctx, cmd)
	}
}

func (h *nrRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		txn := newrelic.FromContext(ctx)
		if txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  "pipeline",
				Collection: "redis",
			}
			defer segment.End()
		}
		return next(ctx, cmds)
	}
}
