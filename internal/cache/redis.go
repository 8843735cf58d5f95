package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

const redisKeyPrefix = "prayer_times:"

// Redis shares the memory tier between processes. Errors degrade to cache
// misses so an unavailable Redis only costs a provider call.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(addr, username, password string, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Username: username,
			Password: password,
			DB:       0,
		}),
		ttl: ttl,
	}
}

func (r *Redis) Get(ctx context.Context, key string) (prayer.DaySchedule, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("redis cache read failed")
		}
		return prayer.DaySchedule{}, false
	}

	var sched prayer.DaySchedule
	if err := json.Unmarshal(data, &sched); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache entry is corrupt")
		return prayer.DaySchedule{}, false
	}
	return sched, true
}

func (r *Redis) Set(ctx context.Context, key string, sched prayer.DaySchedule) {
	data, err := json.Marshal(sched)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode schedule for redis")
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache write failed")
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
