package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"sentineldb/internal/config"
	"sentineldb/internal/models"
)

const (
	recentSamplesKey = "samples:recent"
	recentAlertsKey  = "alerts:recent"
)

// RedisJournal keeps a short, TTL-bound record of samples and alerts for the
// status API. It is write-only from the monitor's point of view; detector
// history is never restored from it.
type RedisJournal struct {
	client    *redis.Client
	ttl       time.Duration
	maxRecent int64
}

func NewRedisJournal(ctx context.Context, cfg config.Redis) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 1,
		MaxRetries:   3,
	})

	// Проверка соединения
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := time.Duration(cfg.SampleTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxRecent := int64(cfg.MaxRecent)
	if maxRecent <= 0 {
		maxRecent = 1000
	}

	return &RedisJournal{client: client, ttl: ttl, maxRecent: maxRecent}, nil
}

func (r *RedisJournal) RecordSample(ctx context.Context, sample *models.Sample) error {
	key := fmt.Sprintf("sample:%d", sample.Timestamp.UnixNano())
	return r.store(ctx, recentSamplesKey, key, sample)
}

func (r *RedisJournal) RecordAlert(ctx context.Context, decision models.AlertDecision) error {
	return r.store(ctx, recentAlertsKey, "alert:"+decision.ID, decision)
}

func (r *RedisJournal) RecentSamples(ctx context.Context, count int64) ([]models.Sample, error) {
	var samples []models.Sample
	err := r.recent(ctx, recentSamplesKey, count, func(data []byte) error {
		var s models.Sample
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		samples = append(samples, s)
		return nil
	})
	return samples, err
}

func (r *RedisJournal) RecentAlerts(ctx context.Context, count int64) ([]models.AlertDecision, error) {
	var alerts []models.AlertDecision
	err := r.recent(ctx, recentAlertsKey, count, func(data []byte) error {
		var a models.AlertDecision
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		alerts = append(alerts, a)
		return nil
	})
	return alerts, err
}

func (r *RedisJournal) Close() error {
	return r.client.Close()
}

func (r *RedisJournal) store(ctx context.Context, listKey, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, r.ttl)
	pipe.LPush(ctx, listKey, key)
	pipe.LTrim(ctx, listKey, 0, r.maxRecent-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store %s in Redis: %w", key, err)
	}
	return nil
}

// recent walks the newest count entries of listKey, skipping keys that have
// expired or hold invalid data.
func (r *RedisJournal) recent(ctx context.Context, listKey string, count int64, decode func([]byte) error) error {
	if count <= 0 {
		return nil
	}

	keys, err := r.client.LRange(ctx, listKey, 0, count-1).Result()
	if err != nil {
		return fmt.Errorf("failed to get recent keys from %s: %w", listKey, err)
	}

	for _, key := range keys {
		data, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		if err := decode(data); err != nil {
			continue
		}
	}
	return nil
}
