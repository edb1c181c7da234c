package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notes-gateway/dispatch/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de desfecho por item em hashes do Redis:
//
//	{prefix}:total                 succeeded|failed|skipped
//	{prefix}:provider              <provider>
//	{prefix}:kind                  <error kind>
//	{prefix}:minute:200601021504   succeeded|failed|skipped (expira em ttl)
//	{prefix}:item:<id>             idem (somente com trackItems)
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por item.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackItems bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackItems(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackItems = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "notes:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func outcomeField(ev domain.StatsEvent) string {
	switch {
	case ev.Skipped:
		return "skipped"
	case ev.Success:
		return "succeeded"
	default:
		return "failed"
	}
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := outcomeField(ev)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	switch {
	case ev.Success && !ev.Skipped && ev.Provider != "":
		pipe.HIncrBy(ctx, s.prefix+":provider", ev.Provider, 1)
	case !ev.Success && ev.Kind != domain.KindNone:
		pipe.HIncrBy(ctx, s.prefix+":kind", string(ev.Kind), 1)
	}

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackItems {
		id := strings.TrimSpace(ev.ItemID)
		if id != "" {
			itemKey := s.prefix + ":item:" + id
			pipe.HIncrBy(ctx, itemKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, itemKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
