package accesslog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisEventsKey = "audita:access_events"

// RedisStore keeps events in a Redis list, newest at the head. LPUSH+LTRIM
// gives the bounded-FIFO behavior natively: trimming to maxEvents drops the
// oldest entries from the tail.
type RedisStore struct {
	client    *redis.Client
	maxEvents int
}

func NewRedisStore(client *redis.Client, maxEvents int) *RedisStore {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &RedisStore{client: client, maxEvents: maxEvents}
}

func (s *RedisStore) Append(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, redisEventsKey, payload)
	pipe.LTrim(ctx, redisEventsKey, 0, int64(s.maxEvents)-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Query(ctx context.Context, f Filter) ([]Event, error) {
	raw, err := s.client.LRange(ctx, redisEventsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// PurgeOlderThan rewrites the list without the expired entries. The rebuild
// is not atomic with concurrent appends; retention runs serialized in the
// maintenance loop, so that is acceptable.
func (s *RedisStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	raw, err := s.client.LRange(ctx, redisEventsKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	kept := make([]any, 0, len(raw))
	removed := 0
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			removed++
			continue
		}
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	if removed == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisEventsKey)
	if len(kept) > 0 {
		// kept is ordered newest first; RPUSH preserves that order.
		pipe.RPush(ctx, redisEventsKey, kept...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}
