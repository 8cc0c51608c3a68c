package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns.
func reportKey(key string) string      { return "report:" + key }
func battleTimerKey(id int64) string   { return fmt.Sprintf("battle:%d:timer", id) }
func skirmishTimerKey(id int64) string { return fmt.Sprintf("skirmish:%d:timer", id) }

// GetReport retrieves a cached rendered report, or "" on a miss.
func (c *Client) GetReport(ctx context.Context, key string) (string, error) {
	body, err := c.rdb.Get(ctx, reportKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get report: %w", err)
	}
	return body, nil
}

// SetReport caches a rendered report.
func (c *Client) SetReport(ctx context.Context, key, body string, ttl time.Duration) error {
	return c.rdb.Set(ctx, reportKey(key), body, ttl).Err()
}

// Invalidate drops a cached report.
func (c *Client) Invalidate(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, reportKey(key)).Err()
}

// deadlineGracePeriod delays the expiry wakeup slightly past the
// deadline so the tick sees the deadline as already passed.
const deadlineGracePeriod = 5 * time.Second

// SetBattleTimer creates a key expiring at the battle's next deadline.
// Keyspace notifications on the expiry wake the tick loop early.
func (c *Client) SetBattleTimer(ctx context.Context, battleID int64, deadline time.Time) error {
	ttl := time.Until(deadline) + deadlineGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, battleTimerKey(battleID), deadline.Unix(), ttl).Err()
}

// ClearBattleTimer removes a battle's wakeup.
func (c *Client) ClearBattleTimer(ctx context.Context, battleID int64) error {
	return c.rdb.Del(ctx, battleTimerKey(battleID)).Err()
}

// SetSkirmishTimer creates a key expiring when a skirmish does.
func (c *Client) SetSkirmishTimer(ctx context.Context, skirmishID int64, deadline time.Time) error {
	ttl := time.Until(deadline) + deadlineGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, skirmishTimerKey(skirmishID), deadline.Unix(), ttl).Err()
}
