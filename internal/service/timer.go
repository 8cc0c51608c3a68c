package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// TimerListener listens for Redis keyspace notifications on expired
// timer keys and runs a world tick when a battle or skirmish deadline
// passes. A polling fallback catches deadlines if keyspace
// notifications are unavailable.
type TimerListener struct {
	rdb      *redis.Client
	tick     *TickService
	interval time.Duration
}

// NewTimerListener creates a TimerListener. interval is the polling
// fallback period.
func NewTimerListener(rdb *redis.Client, tick *TickService, interval time.Duration) *TimerListener {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &TimerListener{rdb: rdb, tick: tick, interval: interval}
}

// Start begins listening for expired key events and runs the polling
// fallback until ctx is cancelled.
func (t *TimerListener) Start(ctx context.Context) {
	go t.listenKeyspace(ctx)
	t.poll(ctx)
}

// listenKeyspace subscribes to Redis keyspace notifications for
// expired keys.
func (t *TimerListener) listenKeyspace(ctx context.Context) {
	pubsub := t.rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handleExpiry(ctx, msg.Payload)
		}
	}
}

// poll runs the world tick on a fixed schedule regardless of timers.
func (t *TimerListener) poll(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.interval).Msg("World tick poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("World tick poller stopped")
			return
		case <-ticker.C:
			if err := t.tick.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("World tick failed from poller")
			}
		}
	}
}

// handleExpiry processes an expired key. Only battle and skirmish
// timer keys trigger a tick.
func (t *TimerListener) handleExpiry(ctx context.Context, key string) {
	isTimer := strings.HasSuffix(key, ":timer") &&
		(strings.HasPrefix(key, "battle:") || strings.HasPrefix(key, "skirmish:"))
	if !isTimer {
		return
	}
	log.Info().Str("key", key).Msg("Deadline passed, running world tick")
	if err := t.tick.Tick(ctx); err != nil {
		log.Error().Err(err).Str("key", key).Msg("World tick failed after timer expiry")
	}
}
