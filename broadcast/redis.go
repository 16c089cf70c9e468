package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rustyeddy/feedrouter/feed"
)

// RedisPublisher appends routed samples to a Redis stream so downstream
// consumers can read them with consumer groups. Entries carry the sample JSON
// under the "data" field.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64

	failures atomic.Uint64
	log      *slog.Logger
}

func NewRedisPublisher(redisURL, stream string, maxLen int64, log *slog.Logger) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		log:    log.With("component", "redis_publisher", "stream", stream),
	}, nil
}

// Run drains the subscription channel into the stream until the context is
// cancelled or the channel closes. Publish failures are logged and counted,
// the feed keeps flowing.
func (p *RedisPublisher) Run(ctx context.Context, sub <-chan feed.Sample) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-sub:
			if !ok {
				return
			}
			if err := p.publish(ctx, s); err != nil {
				p.failures.Add(1)
				p.log.Error("stream publish failed", "symbol", s.Symbol, "error", err)
			}
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, s feed.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": payload},
	}).Err()
}

// Failures reports how many publishes have failed since startup.
func (p *RedisPublisher) Failures() uint64 {
	return p.failures.Load()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
