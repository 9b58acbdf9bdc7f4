package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "pestledger.events"

// RedisPublisher publishes events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client    redis.UniversalClient
	channel   string
	onMetrics MetricsRecorder
	logger    *zap.Logger
}

// NewRedisPublisher creates a RedisPublisher. An empty channel uses
// DefaultChannel.
func NewRedisPublisher(client redis.UniversalClient, channel string, logger *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// SetMetricsRecorder configures the metrics callback.
func (p *RedisPublisher) SetMetricsRecorder(fn MetricsRecorder) {
	p.onMetrics = fn
}

// Channel returns the channel events are published on.
func (p *RedisPublisher) Channel() string { return p.channel }

// Dispatch implements Dispatcher.
func (p *RedisPublisher) Dispatch(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("redis: marshal event", zap.Error(err))
		return
	}

	err = p.client.Publish(ctx, p.channel, data).Err()
	if p.onMetrics != nil {
		p.onMetrics("redis", err == nil)
	}
	if err != nil {
		p.logger.Warn("redis: publish failed",
			zap.String("channel", p.channel),
			zap.String("event", e.Type),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("event published",
		zap.String("channel", p.channel),
		zap.String("event", e.Type),
		zap.String("id", e.ID.String()),
	)
}

// Subscribe returns a channel of decoded events from the pub/sub channel. It
// is closed when ctx is done. Malformed messages are logged and skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan Event, error) {
	pubsub := p.client.Subscribe(ctx, p.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan Event, 100)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					p.logger.Warn("redis: malformed event", zap.String("channel", p.channel), zap.Error(err))
					continue
				}
				select {
				case out <- e:
				default:
					p.logger.Warn("redis: subscriber full, dropping event", zap.String("id", e.ID.String()))
				}
			}
		}
	}()
	return out, nil
}
