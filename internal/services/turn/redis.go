// File: internal/services/turn/redis.go
package turn

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is the multi-node stream backend: frames live in a
// per-stream list with a retention TTL, live followers ride pub/sub.
// A follower may see a frame both in its replay and on the channel;
// the publisher dedupes by sequence number.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to redis and verifies the connection.
// Construction failure means the resumable capability is absent, not
// that the service cannot run.
func NewRedisBackend(ctx context.Context, redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) CloseClient() error {
	return b.client.Close()
}

func framesKey(streamID string) string {
	return "stream:" + streamID + ":frames"
}

func channelKey(streamID string) string {
	return "stream:" + streamID + ":live"
}

func (b *RedisBackend) Append(ctx context.Context, streamID string, frame []byte) error {
	pipe := b.client.Pipeline()
	pipe.RPush(ctx, framesKey(streamID), frame)
	pipe.Expire(ctx, framesKey(streamID), streamRetention)
	pipe.Publish(ctx, channelKey(streamID), frame)
	_, err := pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) Close(ctx context.Context, streamID string) error {
	pipe := b.client.Pipeline()
	pipe.RPush(ctx, framesKey(streamID), doneMarker)
	pipe.Expire(ctx, framesKey(streamID), streamRetention)
	pipe.Publish(ctx, channelKey(streamID), doneMarker)
	_, err := pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) Replay(ctx context.Context, streamID string) ([][]byte, bool, error) {
	raw, err := b.client.LRange(ctx, framesKey(streamID), 0, -1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, ErrStreamGone
	}

	frames := make([][]byte, 0, len(raw))
	done := false
	for _, entry := range raw {
		if entry == doneMarker {
			done = true
			continue
		}
		frames = append(frames, []byte(entry))
	}
	return frames, done, nil
}

func (b *RedisBackend) Follow(ctx context.Context, streamID string) (<-chan []byte, func(), error) {
	pubsub := b.client.Subscribe(ctx, channelKey(streamID))
	// Force the subscription onto the wire before the caller replays,
	// so no frame can fall between replay and follow.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 256)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			if msg.Payload == doneMarker {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	detach := func() { _ = pubsub.Close() }
	return out, detach, nil
}
