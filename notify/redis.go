package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisPublisher publishes notifications to a redis pub/sub channel so every
// API instance sharing the store can stream them.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
}

// NewRedisPublisher creates a publisher on channel.
func NewRedisPublisher(client *redis.Client, channel string, logger *log.Logger) *RedisPublisher {
	if client == nil {
		panic("notify.NewRedisPublisher: client is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// RequestPermission grants when the redis server answers.
func (p *RedisPublisher) RequestPermission(ctx context.Context) (Permission, error) {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return PermissionUnsupported, fmt.Errorf("ping redis: %w", err)
	}
	return PermissionGranted, nil
}

func (p *RedisPublisher) Show(ctx context.Context, n Notification) error {
	payload, err := sonic.Marshal(n)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

// Subscribe streams notifications published on the channel until the
// returned func is called or ctx is done. Undecodable messages are skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan Notification, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		p.logger.WithError(err).Warn("subscription not confirmed")
	}
	out := make(chan Notification, subscriberBuffer)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var n Notification
				if err := sonic.UnmarshalString(msg.Payload, &n); err != nil {
					p.logger.WithError(err).Error("unable to parse notification")
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
			wg.Wait()
		})
	}
	return out, stop
}
