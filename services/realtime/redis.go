package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
)

const channelPrefix = "notifications:"

// Channel returns the pub/sub channel of the user's notifications.
func Channel(userID string) string {
	return channelPrefix + userID
}

// RedisBroker delivers notifications across API instances through Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	logger core.Logger
}

var _ notification.Broker = (*RedisBroker)(nil)

func NewRedisBroker(client *redis.Client, logger core.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

// NewRedisClient connects to the configured Redis server.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Password:     conf.Password,
		DB:           conf.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return client, nil
}

func (b *RedisBroker) Publish(ctx context.Context, note notification.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	return errors.Wrap(b.client.Publish(ctx, Channel(note.UserID), payload).Err(), "publishing notification")
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (notification.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, Channel(userID))
	// wait for the subscription to be confirmed, so no publish is missed after Subscribe returns
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "subscribing to notifications")
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan notification.Notification, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	sub.wg.Add(1)
	go sub.run(b.logger)
	go closeOnDone(ctx, sub, sub.done)
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan notification.Notification
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func (s *redisSubscription) C() <-chan notification.Notification { return s.ch }

// Close returns once the receiving goroutine has stopped.
func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		s.wg.Wait()
	})
	return err
}

func (s *redisSubscription) run(logger core.Logger) {
	defer s.wg.Done()
	defer close(s.ch)

	msgs := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var note notification.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
				logger.Warn(fmt.Sprintf("realtime.redisSubscription: decoding %s: %v", msg.Channel, err), err)
				continue
			}
			select {
			case s.ch <- note:
			case <-s.done:
				return
			}
		}
	}
}
