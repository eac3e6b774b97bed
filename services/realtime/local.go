package realtime

import (
	"context"
	"sync"

	"github.com/trezcool/skripsi/core/notification"
)

const subscriptionBuffer = 16

// LocalBroker fans notifications out to subscribers of this process only.
type LocalBroker struct {
	mu   sync.RWMutex
	subs map[string]map[*localSubscription]struct{} // {userID: {subscription}}
}

var _ notification.Broker = (*LocalBroker)(nil)

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[*localSubscription]struct{})}
}

// Publish never blocks: a subscriber whose buffer is full misses the notification.
func (b *LocalBroker) Publish(_ context.Context, note notification.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[note.UserID] {
		select {
		case sub.ch <- note:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, userID string) (notification.Subscription, error) {
	sub := &localSubscription{
		broker: b,
		userID: userID,
		ch:     make(chan notification.Notification, subscriptionBuffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*localSubscription]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	go closeOnDone(ctx, sub, sub.done)
	return sub, nil
}

func (b *LocalBroker) remove(sub *localSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs[sub.userID], sub)
	if len(b.subs[sub.userID]) == 0 {
		delete(b.subs, sub.userID)
	}
}

// subscribers returns the number of open subscriptions of the user.
func (b *LocalBroker) subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

type localSubscription struct {
	broker *LocalBroker
	userID string
	ch     chan notification.Notification
	done   chan struct{}
	once   sync.Once
}

func (s *localSubscription) C() <-chan notification.Notification { return s.ch }

func (s *localSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.broker.remove(s)
		close(s.ch)
	})
	return nil
}

// closeOnDone closes the subscription when ctx ends, unless it was closed before.
func closeOnDone(ctx context.Context, sub notification.Subscription, closed <-chan struct{}) {
	select {
	case <-ctx.Done():
		_ = sub.Close()
	case <-closed:
	}
}
