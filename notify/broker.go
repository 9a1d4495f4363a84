package notify

import (
	"context"
	"sync"
)

const subscriberBuffer = 8

// Broker fans notifications out to in-process subscribers. Slow subscribers
// drop notifications instead of blocking Show.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Notification]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Notification]struct{})}
}

func (b *Broker) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (b *Broker) Show(_ context.Context, n Notification) error {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
	b.mu.Unlock()
	return nil
}

// Subscribe registers a subscriber until the returned func is called or ctx
// is done.
func (b *Broker) Subscribe(ctx context.Context) (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			close(stop)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-stop:
		}
	}()
	return ch, unsubscribe
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
