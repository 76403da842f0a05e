package notify

import (
	"context"
	"sync"
)

// Broadcaster fans task changes out to in-process subscribers such as open
// HTTP event streams.
type Broadcaster struct {
	mu   sync.RWMutex
	next int
	subs map[int]Observer
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]Observer)}
}

// Subscribe registers o and returns a function that removes it.
func (b *Broadcaster) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = o
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// SubscribeChan delivers changed task IDs on a buffered channel. Changes are
// dropped while the channel is full.
func (b *Broadcaster) SubscribeChan(size int) (<-chan int64, func()) {
	ch := make(chan int64, size)
	unsubscribe := b.Subscribe(ObserverFunc(func(_ context.Context, taskID int64) {
		select {
		case ch <- taskID:
		default:
		}
	}))
	return ch, unsubscribe
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) OnTaskChanged(ctx context.Context, taskID int64) {
	b.mu.RLock()
	subs := make([]Observer, 0, len(b.subs))
	for _, o := range b.subs {
		subs = append(subs, o)
	}
	b.mu.RUnlock()

	for _, o := range subs {
		o.OnTaskChanged(ctx, taskID)
	}
}
