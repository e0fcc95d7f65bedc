package progress

import (
	"sync"
)

// Listener receives the number of in-flight requests after every change
type Listener func(count int)

type subscription struct {
	id       uint64
	listener Listener
}

// Broadcaster counts in-flight requests and notifies subscribers of every change
type Broadcaster struct {
	mu     sync.Mutex
	count  int
	nextID uint64
	subs   []subscription
}

// New creates a broadcaster with a zero count
func New() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a listener and immediately calls it with the current count.
// Listeners run while the broadcaster is locked and must not call back into it.
func (b *Broadcaster) Subscribe(listener Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, listener: listener})
	listener(b.count)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Increment records a dispatched request
func (b *Broadcaster) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	b.notify()
}

// Decrement records a settled request. The count never drops below zero.
func (b *Broadcaster) Decrement() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count > 0 {
		b.count--
	}
	b.notify()
}

// Count returns the number of in-flight requests
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Broadcaster) notify() {
	for _, sub := range b.subs {
		sub.listener(b.count)
	}
}
