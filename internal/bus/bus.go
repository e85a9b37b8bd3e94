// Package bus is the shared entry point for host events (keydown, scroll,
// resize). Many independent consumers may subscribe to one bus; each keeps
// its own state and must pair Subscribe with the returned unsubscribe.
package bus

import "sync"

type Bus[E any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(E)
	order  []int
}

func New[E any]() *Bus[E] {
	return &Bus[E]{subs: make(map[int]func(E))}
}

// Subscribe registers fn and returns an idempotent unsubscribe.
func (b *Bus[E]) Subscribe(fn func(E)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[E]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[id]; !ok {
		return
	}
	delete(b.subs, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers e in subscription order. Handlers removed during delivery
// are skipped; handlers added during delivery wait for the next event.
func (b *Bus[E]) Publish(e E) {
	b.mu.Lock()
	ids := make([]int, len(b.order))
	copy(ids, b.order)
	b.mu.Unlock()

	for _, id := range ids {
		b.mu.Lock()
		fn, ok := b.subs[id]
		b.mu.Unlock()
		if ok {
			fn(e)
		}
	}
}

// Len is the number of live subscriptions.
func (b *Bus[E]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
