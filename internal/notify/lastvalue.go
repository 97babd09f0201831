/*
Package notify implements the latest-value change broadcaster the Storage
Facade uses for self_head_updated and self_followees_updated: many
subscribers, non-blocking sends, and a slow consumer observes only the newest
value rather than blocking the publisher or queuing a backlog.
*/
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// LastValue is a single-slot, latest-value broadcast channel. Publish never
// blocks; a Subscribe'd consumer's channel is always drained and refilled
// with the newest value, so a slow reader skips intermediate updates but
// never misses the most recent one.
type LastValue[T any] struct {
	mu   sync.Mutex
	subs map[string]chan T
}

// NewLastValue constructs an empty broadcaster.
func NewLastValue[T any]() *LastValue[T] {
	return &LastValue[T]{subs: make(map[string]chan T)}
}

// Subscription is a handle returned by Subscribe; call Unsubscribe when
// done to release the channel.
type Subscription[T any] struct {
	id string
	ch chan T
	lv *LastValue[T]
}

// C returns the channel to receive values on.
func (s Subscription[T]) C() <-chan T { return s.ch }

// Unsubscribe removes this subscription from the broadcaster.
func (s Subscription[T]) Unsubscribe() {
	s.lv.mu.Lock()
	defer s.lv.mu.Unlock()
	delete(s.lv.subs, s.id)
}

// Subscribe registers a new subscriber with a 1-buffered channel.
func (lv *LastValue[T]) Subscribe() Subscription[T] {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	id := uuid.NewString()
	ch := make(chan T, 1)
	lv.subs[id] = ch
	return Subscription[T]{id: id, ch: ch, lv: lv}
}

// Publish delivers value to every current subscriber, replacing (rather
// than queuing behind) any value that subscriber hasn't yet consumed.
func (lv *LastValue[T]) Publish(value T) {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	for _, ch := range lv.subs {
		select {
		case ch <- value:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- value:
			default:
			}
		}
	}
}
