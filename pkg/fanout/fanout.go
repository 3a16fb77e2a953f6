// Package fanout broadcasts a single producer's event stream to many
// subscribers, each with its own bounded buffer. A slow subscriber never
// blocks the producer or its faster peers: once its buffer is full, the
// oldest buffered event is dropped to make room, and a DroppedEvents
// marker carrying the number of lost events is queued ahead of the next
// event delivered to it.
package fanout

import (
	"context"
	"sync"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
)

// DefaultBufferSize is the default per-subscriber buffer bound.
const DefaultBufferSize = 256

// Broadcaster fans one upstream event stream out to many subscribers.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[int]*subscriber
	nextID  int
	bufSize int
	closed  bool
}

type subscriber struct {
	ch      chan execpkg.Event
	dropped int
}

// New builds a Broadcaster whose subscriber channels are bounded to
// bufSize (DefaultBufferSize when <= 0).
func New(bufSize int) *Broadcaster {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return &Broadcaster{
		subs:    map[int]*subscriber{},
		bufSize: bufSize,
	}
}

// Subscribe registers a new subscriber and returns its id and receive-only
// channel. Unsubscribe(id) must be called once the caller is done.
func (b *Broadcaster) Subscribe() (int, <-chan execpkg.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{ch: make(chan execpkg.Event, b.bufSize)}
	b.subs[id] = sub

	return id, sub.ch
}

// Unsubscribe removes and closes a subscriber's channel.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Publish delivers ev to every current subscriber, using a drop-oldest
// policy on a full buffer so the producer and fast subscribers are never
// blocked by a slow one.
func (b *Broadcaster) Publish(ev execpkg.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		deliver(sub, ev)
	}
}

func deliver(sub *subscriber, ev execpkg.Event) {
	// A pending drop marker is flushed ahead of the next normal event so
	// the gap is visible at its correct position in the stream.
	if sub.dropped > 0 {
		select {
		case sub.ch <- execpkg.DroppedEvent(sub.dropped):
			sub.dropped = 0
		default:
			// Buffer is full: evict the oldest event to make room for the
			// marker itself.
			dropOldest(sub)

			select {
			case sub.ch <- execpkg.DroppedEvent(sub.dropped):
				sub.dropped = 0
			default:
			}
		}
	}

	select {
	case sub.ch <- ev:
		return
	default:
	}

	dropOldest(sub)

	select {
	case sub.ch <- ev:
	default:
		sub.dropped++
	}
}

func dropOldest(sub *subscriber) {
	select {
	case <-sub.ch:
		sub.dropped++
	default:
	}
}

// Run pumps source into Publish until source closes or ctx is done, then
// closes every subscriber channel.
func (b *Broadcaster) Run(ctx context.Context, source <-chan execpkg.Event) {
	for {
		select {
		case <-ctx.Done():
			b.closeAll()

			return
		case ev, ok := <-source:
			if !ok {
				b.closeAll()

				return
			}

			b.Publish(ev)
		}
	}
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
