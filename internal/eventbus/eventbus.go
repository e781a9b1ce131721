// Package eventbus implements a typed, synchronous, in-process pub/sub bus
// used to route UI intents (play/pause, seek, volume, queue edits) to the
// collectors that own playback and library state.
package eventbus

import "sync"

// EventType enumerates every event this bus carries.
type EventType int

const (
	PlaybackStateChanged EventType = iota
	VolumeChanged
	LibraryUpdated
	SearchQuery
	TrackChanged
	QueueUpdated
	AddTrackToQueue
	ClearQueue
	PlayPause
	NextTrack
	PrevTrack
	SeekForward
	SeekBackward
	VolumeUp
	VolumeDown
	RepeatToggle
)

// Event is a single published occurrence. Index/Data/SeekSeconds/
// VolumeDelta are optional payload fields interpreted according to Type.
type Event struct {
	Type        EventType
	Index       int
	Data        string
	SeekSeconds int
	VolumeDelta int
}

// Handler processes a published Event.
type Handler func(Event)

// SubscriptionID identifies a subscription for later Unsubscribe calls. IDs
// are monotonically increasing starting from 1.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is a thread-safe event bus. The zero value is not usable; use New.
type Bus struct {
	mu          sync.Mutex
	subscribers map[EventType][]subscription
	nextID      SubscriptionID
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]subscription),
		nextID:      1,
	}
}

// Subscribe registers handler for events of the given type and returns a
// SubscriptionID that can later be passed to Unsubscribe.
func (b *Bus) Subscribe(t EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subscribers[t] = append(b.subscribers[t], subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes the subscription with the given id, across all event
// types. O(N) in the total number of subscriptions.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subscribers {
		kept := subs[:0]
		for _, s := range subs {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		b.subscribers[t] = kept
	}
}

// Publish invokes every handler subscribed to event.Type. Handlers are
// copied out under the lock and invoked without it held, so a handler may
// itself call Subscribe/Unsubscribe/Publish without deadlocking.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	subs := b.subscribers[event.Type]
	handlers := make([]Handler, len(subs))
	for i, s := range subs {
		handlers[i] = s.handler
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}
