package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventType represents the type of event.
type EventType string

const (
	SessionLoggedIn       EventType = "session.logged_in"
	SessionDefaultChanged EventType = "session.default_changed"
	MessagePosted         EventType = "forum.message.posted"
	MessageEdited         EventType = "forum.message.edited"
	ProfileUpdated        EventType = "forum.profile.updated"
	ChatMessage           EventType = "chat.message"
	ChatUsers             EventType = "chat.users"
)

// Topic is the watermill topic every event is forwarded to.
const Topic = "tbgclient.events"

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus keeps typed in-process subscribers and mirrors every event onto a
// watermill gochannel for stream consumers.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[EventType][]subscriberEntry
	global      []subscriberEntry
	streams     atomic.Int32

	nextID atomic.Uint64
	closed bool
}

var (
	globalMu  sync.RWMutex
	globalBus = newBus()
)

func newBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[EventType][]subscriberEntry),
	}
}

func current() *Bus {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalBus
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	return newBus()
}

// Subscribe registers a subscriber for a specific event type on the global
// bus. Returns an unsubscribe function.
func Subscribe(eventType EventType, fn Subscriber) func() {
	return current().Subscribe(eventType, fn)
}

func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.nextID.Add(1)
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, entry := range subs {
			if entry.id == id {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// SubscribeAll registers a subscriber for all events on the global bus.
func SubscribeAll(fn Subscriber) func() {
	return current().SubscribeAll(fn)
}

func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.nextID.Add(1)
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, entry := range b.global {
			if entry.id == id {
				b.global = append(b.global[:i], b.global[i+1:]...)
				break
			}
		}
	}
}

// snapshot collects subscribers under the read lock. ok is false once closed.
func (b *Bus) snapshot(eventType EventType) (subs []Subscriber, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false
	}
	subs = make([]Subscriber, 0, len(b.subscribers[eventType])+len(b.global))
	for _, entry := range b.subscribers[eventType] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs, true
}

// Publish sends an event to all subscribers asynchronously.
func Publish(event Event) {
	current().Publish(event)
}

func (b *Bus) Publish(event Event) {
	subs, ok := b.snapshot(event.Type)
	if !ok {
		return
	}
	for _, sub := range subs {
		go sub(event)
	}
	b.forward(event)
}

// PublishSync sends an event to all subscribers in the current goroutine.
func PublishSync(event Event) {
	current().PublishSync(event)
}

func (b *Bus) PublishSync(event Event) {
	subs, ok := b.snapshot(event.Type)
	if !ok {
		return
	}
	for _, sub := range subs {
		sub(event)
	}
	b.forward(event)
}

// forward mirrors the event onto the watermill topic when someone streams.
func (b *Bus) forward(event Event) {
	if b.streams.Load() == 0 {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(event.Type))
	_ = b.pubsub.Publish(Topic, msg)
}

// Stream returns the raw JSON encoding of every event published after the
// call, until ctx is cancelled. Messages are acknowledged on delivery.
func Stream(ctx context.Context) (<-chan []byte, error) {
	return current().Stream(ctx)
}

func (b *Bus) Stream(ctx context.Context) (<-chan []byte, error) {
	msgs, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}
	b.streams.Add(1)

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer b.streams.Add(-1)
		for msg := range msgs {
			select {
			case out <- msg.Payload:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Reset replaces the global bus with a fresh one (for testing).
func Reset() {
	globalMu.Lock()
	old := globalBus
	globalBus = newBus()
	globalMu.Unlock()
	_ = old.Close()
}

// Close closes the bus and drops all subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[EventType][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// PubSub returns the underlying watermill GoChannel.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
