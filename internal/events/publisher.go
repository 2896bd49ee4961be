package events

import (
	"sync"
)

// AllEvents subscribes to every notification type.
const AllEvents EventType = "*"

// Publisher defines the interface for notification delivery.
type Publisher interface {
	// Publish sends a notification to all subscribers of its type.
	Publish(n Notification)
	// Subscribe returns a channel that receives notifications of the given type.
	// Use AllEvents ("*") to receive every notification.
	Subscribe(eventType EventType) <-chan Notification
	// Unsubscribe removes a subscription channel.
	Unsubscribe(eventType EventType, ch <-chan Notification)
	// Close shuts down the publisher and all subscriptions.
	Close()
}

// MemoryPublisher is an in-memory implementation of Publisher.
type MemoryPublisher struct {
	subscribers map[EventType][]chan Notification
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// PublisherOption configures a MemoryPublisher.
type PublisherOption func(*MemoryPublisher)

// WithBufferSize sets the channel buffer size for subscribers.
func WithBufferSize(size int) PublisherOption {
	return func(p *MemoryPublisher) {
		p.bufferSize = size
	}
}

// NewMemoryPublisher creates a new in-memory publisher.
func NewMemoryPublisher(opts ...PublisherOption) *MemoryPublisher {
	p := &MemoryPublisher{
		subscribers: make(map[EventType][]chan Notification),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends a notification to subscribers of its type and to
// AllEvents subscribers. Subscribers with full buffers are skipped.
func (p *MemoryPublisher) Publish(n Notification) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	deliver := func(subs []chan Notification) {
		for _, ch := range subs {
			select {
			case ch <- n:
			default:
			}
		}
	}

	deliver(p.subscribers[n.Type])
	if n.Type != AllEvents {
		deliver(p.subscribers[AllEvents])
	}
}

// Subscribe returns a channel that receives notifications of eventType.
func (p *MemoryPublisher) Subscribe(eventType EventType) <-chan Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		ch := make(chan Notification)
		close(ch)
		return ch
	}

	ch := make(chan Notification, p.bufferSize)
	p.subscribers[eventType] = append(p.subscribers[eventType], ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (p *MemoryPublisher) Unsubscribe(eventType EventType, ch <-chan Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.subscribers[eventType]
	for i, sub := range subs {
		if sub == ch {
			p.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}

	if len(p.subscribers[eventType]) == 0 {
		delete(p.subscribers, eventType)
	}
}

// Close shuts down the publisher and closes all subscription channels.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true

	for eventType, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(p.subscribers, eventType)
	}
}

// SubscriberCount returns the number of subscribers for eventType.
func (p *MemoryPublisher) SubscriberCount(eventType EventType) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers[eventType])
}

// NopPublisher is a no-op publisher for testing or when notifications are disabled.
type NopPublisher struct{}

// Publish does nothing.
func (p *NopPublisher) Publish(n Notification) {}

// Subscribe returns a closed channel.
func (p *NopPublisher) Subscribe(eventType EventType) <-chan Notification {
	ch := make(chan Notification)
	close(ch)
	return ch
}

// Unsubscribe does nothing.
func (p *NopPublisher) Unsubscribe(eventType EventType, ch <-chan Notification) {}

// Close does nothing.
func (p *NopPublisher) Close() {}

// NewNopPublisher creates a no-op publisher.
func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}
