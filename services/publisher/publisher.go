package publisher

import (
	"context"
	"sync"
)

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message under key to one of the streams
	Publish(ctx context.Context, key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}

// Message is a published key/value pair
type Message struct {
	Key   string
	Value []byte
}

// MemoryPublisher keeps the most recent messages in process. It is used when
// no Redis is configured.
type MemoryPublisher struct {
	mu        sync.Mutex
	messages  []Message
	maxLength int
}

// NewMemoryPublisher creates a publisher that retains up to maxLength messages
func NewMemoryPublisher(maxLength int) *MemoryPublisher {
	if maxLength <= 0 {
		maxLength = 1000
	}
	return &MemoryPublisher{maxLength: maxLength}
}

// Publish stores a copy of message
func (p *MemoryPublisher) Publish(ctx context.Context, key string, message []byte) error {
	value := make([]byte, len(message))
	copy(value, message)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Key: key, Value: value})
	return nil
}

// TrimStreams drops the oldest messages beyond the maximum length
func (p *MemoryPublisher) TrimStreams(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if excess := len(p.messages) - p.maxLength; excess > 0 {
		p.messages = append([]Message(nil), p.messages[excess:]...)
	}
	return nil
}

// Messages returns the retained messages, oldest first
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Close is a no-op
func (p *MemoryPublisher) Close() error {
	return nil
}
