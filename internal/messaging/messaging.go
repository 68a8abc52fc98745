// Package messaging defines the broker abstractions the segment service uses
// for asynchronous jobs, independent of a specific broker.
package messaging

import (
	"context"
	"time"
)

// Message is a message received from or sent to a broker.
type Message struct {
	Subject string
	Data    []byte
	// Reply is set for request/reply; the receiver answers on it.
	Reply     string
	Metadata  map[string]string
	Timestamp time.Time
}

// MessageHandler processes a received message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription is an active subscription to a subject.
type Subscription interface {
	Unsubscribe() error
	Subject() string
	IsValid() bool
}

// Publisher publishes messages to subjects.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	// PublishJSON marshals v and publishes it.
	PublishJSON(ctx context.Context, subject string, v any) error
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)
}

// Subscriber subscribes to messages on subjects.
type Subscriber interface {
	// Subscribe delivers every message to this subscriber.
	Subscribe(subject string, handler MessageHandler) (Subscription, error)
	// QueueSubscribe load-balances messages across the queue group.
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)
}

// Client combines Publisher and Subscriber.
type Client interface {
	Publisher
	Subscriber
	Drain() error
	IsConnected() bool
	Close() error
}
