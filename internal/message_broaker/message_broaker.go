package message_broaker

import "context"

// MessageBroker carries turn events to external consumers. Publish routes by
// key. Consume yields message bodies until ctx is done or the broker closes.
type MessageBroker interface {
	Publish(ctx context.Context, routingKey string, message []byte) error
	Consume(ctx context.Context, queue string) (<-chan []byte, error)
	Close() error
}
