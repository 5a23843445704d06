package message_broaker

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrBrokerClosed = errors.New("message broker is closed")

// ChannelBroker is an in-process MessageBroker. Every subscriber of a queue
// receives every message whose routing key matches the queue pattern, where
// the pattern may end in ".#" to match a key prefix.
type ChannelBroker struct {
	mu     sync.RWMutex
	subs   map[string][]chan []byte
	closed bool
	buffer int
}

func NewChannelBroker(buffer int) *ChannelBroker {
	if buffer <= 0 {
		buffer = 100
	}
	return &ChannelBroker{subs: make(map[string][]chan []byte), buffer: buffer}
}

func (b *ChannelBroker) Publish(ctx context.Context, routingKey string, message []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}
	for pattern, chans := range b.subs {
		if !matchRoutingKey(pattern, routingKey) {
			continue
		}
		for _, ch := range chans {
			select {
			case ch <- message:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (b *ChannelBroker) Consume(ctx context.Context, queue string) (<-chan []byte, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	ch := make(chan []byte, b.buffer)
	b.subs[queue] = append(b.subs[queue], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(queue, ch)
	}()
	return ch, nil
}

func (b *ChannelBroker) unsubscribe(queue string, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	chans := b.subs[queue]
	for i, c := range chans {
		if c == ch {
			b.subs[queue] = append(chans[:i], chans[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *ChannelBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = map[string][]chan []byte{}
	return nil
}

func matchRoutingKey(pattern, key string) bool {
	if pattern == "#" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, ".#"); ok {
		return key == prefix || strings.HasPrefix(key, prefix+".")
	}
	return pattern == key
}
