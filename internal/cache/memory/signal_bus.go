// Package memory provides in-process implementations of the coordination
// interfaces for single-instance deployments and tests. They honor the same
// contracts as the redis implementations but share nothing across processes.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/arenalabs/debatearena/internal/domain"
)

// subscriberBuffer bounds each subscriber's pending backlog. Slow consumers
// drop messages rather than block publishers, matching redis pub/sub.
const subscriberBuffer = 64

// SignalBus is an in-process domain.SignalBus.
type SignalBus struct {
	mu      sync.Mutex
	subs    map[string][]chan []byte
	streams map[string][]domain.StreamMessage
	nextID  int64
}

var _ domain.SignalBus = (*SignalBus)(nil)

// NewSignalBus creates an empty bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subs:    make(map[string][]chan []byte),
		streams: make(map[string][]domain.StreamMessage),
	}
}

// Publish fans payload out to current subscribers of channel. Subscribers
// whose buffers are full miss the message.
func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	msg := make([]byte, len(payload))
	copy(msg, payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel after this
// call. The subscription ends, and the channel closes, when ctx is done.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// StreamAppend appends payload to the named durable stream.
func (b *SignalBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	msg := make([]byte, len(payload))
	copy(msg, payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.streams[stream] = append(b.streams[stream], domain.StreamMessage{
		ID:      fmt.Sprintf("%d-0", b.nextID),
		Payload: msg,
	})
	return nil
}

// StreamRead returns up to count entries with IDs after lastID. An empty
// lastID reads from the start of the stream.
func (b *SignalBus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []domain.StreamMessage
	for _, m := range b.streams[stream] {
		if lastID != "" && streamIDSeq(m.ID) <= streamIDSeq(lastID) {
			continue
		}
		out = append(out, m)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out, nil
}

func streamIDSeq(id string) int64 {
	seq, _ := strconv.ParseInt(strings.SplitN(id, "-", 2)[0], 10, 64)
	return seq
}
