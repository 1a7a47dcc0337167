package stream

import (
	"context"
	"sync"
)

// Sink is the append-only stream the publisher delivers to. The production
// implementation is NATS JetStream; tests and broker-less local runs use
// MemorySink.
type Sink interface {
	Append(ctx context.Context, topic, partitionKey string, payload []byte) error
	Close() error
}

// SinkMessage is one appended record, kept by MemorySink for inspection.
type SinkMessage struct {
	PartitionKey string
	Payload      []byte
}

// MemorySink collects appended messages per topic. Failure injection and the
// gate channel exist for publisher tests.
type MemorySink struct {
	mu       sync.Mutex
	messages map[string][]SinkMessage

	failures int   // fail this many Appends before succeeding
	err      error // error returned while failing

	gate chan struct{} // when set, Append blocks until the gate is fed
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		messages: make(map[string][]SinkMessage),
	}
}

func (s *MemorySink) Append(ctx context.Context, topic, partitionKey string, payload []byte) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures > 0 {
		s.failures--
		return s.err
	}

	data := make([]byte, len(payload))
	copy(data, payload)
	s.messages[topic] = append(s.messages[topic], SinkMessage{
		PartitionKey: partitionKey,
		Payload:      data,
	})
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Messages returns a copy of everything appended to a topic so far.
func (s *MemorySink) Messages(topic string) []SinkMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SinkMessage, len(s.messages[topic]))
	copy(out, s.messages[topic])
	return out
}

// FailNext makes the next n Appends return err.
func (s *MemorySink) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.err = err
}

// SetGate installs a channel every Append blocks on; feed or close it to let
// deliveries through. Pass nil to remove the gate.
func (s *MemorySink) SetGate(gate chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = gate
}
