package stream

import (
	"context"
	"fmt"

	"recohub/pkg/utils"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// HeaderPartitionKey carries the event's partition key to consumers.
const HeaderPartitionKey = "Recohub-Partition-Key"

// NATSSink appends events to JetStream. A circuit breaker keeps a dead broker
// from burning the retry budget of every single delivery; while the breaker
// is open, Append fails fast and the publisher spools.
type NATSSink struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	breaker *gobreaker.CircuitBreaker[any]
	log     *zap.Logger
}

func NewNATSSink(cfg utils.StreamConfig, log *zap.Logger) (*NATSSink, error) {
	log = log.With(zap.String("sink", "nats"))

	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name: "nats-sink",
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Sink circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &NATSSink{
		conn:    conn,
		js:      js,
		breaker: breaker,
		log:     log,
	}, nil
}

func (s *NATSSink) Append(ctx context.Context, topic, partitionKey string, payload []byte) error {
	msg := &nats.Msg{
		Subject: topic,
		Data:    payload,
		Header:  nats.Header{},
	}
	msg.Header.Set(HeaderPartitionKey, partitionKey)

	_, err := s.breaker.Execute(func() (any, error) {
		return s.js.PublishMsg(msg, nats.Context(ctx))
	})
	if err != nil {
		return fmt.Errorf("append to %s: %w", topic, err)
	}

	return nil
}

func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
