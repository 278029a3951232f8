package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDeliveriesClosed is returned when the broker stops a consumer.
	ErrDeliveriesClosed = errors.New("delivery channel closed")
	// ErrConnectionClosed is returned when the broker connection drops.
	ErrConnectionClosed = errors.New("message bus connection closed")
)

// AMQPConfig configures the message bus consumer.
type AMQPConfig struct {
	URL        string
	Queues     []string
	Prefetch   int
	RetryDelay time.Duration
	Heartbeat  time.Duration
}

// AMQPSource consumes command lines from RabbitMQ queues. It reconnects
// after RetryDelay whenever the connection or a consumer drops, until its
// context ends.
type AMQPSource struct {
	cfg    AMQPConfig
	logger *slog.Logger
}

// NewAMQPSource creates a message bus source.
func NewAMQPSource(cfg AMQPConfig, logger *slog.Logger) *AMQPSource {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	return &AMQPSource{cfg: cfg, logger: logger}
}

// Name implements Source.
func (s *AMQPSource) Name() string { return "amqp" }

// Run implements Source.
func (s *AMQPSource) Run(ctx context.Context, q *Queue) error {
	for {
		err := s.session(ctx, q)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("message bus unavailable, retrying",
			"error", err,
			"retryDelay", s.cfg.RetryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.RetryDelay):
		}
	}
}

// session runs one connection until it fails or ctx ends.
func (s *AMQPSource) session(ctx context.Context, q *Queue) error {
	conn, err := amqp.DialConfig(s.cfg.URL, amqp.Config{
		Heartbeat:  s.cfg.Heartbeat,
		Properties: amqp.Table{"connection_name": "apronsim"},
	})
	if err != nil {
		return fmt.Errorf("dialing message bus: %w", err)
	}
	defer conn.Close()
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(s.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("setting prefetch: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range s.cfg.Queues {
		if _, err := ch.QueueDeclare(name, false, false, false, false, nil); err != nil {
			return fmt.Errorf("declaring queue %s: %w", name, err)
		}
		deliveries, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consuming queue %s: %w", name, err)
		}
		g.Go(func() error {
			return s.consume(gctx, name, deliveries, q)
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return ErrConnectionClosed
			}
			return fmt.Errorf("%w: %v", ErrConnectionClosed, amqpErr)
		}
	})

	s.logger.Info("message bus connected", "queues", s.cfg.Queues, "prefetch", s.cfg.Prefetch)
	return g.Wait()
}

func (s *AMQPSource) consume(ctx context.Context, queueName string, deliveries <-chan amqp.Delivery, q *Queue) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: %s", ErrDeliveriesClosed, queueName)
			}
			s.handle(queueName, d, q)
		}
	}
}

// handle enqueues one delivery and acknowledges it. Bodies that are not
// valid UTF-8 are rejected without requeue so they cannot loop.
func (s *AMQPSource) handle(queueName string, d amqp.Delivery, q *Queue) {
	if !utf8.Valid(d.Body) {
		s.logger.Warn("dropping non-UTF-8 message", "queue", queueName, "bytes", len(d.Body))
		if err := d.Nack(false, false); err != nil {
			s.logger.Error("nack failed", "queue", queueName, "error", err)
		}
		return
	}

	line := strings.TrimSpace(string(d.Body))
	if line != "" {
		seq := q.Push(s.Name()+":"+queueName, line)
		s.logger.Debug("message queued", "queue", queueName, "seq", seq)
	}

	if err := d.Ack(false); err != nil {
		s.logger.Error("ack failed", "queue", queueName, "error", err)
	}
}
