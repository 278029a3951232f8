// Package dispatcher routes parsed commands to their handlers. Dispatch runs
// the handler on the caller's goroutine; the simulation loop is the only
// caller, so handlers may touch simulation state without locking.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/apronsim/apronsim/internal/cmderr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event represents one command taken off the ingestion queue.
type Event struct {
	Command   string
	Args      []string
	Source    string
	Seq       uint64
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	processed metric.Int64Counter
	rejected  metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}

	m := otel.Meter("github.com/apronsim/apronsim/internal/dispatcher")

	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total commands applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.rejected, err = m.Int64Counter(
		"dispatcher.events.rejected",
		metric.WithDescription("Total commands rejected, by error category"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.handlers[command] = d.withMetrics(command, handler)
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command: %s", cmderr.ErrInvalidFormat, e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the number of registered handlers.
func (d *Dispatcher) Commands() int {
	return len(d.handlers)
}

func (d *Dispatcher) withMetrics(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)
	return func(e Event) (any, error) {
		result, err := h(e)
		if err != nil {
			d.rejected.Add(context.Background(), 1, metric.WithAttributes(
				cmdAttr, attribute.String("category", cmderr.Category(err))))
			return result, err
		}
		d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		return result, nil
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args), "seq", e.Seq, "source", e.Source)

		result, err := h(e)

		if err != nil {
			d.logger.Warn("event rejected", "command", command, "seq", e.Seq, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "seq", e.Seq, "duration", time.Since(start))
		}

		return result, err
	}
}
