// Package ingest merges command lines from every producer into the single
// FIFO the simulation drains once per tick.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apronsim/apronsim/internal/queue"
	"golang.org/x/sync/errgroup"
)

// Command is one raw line as received from a producer.
type Command struct {
	Seq      uint64
	Source   string
	Line     string
	Received time.Time
}

// Queue is the shared command FIFO. Producers push from any goroutine; the
// simulation goroutine is the only consumer.
type Queue struct {
	q     *queue.Queue[Command]
	clock func() time.Time
}

// NewQueue creates an empty command queue.
func NewQueue() *Queue {
	return &Queue{
		q:     queue.New[Command](),
		clock: time.Now,
	}
}

// Push enqueues a line and returns its sequence number. The sequence number
// and receive time are stamped under the queue lock, so sequence order is
// queue order across all producers.
func (q *Queue) Push(source, line string) uint64 {
	return q.q.PushSeq(func(seq uint64) Command {
		return Command{
			Seq:      seq,
			Source:   source,
			Line:     line,
			Received: q.clock(),
		}
	})
}

// Drain returns every queued command in arrival order.
func (q *Queue) Drain() []Command {
	return q.q.Drain()
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	return q.q.Len()
}

// Source produces command lines until its context ends.
type Source interface {
	Name() string
	Run(ctx context.Context, q *Queue) error
}

// Merger runs every source against one queue.
type Merger struct {
	queue   *Queue
	sources []Source
	logger  *slog.Logger
}

// NewMerger creates a merger for the given sources.
func NewMerger(q *Queue, logger *slog.Logger, sources ...Source) *Merger {
	return &Merger{
		queue:   q,
		sources: sources,
		logger:  logger,
	}
}

// Run blocks until every source has returned. A source that fails cancels
// the others; a source that finishes cleanly (console EOF) does not.
func (m *Merger) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range m.sources {
		g.Go(func() error {
			m.logger.Info("command source started", "source", src.Name())
			err := src.Run(ctx, m.queue)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("command source %s: %w", src.Name(), err)
			}
			m.logger.Info("command source stopped", "source", src.Name())
			return nil
		})
	}
	return g.Wait()
}
