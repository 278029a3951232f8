// Package engine runs the simulation loop. It is the only goroutine that
// touches sim.State: each tick it drains the ingestion queue, applies the
// commands in sequence order, advances the entities and hands an immutable
// snapshot to readers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/apronsim/apronsim/internal/cmderr"
	"github.com/apronsim/apronsim/internal/dispatcher"
	"github.com/apronsim/apronsim/internal/ingest"
	"github.com/apronsim/apronsim/internal/parser"
	"github.com/apronsim/apronsim/internal/sim"
	"github.com/apronsim/apronsim/internal/storage"
	"github.com/apronsim/apronsim/pkg/core"
)

// DefaultInterval is the tick period when Dependencies.Interval is zero.
const DefaultInterval = 100 * time.Millisecond

// StatsSink receives the summary of every tick. Implementations must not
// block.
type StatsSink interface {
	RecordTick(core.TickStats)
}

// Publisher receives the snapshot produced by every tick. Implementations
// must not block.
type Publisher interface {
	Publish(*sim.Snapshot)
}

// Dependencies holds all dependencies for the engine.
type Dependencies struct {
	State      *sim.State
	Queue      *ingest.Queue
	Dispatcher *dispatcher.Dispatcher
	Journal    storage.Backend
	// Console echoes command results to the operator.
	Console    dispatcher.Logger
	Logger     *slog.Logger
	Sinks      []StatsSink
	Publishers []Publisher

	Interval       time.Duration
	QueueWarnDepth int
}

// Engine drives the simulation.
type Engine struct {
	deps Dependencies

	latest    atomic.Pointer[sim.Snapshot]
	lastStats atomic.Pointer[core.TickStats]
}

// New creates an engine. Queue, State and Dispatcher are required.
func New(deps Dependencies) (*Engine, error) {
	if deps.State == nil || deps.Queue == nil || deps.Dispatcher == nil {
		return nil, errors.New("engine: state, queue and dispatcher are required")
	}
	if deps.Journal == nil {
		deps.Journal = storage.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Engine{deps: deps}, nil
}

// Run ticks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.deps.Interval)
	defer ticker.Stop()

	e.deps.Logger.Info("simulation started", "interval", e.deps.Interval)
	for {
		select {
		case <-ctx.Done():
			e.deps.Logger.Info("simulation stopped", "tick", e.deps.State.Tick())
			return nil
		case now := <-ticker.C:
			e.Step(now)
		}
	}
}

// Step runs one tick at now: commands first, then movement, then overlay
// expiry. It returns the tick summary.
func (e *Engine) Step(now time.Time) core.TickStats {
	start := time.Now()
	st := e.deps.State
	st.BeginTick(now)

	commands := e.deps.Queue.Drain()
	if e.deps.QueueWarnDepth > 0 && len(commands) >= e.deps.QueueWarnDepth {
		e.deps.Logger.Warn("command backlog", "tick", st.Tick(), "depth", len(commands))
	}

	var applied, rejected int
	for _, c := range commands {
		rec, ok := e.apply(c)
		if !ok {
			continue
		}
		if rec.Accepted {
			applied++
		} else {
			rejected++
		}
		if err := e.deps.Journal.RecordCommand(&rec); err != nil {
			e.deps.Logger.Warn("failed to journal command", "seq", rec.Seq, "error", err)
		}
	}

	st.Advance()
	st.ExpireAnimations()

	for _, ev := range st.TakeEvents() {
		if err := e.deps.Journal.RecordLifecycle(&ev); err != nil {
			e.deps.Logger.Warn("failed to journal lifecycle event", "kind", ev.Kind, "entity", ev.EntityID, "error", err)
		}
	}

	snap := st.Snapshot()
	e.latest.Store(snap)
	for _, p := range e.deps.Publishers {
		p.Publish(snap)
	}

	stats := st.Stats()
	stats.Duration = time.Since(start)
	stats.QueueDepth = len(commands)
	stats.Applied = applied
	stats.Rejected = rejected
	e.lastStats.Store(&stats)
	for _, s := range e.deps.Sinks {
		s.RecordTick(stats)
	}

	return stats
}

// apply parses and dispatches one queued line. ok is false for blank lines,
// which are not journaled.
func (e *Engine) apply(c ingest.Command) (rec core.CommandRecord, ok bool) {
	st := e.deps.State
	rec = core.CommandRecord{
		Seq:      c.Seq,
		Tick:     st.Tick(),
		Source:   c.Source,
		Line:     c.Line,
		Received: c.Received,
		Applied:  st.Now(),
	}

	ev, err := parser.Parse(c.Line)
	if errors.Is(err, parser.ErrEmptyLine) {
		return rec, false
	}

	var result any
	if err == nil {
		ev.Seq = c.Seq
		ev.Source = c.Source
		ev.Timestamp = c.Received
		rec.Command = ev.Command
		rec.Args = ev.Args
		result, err = e.deps.Dispatcher.Dispatch(ev)
	}

	if err != nil {
		rec.Category = cmderr.Category(err)
		rec.Error = err.Error()
		e.echo(false, rec.Error, rec)
		return rec, true
	}

	rec.Accepted = true
	if result != nil {
		rec.Result = fmt.Sprint(result)
	}
	e.echo(true, rec.Result, rec)
	return rec, true
}

func (e *Engine) echo(accepted bool, msg string, rec core.CommandRecord) {
	if e.deps.Console == nil {
		return
	}
	if accepted {
		e.deps.Console.Info(msg, "seq", rec.Seq, "source", rec.Source)
		return
	}
	e.deps.Console.Warn(msg, "seq", rec.Seq, "source", rec.Source, "line", rec.Line, "category", rec.Category)
}

// Latest returns the snapshot of the most recent tick, nil before the first.
func (e *Engine) Latest() *sim.Snapshot {
	return e.latest.Load()
}

// LastStats returns the summary of the most recent tick, nil before the first.
func (e *Engine) LastStats() *core.TickStats {
	return e.lastStats.Load()
}

// Enqueue pushes an operator line onto the ingestion queue and returns its
// sequence number.
func (e *Engine) Enqueue(source, line string) uint64 {
	return e.deps.Queue.Push(source, line)
}

// LogContext reports the tick and population of the most recent tick for
// structured log records.
func (e *Engine) LogContext() []slog.Attr {
	stats := e.lastStats.Load()
	if stats == nil {
		return nil
	}
	return []slog.Attr{
		slog.Uint64("tick", stats.Tick),
		slog.Int("aircraft", stats.Aircraft),
	}
}
