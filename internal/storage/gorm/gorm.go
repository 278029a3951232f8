// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apronsim/apronsim/internal/database"
	"github.com/apronsim/apronsim/internal/model"
	"github.com/apronsim/apronsim/internal/model/convert"
	"github.com/apronsim/apronsim/internal/queue"
	"github.com/apronsim/apronsim/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is zero.
const DefaultFlushInterval = 2 * time.Second

const batchSize = 500

// DefaultMaxPending bounds how many rows per queue are kept for retry while
// the database is unavailable.
const DefaultMaxPending = 100_000

var (
	// ErrNoDB is returned by Init when no connection was injected.
	ErrNoDB = errors.New("no database connection")
	// ErrNoSession is returned when recording before StartSession.
	ErrNoSession = errors.New("no active session")
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	MaxPending    int
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	commands  *queue.Queue[model.CommandLog]
	lifecycle *queue.Queue[model.LifecycleLog]
	sessionID atomic.Uint64

	// flushMu serializes the writer goroutine with explicit flushes.
	flushMu       sync.Mutex
	lastWriteTime atomic.Int64

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.MaxPending <= 0 {
		deps.MaxPending = DefaultMaxPending
	}
	return &Backend{
		deps:      deps,
		commands:  queue.New[model.CommandLog](),
		lifecycle: queue.New[model.LifecycleLog](),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	if err := database.Setup(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.closeOnce.Do(func() {
		close(b.stopChan)
		<-b.done
	})
	return nil
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// StartSession inserts the session row synchronously so records queued
// afterwards can reference it.
func (b *Backend) StartSession(s *core.Session) error {
	// records of the previous session go out under its id
	if err := b.Flush(); err != nil {
		return err
	}

	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	return nil
}

// EndSession flushes the queues.
func (b *Backend) EndSession() error {
	return b.Flush()
}

// SessionID returns the active session id, 0 before StartSession.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// RecordCommand converts and queues a command record.
func (b *Backend) RecordCommand(c *core.CommandRecord) error {
	sessionID := b.SessionID()
	if sessionID == 0 {
		return ErrNoSession
	}
	row := convert.CoreToCommandLog(*c)
	row.SessionID = sessionID
	b.commands.Push(row)
	return nil
}

// RecordLifecycle converts and queues a lifecycle event.
func (b *Backend) RecordLifecycle(e *core.LifecycleEvent) error {
	sessionID := b.SessionID()
	if sessionID == 0 {
		return ErrNoSession
	}
	row := convert.CoreToLifecycleLog(*e)
	row.SessionID = sessionID
	b.lifecycle.Push(row)
	return nil
}

// Pending returns the number of queued rows not yet written.
func (b *Backend) Pending() int {
	return b.commands.Len() + b.lifecycle.Len()
}

// GetLastDBWriteDuration returns how long the most recent flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWriteTime.Load())
}

// Flush writes all queued rows. Rows that fail to insert are queued again,
// up to MaxPending per queue, and the errors are returned.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	errCommands := writeQueue(b.deps.DB, b.commands, "command logs", b.deps.MaxPending, b.deps.Logger)
	errLifecycle := writeQueue(b.deps.DB, b.lifecycle, "lifecycle logs", b.deps.MaxPending, b.deps.Logger)
	b.lastWriteTime.Store(int64(time.Since(start)))

	return errors.Join(errCommands, errLifecycle)
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back on the queue, bounded by limit.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, limit int, log *slog.Logger) error {
	items := q.Drain()
	if len(items) == 0 {
		return nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		requeue(q, items, name, limit, log)
		return fmt.Errorf("failed to begin transaction for %s: %w", name, tx.Error)
	}
	if err := tx.CreateInBatches(&items, batchSize).Error; err != nil {
		log.Error("error creating "+name, "error", err, "count", len(items))
		tx.Rollback()
		requeue(q, items, name, limit, log)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tx.Commit().Error; err != nil {
		requeue(q, items, name, limit, log)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return nil
}

// requeue puts failed items back, keeping the oldest ones when the queue
// would exceed limit.
func requeue[T any](q *queue.Queue[T], items []T, name string, limit int, log *slog.Logger) {
	room := limit - q.Len()
	if room < len(items) {
		room = max(room, 0)
		log.Error("dropping "+name+" after failed write", "dropped", len(items)-room, "limit", limit)
		items = items[:room]
	}
	q.Push(items...)
}

// writer periodically drains the queues into the DB until Close.
func (b *Backend) writer() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("final flush failed", "error", err, "pending", b.Pending())
			}
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Warn("flush failed, will retry", "error", err)
			}
		}
	}
}
