// Package monitor keeps a rolling view of simulator health for the status
// endpoint, the status file and periodic debug logs.
package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/apronsim/apronsim/pkg/core"
)

// DefaultInterval is how often the monitor logs and rewrites the status file.
const DefaultInterval = 5 * time.Second

// QueueLen reports the current ingestion backlog.
type QueueLen interface {
	Len() int
}

// JournalStats is implemented by journal backends that buffer writes.
type JournalStats interface {
	Pending() int
	GetLastDBWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger     *slog.Logger
	Queue      QueueLen
	Journal    JournalStats // optional
	StatusPath string       // optional status file, rewritten every interval
	Interval   time.Duration
}

// Status is a point-in-time health report.
type Status struct {
	Time             time.Time      `json:"time"`
	Tick             uint64         `json:"tick"`
	LastTickMs       float64        `json:"lastTickMs"`
	QueueDepth       int            `json:"queueDepth"`
	CommandsApplied  uint64         `json:"commandsApplied"`
	CommandsRejected uint64         `json:"commandsRejected"`
	Aircraft         int            `json:"aircraft"`
	GroundVehicles   map[string]int `json:"groundVehicles"`
	Animations       int            `json:"animations"`
	OccupiedGates    int            `json:"occupiedGates"`
	JournalPending   int            `json:"journalPending"`
	LastDBWriteMs    float64        `json:"lastDbWriteMs"`
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	last      core.TickStats
	applied   uint64
	rejected  uint64
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// RecordTick folds a tick summary into the running totals.
func (s *Service) RecordTick(stats core.TickStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = stats
	s.applied += uint64(stats.Applied)
	s.rejected += uint64(stats.Rejected)
}

// Status returns the current report.
func (s *Service) Status() Status {
	s.mu.RLock()
	last := s.last
	st := Status{
		Time:             time.Now(),
		Tick:             last.Tick,
		LastTickMs:       float64(last.Duration.Microseconds()) / 1000,
		CommandsApplied:  s.applied,
		CommandsRejected: s.rejected,
		Aircraft:         last.Aircraft,
		GroundVehicles:   make(map[string]int, len(last.Tallies)),
		Animations:       last.Animations,
		OccupiedGates:    last.OccupiedGates,
	}
	for model, n := range last.Tallies {
		st.GroundVehicles[model] = n
	}
	s.mu.RUnlock()

	if s.deps.Queue != nil {
		st.QueueDepth = s.deps.Queue.Len()
	}
	if s.deps.Journal != nil {
		st.JournalPending = s.deps.Journal.Pending()
		st.LastDBWriteMs = float64(s.deps.Journal.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return st
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go s.loop(stop, done)
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *Service) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	logger := s.deps.Logger
	logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			st := s.Status()
			logger.Debug("status",
				"tick", st.Tick,
				"lastTickMs", st.LastTickMs,
				"queueDepth", st.QueueDepth,
				"applied", st.CommandsApplied,
				"rejected", st.CommandsRejected,
				"aircraft", st.Aircraft,
				"animations", st.Animations,
				"journalPending", st.JournalPending,
			)
			if s.deps.StatusPath != "" {
				if err := writeStatusFile(s.deps.StatusPath, st); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}
}

func writeStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
