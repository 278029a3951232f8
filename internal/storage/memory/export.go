package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/pkg/core"
)

// JournalExport is the root JSON structure
type JournalExport struct {
	Session   SessionJSON     `json:"session"`
	Summary   SummaryJSON     `json:"summary"`
	Commands  []CommandJSON   `json:"commands"`
	Lifecycle []LifecycleJSON `json:"lifecycle"`
}

// SessionJSON describes the run the journal belongs to.
type SessionJSON struct {
	ID             uint      `json:"id"`
	StartTime      time.Time `json:"startTime"`
	Topology       string    `json:"topology"`
	Points         int       `json:"points"`
	Ways           int       `json:"ways"`
	TickIntervalMs int64     `json:"tickIntervalMs"`
	Runway         string    `json:"runway"`
	Gates          []string  `json:"gates"`
}

// SummaryJSON holds aggregate counts over the whole session.
type SummaryJSON struct {
	LastTick   uint64         `json:"lastTick"`
	Accepted   int            `json:"accepted"`
	Rejected   map[string]int `json:"rejected"`
	Lifecycles map[string]int `json:"lifecycles"`
}

// CommandJSON is one journaled command.
type CommandJSON struct {
	Seq      uint64    `json:"seq"`
	Tick     uint64    `json:"tick"`
	Source   string    `json:"source"`
	Line     string    `json:"line"`
	Command  string    `json:"command,omitempty"`
	Args     []string  `json:"args,omitempty"`
	Received time.Time `json:"received"`
	Accepted bool      `json:"accepted"`
	Category string    `json:"category,omitempty"`
	Error    string    `json:"error,omitempty"`
	Result   string    `json:"result,omitempty"`
}

// LifecycleJSON is one entity transition.
// Position is [x, y].
type LifecycleJSON struct {
	Tick     uint64     `json:"tick"`
	Kind     string     `json:"kind"`
	EntityID string     `json:"entityId"`
	Entity   string     `json:"entity"`
	Model    string     `json:"model,omitempty"`
	Gate     string     `json:"gate,omitempty"`
	Anchor   string     `json:"anchor,omitempty"`
	Position [2]float64 `json:"position"`
	Route    []string   `json:"route,omitempty"`
}

// exportJSON writes the journal to a (optionally gzipped) JSON file.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	path, err := WriteExport(b.cfg, BuildExport(b.session, b.commands, b.lifecycle))
	if err != nil {
		return err
	}
	b.lastExportPath = path
	return nil
}

// WriteExport writes export into cfg.OutputDir and returns the file path.
func WriteExport(cfg config.MemoryConfig, export JournalExport) (string, error) {
	timestamp := export.Session.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("journal_%s_%d.json", timestamp, export.Session.ID)
	if cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return "", err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return "", err
		}
	}
	return outputPath, nil
}

// BuildExport assembles the export document for one session.
func BuildExport(s *core.Session, commands []core.CommandRecord, lifecycle []core.LifecycleEvent) JournalExport {
	export := JournalExport{
		Session: SessionJSON{
			ID:             s.ID,
			StartTime:      s.StartTime,
			Topology:       s.Topology,
			Points:         s.Points,
			Ways:           s.Ways,
			TickIntervalMs: s.TickInterval.Milliseconds(),
			Runway:         s.Runway,
			Gates:          s.Gates,
		},
		Summary: SummaryJSON{
			Rejected:   make(map[string]int),
			Lifecycles: make(map[string]int),
		},
		Commands:  make([]CommandJSON, 0, len(commands)),
		Lifecycle: make([]LifecycleJSON, 0, len(lifecycle)),
	}

	for _, c := range commands {
		export.Commands = append(export.Commands, CommandJSON{
			Seq:      c.Seq,
			Tick:     c.Tick,
			Source:   c.Source,
			Line:     c.Line,
			Command:  c.Command,
			Args:     c.Args,
			Received: c.Received,
			Accepted: c.Accepted,
			Category: c.Category,
			Error:    c.Error,
			Result:   c.Result,
		})
		if c.Accepted {
			export.Summary.Accepted++
		} else {
			export.Summary.Rejected[c.Category]++
		}
		export.Summary.LastTick = max(export.Summary.LastTick, c.Tick)
	}

	for _, e := range lifecycle {
		export.Lifecycle = append(export.Lifecycle, LifecycleJSON{
			Tick:     e.Tick,
			Kind:     string(e.Kind),
			EntityID: e.EntityID,
			Entity:   e.Entity,
			Model:    e.Model,
			Gate:     e.Gate,
			Anchor:   e.Anchor,
			Position: [2]float64{e.Position.X, e.Position.Y},
			Route:    e.Route,
		})
		export.Summary.Lifecycles[string(e.Kind)]++
		export.Summary.LastTick = max(export.Summary.LastTick, e.Tick)
	}

	return export
}

func writeJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
