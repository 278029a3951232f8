package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/apronsim/apronsim/internal/api"
	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/internal/storage"
	"github.com/apronsim/apronsim/internal/topology"
	"github.com/apronsim/apronsim/pkg/core"
)

func startJournal(logger *slog.Logger, graph *topology.Graph, topoCfg config.TopologyConfig, simCfg config.SimConfig, start time.Time) (storage.Backend, *core.Session, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := storage.NewBackend(storageCfg, config.GetDBConfig(), logger.With("component", "storage"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize %s storage backend: %w", storageCfg.Type, err)
	}

	session := &core.Session{
		StartTime:    start,
		Topology:     topoCfg.Path,
		Points:       graph.PointCount(),
		Ways:         graph.EdgeCount(),
		TickInterval: simCfg.TickInterval,
		Runway:       topoCfg.Runway,
		Gates:        topoCfg.Gates,
	}
	if err := backend.StartSession(session); err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("failed to start journal session: %w", err)
	}

	logger.Info("Journal session started", "storage", storageCfg.Type, "session", session.ID)
	return backend, session, nil
}

type tickReporter interface {
	LastStats() *core.TickStats
}

// endJournal closes the session and, when an archive is configured, uploads
// the exported file.
func endJournal(logger *slog.Logger, backend storage.Backend, session *core.Session, ticks tickReporter) error {
	if err := backend.EndSession(); err != nil {
		_ = backend.Close()
		return err
	}
	if err := backend.Close(); err != nil {
		return err
	}

	exp, ok := backend.(storage.Exportable)
	if !ok || exp.ExportedFilePath() == "" {
		return nil
	}
	path := exp.ExportedFilePath()
	logger.Info("Journal exported", "path", path)

	uploadCfg := config.GetUploadConfig()
	if !uploadCfg.Enabled {
		return nil
	}

	meta := core.UploadMetadata{
		SessionID: session.ID,
		Topology:  session.Topology,
		Duration:  time.Since(session.StartTime).Seconds(),
		Tag:       uploadCfg.Tag,
	}
	if stats := ticks.LastStats(); stats != nil {
		meta.LastTick = stats.Tick
	}

	client := api.NewClient(uploadCfg.URL, uploadCfg.APIKey)
	if err := client.Healthcheck(); err != nil {
		logger.Warn("Journal archive unreachable, keeping local copy", "error", err, "path", path)
		return nil
	}
	if err := client.Upload(path, meta); err != nil {
		logger.Warn("Journal upload failed, keeping local copy", "error", err, "path", path)
		return nil
	}
	logger.Info("Journal uploaded", "url", uploadCfg.URL, "session", session.ID)
	return nil
}
