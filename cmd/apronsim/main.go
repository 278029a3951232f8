package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/apronsim/apronsim/internal/animation"
	"github.com/apronsim/apronsim/internal/api"
	"github.com/apronsim/apronsim/internal/commands"
	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/internal/dispatcher"
	"github.com/apronsim/apronsim/internal/engine"
	"github.com/apronsim/apronsim/internal/influx"
	"github.com/apronsim/apronsim/internal/ingest"
	"github.com/apronsim/apronsim/internal/logging"
	"github.com/apronsim/apronsim/internal/monitor"
	intOtel "github.com/apronsim/apronsim/internal/otel"
	"github.com/apronsim/apronsim/internal/pathfind"
	"github.com/apronsim/apronsim/internal/render"
	"github.com/apronsim/apronsim/internal/sim"
	"github.com/apronsim/apronsim/internal/topology"
)

// build info, set via ldflags
var (
	CurrentVersion = "0.0.1"
	BuildDate      = "unknown"
)

const serviceName = "apronsim"

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", serviceName, CurrentVersion, BuildDate)
		return
	}

	if err := run(*configDir); err != nil {
		fmt.Fprintln(os.Stderr, "apronsim:", err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	sessionStart := time.Now()
	configErr := config.Load(configDir)

	logCfg := config.GetLoggingConfig()
	if err := os.MkdirAll(logCfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// OpenTelemetry
	otelCfg := config.GetOTelConfig()
	var otelFile io.WriteCloser
	if otelCfg.Enabled && otelCfg.Endpoint == "" {
		otelFile = logging.NewRotatingFile(logCfg, serviceName+".otel", sessionStart)
		defer otelFile.Close()
	}
	provider, err := intOtel.New(intOtel.ConfigFrom(otelCfg, otelFile))
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Logging
	var eng *engine.Engine
	logFile := logging.NewRotatingFile(logCfg, serviceName, sessionStart)
	defer logFile.Close()

	logOpts := logging.Options{
		Level:       logCfg.Level,
		File:        logFile,
		Provider:    provider.LoggerProvider(),
		ServiceName: serviceName,
		Context: func() []slog.Attr {
			if eng == nil {
				return nil
			}
			return eng.LogContext()
		},
	}
	var graylogErr error
	if gl := config.GetGraylogConfig(); gl.Enabled {
		logOpts.Graylog, graylogErr = logging.NewGraylogWriter(gl.Address)
	}

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logOpts)
	logger := slogManager.Logger()
	slog.SetDefault(logger)

	logger.Info("Starting apronsim", "version", CurrentVersion, "buildDate", BuildDate, "logFile", logFile.Filename)
	if configErr != nil {
		logger.Warn("Failed to load config, using defaults", "error", configErr)
	}
	if graylogErr != nil {
		logger.Warn("Graylog disabled", "error", graylogErr)
	}

	console := logging.NewConsoleLogger(os.Stdout, logCfg.Level)

	// Simulation
	topoCfg := config.GetTopologyConfig()
	simCfg := config.GetSimConfig()

	graph, err := topology.Load(topoCfg.Path, topology.WithEdgePrefix(topoCfg.EdgePrefix))
	if err != nil {
		return err
	}
	logger.Info("Topology loaded", "path", topoCfg.Path, "points", graph.PointCount(), "ways", graph.EdgeCount())

	paths, err := pathfind.New(graph, simCfg.PathCacheSize)
	if err != nil {
		return err
	}

	animCfg := config.GetAnimationConfig()
	frames := animation.StaticFrames{}
	for name, count := range animCfg.Frames {
		n, ok := animation.ParseName(name)
		if !ok {
			logger.Warn("Ignoring frame count for unknown animation", "name", name)
			continue
		}
		frames[n] = count
	}

	state := sim.NewState(sim.Config{
		Runway:               topoCfg.Runway,
		Gates:                topoCfg.Gates,
		MaxAircraft:          simCfg.MaxAircraft,
		SpawnedAircraftSpeed: simCfg.Speed.SpawnedAircraft,
		AircraftSpeed:        simCfg.Speed.Aircraft,
		GroundSpeed:          simCfg.Speed.Ground,
	}, sim.Dependencies{
		Graph:      graph,
		Paths:      paths,
		Animations: animation.NewManager(animCfg.Duration),
		Frames:     frames,
	})

	// Commands
	consoleLogger := logging.NewDispatcherLogger(console)
	d, err := dispatcher.New(consoleLogger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	commands.NewService(commands.Dependencies{State: state}).RegisterHandlers(d)
	logger.Debug("Command handlers registered", "count", d.Commands())

	// Journal
	journal, session, err := startJournal(logger, graph, topoCfg, simCfg, sessionStart)
	if err != nil {
		return err
	}

	queue := ingest.NewQueue()

	// Status and metrics
	monCfg := config.GetMonitorConfig()
	monDeps := monitor.Dependencies{
		Logger:     logger.With("component", "monitor"),
		Queue:      queue,
		StatusPath: monCfg.StatusPath,
		Interval:   monCfg.Interval,
	}
	if js, ok := journal.(monitor.JournalStats); ok {
		monDeps.Journal = js
	}
	mon := monitor.NewService(monDeps)
	sinks := []engine.StatsSink{mon}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var influxManager *influx.Manager
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backup := filepath.Join(logCfg.Dir, fmt.Sprintf("influx_backup_%s.lp.gz", sessionStart.Format("20060102_150405")))
		influxManager = influx.NewManager(influxCfg, console.With().Str("component", "influx").Logger(), backup)
		if err := influxManager.Connect(ctx); err != nil {
			logger.Warn("InfluxDB unavailable, writing metrics to backup file", "error", err, "path", backup)
		}
		sinks = append(sinks, influxManager)
	}

	// Renderer stream
	hub, err := render.NewHub(render.Dependencies{
		Logger:       logger.With("component", "render"),
		Encoding:     config.GetRenderConfig().Encoding,
		TickInterval: simCfg.TickInterval,
		Enqueue:      queue.Push,
	})
	if err != nil {
		return err
	}

	eng, err = engine.New(engine.Dependencies{
		State:          state,
		Queue:          queue,
		Dispatcher:     d,
		Journal:        journal,
		Console:        consoleLogger,
		Logger:         logger,
		Sinks:          sinks,
		Publishers:     []engine.Publisher{hub},
		Interval:       simCfg.TickInterval,
		QueueWarnDepth: simCfg.QueueWarnDepth,
	})
	if err != nil {
		return err
	}

	// Command sources
	var sources []ingest.Source
	if config.GetConsoleConfig().Enabled {
		sources = append(sources, ingest.NewConsoleSource(os.Stdin))
	}
	if bus := config.GetBusConfig(); bus.Enabled {
		sources = append(sources, ingest.NewAMQPSource(ingest.AMQPConfig{
			URL:        bus.URL,
			Queues:     bus.Queues,
			Prefetch:   bus.Prefetch,
			RetryDelay: bus.RetryDelay,
			Heartbeat:  bus.Heartbeat,
		}, logger.With("component", "bus")))
	}
	merger := ingest.NewMerger(queue, logger, sources...)

	mon.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return merger.Run(gctx) })
	if httpCfg := config.GetHTTPConfig(); httpCfg.Enabled {
		srv := api.NewServer(api.Dependencies{
			Sim:     eng,
			Status:  mon,
			Stream:  hub,
			Logger:  logger.With("component", "api"),
			Address: httpCfg.Address,
		})
		g.Go(func() error { return srv.Run(gctx) })
	}

	runErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("Shutting down after failure", "error", runErr)
	} else {
		runErr = nil
	}

	// Shutdown
	_ = hub.Close()
	mon.Stop()

	if err := endJournal(logger, journal, session, eng); err != nil {
		logger.Error("Failed to close journal", "error", err)
	}

	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			logger.Warn("Failed to close InfluxDB", "error", err)
		}
	}

	logger.Info("apronsim stopped", "uptime", time.Since(sessionStart).Round(time.Second))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = slogManager.Flush(shutdownCtx)
	if err := provider.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintln(os.Stderr, "otel shutdown:", err)
	}

	return runErr
}
