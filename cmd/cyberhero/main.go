// cmd/cyberhero/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dohaibbur/CYBER-HERO/internal/config"
	"github.com/dohaibbur/CYBER-HERO/internal/content"
	"github.com/dohaibbur/CYBER-HERO/internal/database"
	"github.com/dohaibbur/CYBER-HERO/internal/dispatcher"
	"github.com/dohaibbur/CYBER-HERO/internal/logging"
	"github.com/dohaibbur/CYBER-HERO/internal/model"
	"github.com/dohaibbur/CYBER-HERO/internal/monitor"
	intOtel "github.com/dohaibbur/CYBER-HERO/internal/otel"
	"github.com/dohaibbur/CYBER-HERO/internal/progression"
	"github.com/dohaibbur/CYBER-HERO/internal/stage"
	"github.com/dohaibbur/CYBER-HERO/internal/storage"
)

var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

func main() {
	configDir := flag.String("config", ".", "directory containing cyberhero.cfg.json")
	backendFlag := flag.String("backend", "database", "save backend: database or memory")
	eduNotes := flag.Bool("edunotes", true, "append educational notes to command output")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cyberhero %s (built %s)\n", Version, BuildDate)
		return
	}

	if err := run(*configDir, *backendFlag, *eduNotes); err != nil {
		fmt.Fprintln(os.Stderr, "cyberhero:", err)
		os.Exit(1)
	}
}

func run(configDir, backendType string, eduNotes bool) error {
	if err := config.Load(configDir); err != nil {
		return err
	}

	sessionStart := time.Now()
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFile, err := os.OpenFile(
		logging.LogFilePath(logsDir, "cyberhero", sessionStart),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	otelCfg := config.GetOTelConfig()
	var otelLogFile *os.File
	if otelCfg.Enabled {
		otelLogFile, err = os.OpenFile(
			logging.LogFilePath(logsDir, "cyberhero.otel", sessionStart),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening otel log file: %w", err)
		}
		defer otelLogFile.Close()
	}
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    otelLogFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer provider.Shutdown(context.Background())

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logFile, config.GetString("logLevel"), provider.LoggerProvider())

	sessionID := uuid.NewString()

	// the REPL mutates this after construction; the handler reads it per record
	var eng *stage.Engine
	logger := slog.New(logging.NewContextHandler(slogManager.Logger().Handler(), func() []slog.Attr {
		attrs := []slog.Attr{slog.String("session", sessionID)}
		if eng != nil {
			// log records can come from the monitor goroutine too
			current, clock := eng.Sample()
			attrs = append(attrs,
				slog.String("stage", current.String()),
				slog.Int64("clock", clock),
			)
		}
		return attrs
	}))

	library, err := loadContent()
	if err != nil {
		return err
	}
	logger.Info("content loaded", "missions", len(library.Missions), "networks", len(library.Networks))

	zlog := zerolog.New(logFile).With().Timestamp().Logger()

	savesDir := config.GetString("saves.dir")
	if err := os.MkdirAll(savesDir, 0o755); err != nil {
		return fmt.Errorf("creating saves dir: %w", err)
	}
	dbManager := database.NewManager(zlog, savesDir)
	if err := dbManager.Connect(); err != nil {
		logger.Warn("database unavailable, falling back to in-memory saves", "error", err)
		backendType = "memory"
	} else {
		defer dbManager.Close()
		if err := dbManager.Setup("default", Version, len(library.Missions)); err != nil {
			return fmt.Errorf("preparing database: %w", err)
		}
	}

	backend, err := storage.NewBackend(backendType, dbManager.DB, slogManager)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing save backend: %w", err)
	}
	defer backend.Close()

	events, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return err
	}
	registerEventLogging(events, sessionID, backend, logger, func() string {
		if eng != nil && eng.Profile() != nil {
			return eng.Profile().Nickname
		}
		return ""
	})

	eng, err = stage.New(stage.Config{
		Library:  library,
		Backend:  backend,
		Events:   events,
		Levels:   progression.New(logger),
		Logger:   logger,
		EduNotes: eduNotes,
		Autosave: config.GetBool("saves.autosave"),
	})
	if err != nil {
		return err
	}

	status, err := monitor.NewService(monitor.Dependencies{
		Logger: logger,
		Source: eng,
	})
	if err != nil {
		return err
	}
	status.Start()
	defer status.Stop()

	logger.Info("engine ready", "version", Version, "backend", backendType)
	return runREPL(eng, os.Stdin, os.Stdout)
}

func loadContent() (*content.Library, error) {
	if dir := config.GetString("content.dir"); dir != "" {
		return content.LoadDir(dir)
	}
	return content.Default()
}

// registerEventLogging subscribes a handler to every engine event that
// persists the event as a session audit row; the dispatcher's Logged
// option also records it in the session log.
func registerEventLogging(d *dispatcher.Dispatcher, sessionID string, backend storage.Backend, logger *slog.Logger, nickname func() string) {
	names := []string{
		stage.EventStageChanged,
		stage.EventMailDelivered,
		stage.EventMailRead,
		stage.EventMissionStarted,
		stage.EventMissionCompleted,
		stage.EventObjectiveCompleted,
		stage.EventProfileSaved,
	}
	for _, name := range names {
		d.Register(name, func(ev dispatcher.Event) (any, error) {
			rec := model.EventRecord{
				Nickname:  nickname(),
				SessionID: sessionID,
				Time:      ev.Timestamp,
				Kind:      ev.Name,
				Payload:   ev.Payload,
			}
			if err := backend.RecordEvent(rec); err != nil {
				logger.Warn("event not recorded", "kind", ev.Name, "error", err)
			}
			return nil, nil
		}, dispatcher.Logged())
	}
}
