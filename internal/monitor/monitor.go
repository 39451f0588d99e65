// internal/monitor/monitor.go

// Package monitor logs periodic runtime status while a game session runs:
// memory, goroutines, and a snapshot of the engine's clock and stage.
package monitor

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/dohaibbur/CYBER-HERO/pkg/core"
)

// StatusSource reports engine state for the status line. Implementations
// must be safe to call from the monitor goroutine; the stage engine
// satisfies this with Sample.
type StatusSource interface {
	Sample() (core.StageKind, int64)
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Logger   *slog.Logger
	Source   StatusSource
	Interval time.Duration
}

// Service emits a status log line on a fixed interval until stopped.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}

	heapGauge      metric.Int64Gauge
	goroutineGauge metric.Int64Gauge
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	s := &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}

	m := meter()
	var err error
	s.heapGauge, err = m.Int64Gauge(
		"runtime.heap_bytes",
		metric.WithDescription("Heap bytes in use"),
	)
	if err != nil {
		return nil, err
	}
	s.goroutineGauge, err = m.Int64Gauge(
		"runtime.goroutines",
		metric.WithDescription("Live goroutine count"),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start launches the status loop. Calling Start on a running service is a
// no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	go s.loop()
}

// Stop ends the status loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
}

func (s *Service) loop() {
	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.report()
		}
	}
}

func (s *Service) report() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()

	ctx := context.Background()
	s.heapGauge.Record(ctx, int64(mem.HeapInuse))
	s.goroutineGauge.Record(ctx, int64(goroutines))

	attrs := []any{
		"heapBytes", mem.HeapInuse,
		"goroutines", goroutines,
	}
	if s.deps.Source != nil {
		stage, clock := s.deps.Source.Sample()
		attrs = append(attrs,
			"stage", stage.String(),
			"clockMs", clock,
		)
	}
	s.deps.Logger.Info("status", attrs...)
}
