// ABOUTME: Ticker-driven scheduling of refresh cycles and status flushes
// ABOUTME: Respects orchestrator suspension; timers keep ticking but cycles are skipped

package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Orchestrator is the slice of the sync orchestrator the scheduler drives.
type Orchestrator interface {
	Refresh(ctx context.Context) error
	Suspended() bool
}

// StatusPusher flushes the pending status queue.
type StatusPusher interface {
	PushPending(ctx context.Context) error
}

// Scheduler fires periodic refresh cycles and status flushes.
type Scheduler struct {
	orchestrator  Orchestrator
	statusPusher  StatusPusher
	logger        *slog.Logger
	refreshTicker *time.Ticker
	flushTicker   *time.Ticker
	stopChan      chan struct{}
	isRunning     bool
}

// Config holds scheduler configuration.
type Config struct {
	RefreshInterval     time.Duration
	StatusFlushInterval time.Duration
}

// DefaultConfig returns the default intervals: a full refresh every
// half hour and a status flush every two minutes between cycles.
func DefaultConfig() Config {
	return Config{
		RefreshInterval:     30 * time.Minute,
		StatusFlushInterval: 2 * time.Minute,
	}
}

// NewScheduler creates a scheduler.
func NewScheduler(orchestrator Orchestrator, statusPusher StatusPusher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		orchestrator: orchestrator,
		statusPusher: statusPusher,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start starts the scheduling loops.
func (s *Scheduler) Start(cfg Config) {
	if s.isRunning {
		s.logger.Warn("Scheduler is already running")
		return
	}

	s.logger.Info("Starting sync scheduler",
		"refresh_interval", cfg.RefreshInterval,
		"status_flush_interval", cfg.StatusFlushInterval)

	s.refreshTicker = time.NewTicker(cfg.RefreshInterval)
	s.flushTicker = time.NewTicker(cfg.StatusFlushInterval)
	s.isRunning = true

	go s.runLoop()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	if !s.isRunning {
		return
	}

	s.logger.Info("Stopping sync scheduler")
	close(s.stopChan)
	if s.refreshTicker != nil {
		s.refreshTicker.Stop()
	}
	if s.flushTicker != nil {
		s.flushTicker.Stop()
	}
	s.isRunning = false
}

func (s *Scheduler) runLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		case <-s.refreshTicker.C:
			s.runRefresh()
		case <-s.flushTicker.C:
			s.flushStatuses()
		}
	}
}

func (s *Scheduler) runRefresh() {
	if s.orchestrator.Suspended() {
		s.logger.Debug("Skipping scheduled refresh while suspended")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info("Starting scheduled refresh cycle")

	if err := s.orchestrator.Refresh(ctx); err != nil {
		s.logger.Error("Scheduled refresh failed", "error", err)
		return
	}

	s.logger.Info("Scheduled refresh cycle finished")
}

func (s *Scheduler) flushStatuses() {
	if s.orchestrator.Suspended() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.statusPusher.PushPending(ctx); err != nil {
		s.logger.Warn("Scheduled status flush failed", "error", err)
	}
}
