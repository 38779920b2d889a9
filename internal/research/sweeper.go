package research

import (
	"context"
	"errors"
	"time"

	"trendforge/app"
	"trendforge/internal/repo"

	"github.com/sirupsen/logrus"
)

// Sweeper requeues records stuck in processing: when the external worker
// never calls back within the deadline, the attempt is treated exactly like
// a dispatch failure and enters the retry policy.
type Sweeper struct {
	manager   *Manager
	interval  time.Duration
	deadline  time.Duration
	batchSize int
	isRunning bool
	stopCh    chan struct{}
}

func NewSweeper(manager *Manager, interval, deadline time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if deadline <= 0 {
		deadline = 10 * time.Minute
	}
	return &Sweeper{
		manager:   manager,
		interval:  interval,
		deadline:  deadline,
		batchSize: 50,
		stopCh:    make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	if s.isRunning {
		logrus.Warn("Research sweeper is already running")
		return
	}
	s.isRunning = true
	logrus.Info("Starting research sweeper...")
	go s.processLoop()
}

func (s *Sweeper) Stop() {
	if !s.isRunning {
		return
	}
	close(s.stopCh)
	s.isRunning = false
}

func (s *Sweeper) processLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			logrus.Info("Stopping research sweeper...")
			return
		}
	}
}

// Sweep runs one pass over stale processing records.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), app.DBTimeout)
	defer cancel()

	cutoff := time.Now().Add(-s.deadline)
	records, err := repo.FindStaleProcessing(ctx, cutoff, s.batchSize)
	if err != nil {
		logrus.Errorf("Failed to fetch stale research records: %v", err)
		return
	}

	for i := range records {
		rec := &records[i]
		if rec.N8NExecutionID == nil {
			// Unreachable for processing records; skip rather than guess.
			logrus.WithField("trend_id", rec.ID).Error("Processing record without execution id")
			continue
		}
		executionID := *rec.N8NExecutionID
		err := s.manager.handleAttemptFailure(ctx, rec, executionID, "research processing timed out")
		if errors.Is(err, ErrUnknownExecution) {
			// Resolved between the query and the claim; nothing to do.
			continue
		}
		if err != nil {
			logrus.WithError(err).WithField("trend_id", rec.ID).Warn("Failed to requeue stale research record")
		}
	}
}
