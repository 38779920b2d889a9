package events

import (
	"context"
	"encoding/json"
	"time"

	"trendforge/app"
	"trendforge/internal/model"
	"trendforge/lib/kafka"

	"github.com/sirupsen/logrus"
)

// OutboxWorker republishes events whose original Kafka publish failed.
// Backoff doubles per attempt and is tracked in next_attempt_at; once the
// retry ceiling is hit the entry is marked failed and left for inspection.
type OutboxWorker struct {
	Topic string

	interval       time.Duration
	batchSize      int
	maxRetries     int
	baseRetryDelay time.Duration
	send           SendFunc
	producer       *kafka.Producer
	isRunning      bool
	stopCh         chan struct{}
}

// NewOutboxWorker builds a worker for topic. Pass nil send to republish
// through a dedicated Kafka producer.
func NewOutboxWorker(topic string, send SendFunc) *OutboxWorker {
	return &OutboxWorker{
		Topic:          topic,
		interval:       10 * time.Second,
		batchSize:      50,
		maxRetries:     5,
		baseRetryDelay: 500 * time.Millisecond,
		send:           send,
		stopCh:         make(chan struct{}),
	}
}

func (w *OutboxWorker) Start() {
	if w.isRunning {
		logrus.Warn("Outbox worker is already running")
		return
	}
	if w.send == nil {
		w.producer = kafka.NewProducer()
		w.send = w.producer.Send
	}

	w.isRunning = true
	logrus.Info("Starting outbox worker...")
	go w.processLoop()
}

func (w *OutboxWorker) Stop() {
	if !w.isRunning {
		return
	}
	close(w.stopCh)
	w.isRunning = false
	if w.producer != nil {
		_ = w.producer.Close()
	}
}

func (w *OutboxWorker) processLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.processOutboxEvents()
		case <-w.stopCh:
			logrus.Info("Stopping outbox worker...")
			return
		}
	}
}

func (w *OutboxWorker) processOutboxEvents() {
	entries, err := w.getDueOutboxEvents()
	if err != nil {
		logrus.Errorf("Failed to fetch outbox events: %v", err)
		return
	}
	for _, entry := range entries {
		if err := w.republish(entry); err != nil {
			w.markEventAsFailed(entry, err)
		} else {
			w.markEventAsProcessed(entry)
		}
	}
}

func (w *OutboxWorker) republish(entry model.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), app.DBTimeout)
	defer cancel()

	// EventData already holds the marshaled event; forward it as-is.
	if err := w.send(ctx, w.Topic, entry.AggregateID, json.RawMessage(entry.EventData)); err != nil {
		logrus.WithError(err).WithField("event_id", entry.ID).Warn("Outbox republish failed")
		return err
	}
	logrus.Infof("Republished outbox event %s", entry.ID)
	return nil
}

func (w *OutboxWorker) markEventAsProcessed(entry model.OutboxEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), app.DBTimeout)
	defer cancel()
	now := time.Now()
	updates := map[string]interface{}{
		"status":       "processed",
		"processed_at": &now,
		"last_error":   nil,
	}

	if err := app.Database.DB.WithContext(ctx).Model(&entry).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("event_id", entry.ID).Error("Failed to mark event as processed")
	}
}

func (w *OutboxWorker) markEventAsFailed(entry model.OutboxEvent, processingErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), app.DBTimeout)
	defer cancel()

	newRetryCount := entry.RetryCount + 1
	status := "pending"

	if newRetryCount >= w.maxRetries {
		status = "failed"
		logrus.WithField("event_id", entry.ID).Errorf("Event failed permanently after %d retries: %v", w.maxRetries, processingErr)
	}

	now := time.Now()
	nextAttempt := now.Add(w.baseRetryDelay * (1 << (newRetryCount - 1)))
	errorString := processingErr.Error()
	updates := map[string]interface{}{
		"status":          status,
		"retry_count":     newRetryCount,
		"last_error":      &errorString,
		"next_attempt_at": &nextAttempt,
		"processed_at":    &now,
	}

	if err := app.Database.DB.WithContext(ctx).Model(&entry).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("event_id", entry.ID).Error("Failed to update event retry status")
	}
}
