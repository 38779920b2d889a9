package events

import (
	"context"
	"time"

	"trendforge/app"
	"trendforge/internal/model"

	"github.com/google/uuid"
)

func CreateOutboxEvent(id uuid.UUID, aggregateID, eventType string, data []byte) error {
	if id == uuid.Nil {
		id = uuid.New()
	}
	entry := model.OutboxEvent{
		ID:          id,
		AggregateID: aggregateID,
		EventType:   eventType,
		EventData:   data,
		Status:      "pending",
		CreatedAt:   time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.DBTimeout)
	defer cancel()

	return app.Database.DB.WithContext(ctx).Create(&entry).Error
}

// getDueOutboxEvents fetches pending events whose backoff window has passed.
func (w *OutboxWorker) getDueOutboxEvents() ([]model.OutboxEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), app.DBTimeout)
	defer cancel()

	var entries []model.OutboxEvent
	err := app.Database.DB.WithContext(ctx).
		Where("status = ? AND retry_count < ?", "pending", w.maxRetries).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", time.Now()).
		Order("created_at ASC").
		Limit(w.batchSize).
		Find(&entries).Error
	return entries, err
}
