package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent buffers a lifecycle event whose Kafka publish failed, so the
// outbox worker can republish it later. NextAttemptAt carries the backoff
// schedule; it is computed in Go to stay portable across DB drivers.
type OutboxEvent struct {
	ID            uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	AggregateID   string     `json:"aggregate_id" gorm:"index"`
	EventType     string     `json:"event_type"`
	EventData     []byte     `json:"event_data" gorm:"type:json"`
	Status        string     `json:"status" gorm:"default:'pending'"` // pending, processed, failed
	RetryCount    int        `json:"retry_count" gorm:"default:0"`
	LastError     *string    `json:"last_error"`
	NextAttemptAt *time.Time `json:"next_attempt_at" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
}
