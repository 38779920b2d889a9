package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeResearchCompleted = "research.completed"
	TypeResearchFailed    = "research.failed"
	TypeResearchCancelled = "research.cancelled"
)

// Event is one lifecycle fact about a research request, published to the
// events topic for downstream consumers (feeds, analytics).
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	UserID      string          `json:"user_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
