package model

import (
	"time"

	"github.com/google/uuid"
)

// Model is the shared base for persisted records: char(36) uuid primary key
// plus bookkeeping timestamps. IDs are assigned in the repo layer so that
// callers can pre-generate them when they need the value before insert.
type Model struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
