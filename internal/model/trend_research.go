package model

import (
	"time"

	"gorm.io/datatypes"
)

type ResearchStatus string

const (
	ResearchPending    ResearchStatus = "pending"
	ResearchProcessing ResearchStatus = "processing"
	ResearchCompleted  ResearchStatus = "completed"
	ResearchFailed     ResearchStatus = "failed"
	ResearchCancelled  ResearchStatus = "cancelled"
)

// Terminal reports whether no further lifecycle transition is permitted.
func (s ResearchStatus) Terminal() bool {
	return s == ResearchCompleted || s == ResearchFailed || s == ResearchCancelled
}

// TrendResearch is one research request for a trend topic. The status fields
// (Status, ResearchData, ErrorMessage, PriorityScore, N8NExecutionID,
// RetryCount, GeneratedAt) are owned by the lifecycle manager and mutated only
// through conditional updates; IsSelected is independent user bookkeeping.
type TrendResearch struct {
	Model          `gorm:"embedded"`
	UserID         string         `json:"user_id" gorm:"type:char(36);index;not null"`
	Title          string         `json:"title" gorm:"not null"`
	Categories     datatypes.JSON `json:"categories"`
	Status         ResearchStatus `json:"status" gorm:"type:varchar(16);default:'pending';index"`
	ResearchData   datatypes.JSON `json:"research_data,omitempty"`
	ErrorMessage   *string        `json:"error_message,omitempty" gorm:"type:text"`
	PriorityScore  float64        `json:"priority_score" gorm:"default:0"`
	IsSelected     bool           `json:"is_selected" gorm:"default:false"`
	N8NExecutionID *string        `json:"n8n_execution_id,omitempty" gorm:"column:n8n_execution_id;index"`
	RetryCount     int            `json:"retry_count" gorm:"default:0"`
	RequestedAt    time.Time      `json:"requested_at"`
	GeneratedAt    *time.Time     `json:"generated_at,omitempty"`
}
