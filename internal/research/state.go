package research

import (
	"fmt"
	"time"

	"trendforge/internal/model"

	"gorm.io/datatypes"
)

// Phase is the tagged view of a record's lifecycle state. Each variant
// carries exactly the fields legal for that state, so illegal combinations
// (a completed record without data, a failed one without a reason) cannot be
// expressed here; the flat column shape exists only at the DB/API boundary,
// produced by Columns.
type Phase interface {
	Status() model.ResearchStatus
	// Columns renders the column updates that move a record into this phase.
	Columns(now time.Time) map[string]interface{}
}

// Pending is the initial phase, before the first dispatch.
type Pending struct{}

func (Pending) Status() model.ResearchStatus { return model.ResearchPending }

func (Pending) Columns(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":           model.ResearchPending,
		"n8n_execution_id": nil,
		"updated_at":       now,
	}
}

// Processing holds the one valid execution id of the in-flight dispatch.
type Processing struct {
	ExecutionID string
}

func (Processing) Status() model.ResearchStatus { return model.ResearchProcessing }

func (p Processing) Columns(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":           model.ResearchProcessing,
		"n8n_execution_id": p.ExecutionID,
		"error_message":    nil,
		"updated_at":       now,
	}
}

// Completed is terminal; GeneratedAt is set only on the first completion.
type Completed struct {
	Data          datatypes.JSON
	PriorityScore float64
	GeneratedAt   *time.Time
}

func (Completed) Status() model.ResearchStatus { return model.ResearchCompleted }

func (p Completed) Columns(now time.Time) map[string]interface{} {
	cols := map[string]interface{}{
		"status":           model.ResearchCompleted,
		"research_data":    p.Data,
		"priority_score":   p.PriorityScore,
		"n8n_execution_id": nil,
		"error_message":    nil,
		"updated_at":       now,
	}
	if p.GeneratedAt != nil {
		cols["generated_at"] = *p.GeneratedAt
	}
	return cols
}

// Failed is terminal and retains the last failure reason.
type Failed struct {
	Reason string
}

func (Failed) Status() model.ResearchStatus { return model.ResearchFailed }

func (p Failed) Columns(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":           model.ResearchFailed,
		"error_message":    p.Reason,
		"n8n_execution_id": nil,
		"updated_at":       now,
	}
}

// Cancelled is terminal; reachable only from pending/processing.
type Cancelled struct{}

func (Cancelled) Status() model.ResearchStatus { return model.ResearchCancelled }

func (Cancelled) Columns(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":           model.ResearchCancelled,
		"n8n_execution_id": nil,
		"updated_at":       now,
	}
}

// PhaseOf decodes a persisted record back into its tagged phase, validating
// the per-state field invariants along the way.
func PhaseOf(rec *model.TrendResearch) (Phase, error) {
	switch rec.Status {
	case model.ResearchPending:
		return Pending{}, nil
	case model.ResearchProcessing:
		if rec.N8NExecutionID == nil || *rec.N8NExecutionID == "" {
			return nil, fmt.Errorf("processing record %s has no execution id", rec.ID)
		}
		return Processing{ExecutionID: *rec.N8NExecutionID}, nil
	case model.ResearchCompleted:
		if rec.ResearchData == nil {
			return nil, fmt.Errorf("completed record %s has no research data", rec.ID)
		}
		return Completed{Data: rec.ResearchData, PriorityScore: rec.PriorityScore, GeneratedAt: rec.GeneratedAt}, nil
	case model.ResearchFailed:
		if rec.ErrorMessage == nil || *rec.ErrorMessage == "" {
			return nil, fmt.Errorf("failed record %s has no error message", rec.ID)
		}
		return Failed{Reason: *rec.ErrorMessage}, nil
	case model.ResearchCancelled:
		return Cancelled{}, nil
	default:
		return nil, fmt.Errorf("record %s has unknown status %q", rec.ID, rec.Status)
	}
}
