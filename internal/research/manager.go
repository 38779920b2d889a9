package research

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"trendforge/internal/events"
	"trendforge/internal/model"
	"trendforge/internal/repo"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultMaxRetries = 3

// EventSink receives lifecycle events for terminal transitions.
type EventSink interface {
	Publish(evt events.Event)
}

// Notifier tells the owning user that a research request completed.
type Notifier interface {
	ResearchReady(ctx context.Context, rec *model.TrendResearch)
}

// Manager owns the TrendResearch state machine: creation, dispatch to the
// external worker, callback resolution, retry policy and selection
// bookkeeping. All status transitions go through conditional updates in the
// repo, so concurrent callers serialize per record.
type Manager struct {
	Dispatcher Dispatcher
	MaxRetries int
	Events     EventSink // optional
	Notifier   Notifier  // optional
}

// Default is the process-wide manager used by the HTTP handlers and the
// Kafka callback consumer. Assigned by Setup at boot.
var Default *Manager

func NewManager(dispatcher Dispatcher, maxRetries int) *Manager {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Manager{Dispatcher: dispatcher, MaxRetries: maxRetries}
}

func Setup(dispatcher Dispatcher, maxRetries int) *Manager {
	Default = NewManager(dispatcher, maxRetries)
	return Default
}

type TriggerParams struct {
	UserID     string   `json:"user_id"`
	Title      string   `json:"title"`
	Categories []string `json:"categories"`
}

// Trigger creates a new research request and immediately dispatches it. The
// returned record is never left pending: it is processing, or failed when
// dispatch could not be issued within the retry budget.
func (m *Manager) Trigger(ctx context.Context, params TriggerParams) (*model.TrendResearch, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if params.UserID == "" {
		return nil, ErrUserRequired
	}

	categories := params.Categories
	if categories == nil {
		categories = []string{}
	}
	cats, err := json.Marshal(categories)
	if err != nil {
		return nil, err
	}

	rec := &model.TrendResearch{
		UserID:     params.UserID,
		Title:      title,
		Categories: datatypes.JSON(cats),
		Status:     model.ResearchPending,
	}
	if err := repo.CreateTrendResearch(ctx, rec); err != nil {
		return nil, err
	}

	m.beginDispatch(ctx, rec)
	return rec, nil
}

// CallbackPayload is what the external worker reports back. ExecutionID is
// mandatory; exactly one of the success fields (ResearchData, PriorityScore)
// or the failure field (ErrorMessage) must be populated, consistent with
// Status.
type CallbackPayload struct {
	ExecutionID   string          `json:"execution_id"`
	Status        string          `json:"status,omitempty"` // "completed" | "failed"
	ResearchData  datatypes.JSON  `json:"research_data,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	PriorityScore *float64        `json:"priority_score,omitempty"`
}

// succeeded validates the payload and reports which outcome it carries.
func (cb CallbackPayload) succeeded() (bool, error) {
	if cb.ExecutionID == "" {
		return false, ErrInvalidCallback
	}
	switch cb.Status {
	case string(model.ResearchCompleted):
		if len(cb.ResearchData) == 0 || cb.PriorityScore == nil || cb.ErrorMessage != "" {
			return false, ErrInvalidCallback
		}
		return true, nil
	case string(model.ResearchFailed):
		if cb.ErrorMessage == "" || len(cb.ResearchData) != 0 {
			return false, ErrInvalidCallback
		}
		return false, nil
	case "":
		// Status omitted: infer from which side is populated.
		if len(cb.ResearchData) != 0 && cb.PriorityScore != nil && cb.ErrorMessage == "" {
			return true, nil
		}
		if cb.ErrorMessage != "" && len(cb.ResearchData) == 0 {
			return false, nil
		}
		return false, ErrInvalidCallback
	default:
		return false, ErrInvalidCallback
	}
}

// HandleCallback resolves the in-flight dispatch the execution id belongs
// to. Duplicate, late, or spoofed callbacks fail with ErrUnknownExecution and
// mutate nothing; of two racing callbacks for the same id exactly one wins.
func (m *Manager) HandleCallback(ctx context.Context, cb CallbackPayload) (*model.TrendResearch, error) {
	success, err := cb.succeeded()
	if err != nil {
		return nil, err
	}

	rec, err := repo.FindProcessingByExecutionID(ctx, cb.ExecutionID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnknownExecution
		}
		return nil, err
	}

	if success {
		now := time.Now()
		phase := Completed{Data: cb.ResearchData, PriorityScore: *cb.PriorityScore}
		if rec.GeneratedAt == nil {
			// First completion wins.
			phase.GeneratedAt = &now
		}
		ok, err := repo.ClaimProcessing(ctx, cb.ExecutionID, rec.RetryCount, phase.Columns(now))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUnknownExecution
		}
		rec.Status = model.ResearchCompleted
		rec.ResearchData = cb.ResearchData
		rec.PriorityScore = *cb.PriorityScore
		if phase.GeneratedAt != nil {
			rec.GeneratedAt = phase.GeneratedAt
		}
		rec.N8NExecutionID = nil
		rec.ErrorMessage = nil
		rec.UpdatedAt = &now

		logrus.WithFields(logrus.Fields{
			"trend_id":       rec.ID,
			"priority_score": rec.PriorityScore,
		}).Info("Research completed")

		m.publish(rec, events.TypeResearchCompleted)
		if m.Notifier != nil {
			m.Notifier.ResearchReady(ctx, rec)
		}
		return rec, nil
	}

	if err := m.handleAttemptFailure(ctx, rec, cb.ExecutionID, cb.ErrorMessage); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetSelected flips the user selection flag. Legal in every status; the flag
// never interacts with the state machine.
func (m *Manager) SetSelected(ctx context.Context, id uuid.UUID, selected bool) error {
	ok, err := repo.SetResearchSelected(ctx, id, selected)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Cancel transitions a pending/processing request to the terminal cancelled
// status. It never overwrites completed or failed.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID) (*model.TrendResearch, error) {
	ok, err := repo.TransitionResearch(ctx, id,
		[]model.ResearchStatus{model.ResearchPending, model.ResearchProcessing},
		Cancelled{}.Columns(time.Now()))
	if err != nil {
		return nil, err
	}

	rec, gerr := repo.GetTrendResearch(ctx, id)
	if gerr != nil {
		if isNotFound(gerr) {
			return nil, ErrNotFound
		}
		return nil, gerr
	}
	if !ok {
		return rec, ErrAlreadyResolved
	}

	logrus.WithField("trend_id", id).Info("Research cancelled")
	m.publish(rec, events.TypeResearchCancelled)
	return rec, nil
}

// beginDispatch moves a freshly created record from pending into its first
// attempt. Status and execution id land in a single update, so no observer
// sees one without the other.
func (m *Manager) beginDispatch(ctx context.Context, rec *model.TrendResearch) {
	executionID := uuid.New().String()
	ok, err := repo.TransitionResearch(ctx, rec.ID,
		[]model.ResearchStatus{model.ResearchPending},
		Processing{ExecutionID: executionID}.Columns(time.Now()))
	if err != nil {
		logrus.WithError(err).WithField("trend_id", rec.ID).Error("Failed to mark record processing")
		return
	}
	if !ok {
		logrus.WithField("trend_id", rec.ID).Warn("Record left pending before first dispatch")
		return
	}
	rec.Status = model.ResearchProcessing
	rec.N8NExecutionID = &executionID

	m.attempt(ctx, rec, executionID)
}

// attempt sends the job under the given execution id. A failed send counts
// as a consumed attempt and enters the retry policy.
func (m *Manager) attempt(ctx context.Context, rec *model.TrendResearch, executionID string) {
	sendErr := m.Dispatcher.Dispatch(ctx, m.payload(rec, executionID))
	if sendErr == nil {
		logrus.WithFields(logrus.Fields{
			"trend_id":     rec.ID,
			"execution_id": executionID,
			"retry_count":  rec.RetryCount,
		}).Info("Research dispatched")
		return
	}

	logrus.WithError(sendErr).WithFields(logrus.Fields{
		"trend_id":     rec.ID,
		"execution_id": executionID,
	}).Warn("Dispatch to research worker failed")

	if err := m.handleAttemptFailure(ctx, rec, executionID, sendErr.Error()); err != nil {
		logrus.WithError(err).WithField("trend_id", rec.ID).Warn("Retry after failed dispatch did not apply")
	}
}

// handleAttemptFailure applies the retry policy to the record currently
// processing under executionID: below the ceiling the failure consumes a
// retry slot and the job is re-dispatched under a fresh execution id; at the
// ceiling the record fails terminally with reason retained.
func (m *Manager) handleAttemptFailure(ctx context.Context, rec *model.TrendResearch, executionID string, reason string) error {
	if rec.RetryCount >= m.MaxRetries {
		return m.failTerminal(ctx, rec, executionID, reason)
	}

	now := time.Now()
	next := uuid.New().String()
	cols := Processing{ExecutionID: next}.Columns(now)
	cols["retry_count"] = rec.RetryCount + 1

	ok, err := repo.ClaimProcessing(ctx, executionID, rec.RetryCount, cols)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownExecution
	}

	rec.RetryCount++
	rec.Status = model.ResearchProcessing
	rec.N8NExecutionID = &next
	rec.ErrorMessage = nil
	rec.UpdatedAt = &now

	logrus.WithFields(logrus.Fields{
		"trend_id":    rec.ID,
		"retry_count": rec.RetryCount,
		"reason":      reason,
	}).Info("Retrying research dispatch")

	m.attempt(ctx, rec, next)
	return nil
}

// failTerminal moves the record to the terminal failed status, keeping the
// last failure reason.
func (m *Manager) failTerminal(ctx context.Context, rec *model.TrendResearch, executionID string, reason string) error {
	now := time.Now()
	ok, err := repo.ClaimProcessing(ctx, executionID, rec.RetryCount, Failed{Reason: reason}.Columns(now))
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownExecution
	}

	rec.Status = model.ResearchFailed
	rec.ErrorMessage = &reason
	rec.N8NExecutionID = nil
	rec.UpdatedAt = &now

	logrus.WithFields(logrus.Fields{
		"trend_id":    rec.ID,
		"retry_count": rec.RetryCount,
		"reason":      reason,
	}).Error("Research failed permanently")

	m.publish(rec, events.TypeResearchFailed)
	return nil
}

func (m *Manager) payload(rec *model.TrendResearch, executionID string) DispatchPayload {
	var categories []string
	if len(rec.Categories) > 0 {
		_ = json.Unmarshal(rec.Categories, &categories)
	}
	if categories == nil {
		categories = []string{}
	}
	return DispatchPayload{
		ExecutionID: executionID,
		UserID:      rec.UserID,
		TrendID:     rec.ID.String(),
		Title:       rec.Title,
		Categories:  categories,
	}
}

func (m *Manager) publish(rec *model.TrendResearch, eventType string) {
	if m.Events == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"title":          rec.Title,
		"status":         rec.Status,
		"priority_score": rec.PriorityScore,
		"retry_count":    rec.RetryCount,
		"error_message":  rec.ErrorMessage,
	})
	if err != nil {
		logrus.WithError(err).WithField("trend_id", rec.ID).Error("Failed to marshal event payload")
		return
	}
	m.Events.Publish(events.Event{
		Type:        eventType,
		AggregateID: rec.ID.String(),
		UserID:      rec.UserID,
		Payload:     body,
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
