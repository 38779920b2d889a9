package repo

import (
	"context"
	"time"

	"trendforge/app"
	"trendforge/internal/model"

	"github.com/google/uuid"
)

// CreateTrendResearch inserts a fresh request record. The ID is assigned here
// so the caller holds it before the row exists.
func CreateTrendResearch(ctx context.Context, rec *model.TrendResearch) error {
	now := time.Now()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = &now
	rec.UpdatedAt = &now
	if rec.RequestedAt.IsZero() {
		rec.RequestedAt = now
	}
	if rec.Status == "" {
		rec.Status = model.ResearchPending
	}
	return app.Database.DB.WithContext(ctx).Create(rec).Error
}

func GetTrendResearch(ctx context.Context, id uuid.UUID) (*model.TrendResearch, error) {
	var rec model.TrendResearch
	err := app.Database.DB.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindProcessingByExecutionID returns the one in-flight record the execution
// id belongs to. Resolved or unknown ids match nothing.
func FindProcessingByExecutionID(ctx context.Context, executionID string) (*model.TrendResearch, error) {
	var rec model.TrendResearch
	err := app.Database.DB.WithContext(ctx).
		First(&rec, "n8n_execution_id = ? AND status = ?", executionID, model.ResearchProcessing).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClaimProcessing applies cols to the record currently processing under
// executionID with the expected retry count. The WHERE clause is the
// per-record serialization: of two racing callers exactly one sees a row
// affected, the other observes the record already transitioned.
func ClaimProcessing(ctx context.Context, executionID string, expectRetry int, cols map[string]interface{}) (bool, error) {
	res := app.Database.DB.WithContext(ctx).
		Model(&model.TrendResearch{}).
		Where("n8n_execution_id = ? AND status = ? AND retry_count = ?",
			executionID, model.ResearchProcessing, expectRetry).
		Updates(cols)
	return res.RowsAffected > 0, res.Error
}

// TransitionResearch applies cols to the record iff its status is one of
// from. Used for pending->processing at first dispatch and for cancellation.
func TransitionResearch(ctx context.Context, id uuid.UUID, from []model.ResearchStatus, cols map[string]interface{}) (bool, error) {
	res := app.Database.DB.WithContext(ctx).
		Model(&model.TrendResearch{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(cols)
	return res.RowsAffected > 0, res.Error
}

// SetResearchSelected flips the user selection flag. The flag is independent
// of the lifecycle, so no status condition applies.
func SetResearchSelected(ctx context.Context, id uuid.UUID, selected bool) (bool, error) {
	res := app.Database.DB.WithContext(ctx).
		Model(&model.TrendResearch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_selected": selected,
			"updated_at":  time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func ListTrendResearch(ctx context.Context, query Query) ([]model.TrendResearch, int64, error) {
	var (
		records []model.TrendResearch
		total   int64
	)

	db := app.Database.DB.WithContext(ctx).Model(&model.TrendResearch{})
	if query.Id != uuid.Nil {
		db = db.Where("id = ?", query.Id)
	}
	if query.UserID != "" {
		db = db.Where("user_id = ?", query.UserID)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Selected != nil {
		db = db.Where("is_selected = ?", *query.Selected)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("requested_at DESC").
		Limit(query.Limit).
		Offset((query.Page - 1) * query.Limit).
		Find(&records).Error
	return records, total, err
}

// FindStaleProcessing returns records that have sat in processing since
// before cutoff; the sweeper treats them as timed-out dispatch attempts.
func FindStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]model.TrendResearch, error) {
	var records []model.TrendResearch
	err := app.Database.DB.WithContext(ctx).
		Where("status = ? AND updated_at <= ?", model.ResearchProcessing, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
