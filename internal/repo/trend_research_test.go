package repo

import (
	"context"
	"testing"
	"time"

	"trendforge/app"
	"trendforge/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.TrendResearch{}, &model.DeviceToken{}))
	app.Database = &app.DatabaseConfig{DB: db}
}

func createProcessing(t *testing.T, userID, title, executionID string, retry int) *model.TrendResearch {
	t.Helper()
	rec := &model.TrendResearch{
		UserID:         userID,
		Title:          title,
		Status:         model.ResearchProcessing,
		N8NExecutionID: &executionID,
		RetryCount:     retry,
	}
	require.NoError(t, CreateTrendResearch(context.Background(), rec))
	return rec
}

func TestClaimProcessingIsExclusive(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	rec := createProcessing(t, "u1", "CAS topic", "exec-1", 0)

	cols := map[string]interface{}{
		"status":           model.ResearchCompleted,
		"research_data":    []byte(`{}`),
		"n8n_execution_id": nil,
		"updated_at":       time.Now(),
	}

	ok, err := ClaimProcessing(ctx, "exec-1", 0, cols)
	require.NoError(t, err)
	assert.True(t, ok)

	// The second identical claim must observe the record already gone.
	ok, err = ClaimProcessing(ctx, "exec-1", 0, cols)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := GetTrendResearch(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResearchCompleted, stored.Status)
}

func TestClaimProcessingChecksRetryCount(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	createProcessing(t, "u1", "Retry fence", "exec-2", 2)

	ok, err := ClaimProcessing(ctx, "exec-2", 0, map[string]interface{}{
		"status": model.ResearchFailed, "error_message": "stale claim",
	})
	require.NoError(t, err)
	assert.False(t, ok, "claim with a stale retry count must not apply")

	ok, err = ClaimProcessing(ctx, "exec-2", 2, map[string]interface{}{
		"status": model.ResearchFailed, "error_message": "current claim",
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTransitionResearchRespectsFromStates(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	rec := &model.TrendResearch{UserID: "u1", Title: "Guarded", Status: model.ResearchPending}
	require.NoError(t, CreateTrendResearch(ctx, rec))

	ok, err := TransitionResearch(ctx, rec.ID,
		[]model.ResearchStatus{model.ResearchPending},
		map[string]interface{}{"status": model.ResearchProcessing, "n8n_execution_id": "exec-3"})
	require.NoError(t, err)
	assert.True(t, ok)

	// pending is gone; the same guard no longer matches.
	ok, err = TransitionResearch(ctx, rec.ID,
		[]model.ResearchStatus{model.ResearchPending},
		map[string]interface{}{"status": model.ResearchProcessing})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindProcessingByExecutionID(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	rec := createProcessing(t, "u1", "Find me", "exec-4", 0)

	found, err := FindProcessingByExecutionID(ctx, "exec-4")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)

	_, err = FindProcessingByExecutionID(ctx, "exec-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Terminal records are invisible to execution-id lookup even when the
	// column still matches.
	require.NoError(t, app.Database.DB.Model(&model.TrendResearch{}).
		Where("id = ?", rec.ID).
		Update("status", model.ResearchCompleted).Error)
	_, err = FindProcessingByExecutionID(ctx, "exec-4")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSetResearchSelected(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	rec := createProcessing(t, "u1", "Pick me", "exec-5", 0)

	ok, err := SetResearchSelected(ctx, rec.ID, true)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := GetTrendResearch(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSelected)
	assert.Equal(t, model.ResearchProcessing, stored.Status)

	ok, err = SetResearchSelected(ctx, uuid.New(), true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListTrendResearch(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	for i, title := range []string{"one", "two", "three"} {
		rec := &model.TrendResearch{
			UserID:      "u1",
			Title:       title,
			Status:      model.ResearchPending,
			RequestedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, CreateTrendResearch(ctx, rec))
	}
	other := &model.TrendResearch{UserID: "u2", Title: "foreign", Status: model.ResearchCompleted}
	require.NoError(t, CreateTrendResearch(ctx, other))

	records, total, err := ListTrendResearch(ctx, Query{UserID: "u1", Limit: 2, Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, "three", records[0].Title)

	records, total, err = ListTrendResearch(ctx, Query{Status: string(model.ResearchCompleted), Limit: 10, Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "foreign", records[0].Title)
}

func TestFindStaleProcessing(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	stale := createProcessing(t, "u1", "stale", "exec-6", 0)
	createProcessing(t, "u1", "fresh", "exec-7", 0)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, app.Database.DB.Model(&model.TrendResearch{}).
		Where("id = ?", stale.ID).
		Update("updated_at", old).Error)

	records, err := FindStaleProcessing(ctx, time.Now().Add(-10*time.Minute), 50)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, stale.ID, records[0].ID)
}
