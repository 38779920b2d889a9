package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"trendforge/app"
	"trendforge/internal/middleware"
	"trendforge/internal/model"
	"trendforge/internal/research"

	"github.com/gofiber/fiber/v2"
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

// okDispatcher accepts every dispatch.
type okDispatcher struct{}

func (okDispatcher) Dispatch(ctx context.Context, p research.DispatchPayload) error {
	return nil
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	setupTestDB(t)
	research.Default = research.NewManager(okDispatcher{}, 3)

	f := fiber.New()
	api := f.Group("/api")
	trends := api.Group("/research/trends")
	trends.Post("/", TriggerTrendResearch)
	trends.Get("/", ListTrendResearch)
	trends.Get("/:id", GetTrendResearch)
	trends.Patch("/:id/selected", SetTrendSelected)
	trends.Post("/:id/cancel", CancelTrendResearch)
	api.Post("/callbacks/research", middleware.APIKeyAuth(), ResearchCallback)
	return f
}

func doJSON(t *testing.T, f *fiber.App, method, target string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func TestTriggerEndpoint(t *testing.T) {
	f := setupTestApp(t)

	status, body := doJSON(t, f, "POST", "/api/research/trends/", map[string]interface{}{
		"user_id":    "u1",
		"title":      "AI agents in retail",
		"categories": []string{"tech"},
	}, nil)
	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, string(model.ResearchProcessing), data["status"])
	assert.NotEmpty(t, data["n8n_execution_id"])

	status, body = doJSON(t, f, "POST", "/api/research/trends/", map[string]interface{}{
		"user_id": "u1",
	}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["status"])
}

func TestGetAndListEndpoints(t *testing.T) {
	f := setupTestApp(t)

	_, created := doJSON(t, f, "POST", "/api/research/trends/", map[string]interface{}{
		"user_id": "u1", "title": "Topic",
	}, nil)
	id := created["data"].(map[string]interface{})["id"].(string)

	status, body := doJSON(t, f, "GET", "/api/research/trends/"+id, nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, id, body["data"].(map[string]interface{})["id"])

	status, _ = doJSON(t, f, "GET", "/api/research/trends/6a3d6a10-0000-0000-0000-000000000000", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = doJSON(t, f, "GET", "/api/research/trends/?user_id=u1", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])
}

func TestSetSelectedEndpoint(t *testing.T) {
	f := setupTestApp(t)

	_, created := doJSON(t, f, "POST", "/api/research/trends/", map[string]interface{}{
		"user_id": "u1", "title": "Topic",
	}, nil)
	id := created["data"].(map[string]interface{})["id"].(string)

	status, _ := doJSON(t, f, "PATCH", fmt.Sprintf("/api/research/trends/%s/selected", id),
		map[string]interface{}{"is_selected": true}, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body := doJSON(t, f, "GET", "/api/research/trends/"+id, nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]interface{})["is_selected"])

	status, _ = doJSON(t, f, "PATCH", "/api/research/trends/6a3d6a10-0000-0000-0000-000000000000/selected",
		map[string]interface{}{"is_selected": true}, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCancelEndpoint(t *testing.T) {
	f := setupTestApp(t)

	_, created := doJSON(t, f, "POST", "/api/research/trends/", map[string]interface{}{
		"user_id": "u1", "title": "Topic",
	}, nil)
	id := created["data"].(map[string]interface{})["id"].(string)

	status, body := doJSON(t, f, "POST", fmt.Sprintf("/api/research/trends/%s/cancel", id), nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(model.ResearchCancelled), body["data"].(map[string]interface{})["status"])

	// Cancelling again conflicts but still returns the record.
	status, body = doJSON(t, f, "POST", fmt.Sprintf("/api/research/trends/%s/cancel", id), nil, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, string(model.ResearchCancelled), body["data"].(map[string]interface{})["status"])
}

func TestCallbackEndpointAuth(t *testing.T) {
	f := setupTestApp(t)
	t.Setenv("API_KEY", "secret-key")

	status, _ := doJSON(t, f, "POST", "/api/callbacks/research", map[string]interface{}{
		"execution_id": "whatever",
	}, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doJSON(t, f, "POST", "/api/callbacks/research", map[string]interface{}{
		"execution_id": "whatever",
	}, map[string]string{"X-API-KEY": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCallbackEndpoint(t *testing.T) {
	f := setupTestApp(t)
	t.Setenv("API_KEY", "secret-key")
	auth := map[string]string{"X-API-KEY": "secret-key"}

	_, created := doJSON(t, f, "POST", "/api/research/trends/", map[string]interface{}{
		"user_id": "u1", "title": "Topic",
	}, nil)
	executionID := created["data"].(map[string]interface{})["n8n_execution_id"].(string)

	status, body := doJSON(t, f, "POST", "/api/callbacks/research", map[string]interface{}{
		"execution_id":   executionID,
		"status":         "completed",
		"research_data":  map[string]interface{}{"summary": "strong demand"},
		"priority_score": 0.9,
	}, auth)
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, string(model.ResearchCompleted), data["status"])
	assert.Equal(t, 0.9, data["priority_score"])

	// The execution id is spent; a duplicate callback conflicts.
	status, _ = doJSON(t, f, "POST", "/api/callbacks/research", map[string]interface{}{
		"execution_id":   executionID,
		"status":         "completed",
		"research_data":  map[string]interface{}{"summary": "strong demand"},
		"priority_score": 0.9,
	}, auth)
	assert.Equal(t, fiber.StatusConflict, status)

	// A payload mixing success and failure fields is rejected outright.
	status, _ = doJSON(t, f, "POST", "/api/callbacks/research", map[string]interface{}{
		"execution_id":  "exec-x",
		"status":        "completed",
		"error_message": "but also broken",
	}, auth)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
