package handler

import (
	"errors"

	"trendforge/internal/repo"
	"trendforge/internal/research"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type TriggerTrendResearchRequest struct {
	UserID     string   `json:"user_id"`
	Title      string   `json:"title"`
	Categories []string `json:"categories"`
}

// TriggerTrendResearch creates a research request and dispatches it to the
// external worker. The response carries the record after dispatch, so the
// caller sees processing (or failed, when the worker is unreachable).
func TriggerTrendResearch(c *fiber.Ctx) error {
	var req TriggerTrendResearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "error": "invalid request body"})
	}

	rec, err := research.Default.Trigger(c.UserContext(), research.TriggerParams{
		UserID:     req.UserID,
		Title:      req.Title,
		Categories: req.Categories,
	})
	if err != nil {
		if errors.Is(err, research.ErrTitleRequired) || errors.Is(err, research.ErrUserRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "error": err.Error()})
		}
		logrus.WithError(err).Error("Failed to trigger trend research")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": false, "error": "failed to create research request"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": true, "data": rec})
}

func ListTrendResearch(c *fiber.Ctx) error {
	var query repo.Query
	query.Parse(c)
	records, total, err := repo.ListTrendResearch(c.UserContext(), query)
	if err != nil {
		return c.JSON(fiber.Map{"status": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": true, "data": records, "total": total})
}

func GetTrendResearch(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "error": "invalid id"})
	}

	rec, err := repo.GetTrendResearch(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": false, "error": "not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": true, "data": rec})
}

// SetTrendSelected flips the user selection flag; legal in every status.
func SetTrendSelected(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "error": "invalid id"})
	}

	var input struct {
		IsSelected bool `json:"is_selected"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "error": "invalid request body"})
	}

	if err := research.Default.SetSelected(c.UserContext(), id, input.IsSelected); err != nil {
		if errors.Is(err, research.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": false, "error": "not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": true})
}

func CancelTrendResearch(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "error": "invalid id"})
	}

	rec, err := research.Default.Cancel(c.UserContext(), id)
	switch {
	case errors.Is(err, research.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": false, "error": "not found"})
	case errors.Is(err, research.ErrAlreadyResolved):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": false, "error": err.Error(), "data": rec})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": true, "data": rec})
}

// ResearchCallback receives the external worker's completion report. The
// route sits behind API-key auth; unknown or already-resolved execution ids
// are rejected without touching any record.
func ResearchCallback(c *fiber.Ctx) error {
	var cb research.CallbackPayload
	if err := c.BodyParser(&cb); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "error": "invalid request body"})
	}

	rec, err := research.Default.HandleCallback(c.UserContext(), cb)
	switch {
	case errors.Is(err, research.ErrInvalidCallback):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "error": err.Error()})
	case errors.Is(err, research.ErrUnknownExecution):
		logrus.WithField("execution_id", cb.ExecutionID).Warn("Callback for unknown execution id")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": false, "error": err.Error()})
	case err != nil:
		logrus.WithError(err).WithField("execution_id", cb.ExecutionID).Error("Failed to handle research callback")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": false, "error": "failed to handle callback"})
	}
	return c.JSON(fiber.Map{"status": true, "data": rec})
}
