package handler

import (
	"trendforge/internal/model"
	"trendforge/internal/repo"

	"github.com/gofiber/fiber/v2"
)

func CreateDeviceToken(c *fiber.Ctx) error {
	var input struct {
		UserID      string `json:"user_id"`
		DeviceToken string `json:"device_token"`
		DeviceType  string `json:"device_type"`
		System      string `json:"system"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.JSON(fiber.Map{"status": false, "message": "Review your input"})
	}

	deviceToken := model.DeviceToken{
		UserID:      input.UserID,
		DeviceToken: input.DeviceToken,
		DeviceType:  input.DeviceType,
		System:      input.System,
	}
	if err := repo.CreateDeviceToken(c.UserContext(), &deviceToken); err != nil {
		return c.JSON(fiber.Map{"status": false, "message": "Can not create device token", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": true, "message": "Create device token successfully"})
}
