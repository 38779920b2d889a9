package repo

import (
	"context"
	"time"

	"trendforge/app"
	"trendforge/internal/model"

	"github.com/google/uuid"
)

func CreateDeviceToken(ctx context.Context, entry *model.DeviceToken) error {
	now := time.Now()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = &now
	entry.UpdatedAt = &now
	return app.Database.DB.WithContext(ctx).Create(entry).Error
}

// GetDeviceTokensByUserID returns the active push tokens for a user.
func GetDeviceTokensByUserID(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	var deviceTokens []model.DeviceToken
	err := app.Database.DB.WithContext(ctx).
		Where("user_id = ? AND expired = ?", userID, false).
		Find(&deviceTokens).Error
	if err != nil {
		return nil, err
	}
	for _, dt := range deviceTokens {
		tokens = append(tokens, dt.DeviceToken)
	}
	return tokens, nil
}
