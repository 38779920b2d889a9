package research

import (
	"context"
	"fmt"

	"trendforge/app"
	"trendforge/internal/model"
	"trendforge/internal/repo"
	"trendforge/lib/fcm"

	"github.com/sirupsen/logrus"
)

// PushNotifier delivers a "research ready" push to the owner's registered
// devices via FCM. A no-op when FCM is disabled or unconfigured.
type PushNotifier struct{}

func (PushNotifier) ResearchReady(ctx context.Context, rec *model.TrendResearch) {
	if app.FCM == nil || !app.FCM.Enabled || fcm.FCM == nil {
		return
	}

	tokens, err := repo.GetDeviceTokensByUserID(ctx, rec.UserID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", rec.UserID).Error("Failed to load device tokens for completion push")
		return
	}
	if len(tokens) == 0 {
		return
	}

	fcm.FCM.SendToTokens(ctx, tokens,
		"Research ready",
		fmt.Sprintf("Your trend research %q is ready.", rec.Title),
		map[string]string{"trend_id": rec.ID.String()},
	)
}
