package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type FCMClient struct {
	client *messaging.Client
}

var FCM *FCMClient

// Setup initializes the Firebase Cloud Messaging client.
func Setup(credentialsPath string) error {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing firebase app: %v", err)
	}

	messagingClient, err := app.Messaging(context.Background())
	if err != nil {
		return fmt.Errorf("error getting messaging client: %v", err)
	}

	FCM = &FCMClient{
		client: messagingClient,
	}

	logrus.Info("Firebase Cloud Messaging initialized successfully")
	return nil
}

// SendToTokens pushes the same notification to every given device token.
// Invalid tokens are logged and skipped; a partial failure is not an error.
func (c *FCMClient) SendToTokens(ctx context.Context, tokens []string, title string, body string, data map[string]string) {
	if len(tokens) == 0 {
		return
	}
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	resp, err := c.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		logrus.WithError(err).Error("FCM multicast send failed")
		return
	}
	if resp.FailureCount > 0 {
		logrus.WithFields(logrus.Fields{
			"success": resp.SuccessCount,
			"failure": resp.FailureCount,
		}).Warn("FCM multicast partially failed")
	}
}
