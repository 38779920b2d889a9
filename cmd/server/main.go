package main

import (
	"fmt"

	"trendforge/app"
	"trendforge/internal/events"
	"trendforge/internal/research"
	"trendforge/internal/research/consumer"
	"trendforge/lib/fcm"
	"trendforge/lib/kafka"
	"trendforge/router"

	"github.com/sirupsen/logrus"
)

const (
	CALLBACK_TOPIC = "research_callbacks"
	EVENTS_TOPIC   = "research_events"
)

func main() {
	app.Setup()
	fmt.Println("*************** SETUP KAFKA ***************")
	kafka.Setup()

	for _, topic := range []string{CALLBACK_TOPIC, EVENTS_TOPIC} {
		if err := kafka.CreateTopic(topic, 3, 1); err != nil {
			fmt.Printf("Failed to create topic %s: %v\n", topic, err)
		} else {
			fmt.Printf("Topic %s created successfully\n", topic)
		}
	}

	if app.FCM.Enabled {
		if err := fcm.Setup(app.FCM.CredentialsPath); err != nil {
			logrus.WithError(err).Warn("FCM setup failed, completion pushes disabled")
			app.FCM.Enabled = false
		}
	}

	// Lifecycle events out, with outbox fallback for failed publishes
	publisher := events.NewPublisher(EVENTS_TOPIC, nil)
	publisher.Start()

	outboxWorker := events.NewOutboxWorker(EVENTS_TOPIC, nil)
	outboxWorker.Start()

	// The lifecycle manager and its dispatch/callback machinery
	dispatcher := research.NewWebhookDispatcher(app.Webhook.URL, app.Webhook.Secret, app.Webhook.Timeout)
	manager := research.Setup(dispatcher, app.Research.MaxRetries)
	manager.Events = publisher
	manager.Notifier = research.PushNotifier{}

	// Worker callbacks arriving over the durable channel
	callbackConsumer := &consumer.CallbackConsumer{Topic: CALLBACK_TOPIC}
	callbackConsumer.Init()
	fmt.Println("Research callback consumer started successfully")

	// Requeue research stuck in processing past the deadline
	sweeper := research.NewSweeper(manager, app.Research.SweepInterval, app.Research.ProcessingDeadline)
	sweeper.Start()

	router.Setup()
}
