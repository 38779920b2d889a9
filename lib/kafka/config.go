package kafka

import (
	"context"
	"strings"
	"time"

	"trendforge/app"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Brokers []string
	GroupID string
}

var KafkaConfig *Config

func Setup() {
	KafkaConfig = &Config{
		Brokers: strings.Split(app.Config("KAFKA_BROKERS"), ","),
		GroupID: app.Config("KAFKA_GROUP_ID"),
	}

	// Probe the first broker so a missing Kafka shows up at boot instead of
	// on the first publish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := kafka.DialContext(ctx, "tcp", KafkaConfig.Brokers[0])
	if err != nil {
		logrus.WithError(err).Warn("Kafka unreachable, events will fall back to the outbox")
		return
	}
	conn.Close()
	logrus.WithField("broker", KafkaConfig.Brokers[0]).Info("Kafka connection established")
}
