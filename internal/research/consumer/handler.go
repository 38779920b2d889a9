package consumer

import (
	"context"
	"errors"
	"fmt"

	"trendforge/internal/research"
	"trendforge/lib/kafka"

	"github.com/sirupsen/logrus"
)

// CallbackConsumer ingests worker callbacks delivered over the Kafka topic
// instead of the HTTP endpoint. Delivery is at-least-once; resolution is
// idempotent, so duplicates resolve to ErrUnknownExecution and are committed
// rather than redelivered.
type CallbackConsumer struct {
	Group       string
	Topic       string
	Concurrency int
}

func (c *CallbackConsumer) Init() {
	if c.Group == "" {
		c.Group = "research-callback-group"
	}
	if c.Topic == "" {
		c.Topic = "research_callbacks"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}

	go func() {
		worker := kafka.NewWorker[research.CallbackPayload](
			c.Group,
			[]string{c.Topic},
			c.Concurrency,
			c.handle,
		)
		defer worker.Close()

		_ = worker.Run(context.Background())
	}()
}

func (c *CallbackConsumer) handle(ctx context.Context, msg kafka.Message[research.CallbackPayload]) error {
	_, err := research.Default.HandleCallback(ctx, msg.Value)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, research.ErrUnknownExecution), errors.Is(err, research.ErrInvalidCallback):
		logrus.WithError(err).WithField("execution_id", msg.Value.ExecutionID).Warn("Discarding research callback")
		return fmt.Errorf("%w: %v", kafka.ErrPermanent, err)
	default:
		return err
	}
}
