package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ErrPermanent wraps handler failures that must not be redelivered; the
// worker commits the offset for them instead of leaving the message pending.
var ErrPermanent = errors.New("permanent handler failure")

type Message[T any] struct {
	Topic   string
	Value   T
	Headers map[string]string
	Key     string
	Raw     kafka.Message
}

type Handler[T any] func(ctx context.Context, msg Message[T]) error

type Worker[T any] struct {
	r         *kafka.Reader
	sem       chan struct{}
	unmarshal func([]byte, any) error
	handle    Handler[T]
}

func NewWorker[T any](group string, topics []string, concurrency int, handler Handler[T]) *Worker[T] {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     KafkaConfig.Brokers,
		GroupID:     group,
		GroupTopics: topics,
		MinBytes:    1e3,
		MaxBytes:    10e6,
	})
	return &Worker[T]{r: r, sem: make(chan struct{}, concurrency), unmarshal: json.Unmarshal, handle: handler}
}

func (w *Worker[T]) Run(ctx context.Context) error {
	for {
		m, err := w.r.ReadMessage(ctx)
		if err != nil {
			return err
		}
		w.sem <- struct{}{}
		go func(m kafka.Message) {
			defer func() { <-w.sem }()
			var val T
			if err := w.unmarshal(m.Value, &val); err != nil {
				logrus.WithError(err).WithField("topic", m.Topic).Error("unmarshal kafka message failed, skipping")
				_ = w.r.CommitMessages(ctx, m)
				return
			}
			h := map[string]string{}
			for _, x := range m.Headers {
				h[string(x.Key)] = string(x.Value)
			}
			err := w.handle(ctx, Message[T]{
				Topic:   m.Topic,
				Value:   val,
				Key:     string(m.Key),
				Headers: h,
				Raw:     m,
			})
			switch {
			case err == nil:
				_ = w.r.CommitMessages(ctx, m)
			case errors.Is(err, ErrPermanent):
				// Redelivery cannot fix these; drop the message.
				logrus.WithError(err).WithField("key", string(m.Key)).Warn("dropping message after permanent handler failure")
				_ = w.r.CommitMessages(ctx, m)
			default:
				logrus.WithError(err).WithField("key", string(m.Key)).Error("handle kafka message failed, leaving for redelivery")
			}
		}(m)
	}
}

func (w *Worker[T]) Close() error { return w.r.Close() }
