package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"trendforge/lib/kafka"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const channelBuffer = 1024

// SendFunc publishes one value to a topic. Injectable so tests and the
// outbox worker can share publishing without a live broker.
type SendFunc func(ctx context.Context, topic string, key string, v any) error

// Publisher pushes lifecycle events to Kafka through a buffered channel. A
// failed publish never loses the event: it is persisted to the outbox table
// and republished later by the OutboxWorker.
type Publisher struct {
	Topic string

	send SendFunc
	in   chan Event

	ctx      context.Context
	cancel   context.CancelFunc
	workers  sync.WaitGroup
	producer *kafka.Producer

	// counters for metrics endpoints and logs
	Published int64
	Fallbacks int64
}

// NewPublisher builds a publisher for topic. Pass nil to publish through a
// dedicated Kafka producer.
func NewPublisher(topic string, send SendFunc) *Publisher {
	return &Publisher{
		Topic: topic,
		send:  send,
		in:    make(chan Event, channelBuffer),
	}
}

func (p *Publisher) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	if p.send == nil {
		p.producer = kafka.NewProducer()
		p.send = p.producer.Send
	}
	p.workers.Add(1)
	go p.pump()
	logrus.WithField("topic", p.Topic).Info("Event publisher started")
}

// Publish enqueues the event. It never blocks the caller: when the channel
// is full the event goes straight to the outbox instead of being dropped.
func (p *Publisher) Publish(evt Event) {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	select {
	case p.in <- evt:
	default:
		logrus.WithField("event_id", evt.ID).Warn("Event channel full, spilling to outbox")
		p.toOutbox(evt)
	}
}

func (p *Publisher) pump() {
	defer p.workers.Done()
	for {
		select {
		case <-p.ctx.Done():
			// Drain whatever is buffered into the outbox before exit.
			for {
				select {
				case evt := <-p.in:
					p.toOutbox(evt)
				default:
					return
				}
			}
		case evt := <-p.in:
			if err := p.send(p.ctx, p.Topic, evt.AggregateID, evt); err != nil {
				logrus.WithError(err).WithField("event_id", evt.ID).Warn("Publish failed, spilling to outbox")
				p.toOutbox(evt)
				continue
			}
			atomic.AddInt64(&p.Published, 1)
		}
	}
}

func (p *Publisher) toOutbox(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		logrus.WithError(err).WithField("event_id", evt.ID).Error("Failed to marshal event for outbox")
		return
	}
	if err := CreateOutboxEvent(evt.ID, evt.AggregateID, evt.Type, data); err != nil {
		logrus.WithError(err).WithField("event_id", evt.ID).Error("Failed to persist event to outbox")
		return
	}
	atomic.AddInt64(&p.Fallbacks, 1)
}

func (p *Publisher) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.workers.Wait()
	if p.producer != nil {
		_ = p.producer.Close()
	}
	logrus.Info("Event publisher stopped")
}
