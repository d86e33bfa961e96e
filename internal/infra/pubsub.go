package infra

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
)

// Domain event names.
const (
	EventProductCreated = "product.created"
	EventSaleCreated    = "sale.created"
	EventStockAdded     = "stock.added"
)

// EventPublisher emits domain events after a write has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// Event is the message body on the topic.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// PubSubPublisher publishes events to a Google Cloud Pub/Sub topic.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

func NewPubSubPublisher(ctx context.Context, projectID, topicName string) (*PubSubPublisher, func(), error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	topic := client.Topic(topicName)
	closeFn := func() {
		topic.Stop()
		_ = client.Close()
	}
	return &PubSubPublisher{topic: topic}, closeFn, nil
}

// Publish is fire-and-forget: the write already succeeded, so failures are
// only logged.
func (p *PubSubPublisher) Publish(ctx context.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("pubsub: marshal payload")
		return
	}
	body, err := json.Marshal(Event{Type: event, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("pubsub: marshal event")
		return
	}

	result := p.topic.Publish(context.WithoutCancel(ctx), &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"type": event},
	})
	go func() {
		getCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := result.Get(getCtx); err != nil {
			log.Warn().Err(err).Str("event", event).Msg("pubsub: publish failed")
		}
	}()
}

// NopPublisher drops events; used when no topic is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) {}
