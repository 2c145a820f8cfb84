// Package status announces deficient item state changes on the status topic.
// Delivery is fire and forget: failures are counted and returned, never
// retried.
package status

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"propcheck/internal/deficiency/models"
	"propcheck/internal/platform/metrics"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Publisher struct {
	producer Producer
	topic    string
	metrics  *metrics.Metrics
}

type Option func(*Publisher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(producer Producer, topic string, opts ...Option) (*Publisher, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("status topic is required")
	}
	p := &Publisher{producer: producer, topic: topic}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Message renders the status payload "{propertyId}/{deficientItemId}/state/{state}".
func Message(ref models.Ref, state string) string {
	return fmt.Sprintf("%s/%s/state/%s", ref.PropertyID, ref.ID, state)
}

// PublishStateChange sends one state change keyed by deficient item id, so
// changes to one item stay ordered within a partition.
func (p *Publisher) PublishStateChange(ctx context.Context, ref models.Ref, state string) error {
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ref.ID),
		Value: []byte(Message(ref, state)),
	}
	err := p.producer.ProduceSync(ctx, rec).FirstErr()
	p.metrics.ObserveStatusPublish(err)
	if err != nil {
		return fmt.Errorf("publish state change: %w", err)
	}
	return nil
}
