package events

import (
	"context"
	"fmt"

	"wt-go/internal/config"
	"wt-go/internal/wt"
)

// NewPublisherFromConfig creates a Publisher based on the events config type.
func NewPublisherFromConfig(cfg config.EventsConfig, logger wt.Logger) (wt.Publisher, error) {
	switch cfg.Type {
	case "", "none":
		return wt.NopPublisher{}, nil
	case "amqp":
		if cfg.AMQPURL == "" || cfg.AMQPQueue == "" {
			return nil, fmt.Errorf("amqp events require amqp_url and amqp_queue to be set")
		}
		return NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger), nil
	default:
		return nil, fmt.Errorf("unknown events type: %s", cfg.Type)
	}
}

// Observer receives the outcome of every publish.
type Observer interface {
	ObserveEvent(eventType string, err error)
}

// Observed reports every publish on p to obs.
func Observed(p wt.Publisher, obs Observer) wt.Publisher {
	return observedPublisher{Publisher: p, obs: obs}
}

type observedPublisher struct {
	wt.Publisher
	obs Observer
}

func (o observedPublisher) Publish(ctx context.Context, ev wt.Event) error {
	err := o.Publisher.Publish(ctx, ev)
	o.obs.ObserveEvent(ev.Type, err)
	return err
}
