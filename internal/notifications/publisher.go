package notifications

import (
	"context"
)

// Publisher routes events through Redis when it is available, so every API
// instance sees them, and straight to the local hub otherwise.
type Publisher struct {
	notifier *Notifier
	hub      *Hub
}

func NewPublisher(notifier *Notifier, hub *Hub) *Publisher {
	return &Publisher{notifier: notifier, hub: hub}
}

// Publish sends event to every client subscribed to topic.
func (p *Publisher) Publish(ctx context.Context, topic Topic, event Event) error {
	if p == nil {
		return nil
	}
	b, err := event.Encode()
	if err != nil {
		return err
	}
	if p.notifier.Enabled() {
		return p.notifier.Publish(ctx, topic, b)
	}
	if p.hub != nil {
		p.hub.Deliver(topic, b)
	}
	return nil
}
