package nats

import "github.com/nats-io/nats.go"

// Bus publishes credit events to a JetStream stream. Satisfies
// repository.MessageBus.
type Bus struct {
	js nats.JetStreamContext
}

func NewBus(js nats.JetStreamContext) *Bus {
	return &Bus{js: js}
}

// Publish returns only after the server acknowledges the message is in the
// stream: acknowledging a webhook implies its credit is durably queued, and
// it stays queued until the worker acks it.
func (b *Bus) Publish(topic string, data []byte) error {
	_, err := b.js.Publish(topic, data)
	return err
}
