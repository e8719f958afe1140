package nats

import (
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
)

type mockJetStream struct {
	nats.JetStreamContext
	topic      string
	data       []byte
	publishErr error
}

func (m *mockJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if m.publishErr != nil {
		return nil, m.publishErr
	}
	m.topic = subj
	m.data = data
	return &nats.PubAck{Stream: "CREDITS"}, nil
}

func TestPublish(t *testing.T) {
	js := &mockJetStream{}
	bus := NewBus(js)

	if err := bus.Publish("credits.created", []byte("payload")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if js.topic != "credits.created" || string(js.data) != "payload" {
		t.Errorf("unexpected publish: topic=%s data=%s", js.topic, js.data)
	}
}

func TestPublish_ServerRejection(t *testing.T) {
	pubErr := errors.New("no responders")
	bus := NewBus(&mockJetStream{publishErr: pubErr})

	if err := bus.Publish("credits.created", []byte("payload")); !errors.Is(err, pubErr) {
		t.Fatalf("expected publish error to propagate, got %v", err)
	}
}
