package infrastructure

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"coinpay/internal/service"
)

// creditStream retains queued credit events until the worker acknowledges
// them, so a credit accepted before the worker is up (or while the store is
// down) is redelivered instead of lost.
const creditStream = "CREDITS"

func connectNats(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}

	return nc, nil
}

func setupJetStream(nc *nats.Conn) (nats.JetStreamContext, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	_, err = js.StreamInfo(creditStream)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     creditStream,
			Subjects: []string{service.TopicCreditsCreated},
			Storage:  nats.FileStorage,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("ensure credit stream: %w", err)
	}

	return js, nil
}
