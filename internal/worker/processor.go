package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"coinpay/internal/model"
	"coinpay/internal/repository"
	"coinpay/internal/service"
)

// errBadPayload marks a message that can never be applied. Such messages are
// terminated instead of redelivered.
var errBadPayload = errors.New("malformed credit event")

// CreditWorker consumes queued credit events and applies them to the
// wallet store.
type CreditWorker struct {
	svc service.WalletService
	js  nats.JetStreamContext
}

func NewCreditWorker(svc service.WalletService, js nats.JetStreamContext) *CreditWorker {
	return &CreditWorker{
		svc: svc,
		js:  js,
	}
}

// Run subscribes to the credit topic and blocks until ctx is cancelled.
// Messages are acked only after the credit is committed; a store failure
// naks so the server redelivers, which is safe because Credit dedupes on
// the event ID.
func (w *CreditWorker) Run(ctx context.Context) error {
	// QueueSubscribe: with several API instances running, each credit event
	// is delivered to exactly one member of the group.
	sub, err := w.js.QueueSubscribe(service.TopicCreditsCreated, "credit_workers", func(m *nats.Msg) {
		err := w.handleMessage(ctx, m.Data)
		switch {
		case err == nil:
			_ = m.Ack()
		case errors.Is(err, errBadPayload):
			slog.Error("worker: dropping unprocessable credit event", "error", err)
			_ = m.Term()
		default:
			slog.Error("worker: failed to apply credit, leaving for redelivery", "error", err)
			_ = m.Nak()
		}
	}, nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return fmt.Errorf("worker: failed to subscribe to JetStream: %w", err)
	}

	slog.Info("Credit worker is running")

	// Wait for shutdown signal.
	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscription...")
	// Close subscription gracefully, waiting for current processing to complete.
	return sub.Drain()
}

// handleMessage applies one queued credit. A replayed event comes back as
// ErrAlreadyCredited and is treated as done.
func (w *CreditWorker) handleMessage(ctx context.Context, data []byte) error {
	var event model.CreditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}

	err := w.svc.CreditWallet(ctx, event)
	if errors.Is(err, repository.ErrAlreadyCredited) {
		slog.Info("worker: credit already applied, skipping",
			"event_id", event.EventID,
			"user_id", event.UserID,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("worker: credit %s for %s: %w", event.EventID, event.UserID, err)
	}

	slog.Info("worker: wallet credited",
		"event_id", event.EventID,
		"user_id", event.UserID,
		"amount", event.Amount,
	)
	return nil
}

// Start implements the infrastructure.Server interface.
func (w *CreditWorker) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *CreditWorker) Stop(ctx context.Context) error {
	return nil
}
