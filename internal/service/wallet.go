package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"coinpay/internal/model"
	"coinpay/internal/payment"
	"coinpay/internal/repository"
)

// TopicCreditsCreated carries one message per wallet credit awaiting
// application. Ack of a webhook implies its credit is on this topic.
const TopicCreditsCreated = "credits.created"

const currencyUSD = "usd"

// ErrInvalidRequest marks a purchase request the caller got wrong:
// missing user, missing or non-positive amount.
var ErrInvalidRequest = errors.New("invalid purchase request")

// WalletService defines the business operations for the coin wallet.
// All transports (HTTP handlers, the credit worker) depend on this
// interface, not on the concrete implementation.
type WalletService interface {
	CreatePurchaseIntent(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseIntent, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	CreditWallet(ctx context.Context, event model.CreditEvent) error
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
}

// WalletStore is the slice of the repository the service needs.
type WalletStore interface {
	Credit(ctx context.Context, event model.CreditEvent) error
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
}

type Service struct {
	processor payment.Processor
	store     WalletStore
	bus       repository.MessageBus
}

func New(processor payment.Processor, store WalletStore, bus repository.MessageBus) *Service {
	return &Service{
		processor: processor,
		store:     store,
		bus:       bus,
	}
}

// CreatePurchaseIntent validates the request and opens a payment intent for
// amount*100 cents. userId and amount ride along as intent metadata so the
// webhook can recover them later without a local lookup — the service keeps
// no state between intent creation and webhook delivery.
func (s *Service) CreatePurchaseIntent(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseIntent, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive number of dollars", ErrInvalidRequest)
	}

	intent, err := s.processor.CreateIntent(ctx, model.IntentRequest{
		AmountCents: req.Amount * 100,
		Currency:    currencyUSD,
		Metadata: map[string]string{
			"userId": req.UserID,
			"amount": strconv.FormatInt(req.Amount, 10),
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("payment intent created", "user_id", req.UserID, "amount", req.Amount)
	return intent, nil
}

// HandleWebhook verifies the raw event payload and, for a succeeded payment,
// queues a credit keyed by the processor's event ID. The event is
// acknowledged only after the publish succeeds: a publish failure propagates
// so the processor redelivers, and redelivery is safe because Credit dedupes
// on the event ID. Event types other than payment-succeeded are acknowledged
// with no side effect.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.processor.ParseEvent(payload, signature)
	if err != nil {
		return err
	}

	if event.Type != payment.EventPaymentSucceeded {
		slog.Debug("ignoring webhook event", "event_id", event.ID, "type", event.Type)
		return nil
	}

	credit := model.CreditEvent{
		EventID:   event.ID,
		UserID:    event.UserID,
		Amount:    event.Amount,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(credit)
	if err != nil {
		return fmt.Errorf("marshal credit event %s: %w", credit.EventID, err)
	}

	if err := s.bus.Publish(TopicCreditsCreated, data); err != nil {
		return fmt.Errorf("queue credit %s: %w", credit.EventID, err)
	}

	slog.Info("payment succeeded, credit queued",
		"event_id", credit.EventID,
		"user_id", credit.UserID,
		"amount", credit.Amount,
	)
	return nil
}

// CreditWallet applies a queued credit to the store. Called by the worker.
func (s *Service) CreditWallet(ctx context.Context, event model.CreditEvent) error {
	return s.store.Credit(ctx, event)
}

func (s *Service) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return s.store.GetWallet(ctx, userID)
}
