package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"coinpay/internal/model"
)

// EventPaymentSucceeded is the only event type that triggers a wallet credit.
const EventPaymentSucceeded = string(stripe.EventTypePaymentIntentSucceeded)

var (
	// ErrInvalidSignature means the webhook payload did not verify against
	// the signing secret. Nothing downstream may run after this error.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Processor is the payment-processor boundary. Transports and the wallet
// service depend on this interface, not on the Stripe SDK.
type Processor interface {
	// CreateIntent opens a payment intent for the given minor-unit amount
	// and metadata, returning the client secret the payer needs.
	CreateIntent(ctx context.Context, req model.IntentRequest) (*model.PurchaseIntent, error)

	// ParseEvent verifies the raw webhook payload against the signature
	// header and normalizes it into a PaymentEvent.
	ParseEvent(payload []byte, signature string) (*model.PaymentEvent, error)
}

// StripeProcessor implements Processor against the Stripe API.
// A single authenticated client is constructed at startup and reused
// across requests.
type StripeProcessor struct {
	api           *client.API
	webhookSecret string
}

func NewStripeProcessor(secretKey, webhookSecret string) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api, webhookSecret: webhookSecret}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, req model.IntentRequest) (*model.PurchaseIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(req.Currency),
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return &model.PurchaseIntent{ClientSecret: intent.ClientSecret}, nil
}

func (p *StripeProcessor) ParseEvent(payload []byte, signature string) (*model.PaymentEvent, error) {
	// Accounts stay pinned to whatever API version they were created on, so
	// a version that differs from the SDK's is expected and must not be
	// treated as a forgery. Anything ConstructEvent still rejects is a
	// genuine signature, timestamp, or payload problem.
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return NormalizeEvent(event)
}

// NormalizeEvent maps a verified Stripe event onto the model type.
// For payment-succeeded events the user and amount come out of the intent's
// metadata; the metadata is the source of truth because this process holds
// no state between intent creation and webhook delivery. An absent or
// unparsable amount entry falls back to the intent's minor-unit amount.
func NormalizeEvent(event stripe.Event) (*model.PaymentEvent, error) {
	ev := &model.PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if ev.Type != EventPaymentSucceeded {
		return ev, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent from event %s: %w", event.ID, err)
	}

	ev.UserID = intent.Metadata["userId"]
	if ev.UserID == "" {
		return nil, fmt.Errorf("stripe: event %s carries no userId metadata", event.ID)
	}

	amount, err := strconv.ParseInt(intent.Metadata["amount"], 10, 64)
	if err != nil {
		amount = intent.Amount / 100
	}
	ev.Amount = amount

	return ev, nil
}
