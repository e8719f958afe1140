package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"coinpay/internal/model"
	"coinpay/internal/payment"
)

type mockProcessor struct {
	intentReq  *model.IntentRequest
	intent     *model.PurchaseIntent
	intentErr  error
	parseEvent *model.PaymentEvent
	parseErr   error
}

func (m *mockProcessor) CreateIntent(ctx context.Context, req model.IntentRequest) (*model.PurchaseIntent, error) {
	m.intentReq = &req
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	return m.intent, nil
}

func (m *mockProcessor) ParseEvent(payload []byte, signature string) (*model.PaymentEvent, error) {
	return m.parseEvent, m.parseErr
}

type mockStore struct {
	credited  []model.CreditEvent
	creditErr error
	wallet    *model.Wallet
}

func (m *mockStore) Credit(ctx context.Context, event model.CreditEvent) error {
	if m.creditErr != nil {
		return m.creditErr
	}
	m.credited = append(m.credited, event)
	return nil
}

func (m *mockStore) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return m.wallet, nil
}

type mockBus struct {
	topic      string
	data       []byte
	publishErr error
}

func (m *mockBus) Publish(topic string, data []byte) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.topic = topic
	m.data = data
	return nil
}

func TestCreatePurchaseIntent_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		req  model.PurchaseRequest
	}{
		{"missing userId", model.PurchaseRequest{Amount: 10}},
		{"missing amount", model.PurchaseRequest{UserID: "u1"}},
		{"negative amount", model.PurchaseRequest{UserID: "u1", Amount: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &mockProcessor{}
			svc := New(proc, &mockStore{}, &mockBus{})

			_, err := svc.CreatePurchaseIntent(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if proc.intentReq != nil {
				t.Error("processor must not be called for an invalid request")
			}
		})
	}
}

func TestCreatePurchaseIntent_ConvertsToCents(t *testing.T) {
	proc := &mockProcessor{intent: &model.PurchaseIntent{ClientSecret: "pi_secret_123"}}
	svc := New(proc, &mockStore{}, &mockBus{})

	res, err := svc.CreatePurchaseIntent(context.Background(), model.PurchaseRequest{Amount: 10, UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.ClientSecret != "pi_secret_123" {
		t.Errorf("expected client secret to pass through, got %s", res.ClientSecret)
	}
	if proc.intentReq.AmountCents != 1000 {
		t.Errorf("expected 1000 cents, got %d", proc.intentReq.AmountCents)
	}
	if proc.intentReq.Currency != "usd" {
		t.Errorf("expected usd, got %s", proc.intentReq.Currency)
	}
	if proc.intentReq.Metadata["userId"] != "u1" || proc.intentReq.Metadata["amount"] != "10" {
		t.Errorf("unexpected metadata: %v", proc.intentReq.Metadata)
	}
}

func TestCreatePurchaseIntent_ProcessorError(t *testing.T) {
	procErr := errors.New("stripe is down")
	svc := New(&mockProcessor{intentErr: procErr}, &mockStore{}, &mockBus{})

	_, err := svc.CreatePurchaseIntent(context.Background(), model.PurchaseRequest{Amount: 10, UserID: "u1"})
	if !errors.Is(err, procErr) {
		t.Fatalf("expected processor error to propagate, got %v", err)
	}
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	bus := &mockBus{}
	svc := New(&mockProcessor{parseErr: payment.ErrInvalidSignature}, &mockStore{}, bus)

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "t=1,v1=bad")
	if !errors.Is(err, payment.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if bus.data != nil {
		t.Error("no credit may be queued for an unverified event")
	}
}

func TestHandleWebhook_QueuesCredit(t *testing.T) {
	bus := &mockBus{}
	proc := &mockProcessor{parseEvent: &model.PaymentEvent{
		ID:     "evt_1",
		Type:   payment.EventPaymentSucceeded,
		UserID: "u1",
		Amount: 10,
	}}
	svc := New(proc, &mockStore{}, bus)

	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bus.topic != TopicCreditsCreated {
		t.Errorf("expected topic %s, got %s", TopicCreditsCreated, bus.topic)
	}
	var credit model.CreditEvent
	if err := json.Unmarshal(bus.data, &credit); err != nil {
		t.Fatalf("unmarshal queued credit: %v", err)
	}
	if credit.EventID != "evt_1" || credit.UserID != "u1" || credit.Amount != 10 {
		t.Errorf("unexpected credit event: %+v", credit)
	}
	if credit.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestHandleWebhook_PublishFailurePropagates(t *testing.T) {
	pubErr := errors.New("nats unavailable")
	proc := &mockProcessor{parseEvent: &model.PaymentEvent{
		ID:     "evt_1",
		Type:   payment.EventPaymentSucceeded,
		UserID: "u1",
		Amount: 10,
	}}
	svc := New(proc, &mockStore{}, &mockBus{publishErr: pubErr})

	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); !errors.Is(err, pubErr) {
		t.Fatalf("expected publish error so the processor redelivers, got %v", err)
	}
}

func TestHandleWebhook_IgnoresOtherEventTypes(t *testing.T) {
	bus := &mockBus{}
	proc := &mockProcessor{parseEvent: &model.PaymentEvent{
		ID:   "evt_2",
		Type: "payment_intent.created",
	}}
	svc := New(proc, &mockStore{}, bus)

	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bus.data != nil {
		t.Error("no credit may be queued for a non-succeeded event")
	}
}

func TestCreditWallet_Delegates(t *testing.T) {
	store := &mockStore{}
	svc := New(&mockProcessor{}, store, &mockBus{})

	event := model.CreditEvent{EventID: "evt_1", UserID: "u1", Amount: 10}
	if err := svc.CreditWallet(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.credited) != 1 || store.credited[0].EventID != "evt_1" {
		t.Errorf("expected store.Credit to receive the event, got %+v", store.credited)
	}
}

func TestGetWallet_Delegates(t *testing.T) {
	store := &mockStore{wallet: &model.Wallet{UserID: "u1", Balance: 42}}
	svc := New(&mockProcessor{}, store, &mockBus{})

	wallet, err := svc.GetWallet(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallet.UserID != "u1" || wallet.Balance != 42 {
		t.Errorf("unexpected wallet: %+v", wallet)
	}
}
