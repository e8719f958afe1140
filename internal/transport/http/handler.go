package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"coinpay/internal/model"
	"coinpay/internal/payment"
	"coinpay/internal/repository"
	"coinpay/internal/service"
)

// maxWebhookBytes caps the raw webhook body before signature verification.
const maxWebhookBytes = int64(65536)

type Handler struct {
	svc service.WalletService
}

func NewHandler(svc service.WalletService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/ping", h.Ping)
	mux.HandleFunc("POST /api/purchase-coins", h.PurchaseCoins)
	mux.HandleFunc("POST /webhook", h.Webhook)
	mux.HandleFunc("GET /api/wallet", h.WalletBalance)
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (h *Handler) PurchaseCoins(w http.ResponseWriter, r *http.Request) {
	var req model.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	intent, err := h.svc.CreatePurchaseIntent(r.Context(), req)
	if errors.Is(err, service.ErrInvalidRequest) {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, intent)
}

// Webhook hands the untouched body bytes and signature header to the
// service. No JSON decoding happens before signature verification; the raw
// byte stream is what the signature covers.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "could not read body")
		return
	}

	err = h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, payment.ErrInvalidSignature) {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		// Not acknowledged: the processor will redeliver, and the credit
		// path dedupes on the event ID.
		h.respondError(w, http.StatusInternalServerError, "event not queued")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "missing_params")
		return
	}

	wallet, err := h.svc.GetWallet(r.Context(), userID)
	if errors.Is(err, repository.ErrWalletNotFound) {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, wallet)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
