// Package webhook exposes the bank-transfer notification endpoint. The
// payment gateway POSTs one JSON document per transfer; the handler
// hands it to the engine's reconciler and answers with a small envelope.
// Business no-ops (unknown references, redeliveries, outgoing
// transfers) are acknowledged with 200 so the gateway stops retrying;
// only storage failures report 500.
package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phamhp/napstore"
	"github.com/phamhp/napstore/deposit"
)

// maxBodyBytes caps webhook payloads. Transfer notifications are tiny.
const maxBodyBytes = 1 << 20

// Handler serves the gateway webhook and the health probe.
type Handler struct {
	engine  *napstore.Engine
	logger  *slog.Logger
	gateway string
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithGateway labels the gateway the endpoint receives from.
func WithGateway(name string) Option {
	return func(h *Handler) {
		h.gateway = name
	}
}

// NewHandler creates a webhook handler around an engine.
func NewHandler(e *napstore.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine:  e,
		logger:  slog.Default(),
		gateway: "sepay",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the HTTP routes. Non-POST requests to the hook path get
// 405 from the router itself.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/hooks/transfer", h.handleTransfer)
	r.Get("/health", h.handleHealth)

	return r
}

type envelope struct {
	Success bool   `json:"success"`
	Outcome string `json:"outcome,omitempty"`
	OrderID string `json:"order_id,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.respond(w, http.StatusBadRequest, envelope{Error: "unreadable body"})
		return
	}

	var n deposit.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		h.logger.Warn("webhook payload is not valid JSON", "error", err)
		h.respond(w, http.StatusBadRequest, envelope{Error: "invalid payload"})
		return
	}

	h.engine.Plugins().EmitWebhookReceived(r.Context(), h.gateway, body)

	result, err := h.engine.Reconcile(r.Context(), &n)
	if err != nil {
		h.logger.Error("reconcile failed",
			"reference", n.ReferenceCode,
			"error", err,
		)
		h.respond(w, http.StatusInternalServerError, envelope{Error: "internal error"})
		return
	}

	h.logger.Info("webhook processed",
		"reference", n.ReferenceCode,
		"outcome", string(result.Outcome),
		"order_id", result.OrderID,
	)
	h.respond(w, http.StatusOK, envelope{
		Success: true,
		Outcome: string(result.Outcome),
		OrderID: result.OrderID,
		Amount:  result.Received,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // response is already committed
}
