package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"vaultpay/internal/config"
	"vaultpay/internal/domain/event"
	stripeprovider "vaultpay/internal/provider/stripe"
	"vaultpay/internal/store/repositories"
)

const maxWebhookBody = 1 << 20 // Stripe events are small; cap the read anyway

// DuplicateGuard is the advisory fast-path dedupe in front of Postgres.
// Seen marks the event id and reports whether it was already marked; Forget
// releases the mark when intake fails after the mark was taken.
type DuplicateGuard interface {
	Seen(ctx context.Context, eventID string) bool
	Forget(ctx context.Context, eventID string)
}

// WebhookHandler receives Stripe webhook deliveries. Its only jobs are the
// signature gate and durable intake; reconciliation happens asynchronously,
// so Stripe gets its 200 as soon as the event row exists.
type WebhookHandler struct {
	cfg      config.StripeCfg
	verifier stripeprovider.Verifier
	deduper  DuplicateGuard
	events   repositories.EventRepository
}

func NewWebhookHandler(cfg config.StripeCfg, verifier stripeprovider.Verifier, deduper DuplicateGuard, events repositories.EventRepository) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, verifier: verifier, deduper: deduper, events: events}
}

func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	// Misconfiguration is a server fault, not a bad request. Answering 500
	// keeps the failed deliveries visible (and retryable) on Stripe's side.
	if h.cfg.SecretKey == "" || h.cfg.WebhookSecret == "" {
		log.Error().Msg("stripe webhook rejected: secret key or webhook secret not configured")
		writeError(w, http.StatusInternalServerError, "configuration_error", "payment provider is not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_error", "could not read request body")
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeError(w, http.StatusBadRequest, "missing_signature", "Stripe-Signature header is required")
		return
	}

	evt, err := h.verifier.ConstructEvent(payload, sig, h.cfg.WebhookSecret)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("stripe signature verification failed")
		writeError(w, http.StatusBadRequest, "invalid_signature", "signature verification failed")
		return
	}

	logger := log.With().Str("stripe_event_id", evt.ID).Str("type", string(evt.Type)).Logger()

	// Fast-path duplicate check. Advisory only; the unique constraint on
	// webhook_events is the real idempotency key. The mark is released on any
	// failure below it, otherwise a transient storage error would leave every
	// retry acknowledged with the event never stored.
	if h.deduper != nil && h.deduper.Seen(r.Context(), evt.ID) {
		logger.Debug().Msg("duplicate delivery absorbed by redis")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	e, err := event.New(event.SourceStripe, string(evt.Type), evt.ID, payload)
	if err != nil {
		h.releaseMark(r.Context(), evt.ID)
		logger.Error().Err(err).Msg("rejecting malformed event")
		writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	inserted, err := h.events.Save(r.Context(), e)
	if err != nil {
		h.releaseMark(r.Context(), evt.ID)
		logger.Error().Err(err).Msg("event intake failed")
		writeError(w, http.StatusInternalServerError, "storage_error", "could not persist event")
		return
	}
	if !inserted {
		logger.Info().Msg("duplicate delivery ignored")
	} else {
		logger.Info().Int64("event_id", e.ID).Msg("event accepted")
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) releaseMark(ctx context.Context, eventID string) {
	if h.deduper != nil {
		h.deduper.Forget(ctx, eventID)
	}
}
