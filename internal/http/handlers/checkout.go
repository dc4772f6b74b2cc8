package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vaultpay/internal/domain/catalog"
	stripeprovider "vaultpay/internal/provider/stripe"
	"vaultpay/internal/store/repositories"
)

// CheckoutHandler creates Stripe Checkout Sessions for the two payment kinds.
// The metadata stamped on the session is what the reconciler later dispatches
// on, so both endpoints validate the ids before calling out.
type CheckoutHandler struct {
	stripe      *stripeprovider.Client
	automations repositories.AutomationRepository
	clients     repositories.ClientRepository
	assignments repositories.AssignmentRepository
}

func NewCheckoutHandler(stripe *stripeprovider.Client, automations repositories.AutomationRepository, clients repositories.ClientRepository, assignments repositories.AssignmentRepository) *CheckoutHandler {
	return &CheckoutHandler{stripe: stripe, automations: automations, clients: clients, assignments: assignments}
}

type checkoutRequest struct {
	ClientID      string `json:"clientId"`
	AutomationID  string `json:"automationId"`
	CustomerEmail string `json:"customerEmail"`
}

func (h *CheckoutHandler) CreateSetupSession(w http.ResponseWriter, r *http.Request) {
	h.createSession(w, r, h.stripe.NewSetupSession)
}

func (h *CheckoutHandler) CreateSubscriptionSession(w http.ResponseWriter, r *http.Request) {
	h.createSession(w, r, h.stripe.NewSubscriptionSession)
}

func (h *CheckoutHandler) createSession(w http.ResponseWriter, r *http.Request, create sessionFunc) {
	if !h.stripe.Configured() {
		writeError(w, http.StatusInternalServerError, "configuration_error", "payment provider is not configured")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "clientId must be a UUID")
		return
	}
	automationID, err := uuid.Parse(req.AutomationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "automationId must be a UUID")
		return
	}

	automation, err := h.automations.FindByID(r.Context(), automationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "automation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage_error", "automation lookup failed")
		return
	}
	if _, err := h.clients.FindByID(r.Context(), clientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage_error", "client lookup failed")
		return
	}

	sess, err := create(r.Context(), automation, clientID, req.CustomerEmail)
	if err != nil {
		log.Error().Err(err).
			Str("client_id", clientID.String()).
			Str("automation_id", automationID.String()).
			Msg("checkout session creation failed")
		writeError(w, http.StatusBadGateway, "stripe_error", "could not create checkout session")
		return
	}

	// Record the pending session on the assignment so support can trace an
	// abandoned checkout. Best-effort: reconciliation stores it again anyway.
	asg, err := h.assignments.FindByClientAndAutomation(r.Context(), clientID, automationID)
	switch {
	case err == nil:
		asg.StripeSessionID = sess.ID
		if err := h.assignments.Update(r.Context(), asg); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("could not record session on assignment")
		}
	case !errors.Is(err, repositories.ErrNotFound):
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("assignment lookup failed; session not recorded")
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": sess.ID,
		"url":       sess.URL,
	})
}

type sessionFunc = func(ctx context.Context, a *catalog.Automation, clientID uuid.UUID, customerEmail string) (*stripeprovider.CheckoutSession, error)
