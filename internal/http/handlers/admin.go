package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	stripeprovider "vaultpay/internal/provider/stripe"
	"vaultpay/internal/services/reconcile"
	"vaultpay/internal/store/repositories"
)

// AdminHandler exposes the operational endpoints: replaying stored events and
// syncing the automation catalog to Stripe.
type AdminHandler struct {
	replay      *reconcile.ReplayService
	stripe      *stripeprovider.Client
	automations repositories.AutomationRepository
}

func NewAdminHandler(replay *reconcile.ReplayService, stripe *stripeprovider.Client, automations repositories.AutomationRepository) *AdminHandler {
	return &AdminHandler{replay: replay, stripe: stripe, automations: automations}
}

// ReplayEvents requeues events by id or by received-at window. The worker
// picks them up on its next poll.
func (h *AdminHandler) ReplayEvents(w http.ResponseWriter, r *http.Request) {
	var req reconcile.ReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	resp, err := h.replay.ReplayEvents(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "replay_error", err.Error())
		return
	}

	log.Info().Int("requeued", resp.RequeuedCount).Msg("events requeued for reprocessing")
	writeJSON(w, http.StatusOK, resp)
}

// SyncCatalog creates missing Stripe products and prices for every automation
// that still lacks them. Partial failure is reported, not aborted: each
// automation syncs independently.
func (h *AdminHandler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.stripe.Configured() {
		writeError(w, http.StatusInternalServerError, "configuration_error", "payment provider is not configured")
		return
	}

	pending, err := h.automations.FindNeedingStripeSync(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", "automation lookup failed")
		return
	}

	synced, failed := 0, 0
	for _, a := range pending {
		if err := h.stripe.SyncAutomation(r.Context(), a); err != nil {
			log.Error().Err(err).Str("automation_id", a.ID.String()).Msg("catalog sync failed")
			failed++
			continue
		}
		if err := h.automations.SaveStripeIDs(r.Context(), a); err != nil {
			log.Error().Err(err).Str("automation_id", a.ID.String()).Msg("saving stripe ids failed")
			failed++
			continue
		}
		synced++
	}

	writeJSON(w, http.StatusOK, map[string]int{"synced": synced, "failed": failed})
}
