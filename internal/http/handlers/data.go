package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"vaultpay/internal/domain/event"
	"vaultpay/internal/domain/ledger"
	"vaultpay/internal/domain/notification"
	"vaultpay/internal/store/repositories"
)

// DataHandler serves read-only views of the ledger, the event log and
// notifications for the operator UI.
type DataHandler struct {
	transactions  repositories.TransactionRepository
	events        repositories.EventRepository
	notifications repositories.NotificationRepository
}

func NewDataHandler(transactions repositories.TransactionRepository, events repositories.EventRepository, notifications repositories.NotificationRepository) *DataHandler {
	return &DataHandler{transactions: transactions, events: events, notifications: notifications}
}

type transactionView struct {
	ID                string    `json:"id"`
	ClientID          string    `json:"clientId"`
	AutomationID      string    `json:"automationId"`
	SellerID          *string   `json:"sellerId,omitempty"`
	Amount            int64     `json:"amount"`
	SellerEarnings    int64     `json:"sellerEarnings"`
	VaultShare        int64     `json:"vaultShare"`
	CommissionRateBps int32     `json:"commissionRateBps"`
	Type              string    `json:"type"`
	Status            string    `json:"status"`
	StripeEventID     string    `json:"stripeEventId"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (h *DataHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	txns, err := h.transactions.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", "transaction list failed")
		return
	}

	views := make([]transactionView, 0, len(txns))
	for _, t := range txns {
		views = append(views, toTransactionView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

func toTransactionView(t *ledger.Transaction) transactionView {
	v := transactionView{
		ID:                t.ID.String(),
		ClientID:          t.ClientID.String(),
		AutomationID:      t.AutomationID.String(),
		Amount:            int64(t.Amount),
		SellerEarnings:    int64(t.SellerEarnings),
		VaultShare:        int64(t.VaultShare),
		CommissionRateBps: t.CommissionRateBps,
		Type:              string(t.Type),
		Status:            string(t.Status),
		StripeEventID:     t.StripeEventID,
		CreatedAt:         t.CreatedAt,
	}
	if t.SellerID != nil {
		s := t.SellerID.String()
		v.SellerID = &s
	}
	return v
}

type eventView struct {
	ID               int64      `json:"id"`
	Source           string     `json:"source"`
	Type             string     `json:"type"`
	ExternalID       string     `json:"externalId"`
	ReceivedAt       time.Time  `json:"receivedAt"`
	ProcessedAt      *time.Time `json:"processedAt,omitempty"`
	ProcessingStatus string     `json:"processingStatus"`
	Outcome          string     `json:"outcome,omitempty"`
}

func (h *DataHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	evts, err := h.events.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", "event list failed")
		return
	}

	views := make([]eventView, 0, len(evts))
	for _, e := range evts {
		views = append(views, toEventView(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": views})
}

func toEventView(e *event.Event) eventView {
	return eventView{
		ID:               e.ID,
		Source:           e.Source,
		Type:             e.Type,
		ExternalID:       e.ExternalID,
		ReceivedAt:       e.ReceivedAt,
		ProcessedAt:      e.ProcessedAt,
		ProcessingStatus: string(e.ProcessingStatus),
		Outcome:          e.Outcome,
	}
}

type notificationView struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"userId"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	RelatedID string     `json:"relatedId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

func (h *DataHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "userId query param must be a UUID")
		return
	}

	limit, offset := pagination(r)
	notifs, err := h.notifications.ListForUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", "notification list failed")
		return
	}

	views := make([]notificationView, 0, len(notifs))
	for _, n := range notifs {
		views = append(views, toNotificationView(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": views})
}

func toNotificationView(n *notification.Notification) notificationView {
	return notificationView{
		ID:        n.ID,
		UserID:    n.UserID.String(),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		RelatedID: n.RelatedID,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
