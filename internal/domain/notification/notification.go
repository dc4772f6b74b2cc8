package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vaultpay/internal/domain/ledger"
)

// Notification is a fire-and-forget message row for one recipient. Delivery
// failures are logged and retried a few times, never surfaced to the payment
// provider.
type Notification struct {
	ID        int64
	UserID    uuid.UUID
	Type      Type
	Title     string
	Message   string
	Link      string
	RelatedID string
	CreatedAt time.Time
	ReadAt    *time.Time
}

type Type string

const (
	TypePaymentReceived Type = "payment_received"
)

// PaymentReceived builds the notification sent to the owning seller and every
// admin after a payment reconciles.
func PaymentReceived(userID uuid.UUID, businessName, automationName string, amount ledger.Money, txType ledger.TransactionType, transactionID string) *Notification {
	kind := "setup fee"
	if txType == ledger.TypeMonthly {
		kind = "monthly payment"
	}
	return &Notification{
		UserID:    userID,
		Type:      TypePaymentReceived,
		Title:     "Payment received",
		Message:   fmt.Sprintf("%s paid the %s of %s for %s", businessName, kind, amount.Format(), automationName),
		Link:      "/transactions/" + transactionID,
		RelatedID: transactionID,
		CreatedAt: time.Now(),
	}
}
