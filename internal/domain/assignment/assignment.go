package assignment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClientAutomation links a client to one automation instance and tracks its
// payment/setup lifecycle. At most one link exists per (client, automation)
// pair; the database enforces this with a unique constraint.
type ClientAutomation struct {
	ID                   uuid.UUID
	ClientID             uuid.UUID
	AutomationID         uuid.UUID
	SellerID             *uuid.UUID
	PaymentStatus        PaymentStatus
	SetupStatus          SetupStatus
	StripeSessionID      string
	StripeSubscriptionID string
	PaidAt               *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type SetupStatus string

const (
	SetupPending    SetupStatus = "pending_setup"
	SetupInProgress SetupStatus = "setup_in_progress"
	SetupComplete   SetupStatus = "setup_complete"
	SetupActive     SetupStatus = "active"
)

// MarkSetupPaid records a paid setup fee. The only legal transition is
// pending_setup -> setup_in_progress; anything else means the payload-declared
// payment type disagrees with stored state and must not be trusted.
func (a *ClientAutomation) MarkSetupPaid(sessionID string) error {
	if a.SetupStatus != SetupPending {
		return fmt.Errorf("setup fee for assignment %s in status %s: expected %s", a.ID, a.SetupStatus, SetupPending)
	}
	now := time.Now()
	a.PaymentStatus = PaymentPaid
	a.PaidAt = &now
	a.SetupStatus = SetupInProgress
	a.StripeSessionID = sessionID
	a.UpdatedAt = now
	return nil
}

// ActivateSubscription records the first successful monthly payment and stores
// the subscription identifier so later invoices can be resolved. Activation
// requires setup to have begun; an already-active assignment is a no-op so
// replays and out-of-order deliveries converge instead of failing.
func (a *ClientAutomation) ActivateSubscription(subscriptionID string) error {
	if subscriptionID == "" {
		return fmt.Errorf("subscription id is required")
	}
	switch a.SetupStatus {
	case SetupActive:
		if a.StripeSubscriptionID == "" {
			a.StripeSubscriptionID = subscriptionID
			a.UpdatedAt = time.Now()
		}
		return nil
	case SetupInProgress, SetupComplete:
		now := time.Now()
		a.PaymentStatus = PaymentPaid
		if a.PaidAt == nil {
			a.PaidAt = &now
		}
		a.SetupStatus = SetupActive
		a.StripeSubscriptionID = subscriptionID
		a.UpdatedAt = now
		return nil
	default:
		return fmt.Errorf("subscription for assignment %s in status %s: setup fee not paid", a.ID, a.SetupStatus)
	}
}

// IsActive reports whether the automation is live for the client.
func (a *ClientAutomation) IsActive() bool {
	return a.SetupStatus == SetupActive
}
