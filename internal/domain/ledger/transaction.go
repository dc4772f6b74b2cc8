package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Money is a monetary amount in the smallest currency unit (cents).
type Money int64

// Format renders the amount for human-readable messages, e.g. "$150.00".
func (m Money) Format() string {
	return fmt.Sprintf("$%d.%02d", m/100, m%100)
}

// TransactionType distinguishes one-off setup fees from monthly billing.
type TransactionType string

const (
	TypeSetup   TransactionType = "setup"
	TypeMonthly TransactionType = "monthly"
)

// Status of a ledger row. The reconciler only ever writes completed rows;
// failed events never reach the ledger.
type Status string

const (
	StatusCompleted Status = "completed"
)

// CommissionSplit is the partition of a payment between the seller and the
// platform. RateBps is the commission rate in basis points (3000 = 30%).
type CommissionSplit struct {
	RateBps        int32
	SellerEarnings Money
	VaultShare     Money
}

// HouseSplit is the split for an assignment with no seller attached: the
// platform keeps the full amount. This is a legitimate business case, distinct
// from a missing commission rule (which is an error).
func HouseSplit(amount Money) CommissionSplit {
	return CommissionSplit{RateBps: 0, SellerEarnings: 0, VaultShare: amount}
}

// Validate checks the split against the amount it partitions.
func (s CommissionSplit) Validate(amount Money) error {
	if s.RateBps < 0 || s.RateBps > 10000 {
		return fmt.Errorf("commission rate out of range: %d bps", s.RateBps)
	}
	if s.SellerEarnings < 0 || s.VaultShare < 0 {
		return fmt.Errorf("negative split component: seller=%d vault=%d", s.SellerEarnings, s.VaultShare)
	}
	if s.SellerEarnings+s.VaultShare != amount {
		return fmt.Errorf("split does not sum to amount: %d + %d != %d", s.SellerEarnings, s.VaultShare, amount)
	}
	return nil
}

// Transaction is an append-only commission ledger row. Rows are created
// exactly once per reconciled provider event and never updated or deleted.
type Transaction struct {
	ID                uuid.UUID
	ClientID          uuid.UUID
	AutomationID      uuid.UUID
	SellerID          *uuid.UUID
	Amount            Money
	SellerEarnings    Money
	VaultShare        Money
	CommissionRateBps int32
	Type              TransactionType
	Status            Status
	StripeEventID     string
	CreatedAt         time.Time
}

// NewTransaction builds a completed ledger row, enforcing the split invariant.
func NewTransaction(clientID, automationID uuid.UUID, sellerID *uuid.UUID, amount Money, split CommissionSplit, txType TransactionType, stripeEventID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %d", amount)
	}
	if txType != TypeSetup && txType != TypeMonthly {
		return nil, fmt.Errorf("invalid transaction type: %s", txType)
	}
	if stripeEventID == "" {
		return nil, fmt.Errorf("stripe event id is required")
	}
	if err := split.Validate(amount); err != nil {
		return nil, err
	}

	return &Transaction{
		ID:                uuid.New(),
		ClientID:          clientID,
		AutomationID:      automationID,
		SellerID:          sellerID,
		Amount:            amount,
		SellerEarnings:    split.SellerEarnings,
		VaultShare:        split.VaultShare,
		CommissionRateBps: split.RateBps,
		Type:              txType,
		Status:            StatusCompleted,
		StripeEventID:     stripeEventID,
		CreatedAt:         time.Now(),
	}, nil
}
