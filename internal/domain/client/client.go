package client

import (
	"github.com/google/uuid"

	"vaultpay/internal/domain/ledger"
)

// Client is a paying customer. TotalSpent is a running total maintained by
// the reconciler with an atomic increment at the storage layer; it is never
// read-modify-written in application code.
type Client struct {
	ID           uuid.UUID
	BusinessName string
	Email        string
	TotalSpent   ledger.Money
}
