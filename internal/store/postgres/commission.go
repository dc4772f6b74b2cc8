package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vaultpay/internal/domain/ledger"
	"vaultpay/internal/store/repositories"
)

// commissionCalculator wraps the calculate_commission_split SQL function. The
// rate logic (rank tiers, overrides) lives entirely in the database; this side
// only validates that what comes back actually partitions the amount.
type commissionCalculator struct {
	q Querier
}

func NewCommissionCalculator(q Querier) repositories.CommissionCalculator {
	return &commissionCalculator{q: q}
}

func (c *commissionCalculator) Split(ctx context.Context, sellerID, automationID uuid.UUID, amount ledger.Money) (ledger.CommissionSplit, error) {
	var split ledger.CommissionSplit
	err := c.q.QueryRow(ctx,
		`SELECT commission_rate_bps, seller_earnings, vault_share
		 FROM calculate_commission_split($1, $2, $3)`,
		sellerID, automationID, int64(amount),
	).Scan(&split.RateBps, &split.SellerEarnings, &split.VaultShare)
	if errors.Is(err, pgx.ErrNoRows) {
		// No rule configured for this seller/automation. A silent 0% default
		// here would mean the platform quietly keeps the whole payment, so
		// this is a hard error that parks the event for operator attention.
		return ledger.CommissionSplit{}, repositories.ErrNoCommissionRule
	}
	if err != nil {
		return ledger.CommissionSplit{}, err
	}
	if err := split.Validate(amount); err != nil {
		return ledger.CommissionSplit{}, err
	}
	return split, nil
}
