package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vaultpay/internal/domain/ledger"
	"vaultpay/internal/store/repositories"
)

type transactionRepository struct {
	q Querier
}

func NewTransactionRepository(q Querier) repositories.TransactionRepository {
	return &transactionRepository{q: q}
}

func (r *transactionRepository) Insert(ctx context.Context, t *ledger.Transaction) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO transactions
			(id, client_id, automation_id, seller_id, amount, seller_earnings,
			 vault_share, commission_rate_bps, transaction_type, status,
			 stripe_event_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.ClientID, t.AutomationID, t.SellerID,
		int64(t.Amount), int64(t.SellerEarnings), int64(t.VaultShare),
		t.CommissionRateBps, string(t.Type), string(t.Status),
		t.StripeEventID, t.CreatedAt)
	return err
}

func (r *transactionRepository) ExistsForEvent(ctx context.Context, stripeEventID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE stripe_event_id = $1)`,
		stripeEventID).Scan(&exists)
	return exists, err
}

func (r *transactionRepository) List(ctx context.Context, limit, offset int) ([]*ledger.Transaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, client_id, automation_id, seller_id, amount, seller_earnings,
		       vault_share, commission_rate_bps, transaction_type, status,
		       stripe_event_id, created_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*ledger.Transaction, error) {
	var t ledger.Transaction
	var sellerID *uuid.UUID
	err := row.Scan(&t.ID, &t.ClientID, &t.AutomationID, &sellerID,
		&t.Amount, &t.SellerEarnings, &t.VaultShare, &t.CommissionRateBps,
		&t.Type, &t.Status, &t.StripeEventID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.SellerID = sellerID
	return &t, nil
}
