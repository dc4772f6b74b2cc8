package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vaultpay/internal/domain/client"
	"vaultpay/internal/domain/ledger"
	"vaultpay/internal/store/repositories"
)

type clientRepository struct {
	q Querier
}

func NewClientRepository(q Querier) repositories.ClientRepository {
	return &clientRepository{q: q}
}

func (r *clientRepository) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	var c client.Client
	err := r.q.QueryRow(ctx, `
		SELECT id, business_name, email, total_spent
		FROM clients
		WHERE id = $1`, id).Scan(&c.ID, &c.BusinessName, &c.Email, &c.TotalSpent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AddToTotalSpent is a single atomic increment; concurrent reconciliations on
// the same client cannot lose updates.
func (r *clientRepository) AddToTotalSpent(ctx context.Context, id uuid.UUID, amount ledger.Money) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE clients
		SET total_spent = total_spent + $2, updated_at = now()
		WHERE id = $1`, id, int64(amount))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
