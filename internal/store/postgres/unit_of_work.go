package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaultpay/internal/store/repositories"
)

type unitOfWork struct {
	db *pgxpool.Pool
}

func NewUnitOfWork(db *pgxpool.Pool) repositories.UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Begin(ctx context.Context) (repositories.Transaction, error) {
	tx, err := u.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx}, nil
}

// transaction hands out tx-backed views of the repositories. Assignment
// lookups inside a transaction take row locks so two deliveries touching the
// same assignment serialize instead of racing.
type transaction struct {
	tx pgx.Tx
}

func (t *transaction) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *transaction) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func (t *transaction) Events() repositories.EventRepository {
	return &eventRepository{q: t.tx}
}

func (t *transaction) Assignments() repositories.AssignmentRepository {
	return &assignmentRepository{q: t.tx, forUpdate: true}
}

func (t *transaction) Automations() repositories.AutomationRepository {
	return &automationRepository{q: t.tx}
}

func (t *transaction) Clients() repositories.ClientRepository {
	return &clientRepository{q: t.tx}
}

func (t *transaction) Transactions() repositories.TransactionRepository {
	return &transactionRepository{q: t.tx}
}

func (t *transaction) Commission() repositories.CommissionCalculator {
	return &commissionCalculator{q: t.tx}
}
