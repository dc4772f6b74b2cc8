package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vaultpay/internal/domain/assignment"
	"vaultpay/internal/store/repositories"
)

type assignmentRepository struct {
	q Querier
	// forUpdate makes lookups lock the row; set on transactional views so two
	// concurrent reconciliations for the same assignment serialize.
	forUpdate bool
}

func NewAssignmentRepository(q Querier) repositories.AssignmentRepository {
	return &assignmentRepository{q: q}
}

const assignmentColumns = `id, client_id, automation_id, seller_id, payment_status, setup_status,
	stripe_session_id, stripe_subscription_id, paid_at, created_at, updated_at`

func (r *assignmentRepository) lockClause() string {
	if r.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func (r *assignmentRepository) FindByClientAndAutomation(ctx context.Context, clientID, automationID uuid.UUID) (*assignment.ClientAutomation, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM client_automations
		WHERE client_id = $1 AND automation_id = $2`+r.lockClause(),
		clientID, automationID)
	return scanAssignment(row)
}

func (r *assignmentRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*assignment.ClientAutomation, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM client_automations
		WHERE stripe_subscription_id = $1`+r.lockClause(),
		subscriptionID)
	return scanAssignment(row)
}

func (r *assignmentRepository) Update(ctx context.Context, a *assignment.ClientAutomation) error {
	_, err := r.q.Exec(ctx, `
		UPDATE client_automations
		SET payment_status = $2, setup_status = $3, stripe_session_id = NULLIF($4, ''),
		    stripe_subscription_id = NULLIF($5, ''), paid_at = $6, updated_at = $7
		WHERE id = $1`,
		a.ID, string(a.PaymentStatus), string(a.SetupStatus),
		a.StripeSessionID, a.StripeSubscriptionID, a.PaidAt, a.UpdatedAt)
	return err
}

func scanAssignment(row pgx.Row) (*assignment.ClientAutomation, error) {
	var a assignment.ClientAutomation
	var sellerID *uuid.UUID
	var sessionID, subscriptionID sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(&a.ID, &a.ClientID, &a.AutomationID, &sellerID,
		&a.PaymentStatus, &a.SetupStatus, &sessionID, &subscriptionID,
		&paidAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.SellerID = sellerID
	if sessionID.Valid {
		a.StripeSessionID = sessionID.String
	}
	if subscriptionID.Valid {
		a.StripeSubscriptionID = subscriptionID.String
	}
	if paidAt.Valid {
		a.PaidAt = &paidAt.Time
	}
	return &a, nil
}
