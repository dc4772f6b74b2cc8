package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vaultpay/internal/domain/catalog"
	"vaultpay/internal/store/repositories"
)

type automationRepository struct {
	q Querier
}

func NewAutomationRepository(q Querier) repositories.AutomationRepository {
	return &automationRepository{q: q}
}

const automationColumns = `id, name, setup_price, monthly_price, stripe_product_id, stripe_setup_price_id, stripe_monthly_price_id`

func (r *automationRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Automation, error) {
	row := r.q.QueryRow(ctx, `SELECT `+automationColumns+` FROM automations WHERE id = $1`, id)
	return scanAutomation(row)
}

func (r *automationRepository) FindNeedingStripeSync(ctx context.Context) ([]*catalog.Automation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+automationColumns+`
		FROM automations
		WHERE stripe_product_id IS NULL
		   OR (stripe_setup_price_id IS NULL AND setup_price > 0)
		   OR (stripe_monthly_price_id IS NULL AND monthly_price > 0)
		ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *automationRepository) SaveStripeIDs(ctx context.Context, a *catalog.Automation) error {
	_, err := r.q.Exec(ctx, `
		UPDATE automations
		SET stripe_product_id = NULLIF($2, ''),
		    stripe_setup_price_id = NULLIF($3, ''),
		    stripe_monthly_price_id = NULLIF($4, ''),
		    updated_at = now()
		WHERE id = $1`,
		a.ID, a.StripeProductID, a.StripeSetupPriceID, a.StripeMonthlyPriceID)
	return err
}

func scanAutomation(row pgx.Row) (*catalog.Automation, error) {
	var a catalog.Automation
	var productID, setupPriceID, monthlyPriceID sql.NullString

	err := row.Scan(&a.ID, &a.Name, &a.SetupPrice, &a.MonthlyPrice,
		&productID, &setupPriceID, &monthlyPriceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if productID.Valid {
		a.StripeProductID = productID.String
	}
	if setupPriceID.Valid {
		a.StripeSetupPriceID = setupPriceID.String
	}
	if monthlyPriceID.Valid {
		a.StripeMonthlyPriceID = monthlyPriceID.String
	}
	return &a, nil
}
