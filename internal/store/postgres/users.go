package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vaultpay/internal/domain/user"
	"vaultpay/internal/store/repositories"
)

type userRepository struct {
	q Querier
}

func NewUserRepository(q Querier) repositories.UserRepository {
	return &userRepository{q: q}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var u user.User
	err := r.q.QueryRow(ctx,
		`SELECT id, role, name, email FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Role, &u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindAdmins(ctx context.Context) ([]*user.User, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, role, name, email FROM users WHERE role = 'admin' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Role, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
