package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-gateway/internal/domain"
)

// ErrNotFound is returned when no principal matches the lookup.
var ErrNotFound = errors.New("principal not found")

// PrincipalRepository looks up CRM accounts.
type PrincipalRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
}

type principalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepository{pool: pool}
}

const selectPrincipal = `
        SELECT id, email, role, status, password_hash, created_at, updated_at
        FROM users`

func (r *principalRepository) GetByID(ctx context.Context, id int64) (*domain.Principal, error) {
	return r.scanOne(ctx, selectPrincipal+` WHERE id=$1`, id)
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.scanOne(ctx, selectPrincipal+` WHERE lower(email)=lower($1)`, email)
}

func (r *principalRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Principal, error) {
	if r.pool == nil {
		return nil, errors.New("postgres pool not configured")
	}

	var (
		p      domain.Principal
		role   string
		status string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.Email,
		&role,
		&status,
		&p.PasswordHash,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Role = domain.ParseRole(role)
	p.Status = domain.PrincipalStatus(status)
	return &p, nil
}
