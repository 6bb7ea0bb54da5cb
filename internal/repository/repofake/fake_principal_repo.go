package repofake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/crm-gateway/internal/domain"
	"github.com/spec-kit/crm-gateway/internal/repository"
)

// FakePrincipalRepo is an in-memory PrincipalRepository for tests.
type FakePrincipalRepo struct {
	mu         sync.RWMutex
	principals map[int64]domain.Principal
	// Err, when set, is returned by every lookup.
	Err error
	// Delay, when set, stalls every lookup until it elapses or ctx ends.
	Delay time.Duration
}

var _ repository.PrincipalRepository = (*FakePrincipalRepo)(nil)

func NewFakePrincipalRepo(principals ...domain.Principal) *FakePrincipalRepo {
	r := &FakePrincipalRepo{principals: make(map[int64]domain.Principal)}
	for _, p := range principals {
		r.principals[p.ID] = p
	}
	return r
}

// Put inserts or replaces a principal.
func (r *FakePrincipalRepo) Put(p domain.Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principals[p.ID] = p
}

func (r *FakePrincipalRepo) GetByID(ctx context.Context, id int64) (*domain.Principal, error) {
	if err := r.lookupErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.principals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *FakePrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	if err := r.lookupErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.principals {
		if strings.EqualFold(p.Email, email) {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *FakePrincipalRepo) lookupErr(ctx context.Context) error {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Err
}
