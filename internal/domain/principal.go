package domain

import "time"

// PrincipalStatus is the activity flag on a CRM account.
type PrincipalStatus string

const (
	PrincipalStatusActive   PrincipalStatus = "active"
	PrincipalStatusInactive PrincipalStatus = "inactive"
)

// Principal is an authenticated CRM actor as loaded from the users table.
type Principal struct {
	ID           int64
	Email        string
	Role         Role
	Status       PrincipalStatus
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the principal may hold a token.
func (p *Principal) Active() bool {
	return p != nil && p.Status == PrincipalStatusActive
}
