package auth

import "time"

type Role string

const (
	RoleUser         Role = "user"
	RoleAdmin        Role = "admin"
	RolePrimaryAdmin Role = "primary_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RolePrimaryAdmin:
		return true
	}
	return false
}

// Privileged reports whether the role may act on other accounts.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RolePrimaryAdmin
}

type Account struct {
	ID           string
	Username     string
	UsernameKey  string
	PasswordHash string
	Role         Role
	IsDisabled   bool
	CreatedAt    time.Time
}

// Principal is the authenticated caller of a request.
type Principal struct {
	AccountID string
	Role      Role
}

func (p Principal) Privileged() bool { return p.Role.Privileged() }

// CanActFor reports whether p may read or write data owned by accountID.
func (p Principal) CanActFor(accountID string) bool {
	return p.Privileged() || p.AccountID == accountID
}
