package domain

import "time"

// Role is the permission tier assigned to a user.
type Role string

const (
	RoleSeller     Role = "seller"
	RoleCommercial Role = "commercial"
	RoleAccountant Role = "accountant"
	RoleAdmin      Role = "admin"
)

// DefaultRole is assigned when registration omits the role.
const DefaultRole = RoleSeller

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSeller, RoleCommercial, RoleAccountant, RoleAdmin:
		return true
	}
	return false
}

// User models an account in the system. PasswordHash never appears in a JSON
// representation; it only travels between the service layer and the
// credential store.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"nom"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"actif"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
