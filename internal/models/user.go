package models

import "time"

// Role is assigned once, outside of this service, and never changes afterwards.
type Role string

const (
	RoleBuyer      Role = "buyer"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

// User represents an account of the pharmacy store.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Name      string    `json:"name" gorm:"type:varchar(100)" validate:"required,min=2,max=100"`
	Phone     string    `json:"phone,omitempty" gorm:"type:varchar(32)" validate:"omitempty,max=32"`
	Password  string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"` // Never serialized
	Role      Role      `json:"role" gorm:"type:varchar(16);default:'buyer'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// Principal is the authenticated caller as supplied by the auth middleware.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
}
