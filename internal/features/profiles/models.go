// Package profiles stores user roles.
package profiles

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleVIP   Role = "VIP"   // prints for free
	RoleAdmin Role = "ADMIN" // sees aggregate statistics
)

type Profile struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"fullName"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
