package user

import "github.com/google/uuid"

// User is a portal account: sellers earn commission on their assignments,
// admins receive a copy of every payment notification.
type User struct {
	ID    uuid.UUID
	Role  Role
	Name  string
	Email string
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)
