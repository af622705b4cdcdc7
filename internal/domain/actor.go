package domain

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleRenter Role = "renter"
	RoleSystem Role = "system"
)

// Actor is the caller of a settlement operation.
type Actor struct {
	UserID int32 `json:"user_id"`
	Role   Role  `json:"role"`
}

// SystemActor is used for scheduler and event-driven work.
var SystemActor = Actor{Role: RoleSystem}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsPrivileged reports whether the actor may run administrator-only settlement steps.
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// AuditID returns the id recorded in audit rows; nil for system actions.
func (a Actor) AuditID() *int32 {
	if a.Role == RoleSystem || a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}
