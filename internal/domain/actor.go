package domain

// Role is the role an authenticated caller acts in.
type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
	RoleAdmin  Role = "ADMIN"
)

// Actor is the caller identity supplied by the identity layer.
type Actor struct {
	ID   string
	Role Role
}
