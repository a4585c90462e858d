package entity

// Role is the closed set of approver roles. Role checks compare enum values,
// never raw strings from request input; unknown strings fail IsValid at the
// boundary.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleFinance  Role = "FINANCE"
	RoleDirector Role = "DIRECTOR"
	RoleAdmin    Role = "ADMIN"
)

var validRoles = map[Role]bool{
	RoleEmployee: true,
	RoleManager:  true,
	RoleFinance:  true,
	RoleDirector: true,
	RoleAdmin:    true,
}

// IsValid returns true if the role is a known approver role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor identifies the caller of an engine operation. Supplied by the
// identity collaborator on every call; the engine trusts it and does not
// re-authenticate.
type Actor struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
}
