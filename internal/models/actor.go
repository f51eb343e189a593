package models

type Role string

const (
	RoleAgent    Role = "agent"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// Actor is the already-authenticated caller identity. Session issuance
// happens upstream; we only consume identity, role and branches.
type Actor struct {
	ID       string
	Role     Role
	Branches []string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) CanReview() bool {
	return a.Role == RoleAdmin || a.Role == RoleReviewer
}

// AllBranches marks a reviewer as eligible for every branch.
const AllBranches = "*"

// Reviewer comes from the external roster.
type Reviewer struct {
	ID       string   `json:"id"`
	Branches []string `json:"branches"`
}

func (r Reviewer) ServesBranch(branch string) bool {
	for _, b := range r.Branches {
		if b == AllBranches || b == branch {
			return true
		}
	}
	return false
}
