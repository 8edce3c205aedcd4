package auth

// Role is the platform wide role carried by every credential
type Role string

const (
	// RoleJobSeeker browses jobs and manages their own CVs
	RoleJobSeeker Role = "job-seeker"
	// RoleRecruiter manages companies and job postings
	RoleRecruiter Role = "recruiter"
	// RoleAdmin manages everything, including audit history
	RoleAdmin Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleJobSeeker, RoleRecruiter, RoleAdmin:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleJobSeeker,
		RoleRecruiter,
		RoleAdmin,
	}
}

// ParseRole parses a string into a Role. Unknown values are rejected, never
// defaulted.
func ParseRole(roleStr string) (Role, error) {
	role := Role(roleStr)
	if !role.IsValid() {
		return "", kindOf(ErrInvalidRole, map[string]any{"role": roleStr})
	}
	return role, nil
}

// RoleSet is an immutable set of roles used for authorization checks
type RoleSet struct {
	members map[Role]struct{}
}

// NewRoleSet builds a RoleSet. Invalid roles are ignored so a typo can only
// ever narrow access.
func NewRoleSet(roles ...Role) RoleSet {
	members := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if r.IsValid() {
			members[r] = struct{}{}
		}
	}
	return RoleSet{members: members}
}

// Contains reports whether role is a member of the set
func (s RoleSet) Contains(role Role) bool {
	_, ok := s.members[role]
	return ok
}

// Len returns the number of roles in the set
func (s RoleSet) Len() int {
	return len(s.members)
}

// Roles returns the members in a stable order
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.members))
	for _, r := range GetAllRoles() {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}
