package auth

// UserRole is the platform role carried by the token
type UserRole string

const (
	RoleDonor     UserRole = "donor"
	RoleVolunteer UserRole = "volunteer"
	RoleAdmin     UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleDonor, RoleVolunteer, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleDonor:     0,
		RoleVolunteer: 1,
		RoleAdmin:     2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleDonor,
		RoleVolunteer,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// DisplayRole falls back to donor for empty or unknown roles
func DisplayRole(roleStr string) UserRole {
	if role, ok := ParseRole(roleStr); ok {
		return role
	}
	return RoleDonor
}

// NavLink is an entry of the dashboard side menu
type NavLink struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// memberLinks are the dashboard pages every signed in user can open
var memberLinks = []NavLink{
	{Name: "Profile", Path: "/dashboard/profile"},
	{Name: "Create Donation Request", Path: "/dashboard/create-request"},
	{Name: "My Donation Requests", Path: "/dashboard/my-requests"},
}

// dashboardLinks only lists pages the portal serves. Staff roles share the
// member menu until their own pages exist.
var dashboardLinks = map[UserRole][]NavLink{
	RoleDonor:     memberLinks,
	RoleVolunteer: memberLinks,
	RoleAdmin:     memberLinks,
}

// DashboardLinks returns the side menu for a role, donor menu for unknown roles
func DashboardLinks(roleStr string) []NavLink {
	links := dashboardLinks[DisplayRole(roleStr)]
	out := make([]NavLink, len(links))
	copy(out, links)
	return out
}
