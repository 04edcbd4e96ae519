package trust

import "fmt"

// RoleKind is the discriminant of the Role union.
type RoleKind string

const (
	// RoleRoot can perform any operation on any resource.
	RoleRoot RoleKind = "root"
	// RoleAdmin can manage teams and non-privileged users system-wide.
	RoleAdmin RoleKind = "admin"
	// RoleTeamManager manages a single team.
	RoleTeamManager RoleKind = "team_manager"
	// RoleMember belongs to a single team.
	RoleMember RoleKind = "member"
)

// IsValid checks if the kind is one of the predefined role kinds.
func (k RoleKind) IsValid() bool {
	switch k {
	case RoleRoot, RoleAdmin, RoleTeamManager, RoleMember:
		return true
	default:
		return false
	}
}

// Scoped reports whether the kind carries a team scope.
func (k RoleKind) Scoped() bool {
	return k == RoleTeamManager || k == RoleMember
}

// Role is one assignment in a user's role set. TeamID is set only for the
// team-scoped kinds.
type Role struct {
	Kind   RoleKind
	TeamID TeamID
}

func RootRole() Role  { return Role{Kind: RoleRoot} }
func AdminRole() Role { return Role{Kind: RoleAdmin} }

func TeamManagerRole(team TeamID) Role {
	return Role{Kind: RoleTeamManager, TeamID: team}
}

func MemberRole(team TeamID) Role {
	return Role{Kind: RoleMember, TeamID: team}
}

// ParseRole rebuilds a Role from its stored representation.
func ParseRole(kind string, teamID *TeamID) (Role, error) {
	k := RoleKind(kind)
	if !k.IsValid() {
		return Role{}, fmt.Errorf("unknown role kind %q", kind)
	}

	if k.Scoped() {
		if teamID == nil || teamID.IsNil() {
			return Role{}, fmt.Errorf("role kind %q requires a team", kind)
		}
		return Role{Kind: k, TeamID: *teamID}, nil
	}

	return Role{Kind: k}, nil
}

// RoleSet is the set of roles a user holds. It is read from storage per
// authorization decision and never cached across requests.
type RoleSet []Role

func (rs RoleSet) HasKind(kind RoleKind) bool {
	for _, r := range rs {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

func (rs RoleSet) IsRoot() bool {
	return rs.HasKind(RoleRoot)
}

func (rs RoleSet) IsAdmin() bool {
	return rs.HasKind(RoleAdmin)
}

func (rs RoleSet) IsRootOrAdmin() bool {
	return rs.IsRoot() || rs.IsAdmin()
}

// ManagesTeam reports whether the set holds TeamManager for the given team.
func (rs RoleSet) ManagesTeam(team TeamID) bool {
	for _, r := range rs {
		if r.Kind == RoleTeamManager && r.TeamID == team {
			return true
		}
	}
	return false
}

// ManagedTeams returns the teams the set holds TeamManager for.
func (rs RoleSet) ManagedTeams() map[TeamID]struct{} {
	teams := map[TeamID]struct{}{}
	for _, r := range rs {
		if r.Kind == RoleTeamManager {
			teams[r.TeamID] = struct{}{}
		}
	}
	return teams
}

// MemberTeams returns the teams the set holds Member for.
func (rs RoleSet) MemberTeams() map[TeamID]struct{} {
	teams := map[TeamID]struct{}{}
	for _, r := range rs {
		if r.Kind == RoleMember {
			teams[r.TeamID] = struct{}{}
		}
	}
	return teams
}

// VisibleTeams returns the teams in which the set holds any scoped role.
func (rs RoleSet) VisibleTeams() map[TeamID]struct{} {
	teams := map[TeamID]struct{}{}
	for _, r := range rs {
		if r.Kind.Scoped() {
			teams[r.TeamID] = struct{}{}
		}
	}
	return teams
}

// HoldsAnyRoleIn reports whether the set holds a scoped role for the team.
func (rs RoleSet) HoldsAnyRoleIn(team TeamID) bool {
	for _, r := range rs {
		if r.Kind.Scoped() && r.TeamID == team {
			return true
		}
	}
	return false
}
