package trust

import "context"

// AddTeamMemberPolicy decides whether the acting user may add a member to a
// specific team.
type AddTeamMemberPolicy struct {
	store      Store
	actingUser UserID
	roles      RoleSet
}

// NewAddTeamMemberPolicy loads the acting user's role snapshot.
func NewAddTeamMemberPolicy(ctx context.Context, store Store, actingUser UserID) (*AddTeamMemberPolicy, error) {
	roles, err := loadRoleSnapshot(ctx, store, actingUser)
	if err != nil {
		return nil, err
	}

	return &AddTeamMemberPolicy{
		store:      store,
		actingUser: actingUser,
		roles:      roles,
	}, nil
}

// Authorize allows Root and Admin for any team, and a TeamManager for the
// team they manage. Unless the acting user is Root, a target who holds Root
// or Admin cannot be added: privileged users join teams only by a Root
// decision.
func (p *AddTeamMemberPolicy) Authorize(ctx context.Context, team TeamID, target UserID) (*AddTeamMemberContract, error) {
	allowed := p.roles.IsRootOrAdmin() || p.roles.ManagesTeam(team)
	if !allowed {
		return nil, ErrForbidden
	}

	if !p.roles.IsRoot() {
		targetRoles, err := loadRoleSnapshot(ctx, p.store, target)
		if err != nil {
			return nil, err
		}
		if targetRoles.IsRootOrAdmin() {
			return nil, ErrForbidden
		}
	}

	return &AddTeamMemberContract{
		store:  p.store,
		team:   team,
		target: target,
	}, nil
}

// AddTeamMemberContract adds the already authorized user to the already
// authorized team.
type AddTeamMemberContract struct {
	store  Store
	team   TeamID
	target UserID
}

// AddMember performs the membership write fixed at authorization time.
func (c *AddTeamMemberContract) AddMember(ctx context.Context) error {
	return c.store.AddMemberToTeam(ctx, c.team, c.target)
}
