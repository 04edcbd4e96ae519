package trust

import "context"

// GetTeamMembersPolicy decides whether the acting user may list a team's
// members.
type GetTeamMembersPolicy struct {
	store      Store
	actingUser UserID
	roles      RoleSet
}

// NewGetTeamMembersPolicy loads the acting user's role snapshot.
func NewGetTeamMembersPolicy(ctx context.Context, store Store, actingUser UserID) (*GetTeamMembersPolicy, error) {
	roles, err := loadRoleSnapshot(ctx, store, actingUser)
	if err != nil {
		return nil, err
	}

	return &GetTeamMembersPolicy{
		store:      store,
		actingUser: actingUser,
		roles:      roles,
	}, nil
}

// Authorize allows Root and Admin for any team, and any holder of a role in
// the team itself.
func (p *GetTeamMembersPolicy) Authorize(team TeamID) (*GetTeamMembersContract, error) {
	if !p.roles.IsRootOrAdmin() && !p.roles.HoldsAnyRoleIn(team) {
		return nil, ErrForbidden
	}

	return &GetTeamMembersContract{
		store: p.store,
		team:  team,
	}, nil
}

// GetTeamMembersContract lists the members of the team fixed at
// authorization time.
type GetTeamMembersContract struct {
	store Store
	team  TeamID
}

// GetMembers loads the authorized team's member list.
func (c *GetTeamMembersContract) GetMembers(ctx context.Context) ([]*User, error) {
	return c.store.GetMembersByTeam(ctx, c.team)
}
