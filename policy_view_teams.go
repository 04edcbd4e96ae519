package trust

import "context"

// ViewTeamsPolicy decides which teams the acting user may list.
type ViewTeamsPolicy struct {
	store      Store
	actingUser UserID
	roles      RoleSet
}

// NewViewTeamsPolicy loads the acting user's role snapshot.
func NewViewTeamsPolicy(ctx context.Context, store Store, actingUser UserID) (*ViewTeamsPolicy, error) {
	roles, err := loadRoleSnapshot(ctx, store, actingUser)
	if err != nil {
		return nil, err
	}

	return &ViewTeamsPolicy{
		store:      store,
		actingUser: actingUser,
		roles:      roles,
	}, nil
}

// Authorize gives Root and Admin an unscoped contract. Everyone else gets a
// contract scoped to the teams where they hold any role; a user with no
// visible teams is forbidden outright.
func (p *ViewTeamsPolicy) Authorize() (*ViewTeamsContract, error) {
	if p.roles.IsRootOrAdmin() {
		return &ViewTeamsContract{
			store:    p.store,
			allTeams: true,
		}, nil
	}

	visible := p.roles.VisibleTeams()
	if len(visible) == 0 {
		return nil, ErrForbidden
	}

	scope := make([]TeamID, 0, len(visible))
	for team := range visible {
		scope = append(scope, team)
	}

	return &ViewTeamsContract{
		store: p.store,
		scope: scope,
	}, nil
}

// ViewTeamsContract lists teams inside the scope fixed at authorization
// time.
type ViewTeamsContract struct {
	store    Store
	allTeams bool
	scope    []TeamID
}

// GetTeams returns every team for an unscoped contract, or exactly the
// authorized teams otherwise.
func (c *ViewTeamsContract) GetTeams(ctx context.Context) ([]*Team, error) {
	if c.allTeams {
		return c.store.GetTeams(ctx)
	}
	return c.store.GetTeamsByIDs(ctx, c.scope)
}
