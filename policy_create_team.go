package trust

import "context"

// CreateTeamPolicy decides whether the acting user may create teams.
type CreateTeamPolicy struct {
	store      Store
	actingUser UserID
	roles      RoleSet
}

// NewCreateTeamPolicy loads the acting user's role snapshot.
func NewCreateTeamPolicy(ctx context.Context, store Store, actingUser UserID) (*CreateTeamPolicy, error) {
	roles, err := loadRoleSnapshot(ctx, store, actingUser)
	if err != nil {
		return nil, err
	}

	return &CreateTeamPolicy{
		store:      store,
		actingUser: actingUser,
		roles:      roles,
	}, nil
}

// Authorize allows only Root and Admin.
func (p *CreateTeamPolicy) Authorize() (*CreateTeamContract, error) {
	if !p.roles.IsRootOrAdmin() {
		return nil, ErrForbidden
	}

	return &CreateTeamContract{store: p.store}, nil
}

// CreateTeamContract creates teams on behalf of an authorized user.
type CreateTeamContract struct {
	store Store
}

// CreateTeam persists a new team with the given name.
func (c *CreateTeamContract) CreateTeam(ctx context.Context, name string) (*Team, error) {
	if name == "" {
		return nil, ErrNoEmptyString
	}

	return c.store.SaveTeam(ctx, &Team{Name: name})
}
