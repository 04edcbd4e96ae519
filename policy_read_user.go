package trust

import "context"

// ReadUserDetailsPolicy decides whether the acting user may read another
// user's details.
type ReadUserDetailsPolicy struct {
	store      Store
	actingUser UserID
	roles      RoleSet
}

// NewReadUserDetailsPolicy loads the acting user's role snapshot.
func NewReadUserDetailsPolicy(ctx context.Context, store Store, actingUser UserID) (*ReadUserDetailsPolicy, error) {
	roles, err := loadRoleSnapshot(ctx, store, actingUser)
	if err != nil {
		return nil, err
	}

	return &ReadUserDetailsPolicy{
		store:      store,
		actingUser: actingUser,
		roles:      roles,
	}, nil
}

// Authorize allows self reads unconditionally, Root and Admin for anyone,
// and a TeamManager for users who hold a role in one of the teams they
// manage. The last rule needs the target's roles, which is the one extra
// lookup a policy is allowed.
func (p *ReadUserDetailsPolicy) Authorize(ctx context.Context, target UserID) (*ReadUserDetailsContract, error) {
	if target == p.actingUser {
		return p.contract(target), nil
	}

	if p.roles.IsRootOrAdmin() {
		return p.contract(target), nil
	}

	managed := p.roles.ManagedTeams()
	if len(managed) == 0 {
		return nil, ErrForbidden
	}

	targetRoles, err := loadRoleSnapshot(ctx, p.store, target)
	if err != nil {
		return nil, err
	}

	for team := range managed {
		if targetRoles.HoldsAnyRoleIn(team) {
			return p.contract(target), nil
		}
	}

	return nil, ErrForbidden
}

func (p *ReadUserDetailsPolicy) contract(target UserID) *ReadUserDetailsContract {
	return &ReadUserDetailsContract{
		store:  p.store,
		target: target,
	}
}

// ReadUserDetailsContract reads the single user fixed at authorization time.
type ReadUserDetailsContract struct {
	store  Store
	target UserID
}

// GetUserDetails loads the authorized user's record.
func (c *ReadUserDetailsContract) GetUserDetails(ctx context.Context) (*User, error) {
	return c.store.GetUserByID(ctx, c.target)
}
