package trust

import "context"

// CreateUserPolicy decides whether the acting user may create a user holding
// a requested set of roles.
type CreateUserPolicy struct {
	store      Store
	actingUser UserID
	roles      RoleSet
}

// NewCreateUserPolicy loads the acting user's role snapshot.
func NewCreateUserPolicy(ctx context.Context, store Store, actingUser UserID) (*CreateUserPolicy, error) {
	roles, err := loadRoleSnapshot(ctx, store, actingUser)
	if err != nil {
		return nil, err
	}

	return &CreateUserPolicy{
		store:      store,
		actingUser: actingUser,
		roles:      roles,
	}, nil
}

// Authorize evaluates the requested roles against the acting user's own:
// Root grants anything, Admin grants only unprivileged roles, a TeamManager
// grants only roles scoped to teams they manage. The requested roles become
// the contract's fixed scope.
func (p *CreateUserPolicy) Authorize(requested RoleSet) (*CreateUserContract, error) {
	if !p.mayGrant(requested) {
		return nil, ErrForbidden
	}

	return &CreateUserContract{
		store: p.store,
		roles: requested,
	}, nil
}

func (p *CreateUserPolicy) mayGrant(requested RoleSet) bool {
	if p.roles.IsRoot() {
		return true
	}

	if p.roles.IsAdmin() {
		for _, role := range requested {
			if !role.Kind.Scoped() {
				return false
			}
		}
		return true
	}

	managed := p.roles.ManagedTeams()
	if len(managed) == 0 {
		return false
	}

	for _, role := range requested {
		if !role.Kind.Scoped() {
			return false
		}
		if _, ok := managed[role.TeamID]; !ok {
			return false
		}
	}
	return true
}

// CreateUserContract creates a user holding exactly the roles authorized.
type CreateUserContract struct {
	store Store
	roles RoleSet
}

// CreateUser hashes the password and persists the user together with the
// authorized role set in one transaction.
func (c *CreateUserContract) CreateUser(ctx context.Context, user *User, password string) (*User, error) {
	if password == "" {
		return nil, ErrNoEmptyString
	}

	return c.store.SaveNewUser(ctx, user, password, c.roles)
}
