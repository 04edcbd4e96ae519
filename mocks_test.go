package trust_test

import (
	"context"
	"database/sql"
	"time"

	trust "github.com/goliatone/go-trust"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// testConfig implements trust.Config
type testConfig struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   []string
}

func newTestConfig() testConfig {
	return testConfig{
		key:        make([]byte, trust.EncryptionKeySize),
		accessTTL:  5 * time.Minute,
		refreshTTL: 4 * time.Hour,
		issuer:     "test-issuer",
		audience:   []string{"test:audience"},
	}
}

func (c testConfig) GetEncryptionKey() []byte          { return c.key }
func (c testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
func (c testConfig) GetIssuer() string                 { return c.issuer }
func (c testConfig) GetAudience() []string             { return c.audience }

// MockStore implements trust.Store
type MockStore struct {
	mock.Mock
}

// RunInTx runs the callback directly; transactional behavior is covered by
// the sqlite backed store tests.
func (m *MockStore) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockStore) GetActiveSessionTx(ctx context.Context, tx bun.IDB, id trust.SessionID) (*trust.ActiveSession, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trust.ActiveSession), args.Error(1)
}

func (m *MockStore) SaveNewSessionTx(ctx context.Context, tx bun.IDB, session trust.NewlyCreatedSession) error {
	args := m.Called(ctx, tx, session)
	return args.Error(0)
}

func (m *MockStore) SaveRefreshedSessionTx(ctx context.Context, tx bun.IDB, session trust.RefreshedSession) error {
	args := m.Called(ctx, tx, session)
	return args.Error(0)
}

func (m *MockStore) SaveEndedSessionTx(ctx context.Context, tx bun.IDB, session trust.EndedSession) error {
	args := m.Called(ctx, tx, session)
	return args.Error(0)
}

func (m *MockStore) GetUserByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*trust.User, error) {
	args := m.Called(ctx, tx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trust.User), args.Error(1)
}

func (m *MockStore) UpdateUserPasswordTx(ctx context.Context, tx bun.IDB, id trust.UserID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockStore) GetUserByID(ctx context.Context, id trust.UserID) (*trust.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trust.User), args.Error(1)
}

func (m *MockStore) GetUserRolesTx(ctx context.Context, tx bun.IDB, id trust.UserID) (trust.RoleSet, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(trust.RoleSet), args.Error(1)
}

func (m *MockStore) SaveTeam(ctx context.Context, team *trust.Team) (*trust.Team, error) {
	args := m.Called(ctx, team)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trust.Team), args.Error(1)
}

func (m *MockStore) AddMemberToTeam(ctx context.Context, teamID trust.TeamID, userID trust.UserID) error {
	args := m.Called(ctx, teamID, userID)
	return args.Error(0)
}

func (m *MockStore) SaveNewUser(ctx context.Context, user *trust.User, password string, roles trust.RoleSet) (*trust.User, error) {
	args := m.Called(ctx, user, password, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trust.User), args.Error(1)
}

func (m *MockStore) GetTeams(ctx context.Context) ([]*trust.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trust.Team), args.Error(1)
}

func (m *MockStore) GetTeamsByIDs(ctx context.Context, ids []trust.TeamID) ([]*trust.Team, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trust.Team), args.Error(1)
}

func (m *MockStore) GetMembersByTeam(ctx context.Context, teamID trust.TeamID) ([]*trust.User, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trust.User), args.Error(1)
}
