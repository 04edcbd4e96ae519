package trust

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store is the persistence collaborator. Session mutations are transactional;
// callers compose them inside RunInTx so a rotation and its session update
// commit or roll back together.
type Store interface {
	repository.TransactionManager

	GetActiveSessionTx(ctx context.Context, tx bun.IDB, id SessionID) (*ActiveSession, error)
	SaveNewSessionTx(ctx context.Context, tx bun.IDB, session NewlyCreatedSession) error
	SaveRefreshedSessionTx(ctx context.Context, tx bun.IDB, session RefreshedSession) error
	SaveEndedSessionTx(ctx context.Context, tx bun.IDB, session EndedSession) error

	GetUserByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	UpdateUserPasswordTx(ctx context.Context, tx bun.IDB, id UserID, passwordHash string) error
	GetUserByID(ctx context.Context, id UserID) (*User, error)
	GetUserRolesTx(ctx context.Context, tx bun.IDB, id UserID) (RoleSet, error)

	SaveTeam(ctx context.Context, team *Team) (*Team, error)
	AddMemberToTeam(ctx context.Context, teamID TeamID, userID UserID) error
	SaveNewUser(ctx context.Context, user *User, password string, roles RoleSet) (*User, error)
	GetTeams(ctx context.Context) ([]*Team, error)
	GetTeamsByIDs(ctx context.Context, ids []TeamID) ([]*Team, error)
	GetMembersByTeam(ctx context.Context, teamID TeamID) ([]*User, error)
}

type store struct {
	db       *bun.DB
	users    repository.Repository[*User]
	teams    repository.Repository[*Team]
	issuer   string
	audience string
}

var _ Store = (*store)(nil)

// NewStore builds the bun backed store. It copies the issuer and audience
// from config so rehydrated refresh tokens carry them; it never touches the
// encryption key.
func NewStore(db *bun.DB, cfg Config) Store {
	audience := ""
	if aud := cfg.GetAudience(); len(aud) > 0 {
		audience = aud[0]
	}

	return &store{
		db:       db,
		users:    newUsersRepository(db),
		teams:    newTeamsRepository(db),
		issuer:   cfg.GetIssuer(),
		audience: audience,
	}
}

func newUsersRepository(db *bun.DB) repository.Repository[*User] {
	return repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})
}

func newTeamsRepository(db *bun.DB) repository.Repository[*Team] {
	return repository.NewRepository[*Team](db, repository.ModelHandlers[*Team]{
		NewRecord: func() *Team { return &Team{} },
		GetID: func(t *Team) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Team, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})
}

func (s *store) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, f)
	}
}

func (s *store) GetActiveSessionTx(ctx context.Context, tx bun.IDB, id SessionID) (*ActiveSession, error) {
	row := &UserSessionRow{}
	err := tx.NewSelect().
		Model(row).
		Where("?TableAlias.id = ?", uuid.UUID(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotActive
		}
		return nil, err
	}

	if row.Ended() {
		return nil, ErrSessionNotActive
	}

	latest := &RefreshTokenRow{}
	err = tx.NewSelect().
		Model(latest).
		Where("?TableAlias.session_id = ?", uuid.UUID(id)).
		Where("?TableAlias.used_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		// an open session without a live refresh token is corrupt state,
		// report it the same as a closed session
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotActive
		}
		return nil, err
	}

	session := RehydrateActiveSession(id, UserID(row.UserID), latest.ToToken(s.issuer, s.audience))
	return &session, nil
}

func (s *store) SaveNewSessionTx(ctx context.Context, tx bun.IDB, session NewlyCreatedSession) error {
	row := &UserSessionRow{
		ID:        uuid.UUID(session.ID()),
		UserID:    uuid.UUID(session.UserID()),
		CreatedAt: session.CreatedAt(),
	}

	if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
		return err
	}

	_, err := tx.NewInsert().Model(newRefreshTokenRow(session.RefreshToken())).Exec(ctx)
	return err
}

// SaveRefreshedSessionTx consumes the rotated out token and stores the new
// one. The consume is conditional on the old token still being live, so when
// two rotations race only the first one lands; the loser gets
// ErrRefreshTokenConsumed and must treat the token as reused.
func (s *store) SaveRefreshedSessionTx(ctx context.Context, tx bun.IDB, session RefreshedSession) error {
	now := time.Now()
	res, err := tx.NewUpdate().
		Model((*RefreshTokenRow)(nil)).
		Set("used_at = ?", now).
		Where("id = ?", uuid.UUID(session.ConsumedTokenID())).
		Where("used_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRefreshTokenConsumed
	}

	_, err = tx.NewInsert().Model(newRefreshTokenRow(session.RefreshToken())).Exec(ctx)
	return err
}

func (s *store) SaveEndedSessionTx(ctx context.Context, tx bun.IDB, session EndedSession) error {
	endedAt := session.EndedAt()
	reason := string(session.Reason())

	var causedBy *uuid.UUID
	if id := session.CausedBy(); id != nil {
		u := uuid.UUID(*id)
		causedBy = &u
	}

	_, err := tx.NewUpdate().
		Model((*RefreshTokenRow)(nil)).
		Set("used_at = ?", endedAt).
		Where("session_id = ?", uuid.UUID(session.ID())).
		Where("used_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	res, err := tx.NewUpdate().
		Model((*UserSessionRow)(nil)).
		Set("ended_at = ?", endedAt).
		Set("ending_reason = ?", reason).
		Set("ending_token_id = ?", causedBy).
		Where("id = ?", uuid.UUID(session.ID())).
		Where("ended_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotActive
	}

	return nil
}

func (s *store) GetUserByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	return s.users.GetByIdentifierTx(ctx, tx, username)
}

func (s *store) UpdateUserPasswordTx(ctx context.Context, tx bun.IDB, id UserID, passwordHash string) error {
	record := &User{}
	record.ID = uuid.UUID(id)
	record.PasswordHash = passwordHash

	_, err := s.users.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
	return err
}

func (s *store) GetUserByID(ctx context.Context, id UserID) (*User, error) {
	return s.users.GetByID(ctx, id.String())
}

func (s *store) GetUserRolesTx(ctx context.Context, tx bun.IDB, id UserID) (RoleSet, error) {
	var rows []*UserRoleRow
	err := tx.NewSelect().
		Model(&rows).
		Where("?TableAlias.user_id = ?", uuid.UUID(id)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	roles := make(RoleSet, 0, len(rows))
	for _, row := range rows {
		role, err := row.ToRole()
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	return roles, nil
}

func (s *store) SaveTeam(ctx context.Context, team *Team) (*Team, error) {
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	return s.teams.Create(ctx, team)
}

func (s *store) AddMemberToTeam(ctx context.Context, teamID TeamID, userID UserID) error {
	row := &TeamMember{
		TeamID: uuid.UUID(teamID),
		UserID: uuid.UUID(userID),
	}

	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (s *store) SaveNewUser(ctx context.Context, user *User, password string, roles RoleSet) (*User, error) {
	record, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.PasswordHash = record.Encoded

	var created *User
	err = s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = s.users.CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}

		for _, role := range roles {
			row := &UserRoleRow{
				ID:     uuid.New(),
				UserID: created.ID,
				Role:   string(role.Kind),
			}
			if role.Kind.Scoped() {
				team := uuid.UUID(role.TeamID)
				row.TeamID = &team
			}

			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *store) GetTeams(ctx context.Context) ([]*Team, error) {
	var teams []*Team
	err := s.db.NewSelect().Model(&teams).Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *store) GetTeamsByIDs(ctx context.Context, ids []TeamID) ([]*Team, error) {
	if len(ids) == 0 {
		return []*Team{}, nil
	}

	raw := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, uuid.UUID(id))
	}

	var teams []*Team
	err := s.db.NewSelect().
		Model(&teams).
		Where("?TableAlias.id IN (?)", bun.In(raw)).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *store) GetMembersByTeam(ctx context.Context, teamID TeamID) ([]*User, error) {
	var members []*User
	err := s.db.NewSelect().
		Model(&members).
		Join("JOIN team_members AS tmb ON tmb.user_id = ?TableAlias.id").
		Where("tmb.team_id = ?", uuid.UUID(teamID)).
		Order("username ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return members, nil
}
