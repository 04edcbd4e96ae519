package trust

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Team is the team model
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:tm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// TeamMember links a user to a team.
type TeamMember struct {
	bun.BaseModel `bun:"table:team_members,alias:tmb"`
	TeamID        uuid.UUID  `bun:"team_id,pk,type:uuid" json:"team_id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	Team          *Team      `bun:"rel:has-one,join:team_id=id" json:"team,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// UserRoleRow is one role assignment in storage. TeamID is set only for the
// team scoped role kinds.
type UserRoleRow struct {
	bun.BaseModel `bun:"table:user_roles,alias:url"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Role          string     `bun:"role,notnull" json:"role,omitempty"`
	TeamID        *uuid.UUID `bun:"team_id,type:uuid" json:"team_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ToRole rebuilds the domain Role from the stored row.
func (r *UserRoleRow) ToRole() (Role, error) {
	var team *TeamID
	if r.TeamID != nil {
		t := TeamID(*r.TeamID)
		team = &t
	}
	return ParseRole(r.Role, team)
}

// UserSessionRow is the persisted session. Ending columns are set exactly
// once, when the session ends.
type UserSessionRow struct {
	bun.BaseModel `bun:"table:user_sessions,alias:uss"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at,omitempty"`
	EndedAt       *time.Time `bun:"ended_at,nullzero" json:"ended_at,omitempty"`
	EndingReason  *string    `bun:"ending_reason,nullzero" json:"ending_reason,omitempty"`
	EndingTokenID *uuid.UUID `bun:"ending_token_id,nullzero,type:uuid" json:"ending_token_id,omitempty"`
}

// Ended reports whether the session row has been closed.
func (s *UserSessionRow) Ended() bool {
	return s.EndedAt != nil
}

// RefreshTokenRow is a persisted refresh token. The latest token for a
// session is the single row with a NULL used_at.
type RefreshTokenRow struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	SessionID     uuid.UUID  `bun:"session_id,notnull,type:uuid" json:"session_id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	ParentID      *uuid.UUID `bun:"parent_id,nullzero,type:uuid" json:"parent_id,omitempty"`
	IssuedAt      time.Time  `bun:"issued_at,notnull" json:"issued_at,omitempty"`
	NotBefore     time.Time  `bun:"not_before,notnull" json:"not_before,omitempty"`
	Expiration    time.Time  `bun:"expiration,notnull" json:"expiration,omitempty"`
	UsedAt        *time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
}

// ToToken rebuilds the domain refresh token from the stored row. The secret
// material never hits storage, only the claims needed to validate rotation.
func (r *RefreshTokenRow) ToToken(issuer, audience string) Token[RefreshTokenClaims] {
	var parent *TokenID
	if r.ParentID != nil {
		p := TokenID(*r.ParentID)
		parent = &p
	}

	return Token[RefreshTokenClaims]{
		ID:         TokenID(r.ID),
		Subject:    SubjectRefreshToken,
		Audience:   audience,
		Issuer:     issuer,
		Expiration: r.Expiration,
		NotBefore:  r.NotBefore,
		IssuedAt:   r.IssuedAt,
		CustomClaims: RefreshTokenClaims{
			UserID:    UserID(r.UserID),
			SessionID: SessionID(r.SessionID),
			ParentID:  parent,
		},
	}
}

func newRefreshTokenRow(token Token[RefreshTokenClaims]) *RefreshTokenRow {
	var parent *uuid.UUID
	if token.CustomClaims.ParentID != nil {
		p := uuid.UUID(*token.CustomClaims.ParentID)
		parent = &p
	}

	return &RefreshTokenRow{
		ID:         uuid.UUID(token.ID),
		SessionID:  uuid.UUID(token.CustomClaims.SessionID),
		UserID:     uuid.UUID(token.CustomClaims.UserID),
		ParentID:   parent,
		IssuedAt:   token.IssuedAt,
		NotBefore:  token.NotBefore,
		Expiration: token.Expiration,
	}
}
