package trust

import "github.com/google/uuid"

// UserID identifies a user account.
type UserID uuid.UUID

// TeamID identifies a team.
type TeamID uuid.UUID

// SessionID identifies a user session.
type SessionID uuid.UUID

// TokenID identifies an issued token.
type TokenID uuid.UUID

func NewUserID() UserID       { return UserID(uuid.New()) }
func NewTeamID() TeamID       { return TeamID(uuid.New()) }
func NewSessionID() SessionID { return SessionID(uuid.New()) }
func NewTokenID() TokenID     { return TokenID(uuid.New()) }

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	return UserID(id), err
}

func ParseTeamID(s string) (TeamID, error) {
	id, err := uuid.Parse(s)
	return TeamID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := uuid.Parse(s)
	return SessionID(id), err
}

func ParseTokenID(s string) (TokenID, error) {
	id, err := uuid.Parse(s)
	return TokenID(id), err
}

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id TeamID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id TokenID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TeamID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TokenID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id TeamID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id TokenID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(data []byte) error    { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *TeamID) UnmarshalText(data []byte) error    { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *SessionID) UnmarshalText(data []byte) error { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *TokenID) UnmarshalText(data []byte) error   { return (*uuid.UUID)(id).UnmarshalText(data) }
