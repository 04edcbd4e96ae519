package trust

import "time"

const (
	// SubjectAccessToken is the subject claim stamped on access tokens.
	SubjectAccessToken = "access_token"
	// SubjectRefreshToken is the subject claim stamped on refresh tokens.
	SubjectRefreshToken = "refresh_token"
)

// Claims is the typed custom-claims payload carried by a Token.
type Claims interface {
	// TokenSubject returns the subject claim the carrying token must have.
	// Decryption rejects tokens whose subject does not match, so an access
	// token can never be presented where a refresh token is expected.
	TokenSubject() string
}

// AccessTokenClaims bind an access token to its session and to the refresh
// token that minted it.
type AccessTokenClaims struct {
	UserID         UserID    `json:"user_id"`
	SessionID      SessionID `json:"session_id"`
	RefreshTokenID TokenID   `json:"refresh_token_id"`
}

func (AccessTokenClaims) TokenSubject() string { return SubjectAccessToken }

// RefreshTokenClaims bind a refresh token to its session and, after the first
// rotation, to the token it replaced.
type RefreshTokenClaims struct {
	UserID    UserID    `json:"user_id"`
	SessionID SessionID `json:"session_id"`
	ParentID  *TokenID  `json:"parent_id,omitempty"`
}

func (RefreshTokenClaims) TokenSubject() string { return SubjectRefreshToken }

// Token is an immutable typed bearer credential: identity, validity window,
// and a typed custom-claims payload. It performs no I/O.
//
// By construction NotBefore <= IssuedAt <= Expiration.
type Token[C Claims] struct {
	ID           TokenID
	Subject      string
	Audience     string
	Issuer       string
	Expiration   time.Time
	NotBefore    time.Time
	IssuedAt     time.Time
	CustomClaims C
}

// Expired reports whether the token's expiration has passed.
func (t Token[C]) Expired() bool {
	return t.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the token is expired at the given instant.
func (t Token[C]) ExpiredAt(now time.Time) bool {
	return now.After(t.Expiration)
}

// Active reports whether the token's not-before time has passed.
func (t Token[C]) Active() bool {
	return t.ActiveAt(time.Now())
}

// ActiveAt reports whether the token is active at the given instant.
func (t Token[C]) ActiveAt(now time.Time) bool {
	return !now.Before(t.NotBefore)
}

// TokenMinter stamps new tokens with the configured issuer, audience, and
// lifetimes. Sessions mint through it so lifetimes stay configuration, not
// hard-coded business rules.
type TokenMinter struct {
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// MinterOption customizes a TokenMinter.
type MinterOption func(*TokenMinter)

// WithMinterClock injects a custom clock (useful for tests).
func WithMinterClock(clock func() time.Time) MinterOption {
	return func(m *TokenMinter) {
		if clock != nil {
			m.now = clock
		}
	}
}

// NewTokenMinter creates a minter from configuration.
func NewTokenMinter(cfg Config, opts ...MinterOption) *TokenMinter {
	audience := ""
	if aud := cfg.GetAudience(); len(aud) > 0 {
		audience = aud[0]
	}

	m := &TokenMinter{
		issuer:     cfg.GetIssuer(),
		audience:   audience,
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Now returns the minter's current time.
func (m *TokenMinter) Now() time.Time {
	return m.now()
}

// MintAccessToken mints an access token active immediately.
func (m *TokenMinter) MintAccessToken(userID UserID, sessionID SessionID, refreshTokenID TokenID) Token[AccessTokenClaims] {
	return mintToken(m, m.accessTTL, AccessTokenClaims{
		UserID:         userID,
		SessionID:      sessionID,
		RefreshTokenID: refreshTokenID,
	})
}

// MintRefreshToken mints a refresh token active immediately. ParentID is nil
// only for the first token of a session.
func (m *TokenMinter) MintRefreshToken(userID UserID, sessionID SessionID, parentID *TokenID) Token[RefreshTokenClaims] {
	return mintToken(m, m.refreshTTL, RefreshTokenClaims{
		UserID:    userID,
		SessionID: sessionID,
		ParentID:  parentID,
	})
}

func mintToken[C Claims](m *TokenMinter, ttl time.Duration, claims C) Token[C] {
	now := m.now()
	return Token[C]{
		ID:           NewTokenID(),
		Subject:      claims.TokenSubject(),
		Audience:     m.audience,
		Issuer:       m.issuer,
		Expiration:   now.Add(ttl),
		NotBefore:    now,
		IssuedAt:     now,
		CustomClaims: claims,
	}
}
