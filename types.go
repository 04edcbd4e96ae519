package trust

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator holds the credential lifecycle operations a host's transport
// layer calls into.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*IssuedCredentials, error)
	Refresh(ctx context.Context, refreshToken string) (*IssuedCredentials, error)
	Logout(ctx context.Context, user AuthenticatedUser) error
	AuthenticatedUserFromToken(accessToken string) (*AuthenticatedUser, error)
}

// IssuedCredentials is the wire shape a caller of login or refresh receives.
type IssuedCredentials struct {
	AccessToken            string    `json:"access_token"`
	AccessTokenExpiration  time.Time `json:"access_token_expiration"`
	RefreshToken           string    `json:"refresh_token"`
	RefreshTokenExpiration time.Time `json:"refresh_token_expiration"`
}

// AuthenticatedUser is the identity resolved from a decrypted access token.
// Resolution is stateless: the token is decrypted and claim-checked, never
// looked up in storage.
type AuthenticatedUser struct {
	UserID         UserID
	SessionID      SessionID
	AccessTokenID  TokenID
	RefreshTokenID TokenID
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] TRUST "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] TRUST "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] TRUST "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] TRUST "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
