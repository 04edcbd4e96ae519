package trust

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// DefaultAccessTokenTTL is how long an access token stays valid.
	DefaultAccessTokenTTL = 5 * time.Minute
	// DefaultRefreshTokenTTL is how long a refresh token stays valid.
	DefaultRefreshTokenTTL = 4 * time.Hour

	// EncryptionKeySize is the required length of the symmetric key, in bytes.
	EncryptionKeySize = 32
)

// Config holds the options the trust core consumes. The encryption key is
// injected here at startup and shared read-only; it is never stored in a
// package-level variable and never logged.
type Config interface {
	GetEncryptionKey() []byte
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
}

// SimpleConfig is a plain Config implementation for hosts that load options
// from their own configuration layer.
type SimpleConfig struct {
	EncryptionKey   []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	Audience        []string
}

var _ Config = SimpleConfig{}

// Validate checks the configuration before the core is constructed.
func (c SimpleConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.EncryptionKey, validation.Required, validation.Length(EncryptionKeySize, EncryptionKeySize)),
		validation.Field(&c.Issuer, validation.Required),
	)
}

func (c SimpleConfig) GetEncryptionKey() []byte {
	return c.EncryptionKey
}

func (c SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c SimpleConfig) GetIssuer() string {
	return c.Issuer
}

func (c SimpleConfig) GetAudience() []string {
	return c.Audience
}
