package trust

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeUnauthorized      = "UNAUTHORIZED"
	textCodeForbidden         = "FORBIDDEN"
	textCodeCredentials       = "CREDENTIALS_INVALID"
	textCodeSessionNotActive  = "SESSION_NOT_ACTIVE"
	textCodeTokenNotYetActive = "TOKEN_NOT_YET_ACTIVE"
	textCodeTokenExpired      = "TOKEN_EXPIRED"
	textCodeTokenClaims       = "TOKEN_CLAIMS_INVALID"
	textCodeTokenIdentifier   = "TOKEN_IDENTIFIER_INVALID"
	textCodeTokenTimestamp    = "TOKEN_TIMESTAMP_INVALID"
	textCodeCipherFailure     = "TOKEN_CIPHER_FAILURE"
	textCodeClaimsPayload     = "TOKEN_CLAIMS_PAYLOAD_INVALID"
	textCodeRefreshConflict   = "REFRESH_TOKEN_CONSUMED"
	textCodeHashScheme        = "HASH_SCHEME_UNKNOWN"
)

// ErrUnauthorized is the undifferentiated credential failure surfaced to
// callers for malformed, tampered, or expired credentials and unknown
// username/password combinations.
var ErrUnauthorized = goerrors.New("unauthorized", goerrors.CategoryAuth).
	WithTextCode(textCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned by policies when the acting user is not authorized.
// It never reveals which rule failed.
var ErrForbidden = goerrors.New("forbidden", goerrors.CategoryAuthz).
	WithTextCode(textCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrCredentialsInvalid covers unknown-username and wrong-password failures.
// Both produce the same error value so responses cannot be used to enumerate
// usernames.
var ErrCredentialsInvalid = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionNotActive is returned when a refresh or logout targets a session
// that has ended or never existed.
var ErrSessionNotActive = goerrors.New("session not active", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionNotActive).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenNotYetActive reports a decrypted token whose not-before time has not
// passed. It is still an unauthorized outcome but stays distinguishable from
// every other decrypt failure so callers can apply try-later semantics.
var ErrTokenNotYetActive = goerrors.New("token not yet active", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenNotYetActive).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired reports an access token presented after its expiration.
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformedClaims reports a decrypted payload missing required claims
// or carrying a subject that does not match the expected token kind.
var ErrTokenMalformedClaims = goerrors.New("missing or malformed token claims", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenClaims).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenBadIdentifier reports a token identifier claim that is not a UUID.
var ErrTokenBadIdentifier = goerrors.New("token identifier is not parseable", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenIdentifier).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenBadTimestamp reports exp/nbf/iat claims that are absent or invalid.
var ErrTokenBadTimestamp = goerrors.New("token timestamp is not parseable", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenTimestamp).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenCipherFailure reports ciphertext that could not be opened: tampered,
// truncated, or sealed with a different key.
var ErrTokenCipherFailure = goerrors.New("token cipher failure", goerrors.CategoryAuth).
	WithTextCode(textCodeCipherFailure).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenClaimsPayload reports custom claims that decrypted and
// authenticated correctly but could not be deserialized into the expected
// claims type.
var ErrTokenClaimsPayload = goerrors.New("token custom claims are not deserializable", goerrors.CategoryAuth).
	WithTextCode(textCodeClaimsPayload).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshTokenConsumed is reported by the store when a rotation loses a
// race: the presented token was the latest at read time but another writer
// consumed it first. Callers treat it as reuse.
var ErrRefreshTokenConsumed = goerrors.New("refresh token already consumed", goerrors.CategoryConflict).
	WithTextCode(textCodeRefreshConflict).
	WithCode(goerrors.CodeConflict)

// ErrUnknownHashScheme reports a stored password hash whose scheme identifier
// has no registered implementation.
var ErrUnknownHashScheme = goerrors.New("unknown password hash scheme", goerrors.CategoryInternal).
	WithTextCode(textCodeHashScheme).
	WithCode(goerrors.CodeInternal)

// ErrNoEmptyString is returned when a required string input is empty.
var ErrNoEmptyString = errors.New("value should not be an empty string")

// IsUnauthorized reports whether err should surface to a caller as an
// undifferentiated unauthorized outcome.
func IsUnauthorized(err error) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryAuth
	}
	return false
}

// IsForbidden reports whether err is an authorization rejection.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
