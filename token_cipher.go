package trust

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EncryptedToken is an opaque sealed token ready to hand to a client, paired
// with the expiration the client should schedule its refresh around.
type EncryptedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// tokenEnvelope is the JSON document sealed inside the ciphertext. Registered
// claims carry identity and the validity window, the data key carries the
// typed custom claims.
type tokenEnvelope struct {
	jwt.RegisteredClaims
	Data json.RawMessage `json:"data"`
}

// TokenCipher seals and opens tokens with an AEAD so clients can hold them
// without being able to read or forge them. Each instance wraps one key;
// the key itself is not retained after construction.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher creates a cipher from a 32 byte key.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != EncryptionKeySize {
		return nil, fmt.Errorf("token cipher key must be %d bytes, got %d", EncryptionKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// EncryptToken seals a token into an opaque string. The nonce is random per
// call, so sealing the same token twice yields different ciphertexts.
func EncryptToken[C Claims](tc *TokenCipher, token Token[C]) (EncryptedToken, error) {
	data, err := json.Marshal(token.CustomClaims)
	if err != nil {
		return EncryptedToken{}, fmt.Errorf("failed to marshal custom claims: %w", err)
	}

	envelope := tokenEnvelope{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.ID.String(),
			Subject:   token.Subject,
			Issuer:    token.Issuer,
			Audience:  jwt.ClaimStrings{token.Audience},
			ExpiresAt: jwt.NewNumericDate(token.Expiration),
			NotBefore: jwt.NewNumericDate(token.NotBefore),
			IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
		},
		Data: data,
	}

	plaintext, err := json.Marshal(envelope)
	if err != nil {
		return EncryptedToken{}, fmt.Errorf("failed to marshal token envelope: %w", err)
	}

	nonce := make([]byte, tc.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return EncryptedToken{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := tc.aead.Seal(nonce, nonce, plaintext, nil)

	return EncryptedToken{
		Token:     base64.RawURLEncoding.EncodeToString(sealed),
		ExpiresAt: token.Expiration,
	}, nil
}

// DecryptToken opens a sealed token and rebuilds the typed Token. It rejects
// ciphertext that fails authentication, claims that are missing or malformed,
// subjects that do not match the expected claims type, and tokens that are
// not yet active at the given instant.
//
// Expiration is deliberately NOT checked here. Session handling needs to see
// expired refresh tokens to end the session with the right reason, so expiry
// enforcement belongs to the caller.
func DecryptToken[C Claims](tc *TokenCipher, encrypted string, now time.Time) (Token[C], error) {
	var zero Token[C]

	sealed, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil {
		return zero, ErrTokenCipherFailure
	}

	nonceSize := tc.aead.NonceSize()
	if len(sealed) < nonceSize {
		return zero, ErrTokenCipherFailure
	}

	plaintext, err := tc.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return zero, ErrTokenCipherFailure
	}

	var envelope tokenEnvelope
	if err := json.Unmarshal(plaintext, &envelope); err != nil {
		return zero, ErrTokenMalformedClaims
	}

	var custom C
	if envelope.Subject != custom.TokenSubject() {
		return zero, ErrTokenMalformedClaims
	}

	id, err := ParseTokenID(envelope.ID)
	if err != nil {
		return zero, ErrTokenBadIdentifier
	}

	if envelope.ExpiresAt == nil || envelope.NotBefore == nil || envelope.IssuedAt == nil {
		return zero, ErrTokenBadTimestamp
	}

	if now.Before(envelope.NotBefore.Time) {
		return zero, ErrTokenNotYetActive
	}

	if len(envelope.Data) == 0 {
		return zero, ErrTokenClaimsPayload
	}
	if err := json.Unmarshal(envelope.Data, &custom); err != nil {
		return zero, ErrTokenClaimsPayload
	}

	audience := ""
	if len(envelope.Audience) > 0 {
		audience = envelope.Audience[0]
	}

	return Token[C]{
		ID:           id,
		Subject:      envelope.Subject,
		Audience:     audience,
		Issuer:       envelope.Issuer,
		Expiration:   envelope.ExpiresAt.Time,
		NotBefore:    envelope.NotBefore.Time,
		IssuedAt:     envelope.IssuedAt.Time,
		CustomClaims: custom,
	}, nil
}
