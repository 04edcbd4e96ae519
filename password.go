package trust

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// HashScheme identifies a password hashing algorithm.
type HashScheme string

const (
	// SchemeArgon2id is the current scheme. New hashes always use it.
	SchemeArgon2id HashScheme = "argon2id"
	// SchemeBcrypt is a legacy scheme kept only to verify old records.
	// Matching records are rehashed with the current scheme on login.
	SchemeBcrypt HashScheme = "bcrypt"
)

const (
	argonTime    uint32 = 2
	argonMemory  uint32 = 19 * 1024
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	bcryptCost = 14
)

// MatchResult is the outcome of comparing a password against a stored hash.
type MatchResult int

const (
	// DoesNotMatch means the password is wrong.
	DoesNotMatch MatchResult = iota
	// Matches means the password is right and the hash uses the current
	// scheme.
	Matches
	// MatchesButSchemeOutdated means the password is right but the stored
	// hash uses a legacy scheme and should be replaced.
	MatchesButSchemeOutdated
)

// HashRecord is a stored password hash tagged with its scheme.
type HashRecord struct {
	Scheme  HashScheme
	Encoded string
}

// ParseHashRecord classifies an encoded hash by its prefix.
func ParseHashRecord(encoded string) (HashRecord, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return HashRecord{Scheme: SchemeArgon2id, Encoded: encoded}, nil
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return HashRecord{Scheme: SchemeBcrypt, Encoded: encoded}, nil
	default:
		return HashRecord{}, ErrUnknownHashScheme
	}
}

// IsLatestScheme reports whether the record uses the current scheme.
func (r HashRecord) IsLatestScheme() bool {
	return r.Scheme == SchemeArgon2id
}

// HashPassword hashes a password with the current scheme. The encoded string
// embeds the parameters and salt so it is self describing.
func HashPassword(password string) (HashRecord, error) {
	if password == "" {
		return HashRecord{}, ErrNoEmptyString
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return HashRecord{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	)

	return HashRecord{Scheme: SchemeArgon2id, Encoded: encoded}, nil
}

// VerifyPassword compares a password against a stored record. A match on a
// legacy scheme is reported separately so callers can rehash.
func (r HashRecord) VerifyPassword(password string) (MatchResult, error) {
	switch r.Scheme {
	case SchemeArgon2id:
		ok, err := verifyArgon2id(password, r.Encoded)
		if err != nil {
			return DoesNotMatch, err
		}
		if !ok {
			return DoesNotMatch, nil
		}
		return Matches, nil
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(r.Encoded), []byte(password))
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return DoesNotMatch, nil
		}
		if err != nil {
			return DoesNotMatch, err
		}
		return MatchesButSchemeOutdated, nil
	default:
		return DoesNotMatch, ErrUnknownHashScheme
	}
}

var (
	dummyOnce   sync.Once
	dummyRecord HashRecord
)

// DummyHashRecord returns a hash of a random password nobody knows. Login
// verifies against it when the username is unknown so an unknown username
// costs the same as a wrong password.
func DummyHashRecord() HashRecord {
	dummyOnce.Do(func() {
		pwd := make([]byte, 32)
		if _, err := rand.Read(pwd); err != nil {
			panic(fmt.Sprintf("failed to generate dummy password: %v", err))
		}
		record, err := HashPassword(base64.RawStdEncoding.EncodeToString(pwd))
		if err != nil {
			panic(fmt.Sprintf("failed to hash dummy password: %v", err))
		}
		dummyRecord = record
	})
	return dummyRecord
}

func verifyArgon2id(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != string(SchemeArgon2id) {
		return false, ErrUnknownHashScheme
	}

	version, err := parseHashParam(parts[2], "v=")
	if err != nil || int(version) != argon2.Version {
		return false, ErrUnknownHashScheme
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return false, ErrUnknownHashScheme
	}

	mem, err := parseHashParam(params[0], "m=")
	if err != nil {
		return false, ErrUnknownHashScheme
	}
	timeCost, err := parseHashParam(params[1], "t=")
	if err != nil {
		return false, ErrUnknownHashScheme
	}
	threads, err := parseHashParam(params[2], "p=")
	if err != nil || threads > 255 {
		return false, ErrUnknownHashScheme
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrUnknownHashScheme
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrUnknownHashScheme
	}

	actual := argon2.IDKey([]byte(password), salt, timeCost, mem, uint8(threads), uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func parseHashParam(value, prefix string) (uint32, error) {
	if !strings.HasPrefix(value, prefix) {
		return 0, ErrUnknownHashScheme
	}
	parsed, err := strconv.ParseUint(strings.TrimPrefix(value, prefix), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(parsed), nil
}
