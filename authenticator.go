package trust

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// expirationReportSkew is subtracted from the expirations reported to
// clients so a client that refreshes right at the reported time is still
// inside the real validity window.
const expirationReportSkew = 30 * time.Second

// Auther implements Authenticator over a Store and a TokenCipher.
type Auther struct {
	store  Store
	cipher *TokenCipher
	minter *TokenMinter
	logger Logger
	now    func() time.Time
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator. The encryption key is read
// from config once, here, and lives only inside the cipher.
func NewAuthenticator(store Store, cfg Config) (*Auther, error) {
	cipher, err := NewTokenCipher(cfg.GetEncryptionKey())
	if err != nil {
		return nil, err
	}

	return &Auther{
		store:  store,
		cipher: cipher,
		minter: NewTokenMinter(cfg),
		logger: defLogger{},
		now:    time.Now,
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithClock overrides the time source, for tests.
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.now = clock
		s.minter.now = clock
	}
	return s
}

// Login verifies the credentials, starts a session, and issues the first
// token pair. An unknown username still runs a full hash verification
// against a dummy record so its timing and response match a wrong password,
// which keeps the endpoint useless for username enumeration.
func (s *Auther) Login(ctx context.Context, username, password string) (*IssuedCredentials, error) {
	var creds *IssuedCredentials

	err := s.store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.store.GetUserByUsernameTx(ctx, tx, username)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				DummyHashRecord().VerifyPassword(password)
				return ErrCredentialsInvalid
			}
			return err
		}

		record, err := ParseHashRecord(user.PasswordHash)
		if err != nil {
			s.logger.Error("login: stored hash for user %s is unusable: %v", user.ID, err)
			return err
		}

		match, err := record.VerifyPassword(password)
		if err != nil {
			return err
		}

		switch match {
		case DoesNotMatch:
			return ErrCredentialsInvalid
		case MatchesButSchemeOutdated:
			s.rehashPassword(ctx, tx, user, password)
		}

		session := NewSession(s.minter, UserID(user.ID))
		if err := s.store.SaveNewSessionTx(ctx, tx, session); err != nil {
			return err
		}

		creds, err = s.issue(session.AccessToken(), session.RefreshToken())
		return err
	})
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// rehashPassword upgrades a legacy hash to the current scheme. Failures are
// logged and swallowed: the user proved the password, so login proceeds and
// the upgrade is retried on the next login.
func (s *Auther) rehashPassword(ctx context.Context, tx bun.IDB, user *User, password string) {
	record, err := HashPassword(password)
	if err != nil {
		s.logger.Warn("login: failed to rehash password for user %s: %v", user.ID, err)
		return
	}

	if err := s.store.UpdateUserPasswordTx(ctx, tx, UserID(user.ID), record.Encoded); err != nil {
		s.logger.Warn("login: failed to store rehashed password for user %s: %v", user.ID, err)
	}
}

// Refresh rotates a session's tokens. The whole read-decide-write sequence
// runs in one transaction; two racing refreshes with the same token cannot
// both succeed, the loser ends the session as reuse.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*IssuedCredentials, error) {
	presented, err := DecryptToken[RefreshTokenClaims](s.cipher, refreshToken, s.now())
	if err != nil {
		return nil, err
	}

	var creds *IssuedCredentials
	var terminated *EndedSession

	err = s.store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		session, err := s.store.GetActiveSessionTx(ctx, tx, presented.CustomClaims.SessionID)
		if err != nil {
			return err
		}

		refreshed, ended := session.Refresh(s.minter, presented)
		if ended != nil {
			// Returning nil commits the termination; the callback must
			// not fail here or the rollback would leave the session alive.
			terminated = ended
			return s.store.SaveEndedSessionTx(ctx, tx, *ended)
		}

		err = s.store.SaveRefreshedSessionTx(ctx, tx, *refreshed)
		if errors.Is(err, ErrRefreshTokenConsumed) {
			terminated, err = s.endRacedSession(ctx, tx, presented)
			return err
		}
		if err != nil {
			return err
		}

		creds, err = s.issue(refreshed.AccessToken(), refreshed.RefreshToken())
		return err
	})
	if err != nil {
		return nil, err
	}

	if terminated != nil {
		s.logger.Warn("refresh: session %s ended: %s", terminated.ID(), terminated.Reason())
		return nil, ErrUnauthorized
	}

	return creds, nil
}

// endRacedSession handles a rotation that lost the race for the presented
// token. By the time we re-read, the winner's token is the latest, so the
// presented token fails the reuse check and the session ends.
func (s *Auther) endRacedSession(ctx context.Context, tx bun.IDB, presented Token[RefreshTokenClaims]) (*EndedSession, error) {
	session, err := s.store.GetActiveSessionTx(ctx, tx, presented.CustomClaims.SessionID)
	if err != nil {
		return nil, err
	}

	_, ended := session.Refresh(s.minter, presented)
	if ended == nil {
		return nil, ErrRefreshTokenConsumed
	}

	if err := s.store.SaveEndedSessionTx(ctx, tx, *ended); err != nil {
		return nil, err
	}

	return ended, nil
}

// Logout ends the caller's session.
func (s *Auther) Logout(ctx context.Context, user AuthenticatedUser) error {
	return s.store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		session, err := s.store.GetActiveSessionTx(ctx, tx, user.SessionID)
		if err != nil {
			return err
		}

		ended := session.EndByUserLogout(s.now())
		return s.store.SaveEndedSessionTx(ctx, tx, ended)
	})
}

// AuthenticatedUserFromToken resolves the identity carried by an access
// token. The check is stateless: decrypt, verify the window, read the
// claims. The token is never looked up in storage.
func (s *Auther) AuthenticatedUserFromToken(accessToken string) (*AuthenticatedUser, error) {
	now := s.now()

	token, err := DecryptToken[AccessTokenClaims](s.cipher, accessToken, now)
	if err != nil {
		return nil, err
	}

	if token.ExpiredAt(now) {
		return nil, ErrTokenExpired
	}

	return &AuthenticatedUser{
		UserID:         token.CustomClaims.UserID,
		SessionID:      token.CustomClaims.SessionID,
		AccessTokenID:  token.ID,
		RefreshTokenID: token.CustomClaims.RefreshTokenID,
	}, nil
}

func (s *Auther) issue(access Token[AccessTokenClaims], refresh Token[RefreshTokenClaims]) (*IssuedCredentials, error) {
	sealedAccess, err := EncryptToken(s.cipher, access)
	if err != nil {
		return nil, err
	}

	sealedRefresh, err := EncryptToken(s.cipher, refresh)
	if err != nil {
		return nil, err
	}

	return &IssuedCredentials{
		AccessToken:            sealedAccess.Token,
		AccessTokenExpiration:  sealedAccess.ExpiresAt.Add(-expirationReportSkew),
		RefreshToken:           sealedRefresh.Token,
		RefreshTokenExpiration: sealedRefresh.ExpiresAt.Add(-expirationReportSkew),
	}, nil
}
