package trust_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	trust "github.com/goliatone/go-trust"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	store  *MockStore
	auther *trust.Auther
	cipher *trust.TokenCipher
	minter *trust.TokenMinter
	now    time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	cfg := newTestConfig()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &MockStore{}

	auther, err := trust.NewAuthenticator(store, cfg)
	require.NoError(t, err)
	auther.WithClock(fixedClock(now))

	cipher, err := trust.NewTokenCipher(cfg.GetEncryptionKey())
	require.NoError(t, err)

	return &authFixture{
		store:  store,
		auther: auther,
		cipher: cipher,
		minter: trust.NewTokenMinter(cfg, trust.WithMinterClock(fixedClock(now))),
		now:    now,
	}
}

func (f *authFixture) userWithPassword(t *testing.T, password string) *trust.User {
	t.Helper()

	record, err := trust.HashPassword(password)
	require.NoError(t, err)

	return &trust.User{
		ID:           uuid.New(),
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: record.Encoded,
	}
}

func TestLoginIssuesDecryptableCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.userWithPassword(t, "open sesame")
	f.store.On("GetUserByUsernameTx", mock.Anything, mock.Anything, "ada").Return(user, nil)
	f.store.On("SaveNewSessionTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	creds, err := f.auther.Login(ctx, "ada", "open sesame")
	require.NoError(t, err)
	require.NotNil(t, creds)

	// reported expirations sit slightly inside the real validity windows
	assert.Equal(t, f.now.Add(5*time.Minute-30*time.Second), creds.AccessTokenExpiration)
	assert.Equal(t, f.now.Add(4*time.Hour-30*time.Second), creds.RefreshTokenExpiration)

	access, err := trust.DecryptToken[trust.AccessTokenClaims](f.cipher, creds.AccessToken, f.now)
	require.NoError(t, err)
	assert.Equal(t, trust.UserID(user.ID), access.CustomClaims.UserID)

	refresh, err := trust.DecryptToken[trust.RefreshTokenClaims](f.cipher, creds.RefreshToken, f.now)
	require.NoError(t, err)
	assert.Equal(t, trust.UserID(user.ID), refresh.CustomClaims.UserID)
	assert.Equal(t, access.CustomClaims.SessionID, refresh.CustomClaims.SessionID)
	assert.Nil(t, refresh.CustomClaims.ParentID)
	assert.Equal(t, refresh.ID, access.CustomClaims.RefreshTokenID)
}

func TestLoginUnknownUsername(t *testing.T) {
	f := newAuthFixture(t)

	f.store.On("GetUserByUsernameTx", mock.Anything, mock.Anything, "ghost").
		Return(nil, repository.NewRecordNotFound())

	_, err := f.auther.Login(context.Background(), "ghost", "whatever")
	assert.True(t, errors.Is(err, trust.ErrCredentialsInvalid))
	f.store.AssertNotCalled(t, "SaveNewSessionTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	user := f.userWithPassword(t, "open sesame")
	f.store.On("GetUserByUsernameTx", mock.Anything, mock.Anything, "ada").Return(user, nil)

	_, err := f.auther.Login(context.Background(), "ada", "close sesame")
	assert.True(t, errors.Is(err, trust.ErrCredentialsInvalid))
	f.store.AssertNotCalled(t, "SaveNewSessionTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// bcrypt record from before the argon2id migration
	legacyHash, err := bcrypt.GenerateFromPassword([]byte("legacy secret"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &trust.User{
		ID:           uuid.New(),
		Username:     "ada",
		PasswordHash: string(legacyHash),
	}

	f.store.On("GetUserByUsernameTx", mock.Anything, mock.Anything, "ada").Return(user, nil)
	f.store.On("UpdateUserPasswordTx", mock.Anything, mock.Anything, trust.UserID(user.ID), mock.MatchedBy(func(hash string) bool {
		return strings.HasPrefix(hash, "$argon2id$")
	})).Return(nil)
	f.store.On("SaveNewSessionTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	creds, err := f.auther.Login(ctx, "ada", "legacy secret")
	require.NoError(t, err)
	require.NotNil(t, creds)

	f.store.AssertCalled(t, "UpdateUserPasswordTx", mock.Anything, mock.Anything, trust.UserID(user.ID), mock.Anything)
}

func (f *authFixture) sealedRefresh(t *testing.T, token trust.Token[trust.RefreshTokenClaims]) string {
	t.Helper()
	sealed, err := trust.EncryptToken(f.cipher, token)
	require.NoError(t, err)
	return sealed.Token
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	created := trust.NewSession(f.minter, trust.NewUserID())
	latest := created.RefreshToken()
	session := trust.RehydrateActiveSession(created.ID(), created.UserID(), latest)

	f.store.On("GetActiveSessionTx", mock.Anything, mock.Anything, created.ID()).Return(&session, nil)
	f.store.On("SaveRefreshedSessionTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	creds, err := f.auther.Refresh(ctx, f.sealedRefresh(t, latest))
	require.NoError(t, err)
	require.NotNil(t, creds)

	refresh, err := trust.DecryptToken[trust.RefreshTokenClaims](f.cipher, creds.RefreshToken, f.now)
	require.NoError(t, err)
	require.NotNil(t, refresh.CustomClaims.ParentID)
	assert.Equal(t, latest.ID, *refresh.CustomClaims.ParentID)
	assert.Equal(t, created.ID(), refresh.CustomClaims.SessionID)

	access, err := trust.DecryptToken[trust.AccessTokenClaims](f.cipher, creds.AccessToken, f.now)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, access.CustomClaims.RefreshTokenID)
}

func TestRefreshWithReusedTokenEndsSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	userID := trust.NewUserID()
	created := trust.NewSession(f.minter, userID)
	oldToken := created.RefreshToken()

	// storage has moved on to a newer token
	newerToken := f.minter.MintRefreshToken(userID, created.ID(), nil)
	session := trust.RehydrateActiveSession(created.ID(), userID, newerToken)

	f.store.On("GetActiveSessionTx", mock.Anything, mock.Anything, created.ID()).Return(&session, nil)
	f.store.On("SaveEndedSessionTx", mock.Anything, mock.Anything, mock.MatchedBy(func(s trust.EndedSession) bool {
		return s.Reason() == trust.EndReasonRefreshTokenReuse &&
			s.CausedBy() != nil && *s.CausedBy() == oldToken.ID
	})).Return(nil)

	_, err := f.auther.Refresh(ctx, f.sealedRefresh(t, oldToken))
	assert.True(t, trust.IsUnauthorized(err))
	f.store.AssertExpectations(t)
	f.store.AssertNotCalled(t, "SaveRefreshedSessionTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshWithExpiredLatestTokenEndsSessionViaAuther(t *testing.T) {
	cfg := newTestConfig()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mintClock := fixedClock(start)

	store := &MockStore{}
	auther, err := trust.NewAuthenticator(store, cfg)
	require.NoError(t, err)
	// the session's latest token was minted five hours ago
	auther.WithClock(fixedClock(start.Add(5 * time.Hour)))

	cipher, err := trust.NewTokenCipher(cfg.GetEncryptionKey())
	require.NoError(t, err)
	minter := trust.NewTokenMinter(cfg, trust.WithMinterClock(mintClock))

	created := trust.NewSession(minter, trust.NewUserID())
	latest := created.RefreshToken()
	session := trust.RehydrateActiveSession(created.ID(), created.UserID(), latest)

	store.On("GetActiveSessionTx", mock.Anything, mock.Anything, created.ID()).Return(&session, nil)
	store.On("SaveEndedSessionTx", mock.Anything, mock.Anything, mock.MatchedBy(func(s trust.EndedSession) bool {
		return s.Reason() == trust.EndReasonLatestRefreshTokenExpired
	})).Return(nil)

	sealed, err := trust.EncryptToken(cipher, latest)
	require.NoError(t, err)

	_, err = auther.Refresh(context.Background(), sealed.Token)
	assert.True(t, trust.IsUnauthorized(err))
	store.AssertExpectations(t)
}

func TestRefreshLosingRaceEndsSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	userID := trust.NewUserID()
	created := trust.NewSession(f.minter, userID)
	latest := created.RefreshToken()
	session := trust.RehydrateActiveSession(created.ID(), userID, latest)

	// the winner's rotation lands between our read and our write
	winnersToken := f.minter.MintRefreshToken(userID, created.ID(), nil)
	postRace := trust.RehydrateActiveSession(created.ID(), userID, winnersToken)

	f.store.On("GetActiveSessionTx", mock.Anything, mock.Anything, created.ID()).Return(&session, nil).Once()
	f.store.On("SaveRefreshedSessionTx", mock.Anything, mock.Anything, mock.Anything).Return(trust.ErrRefreshTokenConsumed)
	f.store.On("GetActiveSessionTx", mock.Anything, mock.Anything, created.ID()).Return(&postRace, nil).Once()
	f.store.On("SaveEndedSessionTx", mock.Anything, mock.Anything, mock.MatchedBy(func(s trust.EndedSession) bool {
		return s.Reason() == trust.EndReasonRefreshTokenReuse &&
			s.CausedBy() != nil && *s.CausedBy() == latest.ID
	})).Return(nil)

	_, err := f.auther.Refresh(ctx, f.sealedRefresh(t, latest))
	assert.True(t, trust.IsUnauthorized(err))
	f.store.AssertExpectations(t)
}

func TestRefreshReplayTerminationIsPersisted(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	auther, err := trust.NewAuthenticator(store, newTestConfig())
	require.NoError(t, err)

	_, err = store.SaveNewUser(ctx, &trust.User{
		Username: "ada",
		Email:    "ada@example.com",
	}, "open sesame", nil)
	require.NoError(t, err)

	creds, err := auther.Login(ctx, "ada", "open sesame")
	require.NoError(t, err)

	user, err := auther.AuthenticatedUserFromToken(creds.AccessToken)
	require.NoError(t, err)

	// rotate once, then replay the consumed token
	_, err = auther.Refresh(ctx, creds.RefreshToken)
	require.NoError(t, err)

	_, err = auther.Refresh(ctx, creds.RefreshToken)
	assert.True(t, trust.IsUnauthorized(err))

	// the termination committed: the session cannot be rehydrated and the
	// row records the reuse and the token that triggered it
	_, err = store.GetActiveSessionTx(ctx, db, user.SessionID)
	assert.True(t, errors.Is(err, trust.ErrSessionNotActive))

	row := new(trust.UserSessionRow)
	require.NoError(t, db.NewSelect().Model(row).Where("?TableAlias.id = ?", user.SessionID.String()).Scan(ctx))
	assert.True(t, row.Ended())
	require.NotNil(t, row.EndingReason)
	assert.Equal(t, string(trust.EndReasonRefreshTokenReuse), *row.EndingReason)
	require.NotNil(t, row.EndingTokenID)
	assert.Equal(t, user.RefreshTokenID.String(), row.EndingTokenID.String())
}

func TestRefreshOnEndedSession(t *testing.T) {
	f := newAuthFixture(t)

	created := trust.NewSession(f.minter, trust.NewUserID())
	f.store.On("GetActiveSessionTx", mock.Anything, mock.Anything, created.ID()).
		Return(nil, trust.ErrSessionNotActive)

	_, err := f.auther.Refresh(context.Background(), f.sealedRefresh(t, created.RefreshToken()))
	assert.True(t, errors.Is(err, trust.ErrSessionNotActive))
}

func TestLogoutEndsSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	created := trust.NewSession(f.minter, trust.NewUserID())
	session := trust.RehydrateActiveSession(created.ID(), created.UserID(), created.RefreshToken())

	f.store.On("GetActiveSessionTx", mock.Anything, mock.Anything, created.ID()).Return(&session, nil)
	f.store.On("SaveEndedSessionTx", mock.Anything, mock.Anything, mock.MatchedBy(func(s trust.EndedSession) bool {
		return s.Reason() == trust.EndReasonUserLogout && s.ID() == created.ID()
	})).Return(nil)

	err := f.auther.Logout(ctx, trust.AuthenticatedUser{
		UserID:    created.UserID(),
		SessionID: created.ID(),
	})
	require.NoError(t, err)
	f.store.AssertExpectations(t)
}

func TestAuthenticatedUserFromToken(t *testing.T) {
	f := newAuthFixture(t)

	userID := trust.NewUserID()
	sessionID := trust.NewSessionID()
	refreshID := trust.NewTokenID()

	token := f.minter.MintAccessToken(userID, sessionID, refreshID)
	sealed, err := trust.EncryptToken(f.cipher, token)
	require.NoError(t, err)

	user, err := f.auther.AuthenticatedUserFromToken(sealed.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, user.UserID)
	assert.Equal(t, sessionID, user.SessionID)
	assert.Equal(t, token.ID, user.AccessTokenID)
	assert.Equal(t, refreshID, user.RefreshTokenID)
}

func TestAuthenticatedUserFromExpiredToken(t *testing.T) {
	cfg := newTestConfig()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store := &MockStore{}
	auther, err := trust.NewAuthenticator(store, cfg)
	require.NoError(t, err)
	auther.WithClock(fixedClock(start.Add(10 * time.Minute)))

	cipher, err := trust.NewTokenCipher(cfg.GetEncryptionKey())
	require.NoError(t, err)
	minter := trust.NewTokenMinter(cfg, trust.WithMinterClock(fixedClock(start)))

	sealed, err := trust.EncryptToken(cipher, minter.MintAccessToken(trust.NewUserID(), trust.NewSessionID(), trust.NewTokenID()))
	require.NoError(t, err)

	_, err = auther.AuthenticatedUserFromToken(sealed.Token)
	assert.True(t, errors.Is(err, trust.ErrTokenExpired))
	assert.True(t, trust.IsUnauthorized(err))
}

func TestAuthenticatedUserFromNotYetActiveToken(t *testing.T) {
	cfg := newTestConfig()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store := &MockStore{}
	auther, err := trust.NewAuthenticator(store, cfg)
	require.NoError(t, err)
	auther.WithClock(fixedClock(start.Add(-time.Minute)))

	cipher, err := trust.NewTokenCipher(cfg.GetEncryptionKey())
	require.NoError(t, err)
	minter := trust.NewTokenMinter(cfg, trust.WithMinterClock(fixedClock(start)))

	sealed, err := trust.EncryptToken(cipher, minter.MintAccessToken(trust.NewUserID(), trust.NewSessionID(), trust.NewTokenID()))
	require.NoError(t, err)

	_, err = auther.AuthenticatedUserFromToken(sealed.Token)
	assert.True(t, errors.Is(err, trust.ErrTokenNotYetActive))
}
