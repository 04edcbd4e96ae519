package trust

import "time"

// SessionEndReason records why a session stopped being usable. It is stored
// with the ended session for auditing.
type SessionEndReason string

const (
	// EndReasonUserLogout marks a session the user ended deliberately.
	EndReasonUserLogout SessionEndReason = "user_logout"
	// EndReasonSignedInOnOtherDevice marks a session displaced by a newer
	// login for the same user.
	EndReasonSignedInOnOtherDevice SessionEndReason = "user_signed_in_on_other_device"
	// EndReasonLatestRefreshTokenExpired marks a session whose newest refresh
	// token expired before it was used.
	EndReasonLatestRefreshTokenExpired SessionEndReason = "latest_refresh_token_expired"
	// EndReasonRefreshTokenReuse marks a session ended because a refresh
	// token older than the newest one was presented. Reuse means the token
	// was either replayed by an attacker or leaked, so the whole session is
	// burned.
	EndReasonRefreshTokenReuse SessionEndReason = "attempted_to_reuse_refresh_token"
	// EndReasonUsedExpiredAccessToken marks a session ended after an expired
	// access token was presented where policy escalates that to termination.
	EndReasonUsedExpiredAccessToken SessionEndReason = "used_expired_access_token"
)

// sessionCore carries the identity shared by every session state.
type sessionCore struct {
	id     SessionID
	userID UserID
}

// NewlyCreatedSession is the state right after login: a fresh session with
// its first refresh token and a matching access token, not yet persisted.
type NewlyCreatedSession struct {
	sessionCore
	createdAt    time.Time
	refreshToken Token[RefreshTokenClaims]
	accessToken  Token[AccessTokenClaims]
}

// NewSession starts a session for the user and mints its first token pair.
// The first refresh token has no parent.
func NewSession(minter *TokenMinter, userID UserID) NewlyCreatedSession {
	id := NewSessionID()
	refresh := minter.MintRefreshToken(userID, id, nil)
	access := minter.MintAccessToken(userID, id, refresh.ID)

	return NewlyCreatedSession{
		sessionCore:  sessionCore{id: id, userID: userID},
		createdAt:    minter.Now(),
		refreshToken: refresh,
		accessToken:  access,
	}
}

func (s NewlyCreatedSession) ID() SessionID { return s.id }

func (s NewlyCreatedSession) UserID() UserID { return s.userID }

func (s NewlyCreatedSession) CreatedAt() time.Time { return s.createdAt }

func (s NewlyCreatedSession) RefreshToken() Token[RefreshTokenClaims] { return s.refreshToken }

func (s NewlyCreatedSession) AccessToken() Token[AccessTokenClaims] { return s.accessToken }

// ActiveSession is a persisted session whose newest refresh token has not been
// consumed. It is rehydrated from storage, never constructed directly.
type ActiveSession struct {
	sessionCore
	latestRefreshToken Token[RefreshTokenClaims]
}

// RehydrateActiveSession rebuilds an active session from persisted state.
// Storage is responsible for only rehydrating sessions that have not ended.
func RehydrateActiveSession(id SessionID, userID UserID, latest Token[RefreshTokenClaims]) ActiveSession {
	return ActiveSession{
		sessionCore:        sessionCore{id: id, userID: userID},
		latestRefreshToken: latest,
	}
}

func (s ActiveSession) ID() SessionID { return s.id }

func (s ActiveSession) UserID() UserID { return s.userID }

func (s ActiveSession) LatestRefreshToken() Token[RefreshTokenClaims] { return s.latestRefreshToken }

// Refresh rotates the session's tokens. Exactly one of the returned values is
// non-nil.
//
// Presenting any refresh token other than the newest one ends the session:
// an old token showing up again means it leaked or is being replayed, and
// once a session cannot tell its holders apart it is no longer trustworthy.
// A session whose newest refresh token already expired ends too.
func (s ActiveSession) Refresh(minter *TokenMinter, presented Token[RefreshTokenClaims]) (*RefreshedSession, *EndedSession) {
	now := minter.Now()

	if presented.ID != s.latestRefreshToken.ID {
		causedBy := presented.ID
		ended := s.end(EndReasonRefreshTokenReuse, now)
		ended.causedBy = &causedBy
		return nil, &ended
	}

	if s.latestRefreshToken.ExpiredAt(now) {
		ended := s.end(EndReasonLatestRefreshTokenExpired, now)
		return nil, &ended
	}

	consumedID := s.latestRefreshToken.ID
	refresh := minter.MintRefreshToken(s.userID, s.id, &consumedID)
	access := minter.MintAccessToken(s.userID, s.id, consumedID)

	return &RefreshedSession{
		sessionCore:  s.sessionCore,
		consumedID:   s.latestRefreshToken.ID,
		refreshToken: refresh,
		accessToken:  access,
	}, nil
}

// EndByUserLogout ends the session because the user asked to.
func (s ActiveSession) EndByUserLogout(now time.Time) EndedSession {
	return s.end(EndReasonUserLogout, now)
}

// EndForNewLogin ends the session because the same user logged in elsewhere.
func (s ActiveSession) EndForNewLogin(now time.Time) EndedSession {
	return s.end(EndReasonSignedInOnOtherDevice, now)
}

func (s ActiveSession) end(reason SessionEndReason, now time.Time) EndedSession {
	return EndedSession{
		sessionCore: s.sessionCore,
		reason:      reason,
		endedAt:     now,
	}
}

// RefreshedSession is the state after a successful rotation: the old refresh
// token is consumed and a new pair is ready to persist and hand out.
type RefreshedSession struct {
	sessionCore
	consumedID   TokenID
	refreshToken Token[RefreshTokenClaims]
	accessToken  Token[AccessTokenClaims]
}

func (s RefreshedSession) ID() SessionID { return s.id }

func (s RefreshedSession) UserID() UserID { return s.userID }

// ConsumedTokenID identifies the refresh token this rotation used up.
func (s RefreshedSession) ConsumedTokenID() TokenID { return s.consumedID }

func (s RefreshedSession) RefreshToken() Token[RefreshTokenClaims] { return s.refreshToken }

func (s RefreshedSession) AccessToken() Token[AccessTokenClaims] { return s.accessToken }

// EndedSession is terminal. No tokens can be minted from it and no transition
// leads out of it.
type EndedSession struct {
	sessionCore
	reason   SessionEndReason
	endedAt  time.Time
	causedBy *TokenID
}

func (s EndedSession) ID() SessionID { return s.id }

func (s EndedSession) UserID() UserID { return s.userID }

func (s EndedSession) Reason() SessionEndReason { return s.reason }

func (s EndedSession) EndedAt() time.Time { return s.endedAt }

// CausedBy identifies the token whose reuse ended the session, when the
// reason is reuse. Nil otherwise.
func (s EndedSession) CausedBy() *TokenID { return s.causedBy }
