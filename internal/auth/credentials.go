package auth

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amirk1998/notedeck/internal/models"
	"github.com/amirk1998/notedeck/internal/storage"
	"github.com/amirk1998/notedeck/pkg/errors"
)

// Storage keys for persisted auth state
const (
	keyToken          = "auth.token"
	keyUser           = "auth.user"
	keyRememberMe     = "auth.remember_me"
	keyCurrentSession = "auth.session"
	keySessionHistory = "auth.session_history"
	keyFingerprint    = "device.fingerprint"
)

// tokenExpiryBuffer makes GetToken treat near-expired tokens as
// expired so the app re-authenticates before the server rejects it.
const tokenExpiryBuffer = 5 * time.Minute

// tokenRecord is the stored token format. Legacy installs stored the
// bare token string; those are read as never-expiring.
type tokenRecord struct {
	Token     string `json:"token"`
	IssuedAt  int64  `json:"issuedAt"`            // unix ms
	ExpiresAt int64  `json:"expiresAt,omitempty"` // unix ms, 0 = no expiry
}

// CredentialStore persists the token and user record with expiration
// metadata. It never makes network calls.
type CredentialStore struct {
	store storage.Store
	now   func() time.Time
}

func NewCredentialStore(store storage.Store) *CredentialStore {
	return &CredentialStore{store: store, now: time.Now}
}

// SetToken stores the token with a computed absolute expiry. With no
// explicit lifetime the JWT exp claim is used when parseable.
func (cs *CredentialStore) SetToken(token string, expiresIn time.Duration) error {
	rec := cs.buildTokenRecord(token, expiresIn)
	return storage.SetJSON(cs.store, keyToken, rec)
}

func (cs *CredentialStore) buildTokenRecord(token string, expiresIn time.Duration) tokenRecord {
	now := cs.now()
	rec := tokenRecord{Token: token, IssuedAt: now.UnixMilli()}
	if expiresIn > 0 {
		rec.ExpiresAt = now.Add(expiresIn).UnixMilli()
	} else if exp, ok := expiryFromJWT(token); ok {
		rec.ExpiresAt = exp.UnixMilli()
	}
	return rec
}

// expiryFromJWT extracts the exp claim without verifying the
// signature; the client only needs the timestamp, not trust.
func expiryFromJWT(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// GetToken returns the stored token, or "" if none exists or it is
// within the expiry buffer. A near-expired token clears stored auth
// state so the caller re-authenticates.
func (cs *CredentialStore) GetToken() (string, error) {
	raw, ok, err := cs.store.Get(keyToken)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	rec, legacy := decodeTokenRecord(raw)
	if legacy {
		// Legacy plain-string token, treated as never-expiring
		return rec.Token, nil
	}

	if rec.ExpiresAt > 0 && cs.now().UnixMilli() >= rec.ExpiresAt-tokenExpiryBuffer.Milliseconds() {
		if err := cs.ClearAuthData(); err != nil {
			return "", err
		}
		return "", nil
	}

	return rec.Token, nil
}

func decodeTokenRecord(raw []byte) (tokenRecord, bool) {
	var rec tokenRecord
	if err := json.Unmarshal(raw, &rec); err == nil && rec.Token != "" {
		return rec, false
	}
	return tokenRecord{Token: string(raw)}, true
}

// IsTokenExpired is the strict no-buffer check, used for diagnostics
// and cleanup. Tokens without an expiry never report expired.
func (cs *CredentialStore) IsTokenExpired() bool {
	raw, ok, err := cs.store.Get(keyToken)
	if err != nil || !ok {
		return false
	}
	rec, legacy := decodeTokenRecord(raw)
	if legacy || rec.ExpiresAt == 0 {
		return false
	}
	return cs.now().UnixMilli() >= rec.ExpiresAt
}

// SetUser stores the user record
func (cs *CredentialStore) SetUser(user *models.User) error {
	return storage.SetJSON(cs.store, keyUser, user)
}

// GetUser reads the user record. Corrupted stored JSON is treated as
// "no user" and the bad key is cleared.
func (cs *CredentialStore) GetUser() (*models.User, error) {
	var user models.User
	ok, err := storage.GetJSON(cs.store, keyUser, &user)
	if err != nil {
		if stderrors.Is(err, errors.ErrStorageCorrupted) {
			cs.store.Delete(keyUser)
			return nil, nil
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// SetRememberMe persists the auto-login preference
func (cs *CredentialStore) SetRememberMe(remember bool) error {
	return storage.SetJSON(cs.store, keyRememberMe, remember)
}

// RememberMe reports the persisted auto-login preference
func (cs *CredentialStore) RememberMe() bool {
	var remember bool
	ok, err := storage.GetJSON(cs.store, keyRememberMe, &remember)
	if err != nil || !ok {
		return false
	}
	return remember
}

// StoreLogin writes token, user, and remember-me in one atomic batch
// so a failure can never leave a token without its user.
func (cs *CredentialStore) StoreLogin(token string, expiresIn time.Duration, user *models.User, remember bool) error {
	rec := cs.buildTokenRecord(token, expiresIn)

	tokenData, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	userData, err := json.Marshal(user)
	if err != nil {
		return err
	}
	rememberData, err := json.Marshal(remember)
	if err != nil {
		return err
	}

	return cs.store.SetMany(map[string][]byte{
		keyToken:      tokenData,
		keyUser:       userData,
		keyRememberMe: rememberData,
	})
}

// ClearAuthData removes token, user, and current-session keys. Every
// removal is attempted even if an earlier one fails.
func (cs *CredentialStore) ClearAuthData() error {
	var errs []error
	for _, key := range []string{keyToken, keyUser, keyCurrentSession} {
		if err := cs.store.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// ValidationReport is the outcome of a non-mutating consistency check
// over stored credentials.
type ValidationReport struct {
	IsValid bool
	Issues  []string
}

// ValidateStoredData detects token/user mismatch and expired-token
// conditions without touching storage.
func (cs *CredentialStore) ValidateStoredData() ValidationReport {
	report := ValidationReport{IsValid: true}

	_, hasToken, _ := cs.store.Get(keyToken)
	_, hasUser, _ := cs.store.Get(keyUser)

	if hasToken && !hasUser {
		report.IsValid = false
		report.Issues = append(report.Issues, "token exists without user data")
	}
	if hasUser && !hasToken {
		report.IsValid = false
		report.Issues = append(report.Issues, "user data exists without token")
	}
	if cs.IsTokenExpired() {
		report.IsValid = false
		report.Issues = append(report.Issues, "token is expired")
	}

	return report
}

// TokenProvider adapts the store to the API client's token hook
func (cs *CredentialStore) TokenProvider() func() string {
	return func() string {
		token, _ := cs.GetToken()
		return token
	}
}
