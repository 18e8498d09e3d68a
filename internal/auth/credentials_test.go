package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amirk1998/notedeck/internal/models"
	"github.com/amirk1998/notedeck/internal/storage"
)

func newTestCredStore(t *testing.T) (*CredentialStore, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewCredentialStore(store), store
}

func TestTokenRoundTrip(t *testing.T) {
	cs, _ := newTestCredStore(t)

	if err := cs.SetToken("tok-abc", time.Hour); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	token, err := cs.GetToken()
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token != "tok-abc" {
		t.Errorf("token = %q, want tok-abc", token)
	}
}

func TestGetTokenExpiryBuffer(t *testing.T) {
	cs, store := newTestCredStore(t)

	issued := time.Now()
	cs.now = func() time.Time { return issued }
	if err := cs.SetToken("tok-abc", time.Hour); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	// Inside the lifetime but within the 5-minute buffer: treated as
	// expired and cleared.
	cs.now = func() time.Time { return issued.Add(time.Hour - 2*time.Minute) }
	token, err := cs.GetToken()
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token != "" {
		t.Errorf("near-expired token returned: %q", token)
	}
	if _, ok, _ := store.Get("auth.token"); ok {
		t.Error("near-expired token not cleared from storage")
	}
}

func TestGetTokenOutsideBuffer(t *testing.T) {
	cs, _ := newTestCredStore(t)

	issued := time.Now()
	cs.now = func() time.Time { return issued }
	cs.SetToken("tok-abc", time.Hour)

	cs.now = func() time.Time { return issued.Add(time.Hour - 10*time.Minute) }
	token, _ := cs.GetToken()
	if token != "tok-abc" {
		t.Errorf("token with 10 minutes left should be usable, got %q", token)
	}
}

func TestLegacyPlainStringToken(t *testing.T) {
	cs, store := newTestCredStore(t)

	// Old installs stored the raw token string, not a JSON record
	store.Set("auth.token", []byte("legacy-raw-token"))

	token, err := cs.GetToken()
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token != "legacy-raw-token" {
		t.Errorf("token = %q, want legacy-raw-token", token)
	}
	if cs.IsTokenExpired() {
		t.Error("legacy token should never report expired")
	}
}

func TestIsTokenExpiredStrict(t *testing.T) {
	cs, _ := newTestCredStore(t)

	if cs.IsTokenExpired() {
		t.Error("absent token should not report expired")
	}

	issued := time.Now()
	cs.now = func() time.Time { return issued }
	cs.SetToken("tok-abc", time.Hour)

	// Within the buffer but before the deadline: strict check says valid
	cs.now = func() time.Time { return issued.Add(time.Hour - time.Minute) }
	if cs.IsTokenExpired() {
		t.Error("token before its deadline reported expired")
	}

	cs.now = func() time.Time { return issued.Add(time.Hour + time.Second) }
	if !cs.IsTokenExpired() {
		t.Error("token past its deadline not reported expired")
	}
}

func TestSetTokenFallsBackToJWTExpClaim(t *testing.T) {
	cs, _ := newTestCredStore(t)

	issued := time.Now()
	cs.now = func() time.Time { return issued }

	exp := issued.Add(30 * time.Minute)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	// No explicit lifetime: the exp claim supplies one
	if err := cs.SetToken(signed, 0); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	cs.now = func() time.Time { return exp.Add(time.Second) }
	if !cs.IsTokenExpired() {
		t.Error("token past its exp claim not reported expired")
	}
}

func TestSetTokenWithoutExpiryNeverExpires(t *testing.T) {
	cs, _ := newTestCredStore(t)

	cs.SetToken("opaque-token", 0)

	cs.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	if cs.IsTokenExpired() {
		t.Error("token without expiry metadata reported expired")
	}
	if token, _ := cs.GetToken(); token != "opaque-token" {
		t.Errorf("token = %q, want opaque-token", token)
	}
}

func TestGetUserSelfRepairsCorruptedRecord(t *testing.T) {
	cs, store := newTestCredStore(t)

	store.Set("auth.user", []byte("{broken json"))

	user, err := cs.GetUser()
	if err != nil {
		t.Fatalf("GetUser should swallow corruption, got %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
	if _, ok, _ := store.Get("auth.user"); ok {
		t.Error("corrupted user record not removed")
	}
}

func TestStoreLoginWritesAtomically(t *testing.T) {
	cs, _ := newTestCredStore(t)

	user := &models.User{ID: "user-1", Email: "a@b.test"}
	if err := cs.StoreLogin("tok-abc", time.Hour, user, true); err != nil {
		t.Fatalf("StoreLogin: %v", err)
	}

	token, _ := cs.GetToken()
	if token != "tok-abc" {
		t.Errorf("token = %q", token)
	}
	got, err := cs.GetUser()
	if err != nil || got == nil || got.ID != "user-1" {
		t.Fatalf("user = %+v, err = %v", got, err)
	}
	if !cs.RememberMe() {
		t.Error("remember-me flag not stored")
	}

	if report := cs.ValidateStoredData(); !report.IsValid {
		t.Errorf("consistent login reported invalid: %v", report.Issues)
	}
}

func TestClearAuthDataKeepsRememberMe(t *testing.T) {
	cs, store := newTestCredStore(t)

	cs.StoreLogin("tok-abc", time.Hour, &models.User{ID: "user-1"}, true)
	if err := cs.ClearAuthData(); err != nil {
		t.Fatalf("ClearAuthData: %v", err)
	}

	if token, _ := cs.GetToken(); token != "" {
		t.Errorf("token survived clear: %q", token)
	}
	if user, _ := cs.GetUser(); user != nil {
		t.Errorf("user survived clear: %+v", user)
	}
	if _, ok, _ := store.Get("auth.session"); ok {
		t.Error("session key survived clear")
	}
	if !cs.RememberMe() {
		t.Error("remember-me preference should survive clear")
	}
}

func TestValidateStoredDataDetectsMismatch(t *testing.T) {
	cs, store := newTestCredStore(t)

	cs.SetToken("tok-abc", time.Hour)
	report := cs.ValidateStoredData()
	if report.IsValid {
		t.Error("token without user should be invalid")
	}

	store.Delete("auth.token")
	cs.SetUser(&models.User{ID: "user-1"})
	report = cs.ValidateStoredData()
	if report.IsValid {
		t.Error("user without token should be invalid")
	}
	if len(report.Issues) == 0 {
		t.Error("no issues reported for mismatch")
	}
}

func TestTokenProvider(t *testing.T) {
	cs, _ := newTestCredStore(t)

	provider := cs.TokenProvider()
	if got := provider(); got != "" {
		t.Errorf("provider with no token = %q", got)
	}

	cs.SetToken("tok-abc", time.Hour)
	if got := provider(); got != "tok-abc" {
		t.Errorf("provider = %q, want tok-abc", got)
	}
}
