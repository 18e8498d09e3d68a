package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirk1998/notedeck/internal/api"
	"github.com/amirk1998/notedeck/internal/api/apitest"
	"github.com/amirk1998/notedeck/internal/models"
	"github.com/amirk1998/notedeck/internal/storage"
	"github.com/amirk1998/notedeck/pkg/errors"
)

type authFixture struct {
	fake    *apitest.Server
	store   *storage.MemoryStore
	creds   *CredentialStore
	manager *Manager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	fake := apitest.New()
	fake.SeedUser("alice@example.com", "password123", "Alice", "Smith")

	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)

	store := storage.NewMemoryStore()
	creds := NewCredentialStore(store)
	client := api.NewClient(srv.URL, api.WithTokenProvider(creds.TokenProvider()))

	return &authFixture{
		fake:    fake,
		store:   store,
		creds:   creds,
		manager: NewManager(store, creds, client),
	}
}

func (f *authFixture) login(t *testing.T, remember bool) *models.User {
	t.Helper()
	user, err := f.manager.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	}, remember)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return user
}

func TestLoginStoresCredentialsAndSession(t *testing.T) {
	f := newAuthFixture(t)

	user := f.login(t, true)
	if user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}

	token, err := f.creds.GetToken()
	if err != nil || token == "" {
		t.Fatalf("token not stored: %q, %v", token, err)
	}
	stored, err := f.creds.GetUser()
	if err != nil || stored == nil || stored.Email != "alice@example.com" {
		t.Fatalf("user not stored: %+v, %v", stored, err)
	}
	if !f.creds.RememberMe() {
		t.Error("remember-me not stored")
	}

	if got := f.manager.State(); got != StateAuthenticated {
		t.Errorf("state = %q, want authenticated", got)
	}
	session := f.manager.CurrentSession()
	if session == nil {
		t.Fatal("no session opened")
	}
	if session.LoginMethod != models.LoginManual {
		t.Errorf("login method = %q, want manual", session.LoginMethod)
	}
	if session.DeviceFingerprint == "" {
		t.Error("session has no device fingerprint")
	}
}

func TestLoginValidationRunsBeforeNetwork(t *testing.T) {
	f := newAuthFixture(t)
	// The server would answer 500; a validation failure must short-circuit
	f.fake.FailWith("login", http.StatusInternalServerError)

	_, err := f.manager.Login(context.Background(), models.LoginRequest{
		Email:    "not-an-email",
		Password: "password123",
	}, false)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errors.KindOf(err) != errors.KindValidation {
		t.Errorf("kind = %q, want validation", errors.KindOf(err))
	}
}

func TestFailedLoginWritesNothing(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.manager.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	}, true)
	if err == nil {
		t.Fatal("expected login failure")
	}

	if token, _ := f.creds.GetToken(); token != "" {
		t.Errorf("token stored after failed login: %q", token)
	}
	if user, _ := f.creds.GetUser(); user != nil {
		t.Errorf("user stored after failed login: %+v", user)
	}
	if f.manager.State() == StateAuthenticated {
		t.Error("state became authenticated after failed login")
	}
}

func TestRegisterValidatesFieldsFirst(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.manager.Register(context.Background(), models.RegisterRequest{
		Email:           "bob@example.com",
		Password:        "password123",
		ConfirmPassword: "different",
		FirstName:       "Bob",
	}, false)
	if err == nil {
		t.Fatal("expected password mismatch error")
	}
	if errors.KindOf(err) != errors.KindValidation {
		t.Errorf("kind = %q, want validation", errors.KindOf(err))
	}
}

func TestRegisterCreatesAccountAndAuthenticates(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.manager.Register(context.Background(), models.RegisterRequest{
		Email:           "bob@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		FirstName:       "Bob",
		LastName:        "Jones",
	}, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "bob@example.com" {
		t.Errorf("user = %+v", user)
	}
	if f.manager.State() != StateAuthenticated {
		t.Errorf("state = %q", f.manager.State())
	}
}

func TestLogoutClearsLocalStateDespiteServerFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t, true)

	f.fake.FailWith("logout", http.StatusInternalServerError)
	if err := f.manager.Logout(context.Background()); err != nil {
		t.Fatalf("Logout should succeed locally, got %v", err)
	}

	if token, _ := f.creds.GetToken(); token != "" {
		t.Errorf("token survived logout: %q", token)
	}
	if f.manager.State() != StateAnonymous {
		t.Errorf("state = %q, want anonymous", f.manager.State())
	}

	history, err := f.manager.SessionHistory()
	if err != nil {
		t.Fatalf("SessionHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d entries, want 1", len(history))
	}
	if history[0].EndedAt == nil {
		t.Error("ended session missing EndedAt")
	}
}

func TestVerifyFailureClearsStoredCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t, true)

	f.fake.FailWith("verify", http.StatusUnauthorized)
	if _, err := f.manager.VerifyToken(context.Background()); err == nil {
		t.Fatal("expected verify failure")
	}

	if token, _ := f.creds.GetToken(); token != "" {
		t.Errorf("stale token left behind: %q", token)
	}
	if f.manager.CurrentUser() != nil {
		t.Error("user retained after failed verify")
	}
	if f.manager.State() != StateAnonymous {
		t.Errorf("state = %q, want anonymous", f.manager.State())
	}
}

func TestShouldAutoLogin(t *testing.T) {
	f := newAuthFixture(t)

	if f.manager.ShouldAutoLogin() {
		t.Error("auto-login with empty storage")
	}

	f.login(t, false)
	if f.manager.ShouldAutoLogin() {
		t.Error("auto-login without remember-me")
	}

	f.manager.Logout(context.Background())
	f.login(t, true)
	if !f.manager.ShouldAutoLogin() {
		t.Error("auto-login should be available after remembered login")
	}

	f.creds.ClearAuthData()
	if f.manager.ShouldAutoLogin() {
		t.Error("auto-login after credentials cleared")
	}
}

func TestRestoreAuthStateVerifiesBeforeTrusting(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t, true)

	// Fresh manager simulating an app restart on the same storage
	restarted := NewManager(f.store, f.creds, f.manager.api)

	user := restarted.RestoreAuthState(context.Background())
	if user == nil || user.Email != "alice@example.com" {
		t.Fatalf("restored user = %+v", user)
	}
	if restarted.State() != StateAuthenticated {
		t.Errorf("state = %q", restarted.State())
	}
	session := restarted.CurrentSession()
	if session == nil || session.LoginMethod != models.LoginAuto {
		t.Errorf("restored session = %+v, want auto login method", session)
	}
}

func TestRestoreAuthStateFallsBackOnVerifyFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t, true)

	f.fake.FailWith("verify", http.StatusUnauthorized)
	restarted := NewManager(f.store, f.creds, f.manager.api)

	if user := restarted.RestoreAuthState(context.Background()); user != nil {
		t.Errorf("restored user = %+v, want nil", user)
	}
	if restarted.State() != StateAnonymous {
		t.Errorf("state = %q, want anonymous", restarted.State())
	}
	if token, _ := f.creds.GetToken(); token != "" {
		t.Error("unverified token left behind")
	}
}

func TestInitializeMigratesLegacyToken(t *testing.T) {
	f := newAuthFixture(t)

	f.store.Set("auth.token", []byte("legacy-raw-token"))

	if err := f.manager.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer f.manager.Close()

	raw, ok, _ := f.store.Get("auth.token")
	if !ok {
		t.Fatal("token removed during migration")
	}
	var rec struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("migrated token is not a record: %v", err)
	}
	if rec.Token != "legacy-raw-token" {
		t.Errorf("migrated token = %q", rec.Token)
	}

	if f.manager.State() != StateAnonymous {
		t.Errorf("state after initialize = %q, want anonymous", f.manager.State())
	}
}

func TestSessionHistoryIsBounded(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < maxSessionHistory+3; i++ {
		f.login(t, false)
		if err := f.manager.Logout(context.Background()); err != nil {
			t.Fatalf("Logout: %v", err)
		}
	}

	history, err := f.manager.SessionHistory()
	if err != nil {
		t.Fatalf("SessionHistory: %v", err)
	}
	if len(history) != maxSessionHistory {
		t.Errorf("history = %d entries, want %d", len(history), maxSessionHistory)
	}
}

func TestCleanupPrunesOldSessionsAndExpiredTokens(t *testing.T) {
	f := newAuthFixture(t)
	m := f.manager

	old := &models.Session{ID: "old", CreatedAt: time.Now().Add(-sessionRetention - time.Hour)}
	recent := &models.Session{ID: "recent", CreatedAt: time.Now().Add(-time.Hour)}
	if err := m.saveHistory([]*models.Session{old, recent}); err != nil {
		t.Fatalf("saveHistory: %v", err)
	}

	issued := time.Now()
	f.creds.now = func() time.Time { return issued }
	f.creds.SetToken("tok-abc", time.Minute)
	f.creds.now = func() time.Time { return issued.Add(time.Hour) }

	if err := m.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	history, _ := m.SessionHistory()
	if len(history) != 1 || history[0].ID != "recent" {
		t.Errorf("history after cleanup = %+v", history)
	}
	if token, _ := f.creds.GetToken(); token != "" {
		t.Errorf("expired token survived cleanup: %q", token)
	}
}

func TestEnsureFingerprintIsStable(t *testing.T) {
	f := newAuthFixture(t)

	first, err := f.manager.EnsureFingerprint()
	if err != nil || first == "" {
		t.Fatalf("EnsureFingerprint: %q, %v", first, err)
	}
	second, err := f.manager.EnsureFingerprint()
	if err != nil {
		t.Fatalf("EnsureFingerprint: %v", err)
	}
	if first != second {
		t.Errorf("fingerprint changed across calls: %q vs %q", first, second)
	}
}
