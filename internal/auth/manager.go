package auth

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amirk1998/notedeck/internal/activity"
	"github.com/amirk1998/notedeck/internal/api"
	"github.com/amirk1998/notedeck/internal/models"
	"github.com/amirk1998/notedeck/internal/security"
	"github.com/amirk1998/notedeck/internal/storage"
	"github.com/amirk1998/notedeck/pkg/validator"
)

// State is the lifecycle phase of the session manager.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
	StateTerminated    State = "terminated"
)

const (
	maxSessionHistory = 10
	sessionRetention  = 30 * 24 * time.Hour
	cleanupInterval   = 1 * time.Hour
)

// Manager orchestrates login/register/logout/verify flows and the
// stored-credential lifecycle around them.
type Manager struct {
	store     storage.Store
	creds     *CredentialStore
	api       *api.Client
	validator *validator.Validator
	activity  *activity.Logger
	now       func() time.Time

	mu      sync.Mutex
	state   State
	user    *models.User
	current *models.Session

	cleanupCancel context.CancelFunc
}

type ManagerOption func(*Manager)

// WithActivityLog attaches the local activity log
func WithActivityLog(l *activity.Logger) ManagerOption {
	return func(m *Manager) {
		m.activity = l
	}
}

// NewManager creates a new session lifecycle manager
func NewManager(store storage.Store, creds *CredentialStore, apiClient *api.Client, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		creds:     creds,
		api:       apiClient,
		validator: validator.New(),
		now:       time.Now,
		state:     StateUninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize runs once at startup: migrates legacy-format credentials,
// ensures a device fingerprint, runs cleanup, and schedules the hourly
// cleanup pass. Safe to call before any other operation.
func (m *Manager) Initialize(ctx context.Context) error {
	m.setState(StateInitializing)

	if err := m.migrateLegacyToken(); err != nil {
		return err
	}

	if _, err := m.EnsureFingerprint(); err != nil {
		return err
	}

	if err := m.Cleanup(); err != nil {
		return err
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	m.cleanupCancel = cancel
	go m.runPeriodicCleanup(cleanupCtx)

	m.setState(StateAnonymous)
	return nil
}

// migrateLegacyToken rewrites a plain-string token into the current
// record format so expiry metadata can be attached going forward.
func (m *Manager) migrateLegacyToken() error {
	raw, ok, err := m.store.Get(keyToken)
	if err != nil || !ok {
		return err
	}
	if _, legacy := decodeTokenRecord(raw); legacy {
		return m.creds.SetToken(string(raw), 0)
	}
	return nil
}

// EnsureFingerprint returns the stored device fingerprint, generating
// one on first run.
func (m *Manager) EnsureFingerprint() (string, error) {
	raw, ok, err := m.store.Get(keyFingerprint)
	if err != nil {
		return "", err
	}
	if ok {
		return string(raw), nil
	}

	fp := security.GenerateFingerprint()
	if err := m.store.Set(keyFingerprint, []byte(fp)); err != nil {
		return "", err
	}
	return fp, nil
}

// ShouldAutoLogin is true only when remember-me is set and both a
// non-expired token and user data exist. A true result still requires
// server-side verification before the session is trusted.
func (m *Manager) ShouldAutoLogin() bool {
	if !m.creds.RememberMe() {
		return false
	}
	token, err := m.creds.GetToken()
	if err != nil || token == "" {
		return false
	}
	user, err := m.creds.GetUser()
	return err == nil && user != nil
}

// Login authenticates against the server and persists credentials. On
// failure nothing is written locally.
func (m *Manager) Login(ctx context.Context, req models.LoginRequest, remember bool) (*models.User, error) {
	if err := m.validator.ValidateLogin(req.Email, req.Password); err != nil {
		return nil, err
	}

	resp, err := m.api.Login(ctx, req)
	if err != nil {
		m.logEvent(activity.LevelWarning, "LOGIN", "", false, err.Error())
		return nil, err
	}

	if err := m.completeAuth(resp, remember, models.LoginManual); err != nil {
		return nil, err
	}

	m.logEvent(activity.LevelInfo, "LOGIN", resp.User.ID, true, "")
	return resp.User, nil
}

// Register creates an account. Field-level validation runs before the
// network call.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest, remember bool) (*models.User, error) {
	req.Email = m.validator.SanitizeString(req.Email)
	req.FirstName = m.validator.SanitizeString(req.FirstName)
	req.LastName = m.validator.SanitizeString(req.LastName)

	if err := m.validator.ValidateRegistration(req.Email, req.Password, req.ConfirmPassword, req.FirstName); err != nil {
		return nil, err
	}

	resp, err := m.api.Register(ctx, req)
	if err != nil {
		m.logEvent(activity.LevelWarning, "REGISTER", "", false, err.Error())
		return nil, err
	}

	if err := m.completeAuth(resp, remember, models.LoginManual); err != nil {
		return nil, err
	}

	m.logEvent(activity.LevelInfo, "REGISTER", resp.User.ID, true, "")
	return resp.User, nil
}

// completeAuth persists credentials atomically and opens a session
func (m *Manager) completeAuth(resp *models.AuthResponse, remember bool, method models.LoginMethod) error {
	expiresIn := time.Duration(resp.ExpiresIn) * time.Second
	if err := m.creds.StoreLogin(resp.AccessToken, expiresIn, resp.User, remember); err != nil {
		return err
	}

	if err := m.beginSession(resp.User.ID, method); err != nil {
		return err
	}

	m.mu.Lock()
	m.user = resp.User
	m.state = StateAuthenticated
	m.mu.Unlock()
	return nil
}

// Logout notifies the server best-effort, then always clears local
// credentials and ends the session.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.api.Logout(ctx); err != nil {
		// Server notification is best effort; local logout proceeds
		log.Printf("logout notification failed: %v", err)
		m.logEvent(activity.LevelWarning, "LOGOUT_NOTIFY", "", false, err.Error())
	}

	if err := m.endSession(); err != nil {
		return err
	}

	if err := m.creds.ClearAuthData(); err != nil {
		return err
	}

	m.mu.Lock()
	userID := ""
	if m.user != nil {
		userID = m.user.ID
	}
	m.user = nil
	m.state = StateAnonymous
	m.mu.Unlock()

	m.logEvent(activity.LevelInfo, "LOGOUT", userID, true, "")
	return nil
}

// VerifyToken re-validates the current token with the server. On
// failure all local auth state is cleared before the error propagates;
// a stale token is never left behind.
func (m *Manager) VerifyToken(ctx context.Context) (*models.User, error) {
	user, err := m.api.Verify(ctx)
	if err != nil {
		m.creds.ClearAuthData()
		m.mu.Lock()
		m.user = nil
		m.current = nil
		m.state = StateAnonymous
		m.mu.Unlock()
		m.logEvent(activity.LevelWarning, "VERIFY", "", false, err.Error())
		return nil, err
	}

	if err := m.creds.SetUser(user); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.user = user
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.logEvent(activity.LevelInfo, "VERIFY", user.ID, true, "")
	return user, nil
}

// RestoreAuthState attempts auto-login on startup. A stored token is
// only trusted after server verification; any failure falls back to
// the anonymous state. Returns the restored user, or nil.
func (m *Manager) RestoreAuthState(ctx context.Context) *models.User {
	if !m.ShouldAutoLogin() {
		m.setState(StateAnonymous)
		return nil
	}

	user, err := m.VerifyToken(ctx)
	if err != nil {
		log.Printf("auto-login verification failed: %v", err)
		return nil
	}

	if err := m.beginSession(user.ID, models.LoginAuto); err != nil {
		log.Printf("failed to open restored session: %v", err)
	}
	return user
}

// Cleanup is idempotent and safe to call repeatedly: clears expired
// credentials, prunes old session history, and touches the current
// session's activity timestamp.
func (m *Manager) Cleanup() error {
	if m.creds.IsTokenExpired() {
		if err := m.creds.ClearAuthData(); err != nil {
			return err
		}
	}

	history, err := m.loadHistory()
	if err != nil {
		return err
	}
	cutoff := m.now().Add(-sessionRetention)
	kept := history[:0]
	for _, s := range history {
		if s.CreatedAt.After(cutoff) {
			kept = append(kept, s)
		}
	}
	if len(kept) != len(history) {
		if err := m.saveHistory(kept); err != nil {
			return err
		}
	}

	m.mu.Lock()
	current := m.current
	if current != nil {
		current.LastActivityAt = m.now()
	}
	m.mu.Unlock()
	if current != nil {
		return storage.SetJSON(m.store, keyCurrentSession, current)
	}
	return nil
}

func (m *Manager) runPeriodicCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Cleanup(); err != nil {
				log.Printf("session cleanup failed: %v", err)
			}
		}
	}
}

func (m *Manager) beginSession(userID string, method models.LoginMethod) error {
	fp, err := m.EnsureFingerprint()
	if err != nil {
		return err
	}

	now := m.now()
	session := &models.Session{
		ID:                uuid.NewString(),
		UserID:            userID,
		CreatedAt:         now,
		LastActivityAt:    now,
		LoginMethod:       method,
		DeviceFingerprint: fp,
	}

	if err := storage.SetJSON(m.store, keyCurrentSession, session); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = session
	m.mu.Unlock()
	return nil
}

// endSession stamps the current session and moves it into the bounded
// history.
func (m *Manager) endSession() error {
	m.mu.Lock()
	session := m.current
	m.current = nil
	m.mu.Unlock()

	if session == nil {
		// Recover a session persisted by a previous run
		var stored models.Session
		ok, err := storage.GetJSON(m.store, keyCurrentSession, &stored)
		if err != nil || !ok {
			return nil
		}
		session = &stored
	}

	now := m.now()
	session.EndedAt = &now

	history, err := m.loadHistory()
	if err != nil {
		return err
	}
	history = append(history, session)
	if len(history) > maxSessionHistory {
		history = history[len(history)-maxSessionHistory:]
	}
	if err := m.saveHistory(history); err != nil {
		return err
	}

	return m.store.Delete(keyCurrentSession)
}

func (m *Manager) loadHistory() ([]*models.Session, error) {
	var history []*models.Session
	if _, err := storage.GetJSON(m.store, keySessionHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (m *Manager) saveHistory(history []*models.Session) error {
	return storage.SetJSON(m.store, keySessionHistory, history)
}

// SessionHistory returns the ended sessions, oldest first
func (m *Manager) SessionHistory() ([]*models.Session, error) {
	return m.loadHistory()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the authenticated user, or nil
func (m *Manager) CurrentUser() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// CurrentSession returns the active session, or nil
func (m *Manager) CurrentSession() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close stops the periodic cleanup and terminates the manager
func (m *Manager) Close() {
	if m.cleanupCancel != nil {
		m.cleanupCancel()
	}
	m.setState(StateTerminated)
}

func (m *Manager) logEvent(level activity.Level, action, userID string, success bool, errMsg string) {
	if m.activity == nil {
		return
	}
	m.activity.Log(&activity.Event{
		Level:    level,
		Action:   action,
		UserID:   userID,
		Success:  success,
		ErrorMsg: errMsg,
	})
}
