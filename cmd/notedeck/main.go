package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/amirk1998/notedeck/internal/activity"
	"github.com/amirk1998/notedeck/internal/api"
	"github.com/amirk1998/notedeck/internal/api/apitest"
	"github.com/amirk1998/notedeck/internal/auth"
	"github.com/amirk1998/notedeck/internal/backup"
	"github.com/amirk1998/notedeck/internal/config"
	"github.com/amirk1998/notedeck/internal/notes"
	"github.com/amirk1998/notedeck/internal/notify"
	"github.com/amirk1998/notedeck/internal/prefs"
	"github.com/amirk1998/notedeck/internal/ratelimit"
	"github.com/amirk1998/notedeck/internal/security"
	"github.com/amirk1998/notedeck/internal/storage"
)

type app struct {
	cfg       *config.Config
	store     storage.Store
	sqlite    *storage.SQLiteStore
	activity  *activity.Logger
	notifier  *notify.Queue
	creds     *auth.CredentialStore
	sessions  *auth.Manager
	notes     *notes.Store
	selectors *notes.Selectors
	prefs     *prefs.Manager
	backups   *backup.Manager
	demoStop  func()
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "notedeck",
		Short:         "Client for the notedeck notes API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.flushNotifications()
			a.close()
		},
	}

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.sessionsCmd(),
		a.notesCmd(),
		a.statsCmd(),
		a.tagsCmd(),
		a.backupCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup wires every component from configuration
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	if err := a.openStorage(); err != nil {
		return err
	}

	activityLog, err := activity.NewLogger(cfg.ActivityLogPath, cfg.ActivityAsyncMode)
	if err != nil {
		return fmt.Errorf("failed to initialize activity log: %w", err)
	}
	a.activity = activityLog

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL, err = a.startDemoServer()
		if err != nil {
			return err
		}
		log.Printf("no NOTEDECK_API_URL configured, using in-process demo server at %s", baseURL)
	}

	a.notifier = notify.NewQueue()
	a.creds = auth.NewCredentialStore(a.store)

	apiClient := api.NewClient(baseURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithRateLimiter(ratelimit.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)),
		api.WithTokenProvider(a.creds.TokenProvider()),
		api.WithUnauthorizedHook(func() {
			// A 401 means the stored credentials are no longer valid
			a.creds.ClearAuthData()
		}),
	)

	a.sessions = auth.NewManager(a.store, a.creds, apiClient, auth.WithActivityLog(activityLog))
	if err := a.sessions.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	a.notes = notes.NewStore(apiClient, a.notifier)
	a.selectors = notes.NewSelectors(a.notes)
	a.prefs = prefs.NewManager(a.store)

	a.applyPreferences()
	return nil
}

// openStorage opens the encrypted local store, or falls back to an
// in-memory store when no key is configured.
func (a *app) openStorage() error {
	if a.cfg.StorageEncryptionKey == "" {
		log.Printf("no NOTEDECK_STORAGE_KEY configured, state will not persist")
		a.store = storage.NewMemoryStore()
		return nil
	}

	saltPath := filepath.Join(filepath.Dir(a.cfg.StoragePath), "notedeck.salt")
	keys, err := security.NewKeyManager(a.cfg.StorageEncryptionKey, a.cfg.BackupEncryptionKey, saltPath)
	if err != nil {
		return fmt.Errorf("failed to derive storage keys: %w", err)
	}

	sqlite, err := storage.OpenSQLite(a.cfg.StoragePath, keys.StorageKey())
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	a.sqlite = sqlite
	a.store = sqlite

	backups, err := backup.NewManager(sqlite, a.cfg.BackupDir, keys.BackupKey(), a.cfg.BackupRetentionDays)
	if err != nil {
		return fmt.Errorf("failed to initialize backup manager: %w", err)
	}
	a.backups = backups
	return nil
}

// startDemoServer serves the fake API on a loopback port
func (a *app) startDemoServer() (string, error) {
	fake := apitest.New()
	fake.SeedUser("demo@example.com", "password123", "Demo", "User")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to start demo server: %w", err)
	}

	server := &http.Server{Handler: fake.Router()}
	go server.Serve(listener)
	a.demoStop = func() { server.Close() }

	return "http://" + listener.Addr().String(), nil
}

func (a *app) applyPreferences() {
	p := a.prefs.Load()
	a.notes.SetSortBy(p.SortBy)
	a.notes.SetViewMode(p.ViewMode)
	a.notes.SetFilters(p.Filters)
	a.notes.SetShowArchived(p.ShowArchived)
}

// flushNotifications prints queued messages the way a UI toast layer
// would render them
func (a *app) flushNotifications() {
	if a.notifier == nil {
		return
	}
	for _, n := range a.notifier.Pending() {
		suffix := ""
		if n.Action != nil {
			suffix = fmt.Sprintf(" [%s]", n.Action.Label)
		}
		fmt.Printf("[%s] %s%s\n", n.Kind, n.Message, suffix)
	}
}

func (a *app) close() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.activity != nil {
		a.activity.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.demoStop != nil {
		a.demoStop()
	}
}
