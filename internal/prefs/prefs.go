// Package prefs persists app preferences, the recent-search list, and
// the note draft autosave.
package prefs

import (
	"strings"
	"time"

	"github.com/amirk1998/notedeck/internal/models"
	"github.com/amirk1998/notedeck/internal/storage"
)

const (
	keyPreferences    = "prefs.app"
	keyRecentSearches = "prefs.recent_searches"
	keyDraft          = "draft.note"

	maxRecentSearches = 10
	draftTTL          = 24 * time.Hour
)

// Preferences is the persisted view configuration.
type Preferences struct {
	SortBy       models.SortKey  `json:"sortBy"`
	ViewMode     models.ViewMode `json:"viewMode"`
	Filters      models.Filters  `json:"filters"`
	ShowArchived bool            `json:"showArchived"`
}

// DefaultPreferences returns the out-of-the-box view configuration
func DefaultPreferences() Preferences {
	return Preferences{
		SortBy:   models.SortByCreatedAt,
		ViewMode: models.ViewModeGrid,
		Filters:  models.DefaultFilters(),
	}
}

// Draft is the autosaved note form state. It expires after 24 hours.
type Draft struct {
	NoteID   string          `json:"noteId,omitempty"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Category string          `json:"category,omitempty"`
	Priority models.Priority `json:"priority,omitempty"`
	Mood     string          `json:"mood,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Color    string          `json:"color,omitempty"`
	SavedAt  time.Time       `json:"savedAt"`
}

type Manager struct {
	store storage.Store
	now   func() time.Time
}

func NewManager(store storage.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Save persists the preferences
func (m *Manager) Save(p Preferences) error {
	return storage.SetJSON(m.store, keyPreferences, p)
}

// Load reads preferences, falling back to defaults when absent or
// unreadable.
func (m *Manager) Load() Preferences {
	var p Preferences
	ok, err := storage.GetJSON(m.store, keyPreferences, &p)
	if err != nil || !ok {
		return DefaultPreferences()
	}
	return p
}

// AddRecentSearch records a search term, newest first, deduplicated,
// capped at 10 entries.
func (m *Manager) AddRecentSearch(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	recent := m.RecentSearches()
	out := make([]string, 0, len(recent)+1)
	out = append(out, query)
	for _, q := range recent {
		if q != query {
			out = append(out, q)
		}
	}
	if len(out) > maxRecentSearches {
		out = out[:maxRecentSearches]
	}
	return storage.SetJSON(m.store, keyRecentSearches, out)
}

// RecentSearches returns the recorded search terms, newest first
func (m *Manager) RecentSearches() []string {
	var recent []string
	if _, err := storage.GetJSON(m.store, keyRecentSearches, &recent); err != nil {
		return nil
	}
	return recent
}

// SaveDraft autosaves the note form state
func (m *Manager) SaveDraft(d Draft) error {
	d.SavedAt = m.now()
	return storage.SetJSON(m.store, keyDraft, d)
}

// LoadDraft returns the saved draft, or nil when none exists or it has
// expired. An expired draft is removed.
func (m *Manager) LoadDraft() (*Draft, error) {
	var d Draft
	ok, err := storage.GetJSON(m.store, keyDraft, &d)
	if err != nil || !ok {
		return nil, err
	}

	if m.now().Sub(d.SavedAt) > draftTTL {
		m.store.Delete(keyDraft)
		return nil, nil
	}
	return &d, nil
}

// ClearDraft discards the saved draft
func (m *Manager) ClearDraft() error {
	return m.store.Delete(keyDraft)
}
