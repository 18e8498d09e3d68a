package notes

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirk1998/notedeck/internal/models"
)

// Derived views are pure computations over the raw collection. They
// never mutate Note entities.

// ActiveNotes partitions the collection by archived state
func ActiveNotes(notes []*models.Note, showArchived bool) []*models.Note {
	out := make([]*models.Note, 0, len(notes))
	for _, n := range notes {
		if n.Archived == showArchived {
			out = append(out, n)
		}
	}
	return out
}

// FilterNotes applies the conjunctive filter set: case-insensitive
// substring search over title, content, and tags; exact category,
// priority, and tag membership unless set to "All".
func FilterNotes(notes []*models.Note, f models.Filters) []*models.Note {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]*models.Note, 0, len(notes))
	for _, n := range notes {
		if search != "" && !matchesSearch(n, search) {
			continue
		}
		if f.Category != "" && f.Category != models.FilterAll && n.Category != f.Category {
			continue
		}
		if f.Priority != "" && f.Priority != models.FilterAll && string(n.Priority) != f.Priority {
			continue
		}
		if f.Tag != "" && f.Tag != models.FilterAll && !hasTag(n, f.Tag) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func matchesSearch(n *models.Note, search string) bool {
	if strings.Contains(strings.ToLower(n.Title), search) {
		return true
	}
	if strings.Contains(strings.ToLower(n.Content), search) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func hasTag(n *models.Note, tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SortNotes returns a stably sorted copy. The default createdAt order
// puts pinned notes before unpinned ones regardless of creation time.
func SortNotes(notes []*models.Note, sortBy models.SortKey) []*models.Note {
	out := make([]*models.Note, len(notes))
	copy(out, notes)

	switch sortBy {
	case models.SortByTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Title < out[j].Title
		})
	case models.SortByPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority.Weight() > out[j].Priority.Weight()
		})
	case models.SortByUpdatedAt:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		})
	case models.SortByCategory:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Category < out[j].Category
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Pinned != out[j].Pinned {
				return out[i].Pinned
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// Stats aggregates collection counts for the dashboard.
type Stats struct {
	Total            int
	Active           int
	Archived         int
	Pinned           int
	ByCategory       map[string]int
	ByPriority       map[models.Priority]int
	CreatedLast7Days int
	UpdatedLast7Days int
}

// ComputeStats counts the collection. A note whose update timestamp
// equals its creation timestamp does not count as recently updated.
func ComputeStats(notes []*models.Note, now time.Time) Stats {
	stats := Stats{
		ByCategory: make(map[string]int),
		ByPriority: map[models.Priority]int{
			models.PriorityHigh:   0,
			models.PriorityMedium: 0,
			models.PriorityLow:    0,
		},
	}
	weekAgo := now.Add(-7 * 24 * time.Hour)

	for _, n := range notes {
		stats.Total++
		if n.Archived {
			stats.Archived++
		} else {
			stats.Active++
		}
		if n.Pinned {
			stats.Pinned++
		}
		stats.ByCategory[n.Category]++

		switch n.Priority {
		case models.PriorityHigh, models.PriorityLow:
			stats.ByPriority[n.Priority]++
		default:
			stats.ByPriority[models.PriorityMedium]++
		}

		if n.CreatedAt.After(weekAgo) {
			stats.CreatedLast7Days++
		}
		if n.UpdatedAt.After(weekAgo) && !n.UpdatedAt.Equal(n.CreatedAt) {
			stats.UpdatedLast7Days++
		}
	}
	return stats
}

// AllTags returns the deduplicated, alphabetically sorted union of
// every note's tags.
func AllTags(notes []*models.Note) []string {
	seen := make(map[string]struct{})
	for _, n := range notes {
		for _, tag := range n.Tags {
			seen[tag] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// viewInputs is the memoization key: collection version plus every
// view setting the derived list depends on.
type viewInputs struct {
	version      uint64
	filters      models.Filters
	sortBy       models.SortKey
	showArchived bool
}

// Selectors memoizes the derived views of a Store. Results are
// recomputed only when the collection or a view input changes;
// unrelated state changes return the cached slice.
type Selectors struct {
	store *Store

	mu          sync.Mutex
	lastInputs  viewInputs
	visible     []*models.Note
	haveVisible bool

	tagsVersion uint64
	tags        []string
	haveTags    bool

	statsVersion uint64
	stats        Stats
	haveStats    bool
}

func NewSelectors(store *Store) *Selectors {
	return &Selectors{store: store}
}

// Visible returns the filtered, sorted view of the current partition
func (sel *Selectors) Visible() []*models.Note {
	version, notes, filters, sortBy, showArchived := sel.store.viewState()
	inputs := viewInputs{version: version, filters: filters, sortBy: sortBy, showArchived: showArchived}

	sel.mu.Lock()
	defer sel.mu.Unlock()

	if sel.haveVisible && inputs == sel.lastInputs {
		return sel.visible
	}

	visible := SortNotes(FilterNotes(ActiveNotes(notes, showArchived), filters), sortBy)
	sel.lastInputs = inputs
	sel.visible = visible
	sel.haveVisible = true
	return visible
}

// Tags returns the memoized tag index
func (sel *Selectors) Tags() []string {
	version, notes, _, _, _ := sel.store.viewState()

	sel.mu.Lock()
	defer sel.mu.Unlock()

	if sel.haveTags && version == sel.tagsVersion {
		return sel.tags
	}

	sel.tags = AllTags(notes)
	sel.tagsVersion = version
	sel.haveTags = true
	return sel.tags
}

// Stats returns the memoized collection statistics
func (sel *Selectors) Stats() Stats {
	version, notes, _, _, _ := sel.store.viewState()

	sel.mu.Lock()
	defer sel.mu.Unlock()

	if sel.haveStats && version == sel.statsVersion {
		return sel.stats
	}

	sel.stats = ComputeStats(notes, time.Now())
	sel.statsVersion = version
	sel.haveStats = true
	return sel.stats
}
