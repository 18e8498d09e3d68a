package models

import (
	"time"
)

// Priority levels for notes. Unknown values are treated as medium
// when sorting and counting.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight returns the sort weight of the priority (high > medium > low).
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// DefaultCategory is assigned when a note is created without one.
const DefaultCategory = "Others"

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Priority  Priority  `json:"priority"`
	Mood      string    `json:"mood,omitempty"`
	Tags      []string  `json:"tags"`
	Color     string    `json:"color,omitempty"`
	Pinned    bool      `json:"pinned"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the note. Mutation snapshots depend on
// the copy not sharing the tags slice with the original.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Tags != nil {
		cp.Tags = make([]string, len(n.Tags))
		copy(cp.Tags, n.Tags)
	}
	return &cp
}

type CreateNoteRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Mood     string   `json:"mood,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Color    string   `json:"color,omitempty"`
}

type UpdateNoteRequest struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Category *string   `json:"category,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	Mood     *string   `json:"mood,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Color    *string   `json:"color,omitempty"`
}

// SortKey selects the ordering of the visible note list.
type SortKey string

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByTitle     SortKey = "title"
	SortByPriority  SortKey = "priority"
	SortByUpdatedAt SortKey = "updatedAt"
	SortByCategory  SortKey = "category"
)

// ViewMode is how the UI lays out the visible notes. It never affects
// the collection itself.
type ViewMode string

const (
	ViewModeGrid ViewMode = "grid"
	ViewModeList ViewMode = "list"
)

// FilterAll is the sentinel meaning "no filtering on this field".
const FilterAll = "All"

// Filters holds the active view criteria. Each field is either a
// concrete value or FilterAll.
type Filters struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Tag      string `json:"tag"`
}

// DefaultFilters returns filters that match every note.
func DefaultFilters() Filters {
	return Filters{Category: FilterAll, Priority: FilterAll, Tag: FilterAll}
}
