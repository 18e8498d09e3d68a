// Package notes holds the client-side note collection. Mutations are
// optimistic: the local change is visible immediately, then confirmed
// with server truth or rolled back to the captured snapshot when the
// call fails.
package notes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amirk1998/notedeck/internal/api"
	"github.com/amirk1998/notedeck/internal/models"
	"github.com/amirk1998/notedeck/internal/notify"
	"github.com/amirk1998/notedeck/pkg/errors"
	"github.com/amirk1998/notedeck/pkg/validator"
)

// Store owns the in-memory note collection and its view settings. All
// mutations go through its operations; direct field mutation from the
// UI is not supported. Entries are replaced by pointer swap, never
// mutated in place, so readers holding a snapshot see stable values.
type Store struct {
	api       *api.Client
	notifier  *notify.Queue
	validator *validator.Validator
	now       func() time.Time

	mu           sync.Mutex
	notes        []*models.Note
	versions     map[string]uint64
	version      uint64 // collection version, bumped on structural change
	loading      bool
	lastErr      error
	filters      models.Filters
	sortBy       models.SortKey
	viewMode     models.ViewMode
	showArchived bool
}

// NewStore creates a new note store
func NewStore(apiClient *api.Client, notifier *notify.Queue) *Store {
	return &Store{
		api:       apiClient,
		notifier:  notifier,
		validator: validator.New(),
		now:       time.Now,
		versions:  make(map[string]uint64),
		filters:   models.DefaultFilters(),
		sortBy:    models.SortByCreatedAt,
		viewMode:  models.ViewModeGrid,
	}
}

// Fetch replaces the collection with the server's notes for the given
// archived partition.
func (s *Store) Fetch(ctx context.Context, archived bool) ([]*models.Note, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	notes, err := s.api.ListNotes(ctx, archived)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.notifier.PushError(err)
		return nil, err
	}
	s.notes = notes
	s.versions = make(map[string]uint64)
	s.lastErr = nil
	s.version++
	s.mu.Unlock()

	return notes, nil
}

// Create inserts an optimistic entry under a temporary id, then
// replaces it with the server note on success or removes it on
// failure.
func (s *Store) Create(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	req.Title = s.validator.SanitizeString(req.Title)
	req.Tags = validator.NormalizeTags(req.Tags)
	if err := s.validateNoteFields(req.Title, req.Content, req.Tags, req.Color); err != nil {
		s.notifier.PushError(err)
		return nil, err
	}
	if req.Category == "" {
		req.Category = models.DefaultCategory
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	now := s.now()
	temp := &models.Note{
		ID:        fmt.Sprintf("temp-%d", now.UnixMilli()),
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		Priority:  req.Priority,
		Mood:      req.Mood,
		Tags:      req.Tags,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.notes = append([]*models.Note{temp}, s.notes...)
	s.versions[temp.ID]++
	opVersion := s.versions[temp.ID]
	s.version++
	s.mu.Unlock()

	created, err := s.api.CreateNote(ctx, req)
	if err != nil {
		s.rollbackRemove(temp.ID, opVersion)
		s.fail(err)
		return nil, err
	}

	s.mu.Lock()
	if idx := s.indexOf(temp.ID); idx >= 0 {
		s.notes[idx] = created
	} else {
		s.notes = append([]*models.Note{created}, s.notes...)
	}
	delete(s.versions, temp.ID)
	s.versions[created.ID]++
	s.version++
	s.mu.Unlock()

	s.notifier.Push(notify.KindSuccess, "Note created")
	return created, nil
}

// Update overwrites the entry optimistically, keeping a pre-mutation
// snapshot so a failed call restores the exact prior entry.
func (s *Store) Update(ctx context.Context, id string, req models.UpdateNoteRequest) (*models.Note, error) {
	if req.Tags != nil {
		req.Tags = validator.NormalizeTags(req.Tags)
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		err := errors.Wrap(errors.ErrNoteNotFound, errors.KindNotFound, "cannot update note "+id)
		s.notifier.PushError(err)
		return nil, err
	}
	snapshot := s.notes[idx]
	optimistic := applyUpdate(snapshot, req, s.now())
	s.notes[idx] = optimistic
	s.versions[id]++
	opVersion := s.versions[id]
	s.version++
	s.mu.Unlock()

	updated, err := s.api.UpdateNote(ctx, id, req)
	if err != nil {
		s.rollbackReplace(id, snapshot, opVersion)
		s.fail(err)
		return nil, err
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.notes[idx] = updated
	}
	s.versions[id]++
	s.version++
	s.mu.Unlock()

	s.notifier.Push(notify.KindSuccess, "Note updated")
	return updated, nil
}

// Delete removes the entry optimistically. On success an Undo action
// is offered that recreates the note's content under a new identity;
// on failure the entry is reinserted where it was.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		err := errors.Wrap(errors.ErrNoteNotFound, errors.KindNotFound, "cannot delete note "+id)
		s.notifier.PushError(err)
		return err
	}
	snapshot := s.notes[idx]
	s.notes = append(s.notes[:idx], s.notes[idx+1:]...)
	s.versions[id]++
	opVersion := s.versions[id]
	s.version++
	s.mu.Unlock()

	if err := s.api.DeleteNote(ctx, id); err != nil {
		s.rollbackInsert(snapshot, idx, opVersion)
		s.fail(err)
		return err
	}

	s.mu.Lock()
	delete(s.versions, id)
	s.mu.Unlock()

	s.notifier.PushWithAction(notify.KindSuccess, "Note deleted", "Undo", func() {
		s.Undo(context.Background(), snapshot)
	})
	return nil
}

// Undo recreates a deleted note from its snapshot. The result is a
// fresh create with a new id, not a restore of the old identity.
func (s *Store) Undo(ctx context.Context, snapshot *models.Note) (*models.Note, error) {
	return s.Create(ctx, models.CreateNoteRequest{
		Title:    snapshot.Title,
		Content:  snapshot.Content,
		Category: snapshot.Category,
		Priority: snapshot.Priority,
		Mood:     snapshot.Mood,
		Tags:     snapshot.Tags,
		Color:    snapshot.Color,
	})
}

// Archive flips the archived flag. No optimistic local change precedes
// the call; the confirmed server entity is applied by id on success.
func (s *Store) Archive(ctx context.Context, id string, archived bool) (*models.Note, error) {
	updated, err := s.api.ArchiveNote(ctx, id, archived)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.applyConfirmed(updated)
	if archived {
		s.notifier.Push(notify.KindSuccess, "Note archived")
	} else {
		s.notifier.Push(notify.KindSuccess, "Note unarchived")
	}
	return updated, nil
}

// Pin flips the pinned flag, same contract as Archive.
func (s *Store) Pin(ctx context.Context, id string, pinned bool) (*models.Note, error) {
	updated, err := s.api.PinNote(ctx, id, pinned)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.applyConfirmed(updated)
	if pinned {
		s.notifier.Push(notify.KindSuccess, "Note pinned")
	} else {
		s.notifier.Push(notify.KindSuccess, "Note unpinned")
	}
	return updated, nil
}

// BulkArchive archives each id independently. A failed id rolls back
// alone; successes are never reverted. One aggregate notification
// reports any failures.
func (s *Store) BulkArchive(ctx context.Context, ids []string, archived bool) error {
	return s.bulk(ctx, ids, "archive", func(ctx context.Context, id string) error {
		snapshot, opVersion, ok := s.optimisticFlip(id, func(n *models.Note) { n.Archived = archived })
		if !ok {
			return errors.Wrap(errors.ErrNoteNotFound, errors.KindNotFound, "cannot archive note "+id)
		}
		updated, err := s.api.ArchiveNote(ctx, id, archived)
		if err != nil {
			s.rollbackReplace(id, snapshot, opVersion)
			return err
		}
		s.applyConfirmed(updated)
		return nil
	})
}

// BulkDelete deletes each id independently with the same isolation
// contract as BulkArchive.
func (s *Store) BulkDelete(ctx context.Context, ids []string) error {
	return s.bulk(ctx, ids, "delete", func(ctx context.Context, id string) error {
		s.mu.Lock()
		idx := s.indexOf(id)
		if idx < 0 {
			s.mu.Unlock()
			return errors.Wrap(errors.ErrNoteNotFound, errors.KindNotFound, "cannot delete note "+id)
		}
		snapshot := s.notes[idx]
		s.notes = append(s.notes[:idx], s.notes[idx+1:]...)
		s.versions[id]++
		opVersion := s.versions[id]
		s.version++
		s.mu.Unlock()

		if err := s.api.DeleteNote(ctx, id); err != nil {
			s.rollbackInsert(snapshot, idx, opVersion)
			return err
		}

		s.mu.Lock()
		delete(s.versions, id)
		s.mu.Unlock()
		return nil
	})
}

// bulk runs op for every id in parallel and reports failures once
func (s *Store) bulk(ctx context.Context, ids []string, verb string, op func(context.Context, string) error) error {
	var wg sync.WaitGroup
	failures := make([]error, len(ids))

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			failures[i] = op(ctx, id)
		}(i, id)
	}
	wg.Wait()

	failed := 0
	var first error
	for _, err := range failures {
		if err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}

	if failed > 0 {
		s.notifier.Push(notify.KindError,
			fmt.Sprintf("Failed to %s %d of %d notes", verb, failed, len(ids)))
		return fmt.Errorf("bulk %s: %d of %d operations failed: %w", verb, failed, len(ids), first)
	}
	return nil
}

// optimisticFlip swaps in a modified clone of the entry and returns
// the pre-mutation snapshot with the operation version.
func (s *Store) optimisticFlip(id string, mutate func(*models.Note)) (*models.Note, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, 0, false
	}
	snapshot := s.notes[idx]
	next := snapshot.Clone()
	mutate(next)
	next.UpdatedAt = s.now()
	s.notes[idx] = next
	s.versions[id]++
	s.version++
	return snapshot, s.versions[id], true
}

// applyConfirmed replaces the entry matching the server note's id
func (s *Store) applyConfirmed(confirmed *models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(confirmed.ID); idx >= 0 {
		s.notes[idx] = confirmed
		s.versions[confirmed.ID]++
		s.version++
	}
}

// Rollbacks apply only while the entry's version still matches the
// operation that captured the snapshot. A later confirmed write wins
// over an earlier in-flight rollback.

func (s *Store) rollbackRemove(id string, opVersion uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.versions[id] != opVersion {
		return
	}
	if idx := s.indexOf(id); idx >= 0 {
		s.notes = append(s.notes[:idx], s.notes[idx+1:]...)
	}
	delete(s.versions, id)
	s.version++
}

func (s *Store) rollbackReplace(id string, snapshot *models.Note, opVersion uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.versions[id] != opVersion {
		return
	}
	if idx := s.indexOf(id); idx >= 0 {
		s.notes[idx] = snapshot
		s.versions[id]++
		s.version++
	}
}

func (s *Store) rollbackInsert(snapshot *models.Note, at int, opVersion uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.versions[snapshot.ID] != opVersion {
		return
	}
	if at > len(s.notes) {
		at = len(s.notes)
	}
	s.notes = append(s.notes[:at], append([]*models.Note{snapshot}, s.notes[at:]...)...)
	s.versions[snapshot.ID]++
	s.version++
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.notifier.PushError(err)
}

// indexOf must be called with the lock held
func (s *Store) indexOf(id string) int {
	for i, n := range s.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) validateNoteFields(title, content string, tags []string, color string) error {
	if err := s.validator.ValidateNoteTitle(title); err != nil {
		return err
	}
	if err := s.validator.ValidateNoteContent(content); err != nil {
		return err
	}
	if err := s.validator.ValidateTags(tags); err != nil {
		return err
	}
	return s.validator.ValidateColor(color)
}

// applyUpdate builds the optimistic entry from a snapshot and the
// requested changes, recomputing updatedAt locally.
func applyUpdate(base *models.Note, req models.UpdateNoteRequest, now time.Time) *models.Note {
	next := base.Clone()
	if req.Title != nil {
		next.Title = *req.Title
	}
	if req.Content != nil {
		next.Content = *req.Content
	}
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.Priority != nil {
		next.Priority = *req.Priority
	}
	if req.Mood != nil {
		next.Mood = *req.Mood
	}
	if req.Tags != nil {
		next.Tags = req.Tags
	}
	if req.Color != nil {
		next.Color = *req.Color
	}
	next.UpdatedAt = now
	return next
}

// Snapshot returns the collection in order. Callers must not mutate
// the returned notes.
func (s *Store) Snapshot() []*models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Version is the collection version used to invalidate derived views
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Loading reports whether a fetch is in flight
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the most recent operation failure, or nil
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// View settings. These only affect derived views, never the entities.

func (s *Store) SetFilters(f models.Filters)     { s.mu.Lock(); s.filters = f; s.mu.Unlock() }
func (s *Store) SetSortBy(k models.SortKey)      { s.mu.Lock(); s.sortBy = k; s.mu.Unlock() }
func (s *Store) SetViewMode(v models.ViewMode)   { s.mu.Lock(); s.viewMode = v; s.mu.Unlock() }
func (s *Store) SetShowArchived(show bool)       { s.mu.Lock(); s.showArchived = show; s.mu.Unlock() }

func (s *Store) Filters() models.Filters   { s.mu.Lock(); defer s.mu.Unlock(); return s.filters }
func (s *Store) SortBy() models.SortKey    { s.mu.Lock(); defer s.mu.Unlock(); return s.sortBy }
func (s *Store) ViewMode() models.ViewMode { s.mu.Lock(); defer s.mu.Unlock(); return s.viewMode }
func (s *Store) ShowArchived() bool        { s.mu.Lock(); defer s.mu.Unlock(); return s.showArchived }

// viewState captures everything the derived selectors depend on
func (s *Store) viewState() (uint64, []*models.Note, models.Filters, models.SortKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Note, len(s.notes))
	copy(out, s.notes)
	return s.version, out, s.filters, s.sortBy, s.showArchived
}
