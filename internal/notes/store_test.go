package notes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirk1998/notedeck/internal/api"
	"github.com/amirk1998/notedeck/internal/api/apitest"
	"github.com/amirk1998/notedeck/internal/models"
	"github.com/amirk1998/notedeck/internal/notify"
)

type storeFixture struct {
	fake     *apitest.Server
	store    *Store
	notifier *notify.Queue
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()

	fake := apitest.New()
	fake.SeedUser("alice@example.com", "password123", "Alice", "Smith")

	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)

	var token string
	client := api.NewClient(srv.URL, api.WithTokenProvider(func() string { return token }))

	resp, err := client.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	token = resp.AccessToken

	notifier := notify.NewQueue()
	return &storeFixture{
		fake:     fake,
		store:    NewStore(client, notifier),
		notifier: notifier,
	}
}

func (f *storeFixture) seedAndFetch(t *testing.T, titles ...string) {
	t.Helper()
	for _, title := range titles {
		f.fake.SeedNote(&models.Note{Title: title, Content: "body of " + title})
	}
	if _, err := f.store.Fetch(context.Background(), false); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func (f *storeFixture) titles() []string {
	notes := f.store.Snapshot()
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func TestCreateConfirmsWithServerNote(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t)

	created, err := f.store.Create(context.Background(), models.CreateNoteRequest{
		Title:   "Groceries",
		Content: "milk, eggs",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if strings.HasPrefix(created.ID, "temp-") {
		t.Errorf("confirmed note kept temp id %q", created.ID)
	}
	if created.Category != models.DefaultCategory {
		t.Errorf("category = %q, want default", created.Category)
	}
	if created.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want medium", created.Priority)
	}

	notes := f.store.Snapshot()
	if len(notes) != 1 || notes[0].ID != created.ID {
		t.Fatalf("collection = %+v", f.titles())
	}
}

func TestCreateRollsBackOnServerFailure(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "existing")
	f.fake.FailWith("create", http.StatusInternalServerError)

	before := f.store.Version()
	_, err := f.store.Create(context.Background(), models.CreateNoteRequest{
		Title:   "doomed",
		Content: "never persisted",
	})
	if err == nil {
		t.Fatal("expected create failure")
	}

	notes := f.store.Snapshot()
	if len(notes) != 1 || notes[0].Title != "existing" {
		t.Fatalf("optimistic entry not rolled back: %v", f.titles())
	}
	if f.store.Version() <= before {
		t.Error("rollback should bump the collection version")
	}
	if f.store.LastError() == nil {
		t.Error("LastError not recorded")
	}
}

func TestCreateValidationSkipsNetwork(t *testing.T) {
	f := newStoreFixture(t)
	f.fake.FailWith("create", http.StatusInternalServerError)

	_, err := f.store.Create(context.Background(), models.CreateNoteRequest{
		Title:   "",
		Content: "no title",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if f.fake.NoteCount() != 0 {
		t.Error("invalid note reached the server")
	}
}

func TestUpdateRollsBackToExactSnapshot(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "original")
	id := f.store.Snapshot()[0].ID
	originalUpdatedAt := f.store.Snapshot()[0].UpdatedAt

	f.fake.FailWith("update", http.StatusServiceUnavailable)

	title := "rewritten"
	_, err := f.store.Update(context.Background(), id, models.UpdateNoteRequest{Title: &title})
	if err == nil {
		t.Fatal("expected update failure")
	}

	got := f.store.Snapshot()[0]
	if got.Title != "original" {
		t.Errorf("title = %q, want original", got.Title)
	}
	if !got.UpdatedAt.Equal(originalUpdatedAt) {
		t.Error("rollback did not restore the prior updatedAt")
	}
}

func TestUpdateAppliesServerTruth(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "original")
	id := f.store.Snapshot()[0].ID

	title := "renamed"
	updated, err := f.store.Update(context.Background(), id, models.UpdateNoteRequest{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "renamed" {
		t.Errorf("title = %q", updated.Title)
	}
	if got := f.store.Snapshot()[0]; got != updated {
		t.Error("confirmed entry not swapped into the collection")
	}
}

func TestUpdateUnknownIDFailsLocally(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t)

	title := "x"
	if _, err := f.store.Update(context.Background(), "missing", models.UpdateNoteRequest{Title: &title}); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestDeleteRollsBackToOriginalPosition(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "first", "second", "third")
	id := f.store.Snapshot()[1].ID

	f.fake.FailWith("delete", http.StatusInternalServerError)

	if err := f.store.Delete(context.Background(), id); err == nil {
		t.Fatal("expected delete failure")
	}

	titles := f.titles()
	if len(titles) != 3 || titles[1] != "second" {
		t.Errorf("collection after rollback = %v", titles)
	}
}

func TestDeleteOffersUndoThatRecreates(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "keep", "remove")
	id := f.store.Snapshot()[1].ID

	if err := f.store.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.fake.NoteCount() != 1 {
		t.Fatalf("server count = %d, want 1", f.fake.NoteCount())
	}

	var undo func()
	for _, n := range f.notifier.Pending() {
		if n.Action != nil && n.Action.Label == "Undo" {
			undo = n.Action.Fn
		}
	}
	if undo == nil {
		t.Fatal("delete did not offer an undo action")
	}

	undo()

	if f.fake.NoteCount() != 2 {
		t.Fatalf("server count after undo = %d, want 2", f.fake.NoteCount())
	}
	var restored *models.Note
	for _, n := range f.store.Snapshot() {
		if n.Title == "remove" {
			restored = n
		}
	}
	if restored == nil {
		t.Fatal("undone note missing from collection")
	}
	if restored.ID == id {
		t.Error("undo must create a fresh identity, not restore the old id")
	}
}

func TestArchiveAppliesConfirmedEntity(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "note")
	id := f.store.Snapshot()[0].ID

	updated, err := f.store.Archive(context.Background(), id, true)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !updated.Archived {
		t.Error("server entity not archived")
	}
	if got := f.store.Snapshot()[0]; !got.Archived {
		t.Error("confirmed entity not applied locally")
	}
}

func TestBulkDeleteFailuresAreIsolated(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "first", "second")
	real := f.store.Snapshot()[0].ID

	err := f.store.BulkDelete(context.Background(), []string{real, "missing"})
	if err == nil {
		t.Fatal("expected aggregate failure")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("aggregate error = %v", err)
	}

	// The valid id was deleted even though its sibling failed
	titles := f.titles()
	if len(titles) != 1 || titles[0] != "second" {
		t.Errorf("collection = %v", titles)
	}
	if f.fake.NoteCount() != 1 {
		t.Errorf("server count = %d, want 1", f.fake.NoteCount())
	}
}

func TestBulkArchiveRollsBackFailedIDsOnly(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "first", "second")

	ids := []string{f.store.Snapshot()[0].ID, "missing"}
	if err := f.store.BulkArchive(context.Background(), ids, true); err == nil {
		t.Fatal("expected aggregate failure")
	}

	notes := f.store.Snapshot()
	if len(notes) != 2 {
		t.Fatalf("collection = %v", f.titles())
	}
	if !notes[0].Archived {
		t.Error("successful id not archived")
	}
	if notes[1].Archived {
		t.Error("unrelated note flipped")
	}
}

func TestStaleRollbackLosesToConfirmedWrite(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "note")
	id := f.store.Snapshot()[0].ID

	// An optimistic write captures its version...
	snapshot, opVersion, ok := f.store.optimisticFlip(id, func(n *models.Note) { n.Archived = true })
	if !ok {
		t.Fatal("optimisticFlip failed")
	}

	// ...then a later confirmed write lands first
	confirmed := f.store.Snapshot()[0].Clone()
	confirmed.Title = "server says"
	f.store.applyConfirmed(confirmed)

	// The stale rollback must not clobber the confirmed entry
	f.store.rollbackReplace(id, snapshot, opVersion)

	got := f.store.Snapshot()[0]
	if got.Title != "server says" {
		t.Errorf("stale rollback overwrote confirmed write: %+v", got)
	}
}

func TestFetchReplacesCollection(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "one", "two")

	if f.store.Loading() {
		t.Error("loading flag stuck after fetch")
	}

	f.fake.SeedNote(&models.Note{Title: "three", Content: "c"})
	notes, err := f.store.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(notes) != 3 {
		t.Errorf("fetched = %d notes, want 3", len(notes))
	}
}

func TestFetchFailureKeepsExistingCollection(t *testing.T) {
	f := newStoreFixture(t)
	f.seedAndFetch(t, "kept")

	f.fake.FailWith("list", http.StatusInternalServerError)
	if _, err := f.store.Fetch(context.Background(), false); err == nil {
		t.Fatal("expected fetch failure")
	}

	if titles := f.titles(); len(titles) != 1 || titles[0] != "kept" {
		t.Errorf("collection after failed fetch = %v", titles)
	}
	if f.store.Loading() {
		t.Error("loading flag stuck after failed fetch")
	}
}
