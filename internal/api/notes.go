package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/amirk1998/notedeck/internal/models"
)

// ListNotes fetches the collection, split by archived state
func (c *Client) ListNotes(ctx context.Context, archived bool) ([]*models.Note, error) {
	var notes []*models.Note
	path := fmt.Sprintf("/notes?archived=%v", archived)
	if err := c.do(ctx, http.MethodGet, path, "notes_read", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// CreateNote creates a note and returns the server-assigned entity
func (c *Client) CreateNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	var note models.Note
	if err := c.do(ctx, http.MethodPost, "/notes", "notes_write", req, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote updates a note and returns the server truth
func (c *Client) UpdateNote(ctx context.Context, id string, req models.UpdateNoteRequest) (*models.Note, error) {
	var note models.Note
	path := "/notes/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, "notes_write", req, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote deletes a note by id
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	path := "/notes/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, "notes_write", nil, nil)
}

// ArchiveNote flips the archived flag server-side
func (c *Client) ArchiveNote(ctx context.Context, id string, archived bool) (*models.Note, error) {
	var note models.Note
	path := "/notes/" + url.PathEscape(id) + "/archive"
	body := map[string]bool{"archived": archived}
	if err := c.do(ctx, http.MethodPatch, path, "notes_write", body, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// PinNote flips the pinned flag server-side
func (c *Client) PinNote(ctx context.Context, id string, pinned bool) (*models.Note, error) {
	var note models.Note
	path := "/notes/" + url.PathEscape(id) + "/pin"
	body := map[string]bool{"pinned": pinned}
	if err := c.do(ctx, http.MethodPatch, path, "notes_write", body, &note); err != nil {
		return nil, err
	}
	return &note, nil
}
