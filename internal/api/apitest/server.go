// Package apitest provides an in-process fake of the notes REST API.
// It backs the package tests and the CLI demo mode, and supports
// injecting failures to exercise rollback paths.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amirk1998/notedeck/internal/models"
)

type account struct {
	user     *models.User
	password string
}

type Server struct {
	mu       sync.Mutex
	router   chi.Router
	accounts map[string]*account // by email
	tokens   map[string]string   // token -> user id
	notes    map[string]*models.Note
	order    []string // note ids in creation order
	seq      int
	failures map[string]int // operation -> status to answer with
}

func New() *Server {
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		notes:    make(map[string]*models.Note),
		failures: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/verify", s.handleVerify)
		r.Get("/notes", s.handleListNotes)
		r.Post("/notes", s.handleCreateNote)
		r.Put("/notes/{id}", s.handleUpdateNote)
		r.Delete("/notes/{id}", s.handleDeleteNote)
		r.Patch("/notes/{id}/archive", s.handleArchiveNote)
		r.Patch("/notes/{id}/pin", s.handlePinNote)
	})
	s.router = r

	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

// FailWith makes the named operation answer with the given status
// until ClearFailure is called. Operations: login, register, verify,
// logout, list, create, update, delete, archive, pin.
func (s *Server) FailWith(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = status
}

func (s *Server) ClearFailure(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// SeedUser registers an account directly
func (s *Server) SeedUser(email, password, firstName, lastName string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}
	s.accounts[email] = &account{user: user, password: password}
	return user
}

// SeedNote inserts a note directly, assigning an id if absent
func (s *Server) SeedNote(note *models.Note) *models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note.ID == "" {
		s.seq++
		note.ID = fmt.Sprintf("note-%d", s.seq)
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}
	s.notes[note.ID] = note
	s.order = append(s.order, note.ID)
	return note
}

// NoteCount reports the number of stored notes
func (s *Server) NoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func (s *Server) failureFor(op string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.failures[op]
	return status, ok
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		s.mu.Lock()
		_, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("login"); ok {
		writeError(w, status, "injected failure")
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || acct.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.issueToken(w, acct.user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("register"); ok {
		writeError(w, status, "injected failure")
		return
	}

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "registration failed",
			"errors":  map[string]string{"email": "email already registered"},
		})
		return
	}
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	s.accounts[req.Email] = &account{user: user, password: req.Password}
	s.mu.Unlock()

	s.issueToken(w, user)
}

func (s *Server) issueToken(w http.ResponseWriter, user *models.User) {
	token := "tok-" + uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = user.ID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.AuthResponse{
		User:        user,
		AccessToken: token,
		ExpiresIn:   3600,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("logout"); ok {
		writeError(w, status, "injected failure")
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("verify"); ok {
		writeError(w, status, "injected failure")
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	userID := s.tokens[token]
	var user *models.User
	for _, acct := range s.accounts {
		if acct.user.ID == userID {
			user = acct.user
			break
		}
	}
	s.mu.Unlock()

	if user == nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("list"); ok {
		writeError(w, status, "injected failure")
		return
	}

	archived := r.URL.Query().Get("archived") == "true"

	s.mu.Lock()
	notes := make([]*models.Note, 0)
	for _, id := range s.order {
		note, ok := s.notes[id]
		if ok && note.Archived == archived {
			notes = append(notes, note.Clone())
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("create"); ok {
		writeError(w, status, "injected failure")
		return
	}

	var req models.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "invalid note",
			"errors":  map[string]string{"title": "title is required"},
		})
		return
	}

	now := time.Now()
	category := req.Category
	if category == "" {
		category = models.DefaultCategory
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	s.mu.Lock()
	s.seq++
	note := &models.Note{
		ID:        fmt.Sprintf("note-%d", s.seq),
		Title:     req.Title,
		Content:   req.Content,
		Category:  category,
		Priority:  priority,
		Mood:      req.Mood,
		Tags:      req.Tags,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.notes[note.ID] = note
	s.order = append(s.order, note.ID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("update"); ok {
		writeError(w, status, "injected failure")
		return
	}

	var req models.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	note, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.Category != nil {
		note.Category = *req.Category
	}
	if req.Priority != nil {
		note.Priority = *req.Priority
	}
	if req.Mood != nil {
		note.Mood = *req.Mood
	}
	if req.Tags != nil {
		note.Tags = req.Tags
	}
	if req.Color != nil {
		note.Color = *req.Color
	}
	note.UpdatedAt = time.Now()
	out := note.Clone()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("delete"); ok {
		writeError(w, status, "injected failure")
		return
	}

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.notes[id]
	if ok {
		delete(s.notes, id)
		for i, nid := range s.order {
			if nid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleArchiveNote(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("archive"); ok {
		writeError(w, status, "injected failure")
		return
	}
	s.patchFlag(w, r, func(note *models.Note, value bool) {
		note.Archived = value
	}, "archived")
}

func (s *Server) handlePinNote(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failureFor("pin"); ok {
		writeError(w, status, "injected failure")
		return
	}
	s.patchFlag(w, r, func(note *models.Note, value bool) {
		note.Pinned = value
	}, "pinned")
}

func (s *Server) patchFlag(w http.ResponseWriter, r *http.Request, apply func(*models.Note, bool), field string) {
	var body map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	note, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	apply(note, body[field])
	note.UpdatedAt = time.Now()
	out := note.Clone()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
