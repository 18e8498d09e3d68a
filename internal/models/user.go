package models

import (
	"strings"
)

type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"firstName,omitempty"`
	LastName    string         `json:"lastName,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// DisplayName derives the name shown in the UI. Fallback order:
// first+last, first only, email.
func (u *User) DisplayName() string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return u.Email
	}
}

// Initials derives up to two uppercase initials with the same fallback
// order as DisplayName.
func (u *User) Initials() string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	switch {
	case first != "" && last != "":
		return strings.ToUpper(first[:1] + last[:1])
	case first != "":
		return strings.ToUpper(first[:1])
	case u.Email != "":
		return strings.ToUpper(u.Email[:1])
	default:
		return "?"
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
}

type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn,omitempty"` // seconds, optional
}
