package models

import (
	"time"
)

// LoginMethod records how a session was established.
type LoginMethod string

const (
	LoginManual LoginMethod = "manual"
	LoginAuto   LoginMethod = "auto"
)

// Session is one continuous authenticated interaction period, distinct
// from the token that authorizes it.
type Session struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	CreatedAt         time.Time   `json:"createdAt"`
	LastActivityAt    time.Time   `json:"lastActivityAt"`
	EndedAt           *time.Time  `json:"endedAt,omitempty"`
	LoginMethod       LoginMethod `json:"loginMethod"`
	DeviceFingerprint string      `json:"deviceFingerprint"`
}
