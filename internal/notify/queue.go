// Package notify holds the transient user-facing message queue fed by
// session and note operation outcomes.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amirk1998/notedeck/pkg/errors"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
	KindLoading Kind = "loading"
)

const (
	defaultMaxQueue = 50
	defaultDuration = 4 * time.Second
)

// Action is an optional affordance attached to a notification, e.g.
// "Undo" after a delete.
type Action struct {
	Label string
	Fn    func()
}

// Notification is one transient message. Duration 0 means sticky until
// explicitly dismissed.
type Notification struct {
	ID        string
	Kind      Kind
	Message   string
	Action    *Action
	Duration  time.Duration
	CreatedAt time.Time
}

// Queue is a bounded, ordered, append-only notification queue. When
// full, the oldest entry is dropped.
type Queue struct {
	mu    sync.Mutex
	items []*Notification
	max   int
}

func NewQueue() *Queue {
	return &Queue{max: defaultMaxQueue}
}

// Push appends a notification and returns its id
func (q *Queue) Push(kind Kind, message string) string {
	return q.push(&Notification{Kind: kind, Message: message, Duration: defaultDuration})
}

// PushSticky appends a notification that never auto-dismisses
func (q *Queue) PushSticky(kind Kind, message string) string {
	return q.push(&Notification{Kind: kind, Message: message, Duration: 0})
}

// PushWithAction appends a notification carrying an action affordance
func (q *Queue) PushWithAction(kind Kind, message, label string, fn func()) string {
	return q.push(&Notification{
		Kind:     kind,
		Message:  message,
		Action:   &Action{Label: label, Fn: fn},
		Duration: defaultDuration,
	})
}

// PushError classifies err and appends an error notification. Low
// severity auto-dismisses; high and critical stay until dismissed.
func (q *Queue) PushError(err error) string {
	n := &Notification{Kind: KindError, Message: err.Error(), Duration: defaultDuration}
	switch errors.SeverityOf(err) {
	case errors.SeverityHigh, errors.SeverityCritical:
		n.Duration = 0
	}
	return q.push(n)
}

func (q *Queue) push(n *Notification) string {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, n)
	if len(q.items) > q.max {
		q.items = q.items[len(q.items)-q.max:]
	}
	return n.ID
}

// Dismiss removes a notification by id
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// Pending returns a copy of the queued notifications in order
func (q *Queue) Pending() []*Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Expire drops auto-dismissable notifications older than their
// duration. Sticky entries are kept.
func (q *Queue) Expire(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, n := range q.items {
		if n.Duration == 0 || now.Sub(n.CreatedAt) < n.Duration {
			kept = append(kept, n)
		}
	}
	q.items = kept
}
