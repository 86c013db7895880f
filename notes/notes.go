// Package notes provides the ownership-scoped note CRUD operations that sit
// behind the papertrail auth guard.
package notes

import (
	"context"
	"errors"
	"time"
)

// ErrNoteNotFound is returned when a note does not exist or is owned by a
// different account. The two cases are indistinguishable on purpose.
var ErrNoteNotFound = errors.New("note not found")

// Note is a single note record owned by one account.
type Note struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the durable note storage consumed by the handlers.
type Store interface {
	// Create persists a new note.
	Create(ctx context.Context, note *Note) error

	// ListByAccount returns all notes owned by an account, newest first.
	ListByAccount(ctx context.Context, accountID string) ([]*Note, error)

	// Delete removes a note if it is owned by the account.
	// Returns ErrNoteNotFound otherwise.
	Delete(ctx context.Context, id, accountID string) error
}
