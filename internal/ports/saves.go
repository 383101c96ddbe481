package ports

import (
	"context"
	"errors"
	"time"
)

// ErrSaveNotFound is returned when a saved game does not exist for the owner.
var ErrSaveNotFound = errors.New("saved game not found")

// SaveRecord is one persisted game session, owned by a single user. The
// document is the serialized session (app.SaveDocument JSON); the store does
// not interpret it.
type SaveRecord struct {
	ID        string
	OwnerID   string
	Name      string
	Phase     string
	Document  []byte
	UpdatedAt time.Time
}

// SaveStorePort defines the interface for persisting game sessions.
type SaveStorePort interface {
	// SaveGame creates or replaces the record identified by (OwnerID, ID).
	SaveGame(ctx context.Context, rec SaveRecord) error

	// LoadGame fetches a record, or ErrSaveNotFound.
	LoadGame(ctx context.Context, ownerID, id string) (SaveRecord, error)

	// ListGames returns the owner's records, most recently updated first,
	// without their documents.
	ListGames(ctx context.Context, ownerID string) ([]SaveRecord, error)

	// DeleteGame removes a record; deleting a missing record is not an error.
	DeleteGame(ctx context.Context, ownerID, id string) error
}
