package storage

import (
	"time"

	"github.com/google/uuid"
)

// SavedGame is one persisted game session document.
type SavedGame struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_owner_save"`
	SaveID    string    `gorm:"uniqueIndex:idx_owner_save"`
	Name      string
	Phase     string
	Document  []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
