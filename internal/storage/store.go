package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chronicle/internal/ports"
)

// Store wraps a gorm DB instance and persists game session documents. It
// implements ports.SaveStorePort.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new store helper from a gorm DB.
func NewStore(db *gorm.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// DB exposes the underlying gorm DB instance.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// SaveGame creates or replaces the save slot identified by (owner, save id).
func (s *Store) SaveGame(ctx context.Context, rec ports.SaveRecord) error {
	if s == nil {
		return nil
	}
	owner, err := uuid.Parse(rec.OwnerID)
	if err != nil {
		return fmt.Errorf("save game: invalid owner id %q: %w", rec.OwnerID, err)
	}
	row := SavedGame{
		ID:       uuid.New(),
		OwnerID:  owner,
		SaveID:   rec.ID,
		Name:     rec.Name,
		Phase:    rec.Phase,
		Document: rec.Document,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "save_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phase", "document", "updated_at"}),
	}).Create(&row).Error
}

// LoadGame fetches a save slot, or ports.ErrSaveNotFound.
func (s *Store) LoadGame(ctx context.Context, ownerID, id string) (ports.SaveRecord, error) {
	if s == nil {
		return ports.SaveRecord{}, ports.ErrSaveNotFound
	}
	var row SavedGame
	err := s.db.WithContext(ctx).
		First(&row, "owner_id = ? AND save_id = ?", ownerID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.SaveRecord{}, ports.ErrSaveNotFound
	}
	if err != nil {
		return ports.SaveRecord{}, err
	}
	return toRecord(row, true), nil
}

// ListGames returns the owner's save slots, most recently updated first.
// Documents are omitted from listings.
func (s *Store) ListGames(ctx context.Context, ownerID string) ([]ports.SaveRecord, error) {
	if s == nil {
		return nil, nil
	}
	var rows []SavedGame
	err := s.db.WithContext(ctx).
		Select("id", "owner_id", "save_id", "name", "phase", "updated_at").
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.SaveRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row, false))
	}
	return out, nil
}

// DeleteGame removes a save slot. Deleting a missing slot is not an error.
func (s *Store) DeleteGame(ctx context.Context, ownerID, id string) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("owner_id = ? AND save_id = ?", ownerID, id).
		Delete(&SavedGame{}).Error
}

var _ ports.SaveStorePort = (*Store)(nil)

func toRecord(row SavedGame, withDocument bool) ports.SaveRecord {
	rec := ports.SaveRecord{
		ID:        row.SaveID,
		OwnerID:   row.OwnerID.String(),
		Name:      row.Name,
		Phase:     row.Phase,
		UpdatedAt: row.UpdatedAt,
	}
	if withDocument {
		rec.Document = row.Document
	}
	return rec
}
