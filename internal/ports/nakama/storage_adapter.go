package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"chronicle/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const savesCollection = "chronicle_saves"

// savedGameEnvelope is the storage object value for a save slot.
type savedGameEnvelope struct {
	Name     string          `json:"name"`
	Phase    string          `json:"phase"`
	Document json.RawMessage `json:"document"`
}

// StorageSaveStore persists game session documents in the Nakama storage
// engine. It implements ports.SaveStorePort and serves as the fallback when
// the relational store is unavailable.
type StorageSaveStore struct {
	nk runtime.NakamaModule
}

// NewStorageSaveStore creates a save store over the Nakama storage engine.
func NewStorageSaveStore(nk runtime.NakamaModule) *StorageSaveStore {
	return &StorageSaveStore{nk: nk}
}

// SaveGame creates or replaces the save slot identified by (owner, save id).
func (s *StorageSaveStore) SaveGame(ctx context.Context, rec ports.SaveRecord) error {
	value, err := json.Marshal(savedGameEnvelope{
		Name:     rec.Name,
		Phase:    rec.Phase,
		Document: rec.Document,
	})
	if err != nil {
		return fmt.Errorf("save game %q: %w", rec.ID, err)
	}

	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      savesCollection,
			Key:             rec.ID,
			UserID:          rec.OwnerID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("save game %q: %w", rec.ID, err)
	}
	return nil
}

// LoadGame fetches a save slot, or ports.ErrSaveNotFound.
func (s *StorageSaveStore) LoadGame(ctx context.Context, ownerID, id string) (ports.SaveRecord, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: savesCollection, Key: id, UserID: ownerID},
	})
	if err != nil {
		return ports.SaveRecord{}, fmt.Errorf("load game %q: %w", id, err)
	}
	if len(objects) == 0 {
		return ports.SaveRecord{}, ports.ErrSaveNotFound
	}

	obj := objects[0]
	var env savedGameEnvelope
	if err := json.Unmarshal([]byte(obj.GetValue()), &env); err != nil {
		return ports.SaveRecord{}, fmt.Errorf("load game %q: %w", id, err)
	}

	rec := ports.SaveRecord{
		ID:       id,
		OwnerID:  ownerID,
		Name:     env.Name,
		Phase:    env.Phase,
		Document: env.Document,
	}
	if ts := obj.GetUpdateTime(); ts != nil {
		rec.UpdatedAt = ts.AsTime()
	}
	return rec, nil
}

// ListGames returns the owner's save slots, most recently updated first.
// Documents are omitted from listings.
func (s *StorageSaveStore) ListGames(ctx context.Context, ownerID string) ([]ports.SaveRecord, error) {
	out := make([]ports.SaveRecord, 0)
	cursor := ""
	for {
		objects, next, err := s.nk.StorageList(ctx, "", ownerID, savesCollection, 100, cursor)
		if err != nil {
			return nil, fmt.Errorf("list games: %w", err)
		}
		for _, obj := range objects {
			var env savedGameEnvelope
			if err := json.Unmarshal([]byte(obj.GetValue()), &env); err != nil {
				continue // skip corrupt slots rather than failing the listing
			}
			rec := ports.SaveRecord{
				ID:      obj.GetKey(),
				OwnerID: ownerID,
				Name:    env.Name,
				Phase:   env.Phase,
			}
			if ts := obj.GetUpdateTime(); ts != nil {
				rec.UpdatedAt = ts.AsTime()
			}
			out = append(out, rec)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeleteGame removes a save slot. Deleting a missing slot is not an error.
func (s *StorageSaveStore) DeleteGame(ctx context.Context, ownerID, id string) error {
	err := s.nk.StorageDelete(ctx, []*runtime.StorageDelete{
		{Collection: savesCollection, Key: id, UserID: ownerID},
	})
	if err != nil {
		return fmt.Errorf("delete game %q: %w", id, err)
	}
	return nil
}

var _ ports.SaveStorePort = (*StorageSaveStore)(nil)
