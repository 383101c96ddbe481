package nakama

import (
	"context"
	"database/sql"

	"chronicle/internal/ports"
	"chronicle/internal/storage"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	saves := buildSaveStore(logger, db, nk)

	if err := RegisterRPCs(initializer, saves); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameChronicle, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(saves), nil
	}); err != nil {
		return err
	}

	logger.Info("Chronicle Go module loaded.")
	return nil
}

// buildSaveStore prefers the relational store on Nakama's own database
// handle; when migrations fail it falls back to the Nakama storage engine
// so saving keeps working.
func buildSaveStore(logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) ports.SaveStorePort {
	gdb, err := storage.NewFromConn(db)
	if err != nil {
		logger.Warn("Save store: database unavailable (%v), using Nakama storage engine.", err)
		return NewStorageSaveStore(nk)
	}
	return storage.NewStore(gdb)
}
