package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"chronicle/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchResponse is the payload returned to clients when requesting a
// lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// SaveSummary is one saved game in a listing; the document itself is not
// included.
type SaveSummary struct {
	SaveID    string    `json:"saveId"`
	Name      string    `json:"name"`
	Phase     string    `json:"phase"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type deleteSaveRequest struct {
	SaveID string `json:"saveId"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, saves ports.SaveStorePort) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcListSaves, rpcListSaves(saves)); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcDeleteSave, rpcDeleteSave(saves))
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	// Find any match of our game that is still in the lobby with open seats.
	query := "+label.open:>=1 +label.game:chronicle +label.phase:lobby"

	limit := 10
	authoritative := true

	minSize := 1
	maxSize := maxSeats - 1 // leave room for the caller

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Create new match; seat/owner assignment happens in MatchJoin
	// (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchNameChronicle, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func rpcListSaves(saves ports.SaveStorePort) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if !ok || userID == "" {
			return "", runtime.NewError("authentication required", 16) // UNAUTHENTICATED
		}
		if saves == nil {
			return "[]", nil
		}

		records, err := saves.ListGames(ctx, userID)
		if err != nil {
			logger.Error("ListSaves [User:%s]: %v", userID, err)
			return "", runtime.NewError("listing saves failed", 13) // INTERNAL
		}

		out := make([]SaveSummary, 0, len(records))
		for _, rec := range records {
			out = append(out, SaveSummary{
				SaveID:    rec.ID,
				Name:      rec.Name,
				Phase:     rec.Phase,
				UpdatedAt: rec.UpdatedAt,
			})
		}
		b, err := json.Marshal(out)
		if err != nil {
			return "", runtime.NewError("listing saves failed", 13) // INTERNAL
		}
		return string(b), nil
	}
}

func rpcDeleteSave(saves ports.SaveStorePort) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if !ok || userID == "" {
			return "", runtime.NewError("authentication required", 16) // UNAUTHENTICATED
		}
		if saves == nil {
			return "", runtime.NewError("saving is not available", 12) // UNIMPLEMENTED
		}

		var request deleteSaveRequest
		if err := json.Unmarshal([]byte(payload), &request); err != nil || request.SaveID == "" {
			return "", runtime.NewError("saveId is required", 3) // INVALID_ARGUMENT
		}

		if err := saves.DeleteGame(ctx, userID, request.SaveID); err != nil {
			if errors.Is(err, ports.ErrSaveNotFound) {
				return "", runtime.NewError("saved game not found", 5) // NOT_FOUND
			}
			logger.Error("DeleteSave [User:%s]: %v", userID, err)
			return "", runtime.NewError("deleting save failed", 13) // INTERNAL
		}
		return "{}", nil
	}
}
