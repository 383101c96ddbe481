package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a
	// lobby-capable match.
	RpcQuickMatch = "quick_match"

	// RpcListSaves is the RPC id clients call to list their saved games.
	RpcListSaves = "list_saves"

	// RpcDeleteSave is the RPC id clients call to delete a saved game.
	RpcDeleteSave = "delete_save"

	// MatchNameChronicle is the authoritative match handler name registered
	// with Nakama.
	MatchNameChronicle = "chronicle_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame   int64 = 1
	OpPlaceCard   int64 = 2
	OpUndo        int64 = 3
	OpRedo        int64 = 4
	OpAdvanceTurn int64 = 5
	OpSaveGame    int64 = 6
	OpLoadGame    int64 = 7

	// Server -> Client events
	OpPlayerJoined  int64 = 101
	OpPlayerLeft    int64 = 102
	OpGameStarted   int64 = 103
	OpHandDealt     int64 = 104 // sent privately
	OpMoveEvaluated int64 = 105
	OpTurnChanged   int64 = 106
	OpGameEnded     int64 = 107
	OpGameSaved     int64 = 108
	OpGameLoaded    int64 = 109
	OpStateSync     int64 = 110
	OpError         int64 = 111
)
