package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"time"

	"chronicle/internal/app"
	"chronicle/internal/catalog"
	"chronicle/internal/config"
	"chronicle/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	defaultCardsPath  = "data/cards.json"
	defaultConfigPath = "data/game_config.json"

	maxSeats = 4
)

// MatchState holds the authoritative runtime state for the Nakama match
// handler. The domain session inside is single-threaded by the match loop.
type MatchState struct {
	Seats     [maxSeats]string            `json:"seats"`      // user IDs, empty string means seat is empty
	OwnerSeat int                         `json:"owner_seat"` // seat index of the match owner
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // userId -> presence for targeted messaging
	App       *app.Service                `json:"-"`
	Session   *app.Session                `json:"-"` // nil while in lobby
	Catalog   *catalog.Catalog            `json:"-"`
	Cfg       config.GameConfig           `json:"-"`
	Saves     ports.SaveStorePort         `json:"-"`

	pending []app.Event // events emitted by the session, flushed each loop
}

// GetOpenSeatsCount returns the number of unoccupied seats.
func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

// GetOccupiedSeatCount returns the number of occupied seats.
func (ms *MatchState) GetOccupiedSeatCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat == userID {
			return i
		}
	}
	return -1
}

func (ms *MatchState) seatedPlayers() []string {
	out := make([]string, 0, maxSeats)
	for _, seat := range ms.Seats {
		if seat != "" {
			out = append(out, seat)
		}
	}
	return out
}

func newMatchHandler(saves ports.SaveStorePort) *matchHandler {
	return &matchHandler{saves: saves}
}

type matchHandler struct {
	saves ports.SaveStorePort
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	cardsPath := defaultCardsPath
	configPath := defaultConfigPath
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["chronicle_cards_path"]; ok && val != "" {
			cardsPath = val
		}
		if val, ok := env["chronicle_config_path"]; ok && val != "" {
			configPath = val
		}
	}

	cfg, err := config.LoadGameConfig(configPath)
	if err != nil {
		logger.Warn("MatchInit: Could not load game config, using defaults: %v", err)
		cfg = config.Defaults()
	}

	cat, err := catalog.Load(cardsPath)
	if err != nil {
		// Without a catalog the lobby still works; starting a game will fail.
		logger.Error("MatchInit: Could not load card catalog: %v", err)
	}

	svc := app.NewService(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	state := &MatchState{
		Tick:      0,
		Presences: make(map[string]runtime.Presence),
		App:       svc,
		Catalog:   cat,
		Cfg:       cfg,
		Saves:     mh.saves,
		OwnerSeat: -1,
	}

	labelBytes, err := json.Marshal(matchLabel{Open: state.GetOpenSeatsCount(), Game: "chronicle", Phase: "lobby"})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt validates whether a presence is allowed to join the match.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Allow rejoin for seated players even mid-game.
	if matchState.seatOf(presence.GetUserId()) >= 0 {
		return state, true, ""
	}
	if matchState.Session != nil {
		return state, false, "match_in_progress"
	}
	if matchState.GetOpenSeatsCount() <= 0 {
		return state, false, "match_full"
	}
	return state, true, ""
}

// MatchJoin mutates state when presences join and assigns seats/owner.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		seat := matchState.seatOf(userID)
		if seat < 0 {
			for i, seatUserID := range matchState.Seats {
				if seatUserID == "" {
					matchState.Seats[i] = userID
					seat = i
					break
				}
			}
		}
		if seat < 0 {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", userID)
			continue
		}

		if matchState.OwnerSeat < 0 {
			matchState.OwnerSeat = seat
		}

		mh.send(matchState, dispatcher, logger, OpPlayerJoined, playerJoinedPayload{
			UserID: userID,
			Seat:   seat,
			Owner:  seat == matchState.OwnerSeat,
		}, nil)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastStateSync(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave frees seats when presences leave and reassigns the owner.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		// Seats stay reserved mid-game so a player can rejoin; in the lobby
		// the seat is freed.
		if matchState.Session == nil {
			if seat := matchState.seatOf(userID); seat >= 0 {
				matchState.Seats[seat] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)
			}
		}

		mh.send(matchState, dispatcher, logger, OpPlayerLeft, playerLeftPayload{UserID: userID}, nil)
	}

	if matchState.OwnerSeat < 0 || matchState.Seats[matchState.OwnerSeat] == "" ||
		matchState.Presences[matchState.Seats[matchState.OwnerSeat]] == nil {
		matchState.OwnerSeat = -1
		for i, seatUserID := range matchState.Seats {
			if seatUserID != "" && matchState.Presences[seatUserID] != nil {
				matchState.OwnerSeat = i
				break
			}
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLoop dispatches incoming client messages and flushes session events.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(matchState, dispatcher, logger, msg)
		case OpPlaceCard:
			mh.handlePlaceCard(matchState, dispatcher, logger, msg)
		case OpUndo:
			mh.handleUndo(matchState, dispatcher, logger, msg)
		case OpRedo:
			mh.handleRedo(matchState, dispatcher, logger, msg)
		case OpAdvanceTurn:
			mh.handleAdvanceTurn(matchState, dispatcher, logger, msg)
		case OpSaveGame:
			mh.handleSaveGame(ctx, matchState, dispatcher, logger, msg)
		case OpLoadGame:
			mh.handleLoadGame(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
		mh.flushEvents(matchState, dispatcher, logger)
	}

	return matchState
}

func (mh *matchHandler) handleStartGame(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)

	logger.Info("StartGame: Request from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	if senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		return
	}
	if state.Session != nil {
		logger.Warn("StartGame: Game already in progress.")
		return
	}
	if state.Catalog == nil {
		mh.sendError(state, dispatcher, logger, senderID, "card catalog unavailable")
		return
	}
	if state.GetOccupiedSeatCount() < app.MinPlayersToStartGame {
		logger.Warn("StartGame: Cannot start with %d players. Need at least %d.", state.GetOccupiedSeatCount(), app.MinPlayersToStartGame)
		return
	}

	deck, err := state.Catalog.Deck()
	if err != nil {
		logger.Error("StartGame: Failed to build deck: %v", err)
		return
	}
	deck.Shuffle(state.App.Rand())

	session := app.NewSession(state.App, state.Catalog)
	session.AddListener(func(ev app.Event) {
		state.pending = append(state.pending, ev)
	})

	if err := session.StartNewGame(state.seatedPlayers(), deck, state.Cfg.CardsPerPlayer); err != nil {
		logger.Error("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, err.Error())
		return
	}

	state.Session = session
	mh.updateLabel(state, dispatcher, logger)
	logger.Info("StartGame: Game started with %d players.", state.GetOccupiedSeatCount())
}

func (mh *matchHandler) handlePlaceCard(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Session == nil {
		logger.Warn("handlePlaceCard: Game not started.")
		return
	}

	var request placeCardRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Error("handlePlaceCard: Failed to unmarshal request: %v", err)
		return
	}

	if current := state.Session.State().CurrentPlayer; current != senderID {
		logger.Warn("handlePlaceCard: User %s played out of turn (current %s).", senderID, current)
		mh.sendError(state, dispatcher, logger, senderID, "not your turn")
		return
	}

	if _, err := state.Session.PlaceCard(request.CardID, request.Position); err != nil {
		logger.Warn("handlePlaceCard: User %s failed to place %s at %d: %v", senderID, request.CardID, request.Position, err)
		mh.sendError(state, dispatcher, logger, senderID, err.Error())
	}
}

func (mh *matchHandler) handleUndo(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Session == nil || state.seatOf(senderID) < 0 {
		return
	}
	if !state.Session.Undo() {
		logger.Debug("handleUndo: Nothing to undo for %s.", senderID)
		return
	}
	mh.broadcastStateSync(state, dispatcher, logger)
}

func (mh *matchHandler) handleRedo(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Session == nil || state.seatOf(senderID) < 0 {
		return
	}
	ok, err := state.Session.Redo()
	if err != nil {
		logger.Warn("handleRedo: Redo failed for %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, err.Error())
		return
	}
	if !ok {
		logger.Debug("handleRedo: Nothing to redo for %s.", senderID)
		return
	}
	mh.broadcastStateSync(state, dispatcher, logger)
}

func (mh *matchHandler) handleAdvanceTurn(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Session == nil {
		return
	}
	if current := state.Session.State().CurrentPlayer; current != senderID {
		logger.Warn("handleAdvanceTurn: User %s is not the current player (%s).", senderID, current)
		return
	}
	state.Session.AdvanceTurn()
}

func (mh *matchHandler) handleSaveGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Session == nil || state.seatOf(senderID) < 0 {
		return
	}
	if state.Saves == nil {
		mh.sendError(state, dispatcher, logger, senderID, "saving is not available")
		return
	}

	var request saveGameRequest
	if len(msg.GetData()) > 0 {
		if err := json.Unmarshal(msg.GetData(), &request); err != nil {
			logger.Error("handleSaveGame: Failed to unmarshal request: %v", err)
			return
		}
	}
	if request.SaveID == "" {
		request.SaveID = uuid.New().String()
	}

	doc, err := state.Session.Save()
	if err != nil {
		logger.Warn("handleSaveGame: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, err.Error())
		return
	}
	data, err := doc.Marshal()
	if err != nil {
		logger.Error("handleSaveGame: Failed to marshal save document: %v", err)
		return
	}

	if err := state.Saves.SaveGame(ctx, ports.SaveRecord{
		ID:       request.SaveID,
		OwnerID:  senderID,
		Name:     request.Name,
		Phase:    doc.Phase,
		Document: data,
	}); err != nil {
		logger.Error("handleSaveGame: Failed to persist save: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, "save failed")
		return
	}

	mh.send(state, dispatcher, logger, OpGameSaved, gameSavedPayload{SaveID: request.SaveID}, []string{senderID})
}

func (mh *matchHandler) handleLoadGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)
	if senderSeat < 0 || senderSeat != state.OwnerSeat {
		logger.Warn("handleLoadGame: User %s is not the owner.", senderID)
		return
	}
	if state.Saves == nil {
		mh.sendError(state, dispatcher, logger, senderID, "saving is not available")
		return
	}

	var request loadGameRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Error("handleLoadGame: Failed to unmarshal request: %v", err)
		return
	}

	rec, err := state.Saves.LoadGame(ctx, senderID, request.SaveID)
	if err != nil {
		logger.Warn("handleLoadGame: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, "saved game not found")
		return
	}
	doc, err := app.UnmarshalSaveDocument(rec.Document)
	if err != nil {
		logger.Error("handleLoadGame: Corrupt save document: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, "saved game is corrupt")
		return
	}

	// Every player of the saved session must be seated to resume it.
	for _, p := range doc.Players {
		if state.seatOf(p) < 0 {
			logger.Warn("handleLoadGame: Player %s of the save is not seated.", p)
			mh.sendError(state, dispatcher, logger, senderID, "saved game players do not match the lobby")
			return
		}
	}

	session := state.Session
	if session == nil {
		session = app.NewSession(state.App, state.Catalog)
		session.AddListener(func(ev app.Event) {
			state.pending = append(state.pending, ev)
		})
	}
	if err := session.Load(doc); err != nil {
		logger.Error("handleLoadGame: Failed to restore session: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, "saved game is corrupt")
		return
	}
	state.Session = session

	mh.updateLabel(state, dispatcher, logger)
	mh.send(state, dispatcher, logger, OpGameLoaded, gameSavedPayload{SaveID: request.SaveID}, nil)
	mh.broadcastStateSync(state, dispatcher, logger)
}

// flushEvents converts queued session events into wire messages.
func (mh *matchHandler) flushEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	events := state.pending
	state.pending = nil
	for _, ev := range events {
		switch ev.Kind {
		case app.EventGameStarted:
			p := ev.Payload.(app.GameStartedPayload)
			mh.send(state, dispatcher, logger, OpGameStarted, gameStartedPayload{
				Phase:       string(p.Phase),
				FirstPlayer: p.FirstPlayer,
			}, nil)
		case app.EventHandDealt:
			p := ev.Payload.(app.HandDealtPayload)
			mh.send(state, dispatcher, logger, OpHandDealt, handDealtPayload{Hand: cardsToWire(p.Hand)}, ev.Recipients)
		case app.EventMoveEvaluated:
			p := ev.Payload.(app.MoveEvaluatedPayload)
			mh.send(state, dispatcher, logger, OpMoveEvaluated, resultToWire(p.PlayerID, p.Result), nil)
		case app.EventTurnChanged:
			p := ev.Payload.(app.TurnChangedPayload)
			mh.send(state, dispatcher, logger, OpTurnChanged, turnChangedPayload{PlayerID: p.PlayerID}, nil)
		case app.EventGameOver:
			p := ev.Payload.(app.GameOverPayload)
			winner, ok := "", false
			if state.Session != nil {
				winner, ok = state.Session.Winner()
			}
			mh.send(state, dispatcher, logger, OpGameEnded, gameEndedPayload{
				WinnerID: winner,
				Tie:      !ok,
				Scores:   p.Scores,
			}, nil)
			mh.updateLabel(state, dispatcher, logger)
		case app.EventPhaseChanged:
			// Phase is carried by the state sync below.
		default:
			logger.Warn("flushEvents: Unknown event kind: %v", ev.Kind)
		}
	}
	if len(events) > 0 {
		mh.broadcastStateSync(state, dispatcher, logger)
	}
}

// send marshals a payload and dispatches it to the given user IDs, or to
// everyone when recipients is empty. If intended recipients are not
// connected the message must not fall back to a broadcast.
func (mh *matchHandler) send(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64, payload any, recipientIDs []string) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("send: Failed to marshal payload for op %d: %v", opCode, err)
		return
	}

	var recipients []runtime.Presence
	if len(recipientIDs) > 0 {
		for _, uid := range recipientIDs {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("send: Failed to dispatch op %d: %v", opCode, err)
	}
}

func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, message string) {
	mh.send(state, dispatcher, logger, OpError, map[string]string{"message": message}, []string{userID})
}

func (mh *matchHandler) broadcastStateSync(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Session == nil || state.Session.State() == nil {
		return
	}
	mh.send(state, dispatcher, logger, OpStateSync, stateToWire(state.Session.State(), state.Session.Progress()), nil)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := "lobby"
	open := state.GetOpenSeatsCount()
	if state.Session != nil {
		phase = "playing"
		open = 0
	}

	labelBytes, err := json.Marshal(matchLabel{Open: open, Game: "chronicle", Phase: phase})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
