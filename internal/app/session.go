package app

import (
	"fmt"

	"chronicle/internal/catalog"
	"chronicle/internal/domain"
)

// Listener receives engine events synchronously after each transition.
type Listener func(Event)

// Session is the façade the UI layer drives. It owns the current immutable
// state, the redo stack and the listener set, and sequences the turn manager
// so callers only see placeCard/undo/redo/advanceTurn level operations.
// The session is single-threaded: exactly one transition is in flight at a
// time and each returns before the next begins.
type Session struct {
	svc       *Service
	cat       *catalog.Catalog
	state     *domain.GameState
	redo      []domain.Move
	listeners []Listener
}

// NewSession constructs a session around the given service and card catalog.
func NewSession(svc *Service, cat *catalog.Catalog) *Session {
	return &Session{svc: svc, cat: cat}
}

// AddListener registers a synchronous event callback.
func (s *Session) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Session) emit(events []Event) {
	for _, ev := range events {
		for _, l := range s.listeners {
			l(ev)
		}
	}
}

// State returns the current immutable snapshot. Consumers read it freely;
// the session never mutates a state it has handed out.
func (s *Session) State() *domain.GameState {
	return s.state
}

// StartNewGame shuffles nothing itself: the caller decides whether and how
// the deck was shuffled. It creates the initial state and deals hands.
func (s *Session) StartNewGame(players []string, deck *domain.Deck, cardsPerPlayer int) error {
	if len(players) < MinPlayersToStartGame {
		return fmt.Errorf("start new game with %d players: %w", len(players), domain.ErrNoPlayers)
	}

	state, err := domain.NewGameState(players, s.svc.clock())
	if err != nil {
		return err
	}
	next, events, err := s.svc.DealInitialCards(state, deck, cardsPerPlayer)
	if err != nil {
		return err
	}

	s.state = next
	s.redo = nil
	s.emit(events)
	return nil
}

// PlaceCard attempts to place the identified card from the current player's
// hand at the given timeline position. On an applied placement that does not
// end the game the turn advances automatically. Any new forward move clears
// the redo stack.
func (s *Session) PlaceCard(cardID string, position int) (PlacementResult, error) {
	if s.state == nil {
		return PlacementResult{}, fmt.Errorf("place card: %w", domain.ErrWrongPhase)
	}

	next, result, events, err := s.svc.PlaceCard(s.state, s.state.CurrentPlayer, cardID, position)
	if err != nil {
		return PlacementResult{}, err
	}
	s.state = next
	if result.Applied {
		s.redo = nil
	}
	s.emit(events)

	if result.Applied && !result.Won {
		s.advance()
	}
	return result, nil
}

// AdvanceTurn moves play to the next player. The UI calls this after a
// rejected placement, where the turn does not advance automatically.
func (s *Session) AdvanceTurn() {
	if s.state == nil || s.state.Phase == domain.PhaseGameOver || s.state.Phase == domain.PhaseResults {
		return
	}
	s.advance()
}

func (s *Session) advance() {
	next, events := s.svc.NextTurn(s.state)
	s.state = next
	s.emit(events)
}

// Undo restores the state before the most recent applied move and remembers
// the move for redo. It reports false when there is nothing to undo.
func (s *Session) Undo() bool {
	if s.state == nil || len(s.state.Moves) == 0 {
		return false
	}
	undone := s.state.Moves[len(s.state.Moves)-1]
	restored, ok := s.svc.Undo(s.state)
	if !ok {
		return false
	}
	s.state = restored
	s.redo = append(s.redo, undone)
	return true
}

// Redo re-applies the most recently undone move. It reports false with a
// nil error when the redo stack is empty, and false with ErrDivergedState
// when the timeline has changed so the move is no longer legal.
func (s *Session) Redo() (bool, error) {
	if s.state == nil || len(s.redo) == 0 {
		return false, nil
	}
	move := s.redo[len(s.redo)-1]

	next, events, err := s.svc.Redo(s.state, move)
	if err != nil {
		return false, err
	}
	s.redo = s.redo[:len(s.redo)-1]
	s.state = next
	s.emit(events)

	if next.Phase != domain.PhaseGameOver {
		s.advance()
	}
	return true, nil
}

// CanUndo reports whether an undo is currently possible.
func (s *Session) CanUndo() bool {
	return s.state != nil && len(s.state.History) > 0
}

// CanRedo reports whether a redo is currently possible.
func (s *Session) CanRedo() bool {
	return len(s.redo) > 0
}

// CanPlayerMove reports whether the current player has any legal placement.
func (s *Session) CanPlayerMove() bool {
	if s.state == nil {
		return false
	}
	return s.svc.CanPlayerMove(s.state)
}

// Winner returns the highest-scoring player. A tie yields ok=false rather
// than an arbitrary pick.
func (s *Session) Winner() (string, bool) {
	if s.state == nil || len(s.state.Players) == 0 {
		return "", false
	}
	best, tied := "", false
	bestScore := 0
	for i, p := range s.state.Players {
		score := s.state.Scores[p]
		switch {
		case i == 0 || score > bestScore:
			best, bestScore, tied = p, score, false
		case score == bestScore:
			tied = true
		}
	}
	if tied {
		return "", false
	}
	return best, true
}

// ShowResults transitions a finished game into the results phase.
func (s *Session) ShowResults() error {
	if s.state == nil || s.state.Phase != domain.PhaseGameOver {
		return fmt.Errorf("show results: %w", domain.ErrWrongPhase)
	}
	next := s.state.Clone()
	next.Phase = domain.PhaseResults
	s.state = next
	s.emit([]Event{{Kind: EventPhaseChanged, Payload: PhaseChangedPayload{From: domain.PhaseGameOver, To: next.Phase}}})
	return nil
}

// Progress returns the fraction of catalog cards placed on the timeline.
func (s *Session) Progress() float64 {
	if s.state == nil {
		return 0
	}
	total := 0
	if s.cat != nil {
		total = s.cat.Len()
	}
	return domain.Progress(s.state.Timeline, total)
}

// Save serializes the full current state into a persistable document.
func (s *Session) Save() (*SaveDocument, error) {
	if s.state == nil {
		return nil, fmt.Errorf("save: %w", domain.ErrWrongPhase)
	}
	return EncodeState(s.state), nil
}

// Load replaces the session state with the one described by the document.
// The undo history is rebuilt from the move records; the redo stack is not
// persisted and starts empty.
func (s *Session) Load(doc *SaveDocument) error {
	state, err := DecodeState(doc)
	if err != nil {
		return err
	}
	if max := s.svc.cfg.MaxHistory; max > 0 && len(state.History) > max {
		state.History = state.History[len(state.History)-max:]
	}
	s.state = state
	s.redo = nil
	return nil
}
