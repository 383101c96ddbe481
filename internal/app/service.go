package app

import (
	"fmt"
	"math/rand"
	"time"

	"chronicle/internal/config"
	"chronicle/internal/domain"
)

// PlacementOutcome classifies the result of one placement attempt. An
// illegal or rejected placement is an expected outcome during normal play,
// not an error.
type PlacementOutcome string

const (
	// OutcomeCorrect means the card was inserted within tolerance.
	OutcomeCorrect PlacementOutcome = "correct"
	// OutcomeIncorrect means the card was inserted at a legal position
	// outside tolerance under the lenient policy.
	OutcomeIncorrect PlacementOutcome = "incorrect"
	// OutcomeRejected means the placement was refused and no card moved.
	OutcomeRejected PlacementOutcome = "rejected"
)

// PlacementResult describes how a placement attempt was judged.
type PlacementResult struct {
	Outcome         PlacementOutcome
	Applied         bool
	Correct         bool
	Position        int
	CorrectPosition int
	ScoreDelta      int
	Won             bool
}

// Service orchestrates turn sequencing and placement application over
// immutable game states. Every transition returns a new state plus the
// events it produced; the input state is never modified.
type Service struct {
	cfg   config.GameConfig
	rng   *rand.Rand
	clock func() time.Time
}

// NewService constructs a Service with the given config and rng. A nil rng
// falls back to a time-seeded default.
func NewService(cfg config.GameConfig, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{cfg: cfg, rng: rng, clock: time.Now}
}

// Config returns the game configuration the service judges placements with.
func (s *Service) Config() config.GameConfig {
	return s.cfg
}

// Rand exposes the service's random source for deck shuffling.
func (s *Service) Rand() *rand.Rand {
	return s.rng
}

// DealInitialCards deals cardsPerPlayer cards to every player in order,
// clearing any prior hands, and advances the session into the first turn.
// When the config enables timeline seeding, one anchor card is dealt onto
// the empty timeline first so players have something to place against.
// The deck is left untouched when the deal cannot be satisfied.
func (s *Service) DealInitialCards(state *domain.GameState, deck *domain.Deck, cardsPerPlayer int) (*domain.GameState, []Event, error) {
	if state.Phase != domain.PhaseSetup {
		return nil, nil, fmt.Errorf("deal initial cards in phase %s: %w", state.Phase, domain.ErrWrongPhase)
	}
	if cardsPerPlayer < 0 {
		return nil, nil, fmt.Errorf("deal initial cards: %d per player: %w", cardsPerPlayer, domain.ErrInvalidCount)
	}

	need := cardsPerPlayer * len(state.Players)
	if s.cfg.SeedTimeline {
		need++
	}
	if need > deck.Size() {
		return nil, nil, fmt.Errorf("deal initial cards: need %d of %d: %w", need, deck.Size(), domain.ErrInsufficientCards)
	}

	next := state.Clone()
	next.Timeline = nil

	if s.cfg.SeedTimeline {
		anchor, err := deck.Deal(1)
		if err != nil {
			return nil, nil, err
		}
		next.Timeline = anchor
	}

	events := make([]Event, 0, len(next.Players)+2)
	for _, p := range next.Players {
		hand, err := deck.Deal(cardsPerPlayer)
		if err != nil {
			return nil, nil, err
		}
		next.Hands[p] = hand
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{PlayerID: p, Hand: hand},
			Recipients: []string{p},
		})
	}

	next.Phase = domain.PhasePlayerTurn
	next.CurrentPlayer = next.Players[0]
	events = append(events, Event{
		Kind:    EventGameStarted,
		Payload: GameStartedPayload{Phase: next.Phase, FirstPlayer: next.CurrentPlayer},
	})

	if err := next.Validate(); err != nil {
		return nil, nil, err
	}
	return next, events, nil
}

// PlaceCard applies one placement attempt by the acting player. An illegal
// placement, or a legal-but-incorrect one under strict policy, leaves the
// hand, timeline and scores untouched and only moves the phase to
// incorrect_placement. An accepted placement removes the card from the
// hand, inserts it into the timeline, adjusts the score and appends the
// pre-move snapshot to the history.
func (s *Service) PlaceCard(state *domain.GameState, playerID, cardID string, position int) (*domain.GameState, PlacementResult, []Event, error) {
	if state.Phase != domain.PhasePlayerTurn {
		return nil, PlacementResult{}, nil, fmt.Errorf("place card in phase %s: %w", state.Phase, domain.ErrWrongPhase)
	}
	if playerID != state.CurrentPlayer {
		return nil, PlacementResult{}, nil, fmt.Errorf("place card by %s: %w", playerID, domain.ErrNotYourTurn)
	}
	handIndex := -1
	for i, c := range state.Hands[playerID] {
		if c.ID == cardID {
			handIndex = i
			break
		}
	}
	if handIndex < 0 {
		return nil, PlacementResult{}, nil, fmt.Errorf("place card %s: %w", cardID, domain.ErrCardNotOwned)
	}
	card := state.Hands[playerID][handIndex]

	result := PlacementResult{
		Position:        position,
		CorrectPosition: domain.CorrectPosition(card, state.Timeline),
	}

	legal := domain.ValidatePlacement(card, state.Timeline, position)
	if legal {
		result.Correct = domain.IsCorrectPlacement(card, state.Timeline, position, s.cfg.PlacementTolerance)
	}

	if !legal || (!result.Correct && s.cfg.StrictPlacement) {
		// Placement rejected: no side effects beyond the phase.
		result.Outcome = OutcomeRejected
		next := state.Clone()
		next.Phase = domain.PhaseIncorrectPlacement
		events := []Event{
			{Kind: EventMoveEvaluated, Payload: MoveEvaluatedPayload{PlayerID: playerID, Result: result}},
			{Kind: EventPhaseChanged, Payload: PhaseChangedPayload{From: state.Phase, To: next.Phase}},
		}
		return next, result, events, nil
	}

	if result.Correct {
		result.Outcome = OutcomeCorrect
		result.ScoreDelta = s.cfg.CorrectScore
	} else {
		result.Outcome = OutcomeIncorrect
		result.ScoreDelta = s.cfg.IncorrectScore
	}
	result.Applied = true

	move := domain.Move{
		Card:        card,
		Position:    position,
		HandIndex:   handIndex,
		Correct:     result.Correct,
		PlayerIndex: state.CurrentPlayerIndex(),
		PlayerID:    playerID,
		Timestamp:   s.clock(),
		ScoreDelta:  result.ScoreDelta,
	}

	next, err := s.apply(state, move)
	if err != nil {
		return nil, PlacementResult{}, nil, err
	}
	result.Won = next.Phase == domain.PhaseGameOver

	events := []Event{
		{Kind: EventMoveEvaluated, Payload: MoveEvaluatedPayload{PlayerID: playerID, Result: result}},
		{Kind: EventPhaseChanged, Payload: PhaseChangedPayload{From: state.Phase, To: next.Phase}},
	}
	if result.Won {
		events = append(events, Event{
			Kind:    EventGameOver,
			Payload: GameOverPayload{WinnerID: playerID, Scores: next.Scores},
		})
	}
	return next, result, events, nil
}

// apply inserts the move's card into the timeline, updates the score and
// records the pre-move snapshot. It is shared by PlaceCard and Redo so a
// replayed move reproduces the forward state exactly.
func (s *Service) apply(state *domain.GameState, move domain.Move) (*domain.GameState, error) {
	next := state.Clone()

	hand := next.Hands[move.PlayerID]
	if move.HandIndex < 0 || move.HandIndex >= len(hand) || !hand[move.HandIndex].Equal(move.Card) {
		return nil, fmt.Errorf("apply move %s: %w", move.Card.ID, domain.ErrCardNotOwned)
	}
	removed := make([]domain.Card, 0, len(hand))
	removed = append(removed, hand[:move.HandIndex]...)
	removed = append(removed, hand[move.HandIndex+1:]...)
	next.Hands[move.PlayerID] = removed

	timeline := make([]domain.Card, 0, len(next.Timeline)+1)
	timeline = append(timeline, next.Timeline[:move.Position]...)
	timeline = append(timeline, move.Card)
	timeline = append(timeline, next.Timeline[move.Position:]...)
	next.Timeline = timeline

	next.Scores[move.PlayerID] += move.ScoreDelta
	next.Moves = append(next.Moves, move)
	next.History = append(next.History, state.Snapshot())
	if s.cfg.MaxHistory > 0 && len(next.History) > s.cfg.MaxHistory {
		next.History = next.History[len(next.History)-s.cfg.MaxHistory:]
	}

	if domain.HasWon(next.Hands[move.PlayerID], next.Timeline) {
		next.Phase = domain.PhaseGameOver
	} else if move.Correct {
		next.Phase = domain.PhaseCorrectPlacement
	} else {
		next.Phase = domain.PhaseIncorrectPlacement
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// NextTurn advances the current player cyclically and resets the phase for
// the next placement. It is a no-op on an empty player list.
func (s *Service) NextTurn(state *domain.GameState) (*domain.GameState, []Event) {
	if len(state.Players) == 0 {
		return state, nil
	}
	next := state.Clone()
	idx := state.CurrentPlayerIndex()
	next.CurrentPlayer = next.Players[(idx+1)%len(next.Players)]
	next.Phase = domain.PhasePlayerTurn

	return next, []Event{
		{Kind: EventTurnChanged, Payload: TurnChangedPayload{PlayerID: next.CurrentPlayer}},
		{Kind: EventPhaseChanged, Payload: PhaseChangedPayload{From: state.Phase, To: next.Phase}},
	}
}

// CanPlayerMove reports whether the current player holds at least one card
// with a legal position on the timeline. Callers use this to detect
// stalemate; the stalemate policy itself is left to them.
func (s *Service) CanPlayerMove(state *domain.GameState) bool {
	for _, c := range state.Hand() {
		if len(domain.ValidPositions(c, state.Timeline)) > 0 {
			return true
		}
	}
	return false
}

// Undo restores the most recent pre-move snapshot. It reports false when
// there is nothing to undo; callers are expected to poll availability.
func (s *Service) Undo(state *domain.GameState) (*domain.GameState, bool) {
	if len(state.History) == 0 {
		return state, false
	}
	last := len(state.History) - 1
	restored := state.History[last].Clone()
	restored.History = append([]*domain.GameState(nil), state.History[:last]...)
	return restored, true
}

// Redo re-applies a previously undone move. The forward move is re-validated
// against the possibly changed timeline first; if it is no longer legal the
// redo fails with ErrDivergedState instead of corrupting the timeline.
func (s *Service) Redo(state *domain.GameState, move domain.Move) (*domain.GameState, []Event, error) {
	if state.Phase != domain.PhasePlayerTurn {
		return nil, nil, fmt.Errorf("redo in phase %s: %w", state.Phase, domain.ErrWrongPhase)
	}
	if hand := state.Hands[move.PlayerID]; move.HandIndex < 0 || move.HandIndex >= len(hand) || !hand[move.HandIndex].Equal(move.Card) {
		return nil, nil, fmt.Errorf("redo %s: card no longer held: %w", move.Card.ID, domain.ErrDivergedState)
	}
	if !domain.ValidatePlacement(move.Card, state.Timeline, move.Position) {
		return nil, nil, fmt.Errorf("redo %s at %d: %w", move.Card.ID, move.Position, domain.ErrDivergedState)
	}

	next, err := s.apply(state, move)
	if err != nil {
		return nil, nil, err
	}

	result := PlacementResult{
		Outcome:         OutcomeCorrect,
		Applied:         true,
		Correct:         move.Correct,
		Position:        move.Position,
		CorrectPosition: domain.CorrectPosition(move.Card, state.Timeline),
		ScoreDelta:      move.ScoreDelta,
		Won:             next.Phase == domain.PhaseGameOver,
	}
	if !move.Correct {
		result.Outcome = OutcomeIncorrect
	}

	events := []Event{
		{Kind: EventMoveEvaluated, Payload: MoveEvaluatedPayload{PlayerID: move.PlayerID, Result: result}},
		{Kind: EventPhaseChanged, Payload: PhaseChangedPayload{From: state.Phase, To: next.Phase}},
	}
	if result.Won {
		events = append(events, Event{
			Kind:    EventGameOver,
			Payload: GameOverPayload{WinnerID: move.PlayerID, Scores: next.Scores},
		})
	}
	return next, events, nil
}
