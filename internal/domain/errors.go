package domain

import "errors"

// Sentinel errors surfaced by the engine. Callers match with errors.Is.
var (
	// ErrInsufficientCards is returned when a deal asks for more cards than remain.
	ErrInsufficientCards = errors.New("not enough cards in deck")
	// ErrEmptyDeck is returned when peeking an exhausted deck.
	ErrEmptyDeck = errors.New("deck is empty")
	// ErrInvalidCount is returned for a negative deal count.
	ErrInvalidCount = errors.New("deal count must not be negative")
	// ErrDuplicateCard is returned when a card ID appears more than once.
	ErrDuplicateCard = errors.New("duplicate card id")
	// ErrCardNotOwned is returned when a player places a card they do not hold.
	ErrCardNotOwned = errors.New("card not in player hand")
	// ErrDivergedState is returned when a redo target no longer fits the timeline.
	ErrDivergedState = errors.New("timeline diverged since move was recorded")
	// ErrUnknownPlayer is returned when a player ID is not part of the session.
	ErrUnknownPlayer = errors.New("player not found")
	// ErrDuplicatePlayer is returned when the same player ID is listed twice.
	ErrDuplicatePlayer = errors.New("duplicate player id")
	// ErrNoPlayers is returned when a session is created with an empty player list.
	ErrNoPlayers = errors.New("player list is empty")
	// ErrWrongPhase is returned when an operation is invoked outside its phase.
	ErrWrongPhase = errors.New("operation not allowed in current phase")
	// ErrNotYourTurn is returned when a player acts outside their turn.
	ErrNotYourTurn = errors.New("not this player's turn")
	// ErrTimelineCorrupt indicates a constructed state broke the chronological invariant.
	ErrTimelineCorrupt = errors.New("timeline invariant violated")
)
