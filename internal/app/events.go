package app

import "chronicle/internal/domain"

// EventKind identifies emitted engine events for adapter dispatch.
type EventKind string

const (
	EventGameStarted   EventKind = "game_started"
	EventHandDealt     EventKind = "hand_dealt"
	EventPhaseChanged  EventKind = "phase_changed"
	EventTurnChanged   EventKind = "turn_changed"
	EventMoveEvaluated EventKind = "move_evaluated"
	EventGameOver      EventKind = "game_over"
)

// Event is an engine event with optional targeted recipients. Events are
// returned from transitions and fanned out synchronously; there is no
// queuing or async delivery.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // player IDs; empty means broadcast
}

type GameStartedPayload struct {
	Phase       domain.Phase
	FirstPlayer string
}

type HandDealtPayload struct {
	PlayerID string
	Hand     []domain.Card
}

type PhaseChangedPayload struct {
	From domain.Phase
	To   domain.Phase
}

type TurnChangedPayload struct {
	PlayerID string
}

type MoveEvaluatedPayload struct {
	PlayerID string
	Result   PlacementResult
}

type GameOverPayload struct {
	WinnerID string
	Scores   map[string]int
}
