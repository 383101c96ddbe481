package domain

import (
	"fmt"
	"time"
)

// Phase represents the lifecycle stage of a Chronicle match.
type Phase string

const (
	// PhaseSetup is the pre-deal state where the session is being configured.
	PhaseSetup Phase = "setup"
	// PhasePlayerTurn is the active state where the current player may place a card.
	PhasePlayerTurn Phase = "player_turn"
	// PhaseValidating is the transient state while a placement is being judged.
	PhaseValidating Phase = "validating"
	// PhaseCorrectPlacement follows a placement judged correct.
	PhaseCorrectPlacement Phase = "correct_placement"
	// PhaseIncorrectPlacement follows a placement judged illegal or incorrect.
	PhaseIncorrectPlacement Phase = "incorrect_placement"
	// PhaseGameOver is the terminal state once a player has emptied their hand.
	PhaseGameOver Phase = "game_over"
	// PhaseResults is the post-game state reached outside the placement loop.
	PhaseResults Phase = "results"
)

// Card is a single historical event card. Cards are created once at catalog
// load time and never mutated; identity and equality are by ID.
type Card struct {
	ID       string
	Title    string
	Date     time.Time // calendar date, no time component
	Trivia   string
	ImageRef string
	Version  string
}

// Equal reports whether two cards denote the same event.
func (c Card) Equal(o Card) bool {
	return c.ID == o.ID
}

// Move is an immutable record of one applied placement, kept for statistics
// and persistence. ScoreDelta and HandIndex are recorded so a move can be
// inverted exactly: HandIndex is the slot the card occupied in the actor's
// hand, so inversion restores the hand in its original order.
type Move struct {
	Card        Card
	Position    int
	HandIndex   int
	Correct     bool
	PlayerIndex int
	PlayerID    string
	Timestamp   time.Time
	ScoreDelta  int
}

// GameState is the authoritative immutable snapshot of one match instant.
// Every transition constructs a new GameState; no instance is edited in
// place, so concurrent readers may safely hold references to old snapshots.
type GameState struct {
	Phase         Phase
	Players       []string // fixed for the life of the session
	CurrentPlayer string
	Timeline      []Card // always non-decreasing by date
	Hands         map[string][]Card
	Scores        map[string]int
	Moves         []Move
	History       []*GameState // pre-move snapshots, most recent last
	StartTime     time.Time
}

// NewGameState constructs the initial setup-phase state for the given players.
func NewGameState(players []string, now time.Time) (*GameState, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("new game state: %w", ErrNoPlayers)
	}
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p == "" {
			return nil, fmt.Errorf("new game state: blank player id: %w", ErrUnknownPlayer)
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("new game state: duplicate player %q: %w", p, ErrDuplicatePlayer)
		}
		seen[p] = struct{}{}
	}

	hands := make(map[string][]Card, len(players))
	scores := make(map[string]int, len(players))
	for _, p := range players {
		hands[p] = nil
		scores[p] = 0
	}

	return &GameState{
		Phase:         PhaseSetup,
		Players:       append([]string(nil), players...),
		CurrentPlayer: players[0],
		Hands:         hands,
		Scores:        scores,
		StartTime:     now,
	}, nil
}

// Clone returns a deep copy of the state. History entries are shared by
// pointer; snapshots are immutable so sharing is safe.
func (s *GameState) Clone() *GameState {
	out := &GameState{
		Phase:         s.Phase,
		Players:       append([]string(nil), s.Players...),
		CurrentPlayer: s.CurrentPlayer,
		Timeline:      append([]Card(nil), s.Timeline...),
		Hands:         make(map[string][]Card, len(s.Hands)),
		Scores:        make(map[string]int, len(s.Scores)),
		Moves:         append([]Move(nil), s.Moves...),
		History:       append([]*GameState(nil), s.History...),
		StartTime:     s.StartTime,
	}
	for p, hand := range s.Hands {
		out.Hands[p] = append([]Card(nil), hand...)
	}
	for p, score := range s.Scores {
		out.Scores[p] = score
	}
	return out
}

// Snapshot returns a copy suitable for the undo history: identical to Clone
// except that the copy carries no history of its own.
func (s *GameState) Snapshot() *GameState {
	out := s.Clone()
	out.History = nil
	return out
}

// CurrentPlayerIndex returns the index of CurrentPlayer within Players, or -1.
func (s *GameState) CurrentPlayerIndex() int {
	for i, p := range s.Players {
		if p == s.CurrentPlayer {
			return i
		}
	}
	return -1
}

// Hand returns the current player's hand.
func (s *GameState) Hand() []Card {
	return s.Hands[s.CurrentPlayer]
}

// HandCard finds a card by ID in the given player's hand.
func (s *GameState) HandCard(playerID, cardID string) (Card, bool) {
	for _, c := range s.Hands[playerID] {
		if c.ID == cardID {
			return c, true
		}
	}
	return Card{}, false
}

// Validate checks the structural invariants every reachable state must hold.
// A violation indicates an engine bug, not user error.
func (s *GameState) Validate() error {
	if len(s.Players) == 0 {
		return fmt.Errorf("state invalid: %w", ErrNoPlayers)
	}
	if s.CurrentPlayerIndex() < 0 {
		return fmt.Errorf("state invalid: current player %q not in players: %w", s.CurrentPlayer, ErrUnknownPlayer)
	}
	if !IsChronological(s.Timeline) {
		return fmt.Errorf("state invalid: timeline out of chronological order: %w", ErrTimelineCorrupt)
	}
	for p := range s.Hands {
		if !s.hasPlayer(p) {
			return fmt.Errorf("state invalid: hand for unknown player %q: %w", p, ErrUnknownPlayer)
		}
	}
	for p := range s.Scores {
		if !s.hasPlayer(p) {
			return fmt.Errorf("state invalid: score for unknown player %q: %w", p, ErrUnknownPlayer)
		}
	}
	return nil
}

func (s *GameState) hasPlayer(id string) bool {
	for _, p := range s.Players {
		if p == id {
			return true
		}
	}
	return false
}
