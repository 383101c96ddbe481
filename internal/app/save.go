package app

import (
	"encoding/json"
	"fmt"
	"time"

	"chronicle/internal/domain"
)

const saveDateLayout = "2006-01-02"

// SavedCard is the persisted form of a card.
type SavedCard struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Date           string `json:"date"` // ISO-8601 YYYY-MM-DD
	Trivia         string `json:"trivia"`
	ImageAssetPath string `json:"imageAssetPath"`
	Version        string `json:"version"`
}

// SavedMove is the persisted form of one applied placement.
type SavedMove struct {
	Card        SavedCard `json:"card"`
	Position    int       `json:"position"`
	HandIndex   int       `json:"handIndex"`
	Correct     bool      `json:"correct"`
	PlayerIndex int       `json:"playerIndex"`
	PlayerID    string    `json:"playerId"`
	Timestamp   time.Time `json:"timestamp"`
	ScoreDelta  int       `json:"scoreDelta"`
}

// SaveDocument is the structured persisted form of a full game session.
// Save then load is a lossless round trip; the undo history is rebuilt from
// the move records by exact inverse application, so snapshots themselves are
// not serialized.
type SaveDocument struct {
	Phase              string                 `json:"phase"`
	Players            []string               `json:"players"`
	CurrentPlayer      string                 `json:"currentPlayer"`
	CurrentPlayerIndex int                    `json:"currentPlayerIndex"`
	Timeline           []SavedCard            `json:"timeline"`
	Hands              map[string][]SavedCard `json:"hands"`
	Scores             map[string]int         `json:"scores"`
	MoveHistory        []SavedMove            `json:"moveHistory"`
	GameStartTime      time.Time              `json:"gameStartTime"`
}

// Marshal renders the document as JSON.
func (d *SaveDocument) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalSaveDocument parses a persisted session document.
func UnmarshalSaveDocument(data []byte) (*SaveDocument, error) {
	var doc SaveDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save document: %w", err)
	}
	return &doc, nil
}

// EncodeState converts a game state into its persisted document form.
func EncodeState(state *domain.GameState) *SaveDocument {
	doc := &SaveDocument{
		Phase:              string(state.Phase),
		Players:            append([]string(nil), state.Players...),
		CurrentPlayer:      state.CurrentPlayer,
		CurrentPlayerIndex: state.CurrentPlayerIndex(),
		Timeline:           encodeCards(state.Timeline),
		Hands:              make(map[string][]SavedCard, len(state.Hands)),
		Scores:             make(map[string]int, len(state.Scores)),
		MoveHistory:        make([]SavedMove, 0, len(state.Moves)),
		GameStartTime:      state.StartTime,
	}
	for p, hand := range state.Hands {
		doc.Hands[p] = encodeCards(hand)
	}
	for p, score := range state.Scores {
		doc.Scores[p] = score
	}
	for _, m := range state.Moves {
		doc.MoveHistory = append(doc.MoveHistory, SavedMove{
			Card:        encodeCard(m.Card),
			Position:    m.Position,
			HandIndex:   m.HandIndex,
			Correct:     m.Correct,
			PlayerIndex: m.PlayerIndex,
			PlayerID:    m.PlayerID,
			Timestamp:   m.Timestamp,
			ScoreDelta:  m.ScoreDelta,
		})
	}
	return doc
}

// DecodeState rebuilds a game state from its persisted document, including
// the undo history: each recorded move is inverted in reverse order to
// recover the pre-move snapshots.
func DecodeState(doc *SaveDocument) (*domain.GameState, error) {
	phase, err := parsePhase(doc.Phase)
	if err != nil {
		return nil, err
	}

	state := &domain.GameState{
		Phase:         phase,
		Players:       append([]string(nil), doc.Players...),
		CurrentPlayer: doc.CurrentPlayer,
		Hands:         make(map[string][]domain.Card, len(doc.Hands)),
		Scores:        make(map[string]int, len(doc.Scores)),
		StartTime:     doc.GameStartTime,
	}
	if state.Timeline, err = decodeCards(doc.Timeline); err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	for p, hand := range doc.Hands {
		if state.Hands[p], err = decodeCards(hand); err != nil {
			return nil, fmt.Errorf("hand of %s: %w", p, err)
		}
	}
	for p, score := range doc.Scores {
		state.Scores[p] = score
	}
	for i, sm := range doc.MoveHistory {
		card, err := decodeCard(sm.Card)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i, err)
		}
		state.Moves = append(state.Moves, domain.Move{
			Card:        card,
			Position:    sm.Position,
			HandIndex:   sm.HandIndex,
			Correct:     sm.Correct,
			PlayerIndex: sm.PlayerIndex,
			PlayerID:    sm.PlayerID,
			Timestamp:   sm.Timestamp,
			ScoreDelta:  sm.ScoreDelta,
		})
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}
	if state.History, err = rebuildHistory(state); err != nil {
		return nil, err
	}
	return state, nil
}

// rebuildHistory recovers the pre-move snapshots by walking the move records
// backwards from the loaded state. ScoreDelta and HandIndex make each
// inversion exact.
func rebuildHistory(state *domain.GameState) ([]*domain.GameState, error) {
	snapshots := make([]*domain.GameState, len(state.Moves))
	cur := state.Snapshot()
	for i := len(state.Moves) - 1; i >= 0; i-- {
		move := state.Moves[i]
		prev, err := invertMove(cur, move)
		if err != nil {
			return nil, fmt.Errorf("rebuild history at move %d: %w", i, err)
		}
		snapshots[i] = prev
		cur = prev
	}
	return snapshots, nil
}

func invertMove(state *domain.GameState, move domain.Move) (*domain.GameState, error) {
	if move.Position < 0 || move.Position >= len(state.Timeline) {
		return nil, fmt.Errorf("move position %d outside timeline: %w", move.Position, domain.ErrTimelineCorrupt)
	}
	if !state.Timeline[move.Position].Equal(move.Card) {
		return nil, fmt.Errorf("timeline card %s does not match move card %s: %w",
			state.Timeline[move.Position].ID, move.Card.ID, domain.ErrTimelineCorrupt)
	}

	prev := state.Clone()
	prev.Timeline = append(prev.Timeline[:move.Position], prev.Timeline[move.Position+1:]...)

	// Return the card to the slot it was played from, so the rebuilt hand
	// matches the live pre-move snapshot exactly.
	hand := prev.Hands[move.PlayerID]
	if move.HandIndex < 0 || move.HandIndex > len(hand) {
		return nil, fmt.Errorf("hand index %d outside hand of %d: %w", move.HandIndex, len(hand), domain.ErrTimelineCorrupt)
	}
	restored := make([]domain.Card, 0, len(hand)+1)
	restored = append(restored, hand[:move.HandIndex]...)
	restored = append(restored, move.Card)
	restored = append(restored, hand[move.HandIndex:]...)
	prev.Hands[move.PlayerID] = restored
	prev.Scores[move.PlayerID] -= move.ScoreDelta
	prev.Moves = prev.Moves[:len(prev.Moves)-1]
	prev.History = nil
	// The snapshot was captured at the start of the actor's turn.
	prev.CurrentPlayer = move.PlayerID
	prev.Phase = domain.PhasePlayerTurn
	return prev, nil
}

func parsePhase(raw string) (domain.Phase, error) {
	switch p := domain.Phase(raw); p {
	case domain.PhaseSetup, domain.PhasePlayerTurn, domain.PhaseValidating,
		domain.PhaseCorrectPlacement, domain.PhaseIncorrectPlacement,
		domain.PhaseGameOver, domain.PhaseResults:
		return p, nil
	default:
		return "", fmt.Errorf("unknown phase %q", raw)
	}
}

func encodeCard(c domain.Card) SavedCard {
	return SavedCard{
		ID:             c.ID,
		Title:          c.Title,
		Date:           c.Date.Format(saveDateLayout),
		Trivia:         c.Trivia,
		ImageAssetPath: c.ImageRef,
		Version:        c.Version,
	}
}

func encodeCards(cards []domain.Card) []SavedCard {
	out := make([]SavedCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, encodeCard(c))
	}
	return out
}

func decodeCard(sc SavedCard) (domain.Card, error) {
	date, err := time.Parse(saveDateLayout, sc.Date)
	if err != nil {
		return domain.Card{}, fmt.Errorf("card %s: invalid date %q: %w", sc.ID, sc.Date, err)
	}
	return domain.Card{
		ID:       sc.ID,
		Title:    sc.Title,
		Date:     date,
		Trivia:   sc.Trivia,
		ImageRef: sc.ImageAssetPath,
		Version:  sc.Version,
	}, nil
}

func decodeCards(cards []SavedCard) ([]domain.Card, error) {
	if len(cards) == 0 {
		return nil, nil
	}
	out := make([]domain.Card, 0, len(cards))
	for _, sc := range cards {
		c, err := decodeCard(sc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
