package nakama

import (
	"chronicle/internal/app"
	"chronicle/internal/domain"
)

// Wire payloads are JSON envelopes; cards never expose more than clients
// need to render them.

const wireDateLayout = "2006-01-02"

type wireCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Trivia   string `json:"trivia"`
	ImageRef string `json:"imageRef"`
	Version  string `json:"version"`
}

type wireState struct {
	Phase         string         `json:"phase"`
	Players       []string       `json:"players"`
	CurrentPlayer string         `json:"currentPlayer"`
	Timeline      []wireCard     `json:"timeline"`
	HandCounts    map[string]int `json:"handCounts"`
	Scores        map[string]int `json:"scores"`
	Progress      float64        `json:"progress"`
}

type placeCardRequest struct {
	CardID   string `json:"cardId"`
	Position int    `json:"position"`
}

type saveGameRequest struct {
	SaveID string `json:"saveId"`
	Name   string `json:"name"`
}

type loadGameRequest struct {
	SaveID string `json:"saveId"`
}

type playerJoinedPayload struct {
	UserID string `json:"userId"`
	Seat   int    `json:"seat"`
	Owner  bool   `json:"owner"`
}

type playerLeftPayload struct {
	UserID string `json:"userId"`
}

type gameStartedPayload struct {
	Phase       string `json:"phase"`
	FirstPlayer string `json:"firstPlayer"`
}

type handDealtPayload struct {
	Hand []wireCard `json:"hand"`
}

type moveEvaluatedPayload struct {
	PlayerID        string `json:"playerId"`
	Outcome         string `json:"outcome"`
	Applied         bool   `json:"applied"`
	Correct         bool   `json:"correct"`
	Position        int    `json:"position"`
	CorrectPosition int    `json:"correctPosition"`
	ScoreDelta      int    `json:"scoreDelta"`
	Won             bool   `json:"won"`
}

type turnChangedPayload struct {
	PlayerID string `json:"playerId"`
}

type gameEndedPayload struct {
	WinnerID string         `json:"winnerId"`
	Tie      bool           `json:"tie"`
	Scores   map[string]int `json:"scores"`
}

type gameSavedPayload struct {
	SaveID string `json:"saveId"`
}

// matchLabel is the advertised label for quick-match queries.
type matchLabel struct {
	Open  int    `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

func cardToWire(c domain.Card) wireCard {
	return wireCard{
		ID:       c.ID,
		Title:    c.Title,
		Date:     c.Date.Format(wireDateLayout),
		Trivia:   c.Trivia,
		ImageRef: c.ImageRef,
		Version:  c.Version,
	}
}

func cardsToWire(cards []domain.Card) []wireCard {
	out := make([]wireCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToWire(c))
	}
	return out
}

func stateToWire(state *domain.GameState, progress float64) wireState {
	ws := wireState{
		Phase:         string(state.Phase),
		Players:       append([]string(nil), state.Players...),
		CurrentPlayer: state.CurrentPlayer,
		Timeline:      cardsToWire(state.Timeline),
		HandCounts:    make(map[string]int, len(state.Hands)),
		Scores:        make(map[string]int, len(state.Scores)),
		Progress:      progress,
	}
	for p, hand := range state.Hands {
		ws.HandCounts[p] = len(hand)
	}
	for p, score := range state.Scores {
		ws.Scores[p] = score
	}
	return ws
}

func resultToWire(playerID string, r app.PlacementResult) moveEvaluatedPayload {
	return moveEvaluatedPayload{
		PlayerID:        playerID,
		Outcome:         string(r.Outcome),
		Applied:         r.Applied,
		Correct:         r.Correct,
		Position:        r.Position,
		CorrectPosition: r.CorrectPosition,
		ScoreDelta:      r.ScoreDelta,
		Won:             r.Won,
	}
}
