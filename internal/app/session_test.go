package app

import (
	"errors"
	"testing"

	"chronicle/internal/config"
	"chronicle/internal/domain"
)

func testSession(t *testing.T, mutate func(*config.GameConfig)) (*Session, *domain.Deck) {
	t.Helper()
	svc := testService(t, mutate)
	return NewSession(svc, nil), sixCardDeck(t)
}

func startedSession(t *testing.T, mutate func(*config.GameConfig)) *Session {
	t.Helper()
	sess, deck := testSession(t, mutate)
	if err := sess.StartNewGame([]string{"u1", "u2"}, deck, 2); err != nil {
		t.Fatalf("start new game: %v", err)
	}
	return sess
}

func TestStartNewGame(t *testing.T) {
	sess := startedSession(t, nil)

	state := sess.State()
	if state.Phase != domain.PhasePlayerTurn {
		t.Errorf("phase = %s, want player_turn", state.Phase)
	}
	if state.CurrentPlayer != "u1" {
		t.Errorf("current = %s, want u1", state.CurrentPlayer)
	}
}

func TestStartNewGameTooFewPlayers(t *testing.T) {
	sess, deck := testSession(t, nil)
	if err := sess.StartNewGame(nil, deck, 2); !errors.Is(err, domain.ErrNoPlayers) {
		t.Fatalf("err = %v, want ErrNoPlayers", err)
	}
}

func TestPlaceCardAdvancesTurn(t *testing.T) {
	sess := startedSession(t, nil)

	result, err := sess.PlaceCard("c1", 0)
	if err != nil {
		t.Fatalf("place card: %v", err)
	}
	if !result.Applied {
		t.Fatalf("result = %+v, want applied", result)
	}
	// An applied placement that does not end the game advances the turn.
	if got := sess.State().CurrentPlayer; got != "u2" {
		t.Errorf("current = %s, want u2", got)
	}
	if sess.State().Phase != domain.PhasePlayerTurn {
		t.Errorf("phase = %s, want player_turn", sess.State().Phase)
	}
}

func TestRejectedPlacementKeepsTurn(t *testing.T) {
	sess := startedSession(t, nil)

	if _, err := sess.PlaceCard("c1", 0); err != nil {
		t.Fatalf("setup placement: %v", err)
	}
	// u2 holds c3 (1940); position 0 ahead of c1 (1900) is illegal.
	result, err := sess.PlaceCard("c3", 0)
	if err != nil {
		t.Fatalf("place card: %v", err)
	}
	if result.Applied {
		t.Fatalf("result = %+v, want rejected", result)
	}
	if sess.State().CurrentPlayer != "u2" {
		t.Errorf("rejection should not auto-advance the turn")
	}

	// The UI passes the turn explicitly after a rejection.
	sess.AdvanceTurn()
	if sess.State().CurrentPlayer != "u1" {
		t.Errorf("advance turn should move to u1")
	}
	if sess.State().Phase != domain.PhasePlayerTurn {
		t.Errorf("phase = %s, want player_turn", sess.State().Phase)
	}
}

func TestSessionListeners(t *testing.T) {
	sess := startedSession(t, nil)

	var kinds []EventKind
	sess.AddListener(func(ev Event) { kinds = append(kinds, ev.Kind) })

	if _, err := sess.PlaceCard("c1", 0); err != nil {
		t.Fatalf("place card: %v", err)
	}

	want := map[EventKind]bool{EventMoveEvaluated: false, EventPhaseChanged: false, EventTurnChanged: false}
	for _, k := range kinds {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("missing event %s", k)
		}
	}
}

func TestUndoRedoSymmetry(t *testing.T) {
	sess := startedSession(t, nil)

	// u1: c1 at 0; u2: c3 at 1; u1: c2 at 1.
	placements := []struct {
		cardID   string
		position int
	}{
		{"c1", 0},
		{"c3", 1},
		{"c2", 1},
	}
	for _, p := range placements {
		result, err := sess.PlaceCard(p.cardID, p.position)
		if err != nil {
			t.Fatalf("place %s: %v", p.cardID, err)
		}
		if !result.Applied {
			t.Fatalf("place %s rejected: %+v", p.cardID, result)
		}
	}

	want := EncodeState(sess.State())

	for i := 0; i < len(placements); i++ {
		if !sess.Undo() {
			t.Fatalf("undo %d failed", i)
		}
	}
	if len(sess.State().Timeline) != 0 {
		t.Fatalf("timeline = %d cards after full undo, want 0", len(sess.State().Timeline))
	}
	if sess.Undo() {
		t.Fatalf("undo past history start should report false")
	}

	for i := 0; i < len(placements); i++ {
		ok, err := sess.Redo()
		if err != nil || !ok {
			t.Fatalf("redo %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, err := sess.Redo(); ok || err != nil {
		t.Fatalf("redo past stack end: ok=%v err=%v", ok, err)
	}

	if got := EncodeState(sess.State()); !documentsEqual(got, want) {
		t.Fatalf("state after undo*N redo*N differs:\n got %+v\nwant %+v", got, want)
	}
}

func TestNewMoveClearsRedoStack(t *testing.T) {
	sess := startedSession(t, nil)

	if _, err := sess.PlaceCard("c1", 0); err != nil {
		t.Fatalf("place: %v", err)
	}
	if !sess.Undo() {
		t.Fatalf("undo failed")
	}
	if !sess.CanRedo() {
		t.Fatalf("redo should be available after undo")
	}

	// A fresh forward move invalidates the redo stack.
	if _, err := sess.PlaceCard("c2", 0); err != nil {
		t.Fatalf("place: %v", err)
	}
	if sess.CanRedo() {
		t.Fatalf("redo stack should be cleared by a new move")
	}
}

func TestWinner(t *testing.T) {
	sess := startedSession(t, nil)

	state := sess.State().Clone()
	state.Scores["u1"] = 6
	state.Scores["u2"] = 4
	sess.state = state

	if winner, ok := sess.Winner(); !ok || winner != "u1" {
		t.Errorf("winner = %s, %v; want u1", winner, ok)
	}

	state = state.Clone()
	state.Scores["u2"] = 6
	sess.state = state
	if _, ok := sess.Winner(); ok {
		t.Errorf("tie must not produce a winner")
	}
}

func TestShowResults(t *testing.T) {
	sess := startedSession(t, nil)

	if err := sess.ShowResults(); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("results before game over: err = %v, want ErrWrongPhase", err)
	}

	state := sess.State().Clone()
	state.Phase = domain.PhaseGameOver
	sess.state = state
	if err := sess.ShowResults(); err != nil {
		t.Fatalf("show results: %v", err)
	}
	if sess.State().Phase != domain.PhaseResults {
		t.Errorf("phase = %s, want results", sess.State().Phase)
	}
}

func TestGameOverStopsPlacement(t *testing.T) {
	sess, deck := testSession(t, func(c *config.GameConfig) { c.CardsPerPlayer = 1 })
	if err := sess.StartNewGame([]string{"u1", "u2"}, deck, 1); err != nil {
		t.Fatalf("start: %v", err)
	}

	// u1 empties their hand with a correct placement; the game ends at once.
	result, err := sess.PlaceCard("c1", 0)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !result.Won {
		t.Fatalf("result = %+v, want won", result)
	}
	if sess.State().Phase != domain.PhaseGameOver {
		t.Errorf("phase = %s, want game_over", sess.State().Phase)
	}

	if _, err := sess.PlaceCard("c3", 0); !errors.Is(err, domain.ErrWrongPhase) {
		t.Errorf("placement after game over: err = %v, want ErrWrongPhase", err)
	}
}
