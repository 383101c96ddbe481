package app

import (
	"reflect"
	"testing"

	"chronicle/internal/config"
	"chronicle/internal/domain"
)

// documentsEqual compares two save documents field by field; documents are
// the normalized form of a state, so this stands in for state equality.
func documentsEqual(a, b *SaveDocument) bool {
	return reflect.DeepEqual(a, b)
}

// playedSession is a mid-game session: three cards dealt per player and
// three placements made, so hands, scores and history are all non-trivial
// and the game is still running.
func playedSession(t *testing.T) *Session {
	t.Helper()
	sess, deck := testSession(t, func(c *config.GameConfig) { c.CardsPerPlayer = 3 })
	if err := sess.StartNewGame([]string{"u1", "u2"}, deck, 3); err != nil {
		t.Fatalf("start new game: %v", err)
	}
	// u1 holds c1..c3, u2 holds c4..c6.
	for _, p := range []struct {
		cardID   string
		position int
	}{
		{"c1", 0},
		{"c5", 1},
		{"c2", 1},
	} {
		result, err := sess.PlaceCard(p.cardID, p.position)
		if err != nil {
			t.Fatalf("place %s: %v", p.cardID, err)
		}
		if !result.Applied {
			t.Fatalf("place %s rejected", p.cardID)
		}
	}
	return sess
}

func TestSaveDocumentFields(t *testing.T) {
	sess := playedSession(t)

	doc, err := sess.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if doc.Phase != string(domain.PhasePlayerTurn) {
		t.Errorf("phase = %s, want player_turn", doc.Phase)
	}
	if len(doc.Players) != 2 || doc.CurrentPlayer != "u2" || doc.CurrentPlayerIndex != 1 {
		t.Errorf("player fields wrong: %+v", doc)
	}
	if len(doc.Timeline) != 3 {
		t.Errorf("timeline = %d cards, want 3", len(doc.Timeline))
	}
	if len(doc.MoveHistory) != 3 {
		t.Errorf("move history = %d, want 3", len(doc.MoveHistory))
	}
	if doc.Timeline[0].Date != "1900-01-01" {
		t.Errorf("date = %s, want ISO-8601 day", doc.Timeline[0].Date)
	}
	if doc.GameStartTime != fixedClock() {
		t.Errorf("game start time not preserved")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	sess := playedSession(t)
	want, err := sess.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	wantHistory := sess.State().History

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	doc, err := UnmarshalSaveDocument(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored := NewSession(testService(t, nil), nil)
	if err := restored.Load(doc); err != nil {
		t.Fatalf("load: %v", err)
	}

	got, err := restored.Save()
	if err != nil {
		t.Fatalf("save after load: %v", err)
	}
	if !documentsEqual(got, want) {
		t.Fatalf("round trip lost data:\n got %+v\nwant %+v", got, want)
	}

	// The undo history is rebuilt from the move records and must match the
	// snapshots taken during live play.
	gotHistory := restored.State().History
	if len(gotHistory) != len(wantHistory) {
		t.Fatalf("history = %d snapshots, want %d", len(gotHistory), len(wantHistory))
	}
	for i := range wantHistory {
		if !documentsEqual(EncodeState(gotHistory[i]), EncodeState(wantHistory[i])) {
			t.Fatalf("history snapshot %d differs after load", i)
		}
	}
}

func TestRebuiltHistoryPreservesHandOrder(t *testing.T) {
	sess := playedSession(t)
	live := sess.State().History[0]

	doc, err := sess.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	restored := NewSession(testService(t, nil), nil)
	if err := restored.Load(doc); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Inverting a move must return each card to the hand slot it was played
	// from, not append it, or rebuilt snapshots reorder the hands.
	rebuilt := restored.State().History[0]
	for _, p := range []string{"u1", "u2"} {
		want, got := live.Hands[p], rebuilt.Hands[p]
		if len(got) != len(want) {
			t.Fatalf("hand of %s = %d cards, want %d", p, len(got), len(want))
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Fatalf("hand of %s at %d = %s, want %s", p, i, got[i].ID, want[i].ID)
			}
		}
	}
}

func TestLoadedSessionSupportsUndo(t *testing.T) {
	sess := playedSession(t)
	doc, _ := sess.Save()

	restored := NewSession(testService(t, nil), nil)
	if err := restored.Load(doc); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !restored.Undo() {
		t.Fatalf("loaded session should support undo")
	}
	state := restored.State()
	if len(state.Timeline) != 2 {
		t.Errorf("timeline = %d cards after undo, want 2", len(state.Timeline))
	}
	if state.CurrentPlayer != "u1" {
		t.Errorf("current = %s, want the actor of the undone move", state.CurrentPlayer)
	}
}

func TestDecodeStateErrors(t *testing.T) {
	base := func() *SaveDocument {
		sess := playedSession(t)
		doc, _ := sess.Save()
		return doc
	}

	tests := []struct {
		name   string
		mutate func(*SaveDocument)
	}{
		{
			name:   "unknown phase",
			mutate: func(d *SaveDocument) { d.Phase = "limbo" },
		},
		{
			name:   "current player not in players",
			mutate: func(d *SaveDocument) { d.CurrentPlayer = "ghost" },
		},
		{
			name:   "bad card date",
			mutate: func(d *SaveDocument) { d.Timeline[0].Date = "never" },
		},
		{
			name: "timeline out of order",
			mutate: func(d *SaveDocument) {
				d.Timeline[0], d.Timeline[2] = d.Timeline[2], d.Timeline[0]
			},
		},
		{
			name: "move does not match timeline",
			mutate: func(d *SaveDocument) {
				d.MoveHistory[len(d.MoveHistory)-1].Position = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base()
			tt.mutate(doc)
			if _, err := DecodeState(doc); err == nil {
				t.Fatalf("expected decode error for %s", tt.name)
			}
		})
	}
}
