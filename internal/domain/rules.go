package domain

// Placement rules are pure functions over a timeline supplied as an
// argument; they hold no state and always return the same result for the
// same inputs.

// ValidatePlacement reports whether inserting card at position keeps the
// timeline in non-decreasing chronological order. Position must lie in
// [0, len(timeline)]; on an empty timeline only position 0 is valid.
func ValidatePlacement(card Card, timeline []Card, position int) bool {
	if position < 0 || position > len(timeline) {
		return false
	}
	if position > 0 && timeline[position-1].Date.After(card.Date) {
		return false
	}
	if position < len(timeline) && timeline[position].Date.Before(card.Date) {
		return false
	}
	return true
}

// ValidPositions returns every index in [0, len(timeline)] at which the card
// may legally be inserted, in ascending order.
func ValidPositions(card Card, timeline []Card) []int {
	var out []int
	for pos := 0; pos <= len(timeline); pos++ {
		if ValidatePlacement(card, timeline, pos) {
			out = append(out, pos)
		}
	}
	return out
}

// CorrectPosition returns the unique index at which inserting the card keeps
// the timeline perfectly sorted: the first index whose resident card's date
// is >= the candidate's, or len(timeline) if none qualifies.
func CorrectPosition(card Card, timeline []Card) int {
	for i, resident := range timeline {
		if !resident.Date.Before(card.Date) {
			return i
		}
	}
	return len(timeline)
}

// IsCorrectPlacement reports whether position is within tolerance of the
// exact chronological insertion point. Tolerance gives near-miss leniency;
// it is a game-design choice, not strict equality.
func IsCorrectPlacement(card Card, timeline []Card, position, tolerance int) bool {
	diff := CorrectPosition(card, timeline) - position
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// IsChronological reports whether the timeline is non-decreasing by date.
func IsChronological(timeline []Card) bool {
	for i := 1; i < len(timeline); i++ {
		if timeline[i-1].Date.After(timeline[i].Date) {
			return false
		}
	}
	return true
}

// HasWon reports whether a player with the given hand has won against the
// given timeline. The sortedness re-check is defensive; the timeline
// invariant should already guarantee it.
func HasWon(hand, timeline []Card) bool {
	return len(hand) == 0 && IsChronological(timeline)
}

// Progress returns the fraction of the game completed in [0, 1]. A
// non-positive total counts as complete once anything is on the timeline.
func Progress(timeline []Card, totalCards int) float64 {
	if totalCards <= 0 {
		if len(timeline) > 0 {
			return 1
		}
		return 0
	}
	p := float64(len(timeline)) / float64(totalCards)
	if p > 1 {
		return 1
	}
	return p
}
