package domain

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Deck is an ordered, duplicate-free sequence of cards. Construction sorts
// the cards by (date, id) so the original order is deterministic regardless
// of catalog file ordering. Deck access is expected to finish before the
// session starts; the type is not safe for concurrent use.
type Deck struct {
	cards    []Card
	original []Card
}

// NewDeck builds a deck from the given cards. Cards with duplicate IDs are a
// construction error.
func NewDeck(cards []Card) (*Deck, error) {
	seen := make(map[string]struct{}, len(cards))
	for _, c := range cards {
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("new deck: %w: %s", ErrDuplicateCard, c.ID)
		}
		seen[c.ID] = struct{}{}
	}

	ordered := append([]Card(nil), cards...)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	return &Deck{
		cards:    append([]Card(nil), ordered...),
		original: ordered,
	}, nil
}

// Shuffle performs an in-place Fisher-Yates shuffle: for i from size-1 down
// to 1, draw j uniformly from [0, i] and swap positions i and j. A nil rng
// falls back to a time-seeded source.
func (d *Deck) Shuffle(rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	for i := len(d.cards) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal atomically removes and returns the first count cards in current
// order. The deck is left unmodified on error.
func (d *Deck) Deal(count int) ([]Card, error) {
	if count < 0 {
		return nil, fmt.Errorf("deal %d: %w", count, ErrInvalidCount)
	}
	if count > len(d.cards) {
		return nil, fmt.Errorf("deal %d of %d: %w", count, len(d.cards), ErrInsufficientCards)
	}
	dealt := append([]Card(nil), d.cards[:count]...)
	d.cards = d.cards[count:]
	return dealt, nil
}

// Peek returns the next card without removing it.
func (d *Deck) Peek() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}
	return d.cards[0], nil
}

// Reset restores the deck to its original post-construction ordering.
func (d *Deck) Reset() {
	d.cards = append([]Card(nil), d.original...)
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards in order.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}
