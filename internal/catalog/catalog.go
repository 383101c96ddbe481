// Package catalog loads the trivia card database. The catalog is built once
// at startup and passed explicitly into session construction; there is no
// global registry.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"chronicle/internal/domain"
)

// cardRecord mirrors one entry of the JSON card database.
type cardRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Date           string `json:"date"` // ISO-8601 YYYY-MM-DD
	Trivia         string `json:"trivia"`
	ImageAssetPath string `json:"imageAssetPath"`
	Version        string `json:"version"`
}

// Catalog is an immutable collection of cards keyed by ID.
type Catalog struct {
	cards []domain.Card
	byID  map[string]domain.Card
}

// Load reads and parses the card database at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card database: %w", err)
	}
	return parse(data)
}

// Parse reads the card database from r.
func Parse(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read card database: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var records []cardRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card database: %w", err)
	}

	cat := &Catalog{
		cards: make([]domain.Card, 0, len(records)),
		byID:  make(map[string]domain.Card, len(records)),
	}
	for i, rec := range records {
		card, err := rec.toCard()
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		if _, dup := cat.byID[card.ID]; dup {
			return nil, fmt.Errorf("card %d: %w: %s", i, domain.ErrDuplicateCard, card.ID)
		}
		cat.byID[card.ID] = card
		cat.cards = append(cat.cards, card)
	}
	return cat, nil
}

func (r cardRecord) toCard() (domain.Card, error) {
	switch {
	case r.ID == "":
		return domain.Card{}, fmt.Errorf("missing required field id")
	case r.Title == "":
		return domain.Card{}, fmt.Errorf("card %s: missing required field title", r.ID)
	case r.Trivia == "":
		return domain.Card{}, fmt.Errorf("card %s: missing required field trivia", r.ID)
	case r.ImageAssetPath == "":
		return domain.Card{}, fmt.Errorf("card %s: missing required field imageAssetPath", r.ID)
	case r.Version == "":
		return domain.Card{}, fmt.Errorf("card %s: missing required field version", r.ID)
	}

	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return domain.Card{}, fmt.Errorf("card %s: invalid date %q: %w", r.ID, r.Date, err)
	}

	return domain.Card{
		ID:       r.ID,
		Title:    r.Title,
		Date:     date,
		Trivia:   r.Trivia,
		ImageRef: r.ImageAssetPath,
		Version:  r.Version,
	}, nil
}

// Cards returns a copy of all cards in file order.
func (c *Catalog) Cards() []domain.Card {
	return append([]domain.Card(nil), c.cards...)
}

// ByID looks up a card by identifier.
func (c *Catalog) ByID(id string) (domain.Card, bool) {
	card, ok := c.byID[id]
	return card, ok
}

// Len returns the number of cards in the catalog.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// Deck builds a fresh deck from the full catalog.
func (c *Catalog) Deck() (*domain.Deck, error) {
	return domain.NewDeck(c.cards)
}
