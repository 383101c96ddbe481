package config

import (
	"encoding/json"
	"fmt"
	"os"

	"chronicle/internal/domain"
)

// GameConfig holds the tunable game rules for a Chronicle session.
type GameConfig struct {
	// CardsPerPlayer is the initial hand size dealt to each player.
	CardsPerPlayer int `json:"cards_per_player"`
	// PlacementTolerance is the allowed index deviation still judged correct.
	PlacementTolerance int `json:"placement_tolerance"`
	// StrictPlacement rejects legal placements outside tolerance instead of
	// accepting them as incorrect moves.
	StrictPlacement bool `json:"strict_placement"`
	// SeedTimeline deals one anchor card onto the empty timeline at start.
	SeedTimeline bool `json:"seed_timeline"`
	// MaxHistory bounds the undo history depth; 0 means unbounded.
	MaxHistory int `json:"max_history"`
	// CorrectScore is the reward for a placement within tolerance.
	CorrectScore int `json:"correct_score"`
	// IncorrectScore is the reward for an accepted out-of-tolerance placement.
	IncorrectScore int `json:"incorrect_score"`
}

// Defaults returns the engine's built-in game configuration.
func Defaults() GameConfig {
	return GameConfig{
		CardsPerPlayer:     4,
		PlacementTolerance: domain.DefaultTolerance,
		StrictPlacement:    false,
		SeedTimeline:       true,
		MaxHistory:         0,
		CorrectScore:       domain.ScoreCorrectPlacement,
		IncorrectScore:     domain.ScoreIncorrectPlacement,
	}
}

// LoadGameConfig loads the game configuration from the given path. Zero
// numeric fields fall back to the engine defaults.
func LoadGameConfig(path string) (GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GameConfig{}, fmt.Errorf("failed to read game config: %w", err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return GameConfig{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	return cfg.normalized()
}

func (c GameConfig) normalized() (GameConfig, error) {
	if c.CardsPerPlayer < 0 || c.PlacementTolerance < 0 || c.MaxHistory < 0 {
		return GameConfig{}, fmt.Errorf("game config: negative values are not allowed")
	}
	def := Defaults()
	if c.CardsPerPlayer == 0 {
		c.CardsPerPlayer = def.CardsPerPlayer
	}
	if c.CorrectScore == 0 {
		c.CorrectScore = def.CorrectScore
	}
	if c.IncorrectScore == 0 {
		c.IncorrectScore = def.IncorrectScore
	}
	return c, nil
}
