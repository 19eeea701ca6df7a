package games

import (
	"fmt"
	"slices"

	"betledger/domain/entities"

	"github.com/shopspring/decimal"
)

// MinesLayout places the bombs for a board
func MinesLayout(settings entities.MinesSettings, seed []byte) ([]int, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	rng, err := rngFor(seed)
	if err != nil {
		return nil, err
	}
	bombs := rng.Perm(settings.TileCount())[:settings.BombCount]
	slices.Sort(bombs)
	return bombs, nil
}

// NewMinesBoard returns the starting state of a board. The multiplier terms
// are copied onto the board so later settings changes do not touch it.
func NewMinesBoard(settings entities.MinesSettings, bombs []int) *entities.MinesOutcome {
	return &entities.MinesOutcome{
		GridSize:            settings.GridSize,
		Bombs:               bombs,
		Revealed:            []int{},
		BaseMultiplier:      settings.BaseMultiplier.String(),
		MultiplierIncrement: settings.MultiplierIncrement.String(),
		CurrentMultiplier:   settings.BaseMultiplier.String(),
	}
}

// MinesMultiplier is base + increment per revealed safe tile
func MinesMultiplier(base, increment decimal.Decimal, revealed int) decimal.Decimal {
	return base.Add(increment.Mul(decimal.NewFromInt(int64(revealed))))
}

// RevealResult is what one reveal did to a board
type RevealResult struct {
	HitBomb bool
	Cleared bool
}

// Reveal uncovers tile on board. An out-of-range or already revealed tile is
// a validation error and leaves the board unchanged.
func Reveal(board *entities.MinesOutcome, tile int) (RevealResult, error) {
	base, err := parseBoardDecimal(board.BaseMultiplier)
	if err != nil {
		return RevealResult{}, err
	}
	increment, err := parseBoardDecimal(board.MultiplierIncrement)
	if err != nil {
		return RevealResult{}, err
	}

	tiles := board.GridSize * board.GridSize
	if tile < 0 || tile >= tiles {
		return RevealResult{}, entities.ValidationErrorf("tile must be between 0 and %d", tiles-1)
	}
	if slices.Contains(board.Revealed, tile) {
		return RevealResult{}, entities.ValidationErrorf("tile %d already revealed", tile)
	}

	if slices.Contains(board.Bombs, tile) {
		hit := tile
		board.HitBomb = &hit
		return RevealResult{HitBomb: true}, nil
	}

	board.Revealed = append(board.Revealed, tile)
	board.CurrentMultiplier = MinesMultiplier(base, increment, len(board.Revealed)).String()
	return RevealResult{Cleared: len(board.Revealed) == tiles-len(board.Bombs)}, nil
}

// BoardMultiplier parses the board's current multiplier
func BoardMultiplier(board *entities.MinesOutcome) (decimal.Decimal, error) {
	return parseBoardDecimal(board.CurrentMultiplier)
}

func parseBoardDecimal(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt board multiplier %q: %w", value, err)
	}
	return d, nil
}
