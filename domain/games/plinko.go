package games

import (
	"betledger/domain/entities"
)

// DropPlinko walks a ball down the pegs. Each row moves it right with
// probability one half, so the final slot is binomially distributed.
// Path holds the slot index after each row.
func DropPlinko(settings entities.PlinkoSettings, seed []byte) (*entities.PlinkoOutcome, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	rng, err := rngFor(seed)
	if err != nil {
		return nil, err
	}

	position := 0
	path := make([]int, 0, settings.Rows)
	for row := 0; row < settings.Rows; row++ {
		position += rng.IntN(2)
		path = append(path, position)
	}

	return &entities.PlinkoOutcome{
		Path:       path,
		FinalSlot:  position,
		Multiplier: settings.Multipliers[position].String(),
	}, nil
}

// PlinkoPayout returns floor(stake x multiplier of the final slot)
func PlinkoPayout(settings entities.PlinkoSettings, stake int64, slot int) int64 {
	return entities.PayoutFor(stake, settings.Multipliers[slot])
}
