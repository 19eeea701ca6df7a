package games

import (
	"betledger/domain/entities"
)

// DrawColor picks the winning colour. An admin-forced next_color overrides
// the draw.
func DrawColor(settings entities.ColorSettings, seed []byte) (string, error) {
	if settings.NextColor != "" && settings.NextColor != entities.RandomColor && settings.HasColor(settings.NextColor) {
		return settings.NextColor, nil
	}
	if len(settings.Colors) == 0 {
		return "", entities.ValidationErrorf("no colours configured")
	}
	rng, err := rngFor(seed)
	if err != nil {
		return "", err
	}
	return settings.Colors[rng.IntN(len(settings.Colors))], nil
}

// ColorPayout returns what a colour bet pays: stake times the selected
// colour's multiplier on a hit, nothing otherwise
func ColorPayout(settings entities.ColorSettings, stake int64, selected, drawn string) int64 {
	if selected != drawn {
		return 0
	}
	return entities.PayoutFor(stake, settings.Multipliers[selected])
}
