package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GameType identifies a mini-game
type GameType string

const (
	GameTypeColor  GameType = "color"
	GameTypeMines  GameType = "mines"
	GameTypePlinko GameType = "plinko"
)

// IsValid reports whether the game type is known
func (g GameType) IsValid() bool {
	switch g {
	case GameTypeColor, GameTypeMines, GameTypePlinko:
		return true
	}
	return false
}

// RandomColor as next_color lets the generator draw freely
const RandomColor = "random"

// GameSettings is one immutable, versioned settings snapshot
type GameSettings struct {
	GameType  GameType        `db:"game_type" json:"game_type"`
	Version   int64           `db:"version" json:"version"`
	Settings  json.RawMessage `db:"settings" json:"settings"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// BetLimits are shared by every game
type BetLimits struct {
	MinBet int64 `json:"min_bet"`
	MaxBet int64 `json:"max_bet"`
	Active bool  `json:"active"`
}

// CheckStake validates a stake against the limits
func (l BetLimits) CheckStake(stake int64) error {
	if !l.Active {
		return ConflictErrorf("game is not active")
	}
	if stake < l.MinBet || stake > l.MaxBet {
		return ValidationErrorf("stake must be between %d and %d, got %d", l.MinBet, l.MaxBet, stake)
	}
	return nil
}

func (l BetLimits) validate() error {
	if l.MinBet <= 0 || l.MaxBet < l.MinBet {
		return ValidationErrorf("invalid bet limits %d..%d", l.MinBet, l.MaxBet)
	}
	return nil
}

// ColorSettings configure the colour prediction game
type ColorSettings struct {
	BetLimits
	Colors      []string                   `json:"colors"`
	Multipliers map[string]decimal.Decimal `json:"multipliers"`
	NextColor   string                     `json:"next_color"`
}

// Validate checks every colour has a multiplier and next_color is drawable
func (s ColorSettings) Validate() error {
	if err := s.BetLimits.validate(); err != nil {
		return err
	}
	if len(s.Colors) == 0 {
		return ValidationErrorf("at least one colour is required")
	}
	for _, color := range s.Colors {
		multiplier, ok := s.Multipliers[color]
		if !ok || !multiplier.IsPositive() {
			return ValidationErrorf("colour %q needs a positive multiplier", color)
		}
	}
	if s.NextColor != "" && s.NextColor != RandomColor && !s.HasColor(s.NextColor) {
		return ValidationErrorf("next_color %q is not a configured colour", s.NextColor)
	}
	return nil
}

// HasColor reports whether color is configured
func (s ColorSettings) HasColor(color string) bool {
	for _, c := range s.Colors {
		if c == color {
			return true
		}
	}
	return false
}

// MinesSettings configure the mines game
type MinesSettings struct {
	BetLimits
	GridSize            int             `json:"grid_size"`
	BombCount           int             `json:"bomb_count"`
	BaseMultiplier      decimal.Decimal `json:"base_multiplier"`
	MultiplierIncrement decimal.Decimal `json:"multiplier_increment"`
}

// TileCount returns the number of tiles on the board
func (s MinesSettings) TileCount() int {
	return s.GridSize * s.GridSize
}

// Validate checks the board leaves at least one safe tile
func (s MinesSettings) Validate() error {
	if err := s.BetLimits.validate(); err != nil {
		return err
	}
	if s.GridSize < 2 || s.GridSize > 10 {
		return ValidationErrorf("grid_size must be between 2 and 10")
	}
	if s.BombCount < 1 || s.BombCount >= s.TileCount() {
		return ValidationErrorf("bomb_count must leave at least one safe tile")
	}
	if !s.BaseMultiplier.IsPositive() || s.MultiplierIncrement.IsNegative() {
		return ValidationErrorf("invalid multipliers")
	}
	return nil
}

// PlinkoSettings configure the plinko board
type PlinkoSettings struct {
	BetLimits
	Rows        int               `json:"rows"`
	Multipliers []decimal.Decimal `json:"multipliers"`
}

// Validate checks there is one slot per possible landing position
func (s PlinkoSettings) Validate() error {
	if err := s.BetLimits.validate(); err != nil {
		return err
	}
	if s.Rows < 1 || s.Rows > 32 {
		return ValidationErrorf("rows must be between 1 and 32")
	}
	if len(s.Multipliers) != s.Rows+1 {
		return ValidationErrorf("plinko needs %d multipliers, got %d", s.Rows+1, len(s.Multipliers))
	}
	for _, m := range s.Multipliers {
		if m.IsNegative() {
			return ValidationErrorf("plinko multipliers must not be negative")
		}
	}
	return nil
}

func defaultLimits() BetLimits {
	return BetLimits{MinBet: 10, MaxBet: 10000, Active: true}
}

// DefaultColorSettings returns the settings a fresh install starts with
func DefaultColorSettings() ColorSettings {
	return ColorSettings{
		BetLimits: defaultLimits(),
		Colors:    []string{"red", "green", "blue"},
		Multipliers: map[string]decimal.Decimal{
			"red":   decimal.NewFromInt(2),
			"green": decimal.NewFromInt(3),
			"blue":  decimal.RequireFromString("1.5"),
		},
		NextColor: RandomColor,
	}
}

// DefaultMinesSettings returns the settings a fresh install starts with
func DefaultMinesSettings() MinesSettings {
	return MinesSettings{
		BetLimits:           defaultLimits(),
		GridSize:            5,
		BombCount:           5,
		BaseMultiplier:      decimal.NewFromInt(1),
		MultiplierIncrement: decimal.RequireFromString("0.2"),
	}
}

// DefaultPlinkoSettings returns the settings a fresh install starts with
func DefaultPlinkoSettings() PlinkoSettings {
	slots := []string{"110", "41", "10", "1.2", "1", "0.8", "0.6", "0.5", "0.3", "0.5", "0.6", "0.8", "1", "1.2", "10", "41", "110"}
	multipliers := make([]decimal.Decimal, len(slots))
	for i, s := range slots {
		multipliers[i] = decimal.RequireFromString(s)
	}
	return PlinkoSettings{
		BetLimits:   defaultLimits(),
		Rows:        16,
		Multipliers: multipliers,
	}
}

// DefaultSettingsJSON returns the default snapshot payload for a game
func DefaultSettingsJSON(gameType GameType) (json.RawMessage, error) {
	var v any
	switch gameType {
	case GameTypeColor:
		v = DefaultColorSettings()
	case GameTypeMines:
		v = DefaultMinesSettings()
	case GameTypePlinko:
		v = DefaultPlinkoSettings()
	default:
		return nil, ValidationErrorf("unknown game type %q", gameType)
	}
	return json.Marshal(v)
}

// ValidateSettingsJSON decodes a payload for gameType and validates it
func ValidateSettingsJSON(gameType GameType, raw json.RawMessage) error {
	switch gameType {
	case GameTypeColor:
		s, err := DecodeSettings[ColorSettings](raw)
		if err != nil {
			return err
		}
		return s.Validate()
	case GameTypeMines:
		s, err := DecodeSettings[MinesSettings](raw)
		if err != nil {
			return err
		}
		return s.Validate()
	case GameTypePlinko:
		s, err := DecodeSettings[PlinkoSettings](raw)
		if err != nil {
			return err
		}
		return s.Validate()
	}
	return ValidationErrorf("unknown game type %q", gameType)
}

// DecodeSettings decodes a snapshot payload into the game's settings struct
func DecodeSettings[T any](raw json.RawMessage) (T, error) {
	var settings T
	if err := json.Unmarshal(raw, &settings); err != nil {
		return settings, fmt.Errorf("%w: invalid settings payload: %v", ErrValidation, err)
	}
	return settings, nil
}
