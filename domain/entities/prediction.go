package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BetSide is the back/lay direction of an open-market bet
type BetSide string

const (
	SideBack BetSide = "back"
	SideLay  BetSide = "lay"
)

// Condition is the yes/no answer of a composite market
type Condition string

const (
	ConditionYes Condition = "yes"
	ConditionNo  Condition = "no"
)

// CompositeSubtype selects the predicate of a runs_and_wickets wager
type CompositeSubtype string

const (
	SubtypeTied    CompositeSubtype = "tied"
	SubtypeMatch   CompositeSubtype = "match"
	SubtypeToss    CompositeSubtype = "toss"
	SubtypeRuns    CompositeSubtype = "runs"
	SubtypeWickets CompositeSubtype = "wickets"
	SubtypeFours   CompositeSubtype = "fours"
	SubtypeSixes   CompositeSubtype = "sixes"
)

// IsStatistic returns true for subtypes judged against a team aggregate
func (s CompositeSubtype) IsStatistic() bool {
	switch s {
	case SubtypeRuns, SubtypeWickets, SubtypeFours, SubtypeSixes:
		return true
	}
	return false
}

// TeamPrediction is the payload of toss and match_winner wagers
type TeamPrediction struct {
	TeamID int64   `json:"team_id"`
	Side   BetSide `json:"side"`
}

// PlayerCountPrediction is the payload of the exact-count player markets:
// boundary_count, bowler_runs_conceded and player_wickets
type PlayerCountPrediction struct {
	PlayerID   int64  `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	TeamName   string `json:"team_name,omitempty"`
	Predicted  *int   `json:"predicted"`
}

// SubjectKey identifies the player for duplicate detection
func (p PlayerCountPrediction) SubjectKey() string {
	if p.PlayerID != 0 {
		return "id:" + strconv.FormatInt(p.PlayerID, 10)
	}
	return "name:" + strings.ToLower(strings.TrimSpace(p.PlayerName))
}

// PlayerRunsPrediction is the payload of player_runs_threshold wagers
type PlayerRunsPrediction struct {
	PlayerID  int64  `json:"player_id"`
	Threshold string `json:"threshold"`
}

// ThresholdValue parses thresholds written as "50+" or "50"
func (p PlayerRunsPrediction) ThresholdValue() (int, error) {
	raw := strings.TrimSuffix(strings.TrimSpace(p.Threshold), "+")
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ValidationErrorf("invalid runs threshold %q", p.Threshold)
	}
	if value < 0 {
		return 0, ValidationErrorf("runs threshold must not be negative")
	}
	return value, nil
}

// CompositePrediction is the payload of runs_and_wickets wagers
type CompositePrediction struct {
	Subtype   CompositeSubtype `json:"subtype"`
	TeamID    int64            `json:"team_id,omitempty"`
	Threshold int              `json:"threshold,omitempty"`
	Condition Condition        `json:"condition"`
}

// DecodePrediction strictly decodes a raw prediction payload into T
func DecodePrediction[T any](raw json.RawMessage) (T, error) {
	var payload T
	if len(raw) == 0 {
		return payload, ValidationErrorf("prediction payload is required")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return payload, fmt.Errorf("%w: invalid prediction payload: %v", ErrValidation, err)
	}
	return payload, nil
}
