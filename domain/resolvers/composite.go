package resolvers

import (
	"encoding/json"
	"fmt"

	"betledger/domain/entities"

	"github.com/shopspring/decimal"
)

// compositeResolver settles runs_and_wickets yes/no propositions
type compositeResolver struct{}

func newCompositeResolver() *compositeResolver {
	return &compositeResolver{}
}

func (r *compositeResolver) Market() entities.MarketType {
	return entities.MarketRunsAndWickets
}

func (r *compositeResolver) Validate(prediction json.RawMessage, odds *decimal.Decimal) (Terms, error) {
	p, err := entities.DecodePrediction[entities.CompositePrediction](prediction)
	if err != nil {
		return Terms{}, err
	}
	switch p.Subtype {
	case entities.SubtypeTied:
	case entities.SubtypeMatch, entities.SubtypeToss:
		if p.TeamID <= 0 {
			return Terms{}, entities.ValidationErrorf("team_id is required for %s", p.Subtype)
		}
	case entities.SubtypeRuns, entities.SubtypeWickets, entities.SubtypeFours, entities.SubtypeSixes:
		if p.TeamID <= 0 {
			return Terms{}, entities.ValidationErrorf("team_id is required for %s", p.Subtype)
		}
		if p.Threshold <= 0 {
			return Terms{}, entities.ValidationErrorf("threshold must be positive for %s", p.Subtype)
		}
	default:
		return Terms{}, entities.ValidationErrorf("unknown subtype %q", p.Subtype)
	}
	if p.Condition != entities.ConditionYes && p.Condition != entities.ConditionNo {
		return Terms{}, entities.ValidationErrorf("condition must be yes or no")
	}
	o, err := providedOdds(odds)
	if err != nil {
		return Terms{}, err
	}
	return Terms{Odds: o}, nil
}

func (r *compositeResolver) Resolve(wager *entities.Wager, facts *entities.MatchFacts) (entities.Outcome, error) {
	p, err := entities.DecodePrediction[entities.CompositePrediction](wager.Prediction)
	if err != nil {
		return entities.Outcome{}, err
	}

	var holds bool
	var reason string

	switch p.Subtype {
	case entities.SubtypeTied:
		if !facts.IsFinal() {
			return entities.NotResolvable("match not finished"), nil
		}
		holds = facts.WinnerTeamID == nil
		reason = fmt.Sprintf("tied=%t", holds)

	case entities.SubtypeMatch:
		if facts.WinnerTeamID == nil && !facts.IsFinal() {
			return entities.NotResolvable("match winner not yet known"), nil
		}
		holds = facts.WinnerTeamID != nil && *facts.WinnerTeamID == p.TeamID
		reason = fmt.Sprintf("team %d won match=%t", p.TeamID, holds)

	case entities.SubtypeToss:
		if facts.TossWinnerID == nil {
			if facts.IsFinal() {
				return entities.Void(wager.Stake, "toss result never reported"), nil
			}
			return entities.NotResolvable("toss not yet known"), nil
		}
		holds = *facts.TossWinnerID == p.TeamID
		reason = fmt.Sprintf("team %d won toss=%t", p.TeamID, holds)

	default:
		value, ok := statistic(facts, p.Subtype, p.TeamID)
		if !ok {
			return entities.NotResolvable(fmt.Sprintf("%s not available", p.Subtype)), nil
		}
		holds = value >= p.Threshold
		// Aggregates only grow, so a reached threshold cannot be undone.
		if !holds && !facts.IsFinal() {
			return entities.NotResolvable(fmt.Sprintf("%s %d below %d, match not finished", p.Subtype, value, p.Threshold)), nil
		}
		reason = fmt.Sprintf("%s %d against threshold %d", p.Subtype, value, p.Threshold)
	}

	if holds == (p.Condition == entities.ConditionYes) {
		return entities.Won(wager.WinPayout(), reason), nil
	}
	return entities.Lost(reason), nil
}

func statistic(facts *entities.MatchFacts, subtype entities.CompositeSubtype, teamID int64) (int, bool) {
	switch subtype {
	case entities.SubtypeRuns, entities.SubtypeWickets:
		runs, wickets, ok := facts.TeamRunsTotal(teamID)
		if subtype == entities.SubtypeRuns {
			return runs, ok
		}
		return wickets, ok
	case entities.SubtypeFours, entities.SubtypeSixes:
		fours, sixes, ok := facts.TeamBoundaries(teamID)
		if subtype == entities.SubtypeFours {
			return fours, ok
		}
		return sixes, ok
	}
	return 0, false
}
