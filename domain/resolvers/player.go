package resolvers

import (
	"encoding/json"
	"fmt"

	"betledger/domain/entities"

	"github.com/shopspring/decimal"
)

// playerRunsResolver settles "player scores at least N" bets
type playerRunsResolver struct {
	policy NotOutPolicy
}

func newPlayerRunsResolver(policy NotOutPolicy) *playerRunsResolver {
	return &playerRunsResolver{policy: policy}
}

func (r *playerRunsResolver) Market() entities.MarketType {
	return entities.MarketPlayerRunsThreshold
}

func (r *playerRunsResolver) Validate(prediction json.RawMessage, _ *decimal.Decimal) (Terms, error) {
	p, err := entities.DecodePrediction[entities.PlayerRunsPrediction](prediction)
	if err != nil {
		return Terms{}, err
	}
	if p.PlayerID <= 0 {
		return Terms{}, entities.ValidationErrorf("player_id is required")
	}
	if _, err := p.ThresholdValue(); err != nil {
		return Terms{}, err
	}
	return Terms{Odds: entities.FixedMultiplier}, nil
}

func (r *playerRunsResolver) Resolve(wager *entities.Wager, facts *entities.MatchFacts) (entities.Outcome, error) {
	p, err := entities.DecodePrediction[entities.PlayerRunsPrediction](wager.Prediction)
	if err != nil {
		return entities.Outcome{}, err
	}
	threshold, err := p.ThresholdValue()
	if err != nil {
		return entities.Outcome{}, err
	}

	if facts.Batting == nil {
		return entities.NotResolvable("batting scorecard not available"), nil
	}
	entry := facts.FindBatsman(p.PlayerID, "", "")
	if entry == nil {
		if facts.IsFinal() {
			return entities.Void(wager.Stake, fmt.Sprintf("player %d did not bat", p.PlayerID)), nil
		}
		return entities.NotResolvable("player has not batted yet"), nil
	}

	reason := fmt.Sprintf("scored %d against threshold %d", entry.Score, threshold)
	// Runs never decrease, so reaching the threshold is final even mid-innings.
	if entry.Score >= threshold {
		return entities.Won(wager.WinPayout(), reason), nil
	}
	if !entry.IsOut() && !facts.IsFinal() && r.policy == NotOutDefer {
		return entities.NotResolvable("player not out"), nil
	}
	return entities.Lost(reason), nil
}

// playerCountResolver settles exact-count predictions about one player
type playerCountResolver struct {
	market       entities.MarketType
	section      entities.FactCategory
	uniqueOpen   bool
	count        func(facts *entities.MatchFacts, p entities.PlayerCountPrediction) (int, bool)
	describeStat string
}

func newBoundaryCountResolver() *playerCountResolver {
	return &playerCountResolver{
		market:       entities.MarketBoundaryCount,
		section:      entities.FactBatting,
		describeStat: "boundaries",
		count: func(f *entities.MatchFacts, p entities.PlayerCountPrediction) (int, bool) {
			entry := f.FindBatsman(p.PlayerID, p.PlayerName, p.TeamName)
			if entry == nil {
				return 0, false
			}
			return entry.Boundaries(), true
		},
	}
}

func newBowlerRunsResolver() *playerCountResolver {
	return &playerCountResolver{
		market:       entities.MarketBowlerRunsConceded,
		section:      entities.FactBowling,
		describeStat: "runs conceded",
		count: func(f *entities.MatchFacts, p entities.PlayerCountPrediction) (int, bool) {
			entry := f.FindBowler(p.PlayerID, p.PlayerName, p.TeamName)
			if entry == nil {
				return 0, false
			}
			return entry.Runs, true
		},
	}
}

func newPlayerWicketsResolver() *playerCountResolver {
	return &playerCountResolver{
		market:       entities.MarketPlayerWickets,
		section:      entities.FactBowling,
		uniqueOpen:   true,
		describeStat: "wickets",
		count: func(f *entities.MatchFacts, p entities.PlayerCountPrediction) (int, bool) {
			entry := f.FindBowler(p.PlayerID, p.PlayerName, p.TeamName)
			if entry == nil {
				return 0, false
			}
			return entry.Wickets, true
		},
	}
}

func (r *playerCountResolver) Market() entities.MarketType {
	return r.market
}

func (r *playerCountResolver) Validate(prediction json.RawMessage, _ *decimal.Decimal) (Terms, error) {
	p, err := entities.DecodePrediction[entities.PlayerCountPrediction](prediction)
	if err != nil {
		return Terms{}, err
	}
	if p.PlayerID <= 0 && p.PlayerName == "" {
		return Terms{}, entities.ValidationErrorf("player_id or player_name is required")
	}
	if p.Predicted == nil {
		return Terms{}, entities.ValidationErrorf("predicted is required")
	}
	if *p.Predicted < 0 {
		return Terms{}, entities.ValidationErrorf("predicted must not be negative")
	}
	terms := Terms{Odds: entities.FixedMultiplier}
	if r.uniqueOpen {
		terms.SubjectKey = stringPtr(p.SubjectKey())
	}
	return terms, nil
}

func (r *playerCountResolver) Resolve(wager *entities.Wager, facts *entities.MatchFacts) (entities.Outcome, error) {
	p, err := entities.DecodePrediction[entities.PlayerCountPrediction](wager.Prediction)
	if err != nil {
		return entities.Outcome{}, err
	}
	if p.Predicted == nil {
		return entities.Outcome{}, entities.ValidationErrorf("stored prediction has no predicted value")
	}

	if !r.sectionPresent(facts) {
		return entities.NotResolvable(fmt.Sprintf("%s section not available", r.section)), nil
	}
	// Counts can still move until the result is official.
	if !facts.IsFinal() {
		return entities.NotResolvable("match not finished"), nil
	}

	actual, found := r.count(facts, p)
	if !found {
		return entities.Void(wager.Stake, "player not found in final scorecard"), nil
	}

	reason := fmt.Sprintf("%s %d, predicted %d", r.describeStat, actual, *p.Predicted)
	if actual == *p.Predicted {
		return entities.Won(wager.WinPayout(), reason), nil
	}
	return entities.Lost(reason), nil
}

func (r *playerCountResolver) sectionPresent(facts *entities.MatchFacts) bool {
	switch r.section {
	case entities.FactBatting:
		return facts.Batting != nil
	case entities.FactBowling:
		return facts.Bowling != nil
	}
	return facts.Runs != nil
}
