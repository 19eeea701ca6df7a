package resolvers

import (
	"encoding/json"
	"fmt"

	"betledger/domain/entities"

	"github.com/shopspring/decimal"
)

// teamResolver settles back/lay bets on which team wins something
type teamResolver struct {
	market entities.MarketType
	what   string
	pick   func(facts *entities.MatchFacts) *int64
}

func newTossResolver() *teamResolver {
	return &teamResolver{
		market: entities.MarketToss,
		what:   "toss",
		pick:   func(f *entities.MatchFacts) *int64 { return f.TossWinnerID },
	}
}

func newMatchWinnerResolver() *teamResolver {
	return &teamResolver{
		market: entities.MarketMatchWinner,
		what:   "match",
		pick:   func(f *entities.MatchFacts) *int64 { return f.WinnerTeamID },
	}
}

func (r *teamResolver) Market() entities.MarketType {
	return r.market
}

func (r *teamResolver) Validate(prediction json.RawMessage, odds *decimal.Decimal) (Terms, error) {
	p, err := entities.DecodePrediction[entities.TeamPrediction](prediction)
	if err != nil {
		return Terms{}, err
	}
	if p.TeamID <= 0 {
		return Terms{}, entities.ValidationErrorf("team_id is required")
	}
	if p.Side != entities.SideBack && p.Side != entities.SideLay {
		return Terms{}, entities.ValidationErrorf("side must be back or lay")
	}
	o, err := providedOdds(odds)
	if err != nil {
		return Terms{}, err
	}
	return Terms{Odds: o}, nil
}

func (r *teamResolver) Resolve(wager *entities.Wager, facts *entities.MatchFacts) (entities.Outcome, error) {
	p, err := entities.DecodePrediction[entities.TeamPrediction](wager.Prediction)
	if err != nil {
		return entities.Outcome{}, err
	}

	winner := r.pick(facts)
	if winner == nil {
		if facts.IsFinal() {
			return entities.Void(wager.Stake, fmt.Sprintf("%s finished without a winner", r.what)), nil
		}
		return entities.NotResolvable(fmt.Sprintf("%s winner not yet known", r.what)), nil
	}

	picked := *winner == p.TeamID
	if p.Side == entities.SideLay {
		picked = !picked
	}
	if picked {
		return entities.Won(wager.WinPayout(), fmt.Sprintf("%s won by team %d", r.what, *winner)), nil
	}
	return entities.Lost(fmt.Sprintf("%s won by team %d", r.what, *winner)), nil
}
