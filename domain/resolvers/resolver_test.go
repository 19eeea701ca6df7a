package resolvers

import (
	"encoding/json"
	"testing"

	"betledger/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

func wagerFor(t *testing.T, market entities.MarketType, prediction any, stake int64, odds string) *entities.Wager {
	t.Helper()
	raw, err := json.Marshal(prediction)
	require.NoError(t, err)
	return &entities.Wager{
		ID:         1,
		AccountID:  10,
		MatchID:    500,
		MarketType: market,
		Prediction: raw,
		Stake:      stake,
		Odds:       decimal.RequireFromString(odds),
		State:      entities.WagerStatePending,
	}
}

func intPtr(v int) *int { return &v }

func TestRegistry_UnknownMarket(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(NotOutDefer)
	_, err := registry.Validate("darts", json.RawMessage(`{}`), nil)
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = registry.Resolve(&entities.Wager{MarketType: "darts"}, &entities.MatchFacts{})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestRegistry_AbandonedMatchVoidsEveryMarket(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(NotOutDefer)
	facts := &entities.MatchFacts{MatchID: 500, Status: entities.MatchStatusAbandoned}
	wager := wagerFor(t, entities.MarketToss, entities.TeamPrediction{TeamID: 1, Side: entities.SideBack}, 300, "1.9")

	outcome, err := registry.Resolve(wager, facts)
	require.NoError(t, err)
	assert.True(t, outcome.Resolvable)
	assert.Equal(t, entities.WagerStateVoid, outcome.Result)
	assert.Equal(t, int64(300), outcome.Payout)
}

func TestRegistry_Validate(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(NotOutDefer)
	odds := decimal.RequireFromString("1.85")
	badOdds := decimal.NewFromInt(1)

	tests := []struct {
		name       string
		market     entities.MarketType
		prediction string
		odds       *decimal.Decimal
		wantErr    bool
		wantOdds   string
		wantKey    string
	}{
		{"toss back", entities.MarketToss, `{"team_id":1,"side":"back"}`, &odds, false, "1.85", ""},
		{"toss missing odds", entities.MarketToss, `{"team_id":1,"side":"back"}`, nil, true, "", ""},
		{"toss odds not above one", entities.MarketToss, `{"team_id":1,"side":"lay"}`, &badOdds, true, "", ""},
		{"toss bad side", entities.MarketToss, `{"team_id":1,"side":"both"}`, &odds, true, "", ""},
		{"winner missing team", entities.MarketMatchWinner, `{"side":"back"}`, &odds, true, "", ""},
		{"unknown field", entities.MarketMatchWinner, `{"team_id":1,"side":"back","extra":1}`, &odds, true, "", ""},
		{"player runs ignores client odds", entities.MarketPlayerRunsThreshold, `{"player_id":7,"threshold":"50+"}`, &odds, false, "2", ""},
		{"player runs bad threshold", entities.MarketPlayerRunsThreshold, `{"player_id":7,"threshold":"fifty"}`, nil, true, "", ""},
		{"wickets gets subject key", entities.MarketPlayerWickets, `{"player_id":9,"predicted":3}`, nil, false, "2", "id:9"},
		{"wickets by name", entities.MarketPlayerWickets, `{"player_name":" Bumrah ","predicted":3}`, nil, false, "2", "name:bumrah"},
		{"wickets without predicted", entities.MarketPlayerWickets, `{"player_id":9}`, nil, true, "", ""},
		{"boundary negative", entities.MarketBoundaryCount, `{"player_name":"Kohli","predicted":-1}`, nil, true, "", ""},
		{"bowler runs ok", entities.MarketBowlerRunsConceded, `{"player_name":"Starc","predicted":40}`, nil, false, "2", ""},
		{"composite tied", entities.MarketRunsAndWickets, `{"subtype":"tied","condition":"yes"}`, &odds, false, "1.85", ""},
		{"composite runs needs threshold", entities.MarketRunsAndWickets, `{"subtype":"runs","team_id":1,"condition":"yes"}`, &odds, true, "", ""},
		{"composite bad condition", entities.MarketRunsAndWickets, `{"subtype":"match","team_id":1,"condition":"maybe"}`, &odds, true, "", ""},
		{"composite unknown subtype", entities.MarketRunsAndWickets, `{"subtype":"overs","team_id":1,"condition":"yes"}`, &odds, true, "", ""},
		{"empty payload", entities.MarketToss, ``, &odds, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms, err := registry.Validate(tt.market, json.RawMessage(tt.prediction), tt.odds)
			if tt.wantErr {
				assert.ErrorIs(t, err, entities.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantOdds).Equal(terms.Odds), "odds %s", terms.Odds)
			if tt.wantKey == "" {
				assert.Nil(t, terms.SubjectKey)
			} else {
				require.NotNil(t, terms.SubjectKey)
				assert.Equal(t, tt.wantKey, *terms.SubjectKey)
			}
		})
	}
}

func TestTeamResolvers(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(NotOutDefer)

	tests := []struct {
		name       string
		market     entities.MarketType
		prediction entities.TeamPrediction
		facts      *entities.MatchFacts
		resolvable bool
		result     entities.WagerState
		payout     int64
	}{
		{
			name:       "toss unknown",
			market:     entities.MarketToss,
			prediction: entities.TeamPrediction{TeamID: 1, Side: entities.SideBack},
			facts:      &entities.MatchFacts{Status: "NS"},
		},
		{
			name:       "toss back wins",
			market:     entities.MarketToss,
			prediction: entities.TeamPrediction{TeamID: 1, Side: entities.SideBack},
			facts:      &entities.MatchFacts{Status: "1st Innings", TossWinnerID: id(1)},
			resolvable: true,
			result:     entities.WagerStateWon,
			payout:     190,
		},
		{
			name:       "toss lay wins when other team wins",
			market:     entities.MarketToss,
			prediction: entities.TeamPrediction{TeamID: 1, Side: entities.SideLay},
			facts:      &entities.MatchFacts{Status: "1st Innings", TossWinnerID: id(2)},
			resolvable: true,
			result:     entities.WagerStateWon,
			payout:     190,
		},
		{
			name:       "toss lay loses",
			market:     entities.MarketToss,
			prediction: entities.TeamPrediction{TeamID: 1, Side: entities.SideLay},
			facts:      &entities.MatchFacts{Status: "1st Innings", TossWinnerID: id(1)},
			resolvable: true,
			result:     entities.WagerStateLost,
		},
		{
			name:       "winner unknown mid match",
			market:     entities.MarketMatchWinner,
			prediction: entities.TeamPrediction{TeamID: 2, Side: entities.SideBack},
			facts:      &entities.MatchFacts{Status: "2nd Innings", TossWinnerID: id(1)},
		},
		{
			name:       "winner back loses",
			market:     entities.MarketMatchWinner,
			prediction: entities.TeamPrediction{TeamID: 2, Side: entities.SideBack},
			facts:      &entities.MatchFacts{Status: entities.MatchStatusFinished, WinnerTeamID: id(1)},
			resolvable: true,
			result:     entities.WagerStateLost,
		},
		{
			name:       "finished without winner voids",
			market:     entities.MarketMatchWinner,
			prediction: entities.TeamPrediction{TeamID: 2, Side: entities.SideBack},
			facts:      &entities.MatchFacts{Status: entities.MatchStatusFinished},
			resolvable: true,
			result:     entities.WagerStateVoid,
			payout:     100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wager := wagerFor(t, tt.market, tt.prediction, 100, "1.9")
			outcome, err := registry.Resolve(wager, tt.facts)
			require.NoError(t, err)
			assert.Equal(t, tt.resolvable, outcome.Resolvable)
			if tt.resolvable {
				assert.Equal(t, tt.result, outcome.Result)
				assert.Equal(t, tt.payout, outcome.Payout)
			}
			assert.NotEmpty(t, outcome.Reason)
		})
	}
}

func TestPlayerRunsResolver(t *testing.T) {
	t.Parallel()

	prediction := entities.PlayerRunsPrediction{PlayerID: 7, Threshold: "50+"}
	batting := func(score int, result string) []entities.BattingEntry {
		return []entities.BattingEntry{{PlayerID: 7, PlayerName: "Kohli", TeamID: 1, Score: score, Result: result}}
	}

	tests := []struct {
		name       string
		policy     NotOutPolicy
		facts      *entities.MatchFacts
		resolvable bool
		result     entities.WagerState
	}{
		{"no batting section", NotOutDefer, &entities.MatchFacts{Status: "1st Innings"}, false, ""},
		{"not batted yet", NotOutDefer, &entities.MatchFacts{Status: "1st Innings", Batting: []entities.BattingEntry{}}, false, ""},
		{"did not bat in final match", NotOutDefer, &entities.MatchFacts{Status: entities.MatchStatusFinished, Batting: []entities.BattingEntry{}}, true, entities.WagerStateVoid},
		{"out above threshold", NotOutDefer, &entities.MatchFacts{Status: "1st Innings", Batting: batting(50, "c Smith b Starc")}, true, entities.WagerStateWon},
		{"out below threshold", NotOutDefer, &entities.MatchFacts{Status: "1st Innings", Batting: batting(49, "lbw b Cummins")}, true, entities.WagerStateLost},
		{"not out below threshold deferred", NotOutDefer, &entities.MatchFacts{Status: "1st Innings", Batting: batting(30, "not out")}, false, ""},
		{"not out reached threshold", NotOutDefer, &entities.MatchFacts{Status: "1st Innings", Batting: batting(64, "not out")}, true, entities.WagerStateWon},
		{"not out final match", NotOutDefer, &entities.MatchFacts{Status: entities.MatchStatusFinished, Batting: batting(30, "not out")}, true, entities.WagerStateLost},
		{"not out settle policy", NotOutSettle, &entities.MatchFacts{Status: "1st Innings", Batting: batting(30, "not out")}, true, entities.WagerStateLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry(tt.policy)
			wager := wagerFor(t, entities.MarketPlayerRunsThreshold, prediction, 200, "2")
			outcome, err := registry.Resolve(wager, tt.facts)
			require.NoError(t, err)
			assert.Equal(t, tt.resolvable, outcome.Resolvable)
			assert.Equal(t, tt.result, outcome.Result)
			switch tt.result {
			case entities.WagerStateWon:
				assert.Equal(t, int64(400), outcome.Payout)
			case entities.WagerStateVoid:
				assert.Equal(t, int64(200), outcome.Payout)
			default:
				assert.Zero(t, outcome.Payout)
			}
		})
	}
}

func TestPlayerCountResolvers(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(NotOutDefer)
	finishedBowling := &entities.MatchFacts{
		Status: entities.MatchStatusFinished,
		Bowling: []entities.BowlingEntry{
			{PlayerID: 9, PlayerName: "Bumrah", TeamName: "India", Runs: 28, Wickets: 3},
			{PlayerID: 11, PlayerName: "Starc", TeamName: "Australia", Runs: 44, Wickets: 1},
		},
	}
	finishedBatting := &entities.MatchFacts{
		Status: entities.MatchStatusFinished,
		Batting: []entities.BattingEntry{
			{PlayerID: 7, PlayerName: "Kohli", TeamName: "India", Fours: 6, Sixes: 2, Result: "not out"},
		},
	}

	tests := []struct {
		name       string
		market     entities.MarketType
		prediction entities.PlayerCountPrediction
		facts      *entities.MatchFacts
		resolvable bool
		result     entities.WagerState
		payout     int64
	}{
		{
			name:       "wickets exact wins",
			market:     entities.MarketPlayerWickets,
			prediction: entities.PlayerCountPrediction{PlayerID: 9, Predicted: intPtr(3)},
			facts:      finishedBowling,
			resolvable: true,
			result:     entities.WagerStateWon,
			payout:     600,
		},
		{
			name:       "wickets above prediction loses",
			market:     entities.MarketPlayerWickets,
			prediction: entities.PlayerCountPrediction{PlayerID: 9, Predicted: intPtr(2)},
			facts:      finishedBowling,
			resolvable: true,
			result:     entities.WagerStateLost,
		},
		{
			name:       "no bowling section",
			market:     entities.MarketPlayerWickets,
			prediction: entities.PlayerCountPrediction{PlayerID: 9, Predicted: intPtr(3)},
			facts:      &entities.MatchFacts{Status: entities.MatchStatusFinished},
		},
		{
			name:       "match still running",
			market:     entities.MarketPlayerWickets,
			prediction: entities.PlayerCountPrediction{PlayerID: 9, Predicted: intPtr(3)},
			facts:      &entities.MatchFacts{Status: "2nd Innings", Bowling: finishedBowling.Bowling},
		},
		{
			name:       "missing bowler voids",
			market:     entities.MarketBowlerRunsConceded,
			prediction: entities.PlayerCountPrediction{PlayerName: "Anderson", Predicted: intPtr(30)},
			facts:      finishedBowling,
			resolvable: true,
			result:     entities.WagerStateVoid,
			payout:     300,
		},
		{
			name:       "bowler runs by name",
			market:     entities.MarketBowlerRunsConceded,
			prediction: entities.PlayerCountPrediction{PlayerName: "starc", Predicted: intPtr(44)},
			facts:      finishedBowling,
			resolvable: true,
			result:     entities.WagerStateWon,
			payout:     600,
		},
		{
			name:       "boundaries counts fours and sixes",
			market:     entities.MarketBoundaryCount,
			prediction: entities.PlayerCountPrediction{PlayerName: "Kohli", TeamName: "india", Predicted: intPtr(8)},
			facts:      finishedBatting,
			resolvable: true,
			result:     entities.WagerStateWon,
			payout:     600,
		},
		{
			name:       "boundaries wrong team voids",
			market:     entities.MarketBoundaryCount,
			prediction: entities.PlayerCountPrediction{PlayerName: "Kohli", TeamName: "Australia", Predicted: intPtr(8)},
			facts:      finishedBatting,
			resolvable: true,
			result:     entities.WagerStateVoid,
			payout:     300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wager := wagerFor(t, tt.market, tt.prediction, 300, "2")
			outcome, err := registry.Resolve(wager, tt.facts)
			require.NoError(t, err)
			assert.Equal(t, tt.resolvable, outcome.Resolvable)
			assert.Equal(t, tt.result, outcome.Result)
			assert.Equal(t, tt.payout, outcome.Payout)
		})
	}
}

func TestCompositeResolver(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(NotOutDefer)
	live := &entities.MatchFacts{
		Status:       "1st Innings",
		TossWinnerID: id(1),
		Runs:         []entities.TeamRuns{{TeamID: 1, Inning: 1, Score: 180, Wickets: 4}},
		Batting: []entities.BattingEntry{
			{PlayerID: 7, TeamID: 1, Fours: 10, Sixes: 3},
			{PlayerID: 8, TeamID: 1, Fours: 5, Sixes: 1},
		},
	}
	final := &entities.MatchFacts{
		Status:       entities.MatchStatusFinished,
		TossWinnerID: id(1),
		WinnerTeamID: id(2),
		Runs: []entities.TeamRuns{
			{TeamID: 1, Inning: 1, Score: 180, Wickets: 7},
			{TeamID: 2, Inning: 2, Score: 181, Wickets: 5},
		},
		Batting: []entities.BattingEntry{},
	}
	tie := &entities.MatchFacts{Status: entities.MatchStatusFinished, TossWinnerID: id(1)}

	tests := []struct {
		name       string
		prediction entities.CompositePrediction
		facts      *entities.MatchFacts
		resolvable bool
		result     entities.WagerState
	}{
		{"runs yes resolves early", entities.CompositePrediction{Subtype: entities.SubtypeRuns, TeamID: 1, Threshold: 150, Condition: entities.ConditionYes}, live, true, entities.WagerStateWon},
		{"runs no loses early", entities.CompositePrediction{Subtype: entities.SubtypeRuns, TeamID: 1, Threshold: 150, Condition: entities.ConditionNo}, live, true, entities.WagerStateLost},
		{"runs below threshold waits", entities.CompositePrediction{Subtype: entities.SubtypeRuns, TeamID: 1, Threshold: 200, Condition: entities.ConditionNo}, live, false, ""},
		{"runs below threshold final", entities.CompositePrediction{Subtype: entities.SubtypeRuns, TeamID: 1, Threshold: 200, Condition: entities.ConditionNo}, final, true, entities.WagerStateWon},
		{"wickets from runs section", entities.CompositePrediction{Subtype: entities.SubtypeWickets, TeamID: 1, Threshold: 7, Condition: entities.ConditionYes}, final, true, entities.WagerStateWon},
		{"fours summed across batsmen", entities.CompositePrediction{Subtype: entities.SubtypeFours, TeamID: 1, Threshold: 15, Condition: entities.ConditionYes}, live, true, entities.WagerStateWon},
		{"sixes below threshold waits", entities.CompositePrediction{Subtype: entities.SubtypeSixes, TeamID: 1, Threshold: 5, Condition: entities.ConditionYes}, live, false, ""},
		{"sixes without batting section", entities.CompositePrediction{Subtype: entities.SubtypeSixes, TeamID: 1, Threshold: 5, Condition: entities.ConditionYes}, tie, false, ""},
		{"match winner yes", entities.CompositePrediction{Subtype: entities.SubtypeMatch, TeamID: 2, Condition: entities.ConditionYes}, final, true, entities.WagerStateWon},
		{"match unknown", entities.CompositePrediction{Subtype: entities.SubtypeMatch, TeamID: 2, Condition: entities.ConditionYes}, live, false, ""},
		{"toss no", entities.CompositePrediction{Subtype: entities.SubtypeToss, TeamID: 1, Condition: entities.ConditionNo}, live, true, entities.WagerStateLost},
		{"tied waits for final", entities.CompositePrediction{Subtype: entities.SubtypeTied, Condition: entities.ConditionYes}, live, false, ""},
		{"tied yes", entities.CompositePrediction{Subtype: entities.SubtypeTied, Condition: entities.ConditionYes}, tie, true, entities.WagerStateWon},
		{"tied no with winner", entities.CompositePrediction{Subtype: entities.SubtypeTied, Condition: entities.ConditionNo}, final, true, entities.WagerStateWon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wager := wagerFor(t, entities.MarketRunsAndWickets, tt.prediction, 100, "2.5")
			outcome, err := registry.Resolve(wager, tt.facts)
			require.NoError(t, err)
			assert.Equal(t, tt.resolvable, outcome.Resolvable)
			assert.Equal(t, tt.result, outcome.Result)
			if tt.result == entities.WagerStateWon {
				assert.Equal(t, int64(250), outcome.Payout)
			}
		})
	}
}

func TestResolve_CorruptStoredPrediction(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(NotOutDefer)
	wager := &entities.Wager{MarketType: entities.MarketPlayerWickets, Prediction: json.RawMessage(`{"player_id":"nine"}`), Stake: 10}
	_, err := registry.Resolve(wager, &entities.MatchFacts{Status: entities.MatchStatusFinished})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestParseNotOutPolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseNotOutPolicy("")
	require.NoError(t, err)
	assert.Equal(t, NotOutDefer, p)

	p, err = ParseNotOutPolicy("settle")
	require.NoError(t, err)
	assert.Equal(t, NotOutSettle, p)

	_, err = ParseNotOutPolicy("guess")
	assert.Error(t, err)
}
