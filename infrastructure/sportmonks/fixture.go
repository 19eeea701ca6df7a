package sportmonks

import (
	"encoding/json"
	"strings"

	"betledger/domain/entities"
)

// fixtureResponse is the v2 envelope of GET /fixtures/{id}
type fixtureResponse struct {
	Data *fixture `json:"data"`
}

// Sections are pointers to slices: a missing or null include stays nil, an
// include the provider answered with [] becomes an empty slice.
type fixture struct {
	ID            int64         `json:"id"`
	Status        string        `json:"status"`
	LocalTeamID   int64         `json:"localteam_id"`
	VisitorTeamID int64         `json:"visitorteam_id"`
	TossWonTeamID *int64        `json:"toss_won_team_id"`
	WinnerTeamID  *int64        `json:"winner_team_id"`
	Runs          *[]runsRow    `json:"runs"`
	Batting       *[]battingRow `json:"batting"`
	Bowling       *[]bowlingRow `json:"bowling"`
}

type runsRow struct {
	TeamID  int64   `json:"team_id"`
	Inning  int     `json:"inning"`
	Score   int     `json:"score"`
	Wickets int     `json:"wickets"`
	Overs   float64 `json:"overs"`
}

type person struct {
	Fullname string `json:"fullname"`
}

type team struct {
	Name string `json:"name"`
}

type battingRow struct {
	PlayerID int64           `json:"player_id"`
	TeamID   int64           `json:"team_id"`
	Score    int             `json:"score"`
	Ball     int             `json:"ball"`
	FourX    int             `json:"four_x"`
	SixX     int             `json:"six_x"`
	Result   json.RawMessage `json:"result"`
	Batsman  *person         `json:"batsman"`
	Team     *team           `json:"team"`
}

type bowlingRow struct {
	PlayerID int64   `json:"player_id"`
	TeamID   int64   `json:"team_id"`
	Overs    float64 `json:"overs"`
	Runs     int     `json:"runs"`
	Wickets  int     `json:"wickets"`
	Bowler   *person `json:"bowler"`
	Team     *team   `json:"team"`
}

// includeParam maps fact categories to the provider's include names
func includeParam(categories []entities.FactCategory) string {
	seen := make(map[string]bool)
	parts := make([]string, 0, len(categories)*2)
	add := func(names ...string) {
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				parts = append(parts, name)
			}
		}
	}
	for _, category := range categories {
		switch category {
		case entities.FactRuns:
			add("runs")
		case entities.FactBatting:
			add("batting.batsman", "batting.team")
		case entities.FactBowling:
			add("bowling.bowler", "bowling.team")
		}
	}
	return strings.Join(parts, ",")
}

// normalise converts the wire fixture into MatchFacts. Only requested
// sections are copied, so a stale section can never leak into a family
// that did not ask for it.
func (f *fixture) normalise(categories []entities.FactCategory) *entities.MatchFacts {
	facts := &entities.MatchFacts{
		MatchID:       f.ID,
		Status:        strings.TrimSpace(f.Status),
		TossWinnerID:  positive(f.TossWonTeamID),
		WinnerTeamID:  positive(f.WinnerTeamID),
		LocalTeamID:   f.LocalTeamID,
		VisitorTeamID: f.VisitorTeamID,
	}

	for _, category := range categories {
		switch category {
		case entities.FactRuns:
			if f.Runs != nil {
				facts.Runs = make([]entities.TeamRuns, 0, len(*f.Runs))
				for _, r := range *f.Runs {
					facts.Runs = append(facts.Runs, entities.TeamRuns{
						TeamID:  r.TeamID,
						Inning:  r.Inning,
						Score:   r.Score,
						Wickets: r.Wickets,
						Overs:   r.Overs,
					})
				}
			}
		case entities.FactBatting:
			if f.Batting != nil {
				facts.Batting = make([]entities.BattingEntry, 0, len(*f.Batting))
				for _, b := range *f.Batting {
					facts.Batting = append(facts.Batting, entities.BattingEntry{
						PlayerID:   b.PlayerID,
						PlayerName: b.Batsman.name(),
						TeamID:     b.TeamID,
						TeamName:   b.Team.name(),
						Score:      b.Score,
						Balls:      b.Ball,
						Fours:      b.FourX,
						Sixes:      b.SixX,
						Result:     dismissal(b.Result),
					})
				}
			}
		case entities.FactBowling:
			if f.Bowling != nil {
				facts.Bowling = make([]entities.BowlingEntry, 0, len(*f.Bowling))
				for _, b := range *f.Bowling {
					facts.Bowling = append(facts.Bowling, entities.BowlingEntry{
						PlayerID:   b.PlayerID,
						PlayerName: b.Bowler.name(),
						TeamID:     b.TeamID,
						TeamName:   b.Team.name(),
						Overs:      b.Overs,
						Runs:       b.Runs,
						Wickets:    b.Wickets,
					})
				}
			}
		}
	}
	return facts
}

func (p *person) name() string {
	if p == nil {
		return ""
	}
	return p.Fullname
}

func (t *team) name() string {
	if t == nil {
		return ""
	}
	return t.Name
}

// The provider sends 0 for "no team yet" on some fixtures
func positive(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

// dismissal accepts the result as a plain string or as an object with a name
func dismissal(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var named struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &named); err == nil {
		return named.Name
	}
	return ""
}
