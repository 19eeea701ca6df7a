package entities

import "strings"

// FactCategory is a provider include that populates one part of MatchFacts
type FactCategory string

const (
	FactRuns    FactCategory = "runs"
	FactBatting FactCategory = "batting"
	FactBowling FactCategory = "bowling"
)

// MatchStatus values reported by the provider
const (
	MatchStatusFinished  = "Finished"
	MatchStatusAbandoned = "Aban."
	MatchStatusCancelled = "Cancl."
	MatchStatusPostponed = "Postp."
)

// MatchFacts is a normalised snapshot of one match. A nil pointer or nil
// slice means the provider has not reported that fact yet; it never means
// zero or false.
type MatchFacts struct {
	MatchID       int64
	Status        string
	TossWinnerID  *int64
	WinnerTeamID  *int64
	LocalTeamID   int64
	VisitorTeamID int64

	// Runs is nil unless the runs include was requested and present
	Runs []TeamRuns
	// Batting is nil unless a batting include was requested and present
	Batting []BattingEntry
	// Bowling is nil unless a bowling include was requested and present
	Bowling []BowlingEntry
}

// TeamRuns is one innings total
type TeamRuns struct {
	TeamID  int64
	Inning  int
	Score   int
	Wickets int
	Overs   float64
}

// BattingEntry is one batsman's innings
type BattingEntry struct {
	PlayerID   int64
	PlayerName string
	TeamID     int64
	TeamName   string
	Score      int
	Balls      int
	Fours      int
	Sixes      int
	// Result is the dismissal description, "not out" while batting
	Result string
}

// IsOut reports whether the batsman has been dismissed
func (b BattingEntry) IsOut() bool {
	result := strings.ToLower(strings.TrimSpace(b.Result))
	return result != "" && result != "not out"
}

// Boundaries returns fours plus sixes
func (b BattingEntry) Boundaries() int {
	return b.Fours + b.Sixes
}

// BowlingEntry is one bowler's figures
type BowlingEntry struct {
	PlayerID   int64
	PlayerName string
	TeamID     int64
	TeamName   string
	Overs      float64
	Runs       int
	Wickets    int
}

// IsFinal reports whether the result is official
func (f *MatchFacts) IsFinal() bool {
	return f.Status == MatchStatusFinished
}

// IsAbandoned reports whether the match will never produce a result
func (f *MatchFacts) IsAbandoned() bool {
	switch f.Status {
	case MatchStatusAbandoned, MatchStatusCancelled, MatchStatusPostponed:
		return true
	}
	return false
}

// FindBatsman looks up a batting entry by id, falling back to a
// case-insensitive name match (optionally narrowed by team name) when id is 0
func (f *MatchFacts) FindBatsman(playerID int64, name, teamName string) *BattingEntry {
	for i := range f.Batting {
		entry := &f.Batting[i]
		if matchesPlayer(playerID, name, teamName, entry.PlayerID, entry.PlayerName, entry.TeamName) {
			return entry
		}
	}
	return nil
}

// FindBowler looks up a bowling entry the same way FindBatsman does
func (f *MatchFacts) FindBowler(playerID int64, name, teamName string) *BowlingEntry {
	for i := range f.Bowling {
		entry := &f.Bowling[i]
		if matchesPlayer(playerID, name, teamName, entry.PlayerID, entry.PlayerName, entry.TeamName) {
			return entry
		}
	}
	return nil
}

func matchesPlayer(wantID int64, wantName, wantTeam string, id int64, name, team string) bool {
	if wantID != 0 {
		return wantID == id
	}
	if wantName == "" || !strings.EqualFold(strings.TrimSpace(wantName), strings.TrimSpace(name)) {
		return false
	}
	return wantTeam == "" || strings.EqualFold(strings.TrimSpace(wantTeam), strings.TrimSpace(team))
}

// TeamRunsTotal sums a team's runs and wickets across innings. ok is false when
// the section feeding the statistic has not been reported.
func (f *MatchFacts) TeamRunsTotal(teamID int64) (runs int, wickets int, ok bool) {
	if f.Runs == nil {
		return 0, 0, false
	}
	for _, innings := range f.Runs {
		if innings.TeamID == teamID {
			runs += innings.Score
			wickets += innings.Wickets
		}
	}
	return runs, wickets, true
}

// TeamBoundaries sums fours and sixes hit by the team's batsmen
func (f *MatchFacts) TeamBoundaries(teamID int64) (fours int, sixes int, ok bool) {
	if f.Batting == nil {
		return 0, 0, false
	}
	for _, entry := range f.Batting {
		if entry.TeamID == teamID {
			fours += entry.Fours
			sixes += entry.Sixes
		}
	}
	return fours, sixes, true
}
