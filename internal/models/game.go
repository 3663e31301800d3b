package models

import (
	"fmt"
	"strings"
	"time"
)

// League identifies one of the supported sports
type League string

const (
	LeagueMLB League = "mlb"
	LeagueNBA League = "nba"
)

// Leagues lists every supported league in display order
var Leagues = []League{LeagueMLB, LeagueNBA}

// ParseLeague converts a case-insensitive league tag into a League
func ParseLeague(s string) (League, error) {
	switch League(strings.ToLower(strings.TrimSpace(s))) {
	case LeagueMLB:
		return LeagueMLB, nil
	case LeagueNBA:
		return LeagueNBA, nil
	default:
		return "", fmt.Errorf("unknown league %q", s)
	}
}

func (l League) String() string {
	return string(l)
}

// AssetDir returns the upper-case directory name used for league assets
func (l League) AssetDir() string {
	return strings.ToUpper(string(l))
}

// Status is the lifecycle state of a game
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinal     Status = "final"
)

// ParseStatus converts a case-insensitive status tag into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusLive:
		return StatusLive, nil
	case StatusFinal:
		return StatusFinal, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// StatusFromUpstream maps the free-form gameStatus strings of the live score
// endpoints ("Live - In Progress", "Completed", ...) onto Status
func StatusFromUpstream(s string) Status {
	v := strings.ToLower(s)
	switch {
	case strings.Contains(v, "final"), strings.Contains(v, "completed"):
		return StatusFinal
	case strings.Contains(v, "live"), strings.Contains(v, "progress"), strings.Contains(v, "in game"):
		return StatusLive
	default:
		return StatusScheduled
	}
}

// Side is one of the two teams in a game
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// ParseSide converts "home"/"away" into a Side
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideHome:
		return SideHome, nil
	case SideAway:
		return SideAway, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Game is the canonical schedule entry handed to callers
type Game struct {
	ID           int       `json:"id" db:"id"`
	Key          string    `json:"game_key" db:"game_key"`
	HomeTeam     string    `json:"home_team" db:"home_team"`
	AwayTeam     string    `json:"away_team" db:"away_team"`
	HomeTeamAbbr string    `json:"home_team_abbr" db:"home_team_abbr"`
	AwayTeamAbbr string    `json:"away_team_abbr" db:"away_team_abbr"`
	StartTime    time.Time `json:"start_time" db:"start_time"`
	Status       Status    `json:"status" db:"status"`
	SportType    League    `json:"sport_type" db:"league"`
	UserVote     *Side     `json:"user_vote,omitempty" db:"-"`

	// Live score fields, filled only by the live refresh
	HomeScore *int   `json:"home_score,omitempty" db:"home_score"`
	AwayScore *int   `json:"away_score,omitempty" db:"away_score"`
	Period    string `json:"period,omitempty" db:"period"`
	Winner    *Side  `json:"winner,omitempty" db:"winner"`
}

// GameKey builds the upstream composite key "{YYYYMMDD}_{away}@{home}"
func GameKey(date time.Time, awayAbbr, homeAbbr string) string {
	return fmt.Sprintf("%s_%s@%s", date.Format("20060102"), awayAbbr, homeAbbr)
}

// IsActive returns true if the game is currently in progress
func (g *Game) IsActive() bool {
	return g.Status == StatusLive
}

// IsScheduled returns true if the game is scheduled but not started
func (g *Game) IsScheduled() bool {
	return g.Status == StatusScheduled
}

// IsFinal returns true if the game is completed
func (g *Game) IsFinal() bool {
	return g.Status == StatusFinal
}

// ApplyLiveScore copies a live score onto the game, keeping its identity and
// start time. The winner is derived once the game is final.
func (g *Game) ApplyLiveScore(ls *LiveScore) {
	home, away := ls.HomeScore, ls.AwayScore
	g.Status = ls.Status
	g.HomeScore = &home
	g.AwayScore = &away
	g.Period = ls.Period
	g.Winner = nil
	if ls.Status == StatusFinal && home != away {
		w := SideAway
		if home > away {
			w = SideHome
		}
		g.Winner = &w
	}
}
