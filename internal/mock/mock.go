// Package mock provides the fixed sample schedule served when real data is unavailable.
package mock

import (
	"time"

	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/normalizer"
	"hitrivals/schedule/internal/teams"
)

type fixture struct {
	id     int
	home   string
	away   string
	hour   int
	minute int
}

var mlbFixtures = []fixture{
	{id: 1, home: "NYY", away: "BOS", hour: 19, minute: 5},
	{id: 2, home: "STL", away: "CHC", hour: 20, minute: 15},
	{id: 3, home: "LAD", away: "SF", hour: 22, minute: 10},
}

var nbaFixtures = []fixture{
	{id: normalizer.NBAIDOffset + 1, home: "LAL", away: "BOS", hour: 19, minute: 30},
	{id: normalizer.NBAIDOffset + 2, home: "GSW", away: "BKN", hour: 20, minute: 0},
	{id: normalizer.NBAIDOffset + 3, home: "MIA", away: "CHI", hour: 18, minute: 30},
}

// Games returns the three sample games for league, dated on now's calendar
// day in now's location
func Games(league models.League, now time.Time) []models.Game {
	fixtures := mlbFixtures
	if league == models.LeagueNBA {
		fixtures = nbaFixtures
	}

	games := make([]models.Game, 0, len(fixtures))
	for _, f := range fixtures {
		start := time.Date(now.Year(), now.Month(), now.Day(), f.hour, f.minute, 0, 0, now.Location())
		games = append(games, models.Game{
			ID:           f.id,
			Key:          models.GameKey(start, f.away, f.home),
			HomeTeam:     teams.Resolve(league, f.home),
			AwayTeam:     teams.Resolve(league, f.away),
			HomeTeamAbbr: f.home,
			AwayTeamAbbr: f.away,
			StartTime:    start,
			Status:       models.StatusScheduled,
			SportType:    league,
		})
	}
	return games
}
