// Package normalizer maps raw upstream schedule records into canonical games.
package normalizer

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"

	"hitrivals/schedule/internal/metrics"
	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/teams"

	"github.com/rs/zerolog/log"
)

// NBAIDOffset is added to every NBA id. The largest id the MLB scheme can
// produce is 999,999,999,999, so the two leagues never share an id.
const NBAIDOffset = 1_000_000_000_000

const (
	dateDigitsWidth = 8
	teamsHashSpace  = 10_000
	noKeyHashSpace  = 1_000_000

	nbaDefaultHour   = 19
	nbaDefaultMinute = 30
)

// Normalizer converts GameRecords into Games in a fixed time zone
type Normalizer struct {
	loc *time.Location
}

// New creates a normalizer that interprets upstream dates in loc
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc}
}

// Normalize maps records to games in input order. fetchDate stands in for
// records whose gameDate does not parse.
func (n *Normalizer) Normalize(league models.League, fetchDate time.Time, records []models.GameRecord) []models.Game {
	games := make([]models.Game, 0, len(records))
	for _, rec := range records {
		games = append(games, n.normalizeOne(league, fetchDate, rec))
	}

	metrics.RecordNormalized(league.String(), len(games))
	log.Debug().
		Str("league", league.String()).
		Int("games", len(games)).
		Msg("Normalized schedule records")

	return games
}

func (n *Normalizer) normalizeOne(league models.League, fetchDate time.Time, rec models.GameRecord) models.Game {
	home := strings.TrimSpace(rec.Home.String())
	away := strings.TrimSpace(rec.Away.String())
	start := n.StartTime(league, fetchDate, rec)

	key := strings.TrimSpace(rec.GameID.String())
	if key == "" {
		key = models.GameKey(start, away, home)
	}

	return models.Game{
		ID:           GameID(league, key),
		Key:          key,
		HomeTeam:     teams.Resolve(league, home),
		AwayTeam:     teams.Resolve(league, away),
		HomeTeamAbbr: home,
		AwayTeamAbbr: away,
		StartTime:    start,
		Status:       models.StatusScheduled,
		SportType:    league,
	}
}

// StartTime derives the kickoff instant of rec. gameTime_epoch wins when it
// parses. Otherwise MLB uses gameDate plus gameTime and NBA uses 19:30 on
// gameDate, both in the normalizer's location.
func (n *Normalizer) StartTime(league models.League, fetchDate time.Time, rec models.GameRecord) time.Time {
	if t, ok := parseEpoch(rec.GameEpoch.String()); ok {
		return t.In(n.loc)
	}

	day, err := time.ParseInLocation("20060102", strings.TrimSpace(rec.GameDate.String()), n.loc)
	if err != nil {
		f := fetchDate.In(n.loc)
		day = time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, n.loc)
	}

	hour, minute := nbaDefaultHour, nbaDefaultMinute
	if league == models.LeagueMLB {
		hour, minute = parseClock(rec.GameTime.String())
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, n.loc)
}

func parseEpoch(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}

// parseClock reads "H:MMa" / "H:MMp" (also "7:05 PM"). Unparseable parts
// become 0. Without a meridiem the hour is taken as 24-hour.
func parseClock(s string) (hour, minute int) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "m")

	var meridiem byte
	if n := len(s); n > 0 && (s[n-1] == 'a' || s[n-1] == 'p') {
		meridiem = s[n-1]
		s = strings.TrimSpace(s[:n-1])
	}

	h, m, _ := strings.Cut(s, ":")
	hour, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || hour < 0 || hour > 23 {
		hour = 0
	}
	minute, err = strconv.Atoi(strings.TrimSpace(m))
	if err != nil || minute < 0 || minute > 59 {
		minute = 0
	}

	switch meridiem {
	case 'p':
		if hour < 12 {
			hour += 12
		}
	case 'a':
		if hour == 12 {
			hour = 0
		}
	}
	return hour, minute
}

// GameID synthesizes the numeric id for a composite key "{date}_{teams}":
// the YYYYMMDD date digits times 10,000 plus a 10,000-bucket hash of the
// teams part. Keeping the year means a matchup replayed on the same day of a
// later season gets a new id. NBA ids are shifted by NBAIDOffset.
func GameID(league models.League, key string) int {
	var id int
	datePart, teamsPart, ok := strings.Cut(key, "_")
	if !ok {
		id = int(hash32(key) % noKeyHashSpace)
	} else {
		id = dateDigits(datePart)*teamsHashSpace + int(hash32(teamsPart)%teamsHashSpace)
	}

	if league == models.LeagueNBA {
		id += NBAIDOffset
	}
	return id
}

// dateDigits returns the last eight characters of datePart as an int. When
// they are not digits a stable value in [1000, 9999] is derived from datePart.
func dateDigits(datePart string) int {
	tail := datePart
	if len(tail) > dateDigitsWidth {
		tail = tail[len(tail)-dateDigitsWidth:]
	}
	if tail != "" && isDigits(tail) {
		n, err := strconv.Atoi(tail)
		if err == nil {
			return n
		}
	}
	return 1000 + int(hash32(datePart)%9000)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
