package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"hitrivals/schedule/internal/models"
)

type mlbLineScoreResponse struct {
	Body *struct {
		GameStatus    models.FlexString `json:"gameStatus"`
		CurrentInning models.FlexString `json:"currentInning"`
		Home          models.FlexString `json:"home"`
		Away          models.FlexString `json:"away"`
		LineScore     struct {
			Home struct {
				R models.FlexString `json:"R"`
			} `json:"home"`
			Away struct {
				R models.FlexString `json:"R"`
			} `json:"away"`
		} `json:"lineScore"`
	} `json:"body"`
}

type nbaBoxScoreResponse struct {
	Body *struct {
		GameStatus models.FlexString `json:"gameStatus"`
		GameClock  models.FlexString `json:"gameClock"`
		Home       models.FlexString `json:"home"`
		Away       models.FlexString `json:"away"`
		HomePts    models.FlexString `json:"homePts"`
		AwayPts    models.FlexString `json:"awayPts"`
	} `json:"body"`
}

// FetchLiveScore looks up the current score of one game by its upstream key
// ("{YYYYMMDD}_{AWAY}@{HOME}"). It uses the same retry budget as schedules.
func (c *Client) FetchLiveScore(ctx context.Context, league models.League, gameKey string) (*models.LiveScore, error) {
	path := "getMLBLineScore"
	if league == models.LeagueNBA {
		path = "getNBABoxScore"
	}
	params := map[string]string{"gameID": gameKey}

	var score *models.LiveScore
	err := c.get(ctx, league, path, params, func(body []byte) error {
		var (
			ls  *models.LiveScore
			err error
		)
		if league == models.LeagueNBA {
			ls, err = decodeNBABoxScore(body)
		} else {
			ls, err = decodeMLBLineScore(body)
		}
		if err != nil {
			return err
		}
		score = ls
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch live score for %s: %w", gameKey, err)
	}

	score.League = league
	score.GameKey = gameKey
	if score.HomeTeamAbbr == "" || score.AwayTeamAbbr == "" {
		away, home := splitGameKey(gameKey)
		if score.AwayTeamAbbr == "" {
			score.AwayTeamAbbr = away
		}
		if score.HomeTeamAbbr == "" {
			score.HomeTeamAbbr = home
		}
	}
	return score, nil
}

func decodeMLBLineScore(data []byte) (*models.LiveScore, error) {
	var resp mlbLineScoreResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode line score: %w", err)
	}
	if resp.Body == nil {
		return nil, fmt.Errorf("%w: line score has no body", ErrUndecodable)
	}

	b := resp.Body
	return &models.LiveScore{
		HomeTeamAbbr: b.Home.String(),
		AwayTeamAbbr: b.Away.String(),
		Status:       models.StatusFromUpstream(b.GameStatus.String()),
		HomeScore:    atoiOrZero(b.LineScore.Home.R.String()),
		AwayScore:    atoiOrZero(b.LineScore.Away.R.String()),
		Period:       b.CurrentInning.String(),
	}, nil
}

func decodeNBABoxScore(data []byte) (*models.LiveScore, error) {
	var resp nbaBoxScoreResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode box score: %w", err)
	}
	if resp.Body == nil {
		return nil, fmt.Errorf("%w: box score has no body", ErrUndecodable)
	}

	b := resp.Body
	return &models.LiveScore{
		HomeTeamAbbr: b.Home.String(),
		AwayTeamAbbr: b.Away.String(),
		Status:       models.StatusFromUpstream(b.GameStatus.String()),
		HomeScore:    atoiOrZero(b.HomePts.String()),
		AwayScore:    atoiOrZero(b.AwayPts.String()),
		Period:       b.GameClock.String(),
	}, nil
}

// splitGameKey extracts the away and home abbreviations from a game key
func splitGameKey(key string) (away, home string) {
	_, teams, ok := strings.Cut(key, "_")
	if !ok {
		return "", ""
	}
	away, home, _ = strings.Cut(teams, "@")
	return away, home
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
