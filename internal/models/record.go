package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString decodes from either a JSON string or a JSON number. The upstream
// API sends ids and epochs as strings on some deployments and numbers on others.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// GameRecord is one raw per-game entry of the getXGamesForDate endpoints.
// Every field is optional since the schema varies by league and by day.
type GameRecord struct {
	GameID     FlexString `json:"gameID"`
	GameType   FlexString `json:"gameType,omitempty"`
	Home       FlexString `json:"home"`
	Away       FlexString `json:"away"`
	GameDate   FlexString `json:"gameDate"`
	GameTime   FlexString `json:"gameTime,omitempty"`
	GameEpoch  FlexString `json:"gameTime_epoch,omitempty"`
	TeamIDHome FlexString `json:"teamIDHome,omitempty"`
	TeamIDAway FlexString `json:"teamIDAway,omitempty"`
	GameStatus FlexString `json:"gameStatus,omitempty"`
}

// LiveScore is the normalized result of a line score / box score lookup
type LiveScore struct {
	League       League `json:"league"`
	GameKey      string `json:"game_key"`
	HomeTeamAbbr string `json:"home_team_abbr"`
	AwayTeamAbbr string `json:"away_team_abbr"`
	Status       Status `json:"status"`
	HomeScore    int    `json:"home_score"`
	AwayScore    int    `json:"away_score"`
	Period       string `json:"period"`
}
