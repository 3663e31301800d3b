package teams

import (
	"testing"

	"hitrivals/schedule/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTableSizes(t *testing.T) {
	assert.Len(t, Abbreviations(models.LeagueMLB), 30)
	assert.Len(t, Abbreviations(models.LeagueNBA), 30)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "New York Yankees", Resolve(models.LeagueMLB, "NYY"))
	assert.Equal(t, "Los Angeles Lakers", Resolve(models.LeagueNBA, "LAL"))

	// Same abbreviation, different league
	assert.Equal(t, "Boston Red Sox", Resolve(models.LeagueMLB, "BOS"))
	assert.Equal(t, "Boston Celtics", Resolve(models.LeagueNBA, "BOS"))
}

func TestResolveIdempotent(t *testing.T) {
	for _, league := range models.Leagues {
		for _, abbr := range Abbreviations(league) {
			first := Resolve(league, abbr)
			assert.Equal(t, first, Resolve(league, abbr), "%s/%s", league, abbr)
			assert.NotEqual(t, abbr, first, "Known abbreviations should resolve to a full name")
		}
	}
}

func TestResolveUnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "XYZ", Resolve(models.LeagueMLB, "XYZ"))
	assert.Equal(t, "", Resolve(models.LeagueNBA, ""))
	assert.False(t, Known(models.LeagueNBA, "XYZ"))
	assert.True(t, Known(models.LeagueMLB, "WSH"))
	assert.False(t, Known(models.LeagueMLB, "WAS"), "WAS is the NBA code")
}
