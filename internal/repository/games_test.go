//go:build integration

package repository

import (
	"testing"
	"time"

	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/normalizer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGame(id int, league models.League, start time.Time, home, away string) *models.Game {
	return &models.Game{
		ID:           id,
		Key:          models.GameKey(start, away, home),
		HomeTeam:     home + " Full",
		AwayTeam:     away + " Full",
		HomeTeamAbbr: home,
		AwayTeamAbbr: away,
		StartTime:    start,
		Status:       models.StatusScheduled,
		SportType:    league,
	}
}

func TestGameRepository_Upsert(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	game := testGame(6151234, models.LeagueMLB, start, "BOS", "NYY")

	// Insert game
	require.NoError(t, db.Games.Upsert(ctx, game), "Should insert game")

	retrieved, err := db.Games.GetByID(ctx, game.ID)
	require.NoError(t, err, "Should retrieve game")
	assert.Equal(t, game.Key, retrieved.Key)
	assert.Equal(t, models.LeagueMLB, retrieved.SportType)
	assert.Equal(t, models.StatusScheduled, retrieved.Status)
	assert.True(t, start.Equal(retrieved.StartTime))
	assert.Nil(t, retrieved.HomeScore)
	assert.Nil(t, retrieved.Winner)

	// Live data survives a schedule re-sync
	require.NoError(t, db.Games.UpdateLiveScore(ctx, game.ID, models.StatusLive, 2, 1, "Bot 3rd", nil))
	game.HomeTeam = "Boston Red Sox"
	require.NoError(t, db.Games.Upsert(ctx, game), "Should update game")

	updated, err := db.Games.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, "Boston Red Sox", updated.HomeTeam)
	assert.Equal(t, models.StatusLive, updated.Status)
	require.NotNil(t, updated.HomeScore)
	assert.Equal(t, 2, *updated.HomeScore)
	assert.Equal(t, "Bot 3rd", updated.Period)

	count, err := db.Games.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGameRepository_UpsertAcrossSeasons(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	first := testGame(0, models.LeagueMLB, time.Date(2024, 6, 15, 23, 5, 0, 0, time.UTC), "BOS", "NYY")
	first.ID = normalizer.GameID(models.LeagueMLB, first.Key)
	second := testGame(0, models.LeagueMLB, time.Date(2025, 6, 15, 23, 5, 0, 0, time.UTC), "BOS", "NYY")
	second.ID = normalizer.GameID(models.LeagueMLB, second.Key)
	require.NotEqual(t, first.ID, second.ID)

	require.NoError(t, db.Games.Upsert(ctx, first))
	winner := models.SideHome
	require.NoError(t, db.Games.UpdateLiveScore(ctx, first.ID, models.StatusFinal, 6, 2, "F", &winner))

	userID := uuid.New()
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO predictions (user_id, game_id, prediction) VALUES ($1::uuid, $2, $3::text)`,
		userID, first.ID, string(models.SideHome))
	require.NoError(t, err)
	_, err = db.Votes.GradeGame(ctx, first.ID, models.SideHome)
	require.NoError(t, err)

	require.NoError(t, db.Games.Upsert(ctx, second))

	old, err := db.Games.GetByID(ctx, first.ID)
	require.NoError(t, err, "Last season's game should survive")
	assert.Equal(t, first.Key, old.Key)
	assert.Equal(t, models.StatusFinal, old.Status)
	require.NotNil(t, old.HomeScore)
	assert.Equal(t, 6, *old.HomeScore)

	current, err := db.Games.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Key, current.Key)
	assert.Equal(t, models.StatusScheduled, current.Status)

	rate, err := db.Votes.HitRate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, rate.Total)
	assert.Equal(t, 1, rate.Graded)
	assert.Equal(t, 1, rate.Correct, "Grading survives the next season's upsert")

	count, err := db.Games.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGameRepository_UpsertRejectsForeignID(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	game := testGame(6151234, models.LeagueMLB, start, "BOS", "NYY")
	require.NoError(t, db.Games.Upsert(ctx, game))

	other := testGame(6151234, models.LeagueMLB, start, "SF", "LAD")
	err := db.Games.Upsert(ctx, other)
	assert.ErrorIs(t, err, ErrGameConflict)

	got, err := db.Games.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.Key, got.Key, "Existing game should be untouched")
	assert.Equal(t, "BOS", got.HomeTeamAbbr)

	// A batch skips the colliding game and keeps going
	next := testGame(6151235, models.LeagueMLB, start, "CHC", "STL")
	n, err := db.Games.UpsertMany(ctx, []models.Game{*other, *next})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = db.Games.GetByID(ctx, next.ID)
	assert.NoError(t, err)
}

func TestGameRepository_GetByIDNotFound(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.Games.GetByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	err = db.Games.UpdateLiveScore(ctx, 42, models.StatusLive, 0, 0, "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGameRepository_ListByDate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	games := []models.Game{
		*testGame(1, models.LeagueMLB, day.Add(22*time.Hour), "SF", "LAD"),
		*testGame(2, models.LeagueMLB, day.Add(19*time.Hour), "BOS", "NYY"),
		*testGame(3, models.LeagueMLB, day.Add(30*time.Hour), "CHC", "STL"),
		*testGame(normalizer.NBAIDOffset+1, models.LeagueNBA, day.Add(19*time.Hour), "LAL", "BOS"),
	}
	n, err := db.Games.UpsertMany(ctx, games)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	list, err := db.Games.ListByDate(ctx, models.LeagueMLB, day.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].ID, "Ordered by start time")
	assert.Equal(t, 1, list[1].ID)

	nba, err := db.Games.ListByDate(ctx, models.LeagueNBA, day)
	require.NoError(t, err)
	assert.Len(t, nba, 1)
}

func TestGameRepository_GetActiveGames(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now()
	started := testGame(10, models.LeagueMLB, now.Add(-time.Hour), "BOS", "NYY")
	live := testGame(11, models.LeagueMLB, now.Add(-2*time.Hour), "SF", "LAD")
	upcoming := testGame(12, models.LeagueMLB, now.Add(time.Hour), "CHC", "STL")
	final := testGame(13, models.LeagueMLB, now.Add(-3*time.Hour), "SEA", "HOU")
	stale := testGame(14, models.LeagueMLB, now.Add(-48*time.Hour), "TEX", "OAK")

	for _, g := range []*models.Game{started, live, upcoming, final, stale} {
		require.NoError(t, db.Games.Upsert(ctx, g))
	}
	require.NoError(t, db.Games.UpdateLiveScore(ctx, live.ID, models.StatusLive, 1, 0, "Top 5th", nil))
	winner := models.SideHome
	require.NoError(t, db.Games.UpdateLiveScore(ctx, final.ID, models.StatusFinal, 5, 3, "F", &winner))

	active, err := db.Games.GetActiveGames(ctx, now)
	require.NoError(t, err, "Should retrieve active games")
	require.Len(t, active, 2)

	ids := []int{active[0].ID, active[1].ID}
	assert.ElementsMatch(t, []int{started.ID, live.ID}, ids)

	got, err := db.Games.GetByID(ctx, final.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Winner)
	assert.Equal(t, models.SideHome, *got.Winner)
}

func TestVoteRepository_Lifecycle(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := testGame(20, models.LeagueNBA, time.Now().Add(2*time.Hour), "LAL", "BOS")
	require.NoError(t, db.Games.Upsert(ctx, game))

	alice, bob := uuid.New(), uuid.New()
	require.NoError(t, db.Votes.Upsert(ctx, &models.Vote{UserID: alice, GameID: game.ID, Choice: models.SideAway}))
	require.NoError(t, db.Votes.Upsert(ctx, &models.Vote{UserID: bob, GameID: game.ID, Choice: models.SideAway}))

	// Changing a pick replaces it
	v := &models.Vote{UserID: alice, GameID: game.ID, Choice: models.SideHome}
	require.NoError(t, db.Votes.Upsert(ctx, v))
	assert.NotZero(t, v.ID)

	picks, err := db.Votes.VotesForGames(ctx, alice, []int{game.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[int]models.Side{game.ID: models.SideHome}, picks)

	votes, err := db.Votes.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Nil(t, votes[0].IsCorrect)

	// Grade
	graded, err := db.Votes.GradeGame(ctx, game.ID, models.SideHome)
	require.NoError(t, err)
	assert.Equal(t, int64(2), graded)

	again, err := db.Votes.GradeGame(ctx, game.ID, models.SideHome)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again, "Regrading with the same winner changes nothing")

	hr, err := db.Votes.HitRate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, hr.Total)
	assert.Equal(t, 1, hr.Graded)
	assert.Equal(t, 1, hr.Correct)
	assert.Equal(t, 1.0, hr.Rate)

	hr, err = db.Votes.HitRate(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 0, hr.Correct)
	assert.Equal(t, 0.0, hr.Rate)
}

func TestVoteRepository_VotingClosed(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := testGame(30, models.LeagueMLB, time.Now().Add(-time.Minute), "BOS", "NYY")
	require.NoError(t, db.Games.Upsert(ctx, game))

	err := db.Votes.Upsert(ctx, &models.Vote{UserID: uuid.New(), GameID: game.ID, Choice: models.SideHome})
	assert.ErrorIs(t, err, ErrVotingClosed)

	err = db.Votes.Upsert(ctx, &models.Vote{UserID: uuid.New(), GameID: 31, Choice: models.SideHome})
	assert.ErrorIs(t, err, ErrNotFound)
}
