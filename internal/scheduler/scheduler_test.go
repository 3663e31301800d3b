package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hitrivals/schedule/internal/cache"
	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSchedules struct {
	results map[models.League]schedule.Result
}

func (f *fakeSchedules) FetchTodaysSchedule(ctx context.Context, league models.League) schedule.Result {
	return f.results[league]
}

type fakeScores struct {
	scores map[string]*models.LiveScore
	err    error
}

func (f *fakeScores) FetchLiveScore(ctx context.Context, league models.League, gameKey string) (*models.LiveScore, error) {
	if f.err != nil {
		return nil, f.err
	}
	ls, ok := f.scores[gameKey]
	if !ok {
		return nil, errors.New("no score")
	}
	return ls, nil
}

type liveUpdate struct {
	id         int
	status     models.Status
	home, away int
	winner     *models.Side
}

type fakeStore struct {
	mu        sync.Mutex
	upserted  []models.Game
	active    []*models.Game
	updates   []liveUpdate
	upsertErr error
}

func (f *fakeStore) UpsertMany(ctx context.Context, games []models.Game) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, games...)
	return len(games), nil
}

func (f *fakeStore) GetActiveGames(ctx context.Context, now time.Time) ([]*models.Game, error) {
	return f.active, nil
}

func (f *fakeStore) UpdateLiveScore(ctx context.Context, id int, status models.Status, home, away int, period string, winner *models.Side) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, liveUpdate{id: id, status: status, home: home, away: away, winner: winner})
	return nil
}

type fakeGrader struct {
	mu     sync.Mutex
	graded map[int]models.Side
}

func (f *fakeGrader) GradeGame(ctx context.Context, gameID int, winner models.Side) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.graded == nil {
		f.graded = make(map[int]models.Side)
	}
	f.graded[gameID] = winner
	return 2, nil
}

type fakeCache struct {
	mu          sync.Mutex
	set         map[models.League][]models.Game
	invalidated int
	keys        []string
}

func (f *fakeCache) SetSchedule(ctx context.Context, league models.League, date time.Time, games []models.Game, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set == nil {
		f.set = make(map[models.League][]models.Game)
	}
	f.set[league] = games
	return nil
}

func (f *fakeCache) InvalidateSchedule(ctx context.Context, league models.League, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	f.keys = append(f.keys, cache.ScheduleKey(league, date))
	return nil
}

type fakeHub struct {
	mu    sync.Mutex
	games []models.Game
}

func (f *fakeHub) Broadcast(game models.Game) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = append(f.games, game)
}

func testConfig() Config {
	return Config{SyncCron: "0 6 * * *", PollInterval: time.Minute, CacheTTL: 10 * time.Minute}
}

func TestSyncSchedules_PersistsRealGamesOnly(t *testing.T) {
	mlb := []models.Game{{ID: 1, SportType: models.LeagueMLB}, {ID: 2, SportType: models.LeagueMLB}}
	sources := &fakeSchedules{results: map[models.League]schedule.Result{
		models.LeagueMLB: {League: models.LeagueMLB, Games: mlb, Source: schedule.SourceAPI},
		models.LeagueNBA: {League: models.LeagueNBA, Games: []models.Game{{ID: 9}}, Source: schedule.SourceMock, Fallback: true},
	}}
	store := &fakeStore{}
	fc := &fakeCache{}

	s := NewScheduler(testConfig(), Deps{Schedules: sources, Games: store, Cache: fc})
	require.NoError(t, s.SyncSchedules(context.Background()))

	assert.Equal(t, mlb, store.upserted)
	assert.Equal(t, mlb, fc.set[models.LeagueMLB])
	_, cachedNBA := fc.set[models.LeagueNBA]
	assert.False(t, cachedNBA, "fallback data must not be cached")
}

func TestSyncSchedules_UpsertError(t *testing.T) {
	sources := &fakeSchedules{results: map[models.League]schedule.Result{
		models.LeagueMLB: {League: models.LeagueMLB, Games: []models.Game{{ID: 1}}, Source: schedule.SourceAPI},
		models.LeagueNBA: {League: models.LeagueNBA, Source: schedule.SourceMock, Fallback: true},
	}}
	store := &fakeStore{upsertErr: errors.New("db down")}
	fc := &fakeCache{}

	s := NewScheduler(testConfig(), Deps{Schedules: sources, Games: store, Cache: fc})
	err := s.SyncSchedules(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, fc.set)
}

func TestSyncSchedules_WithoutStorage(t *testing.T) {
	sources := &fakeSchedules{results: map[models.League]schedule.Result{
		models.LeagueMLB: {League: models.LeagueMLB, Games: []models.Game{{ID: 1}}, Source: schedule.SourceAPI},
		models.LeagueNBA: {League: models.LeagueNBA, Games: []models.Game{{ID: 2}}, Source: schedule.SourceAPI},
	}}

	s := NewScheduler(testConfig(), Deps{Schedules: sources})
	assert.NoError(t, s.SyncSchedules(context.Background()))
}

func TestPollLiveScores_UpdatesGradesAndBroadcasts(t *testing.T) {
	start := time.Date(2024, 6, 1, 19, 5, 0, 0, time.UTC)
	store := &fakeStore{active: []*models.Game{
		{ID: 1, Key: "20240601_BOS@NYY", SportType: models.LeagueMLB, Status: models.StatusScheduled, StartTime: start},
		{ID: 2, Key: "20240601_CHC@STL", SportType: models.LeagueMLB, Status: models.StatusScheduled, StartTime: start},
	}}
	scores := &fakeScores{scores: map[string]*models.LiveScore{
		"20240601_BOS@NYY": {Status: models.StatusLive, HomeScore: 3, AwayScore: 1, Period: "Top 5th"},
		"20240601_CHC@STL": {Status: models.StatusFinal, HomeScore: 2, AwayScore: 6, Period: "Final"},
	}}
	grader := &fakeGrader{}
	fc := &fakeCache{}
	hub := &fakeHub{}

	s := NewScheduler(testConfig(), Deps{Scores: scores, Games: store, Votes: grader, Cache: fc, Hub: hub})
	require.NoError(t, s.PollLiveScores(context.Background()))

	assert.Len(t, store.updates, 2)
	assert.Len(t, hub.games, 2)
	assert.Equal(t, 2, fc.invalidated)

	require.Len(t, grader.graded, 1)
	assert.Equal(t, models.SideAway, grader.graded[2])
}

func TestPollLiveScores_InvalidatesLocalScheduleDay(t *testing.T) {
	pacific := time.FixedZone("PDT", -7*3600)

	// 22:10 on the 15th in Los Angeles, read back from storage as UTC
	start := time.Date(2024, 6, 15, 22, 10, 0, 0, pacific).UTC()
	require.Equal(t, 16, start.Day())

	store := &fakeStore{active: []*models.Game{
		{ID: 1, Key: "20240615_LAD@SF", SportType: models.LeagueMLB, Status: models.StatusScheduled, StartTime: start},
	}}
	scores := &fakeScores{scores: map[string]*models.LiveScore{
		"20240615_LAD@SF": {Status: models.StatusLive, HomeScore: 0, AwayScore: 1, Period: "Top 1st"},
	}}
	fc := &fakeCache{}

	cfg := testConfig()
	cfg.Location = pacific
	s := NewScheduler(cfg, Deps{Scores: scores, Games: store, Cache: fc})
	require.NoError(t, s.PollLiveScores(context.Background()))

	assert.Equal(t, []string{"schedule:mlb:2024-06-15"}, fc.keys)
}

func TestPollLiveScores_UnchangedGameIsSkipped(t *testing.T) {
	home, away := 3, 1
	store := &fakeStore{active: []*models.Game{{
		ID: 1, Key: "20240601_BOS@NYY", SportType: models.LeagueMLB,
		Status: models.StatusLive, HomeScore: &home, AwayScore: &away, Period: "Top 5th",
	}}}
	scores := &fakeScores{scores: map[string]*models.LiveScore{
		"20240601_BOS@NYY": {Status: models.StatusLive, HomeScore: 3, AwayScore: 1, Period: "Top 5th"},
	}}
	hub := &fakeHub{}

	s := NewScheduler(testConfig(), Deps{Scores: scores, Games: store, Hub: hub})
	require.NoError(t, s.PollLiveScores(context.Background()))

	assert.Empty(t, store.updates)
	assert.Empty(t, hub.games)
}

func TestPollLiveScores_FetchErrorIsIsolated(t *testing.T) {
	store := &fakeStore{active: []*models.Game{{ID: 1, Key: "k", SportType: models.LeagueNBA}}}
	s := NewScheduler(testConfig(), Deps{Scores: &fakeScores{err: errors.New("upstream")}, Games: store})

	assert.NoError(t, s.PollLiveScores(context.Background()))
	assert.Empty(t, store.updates)
}

func TestScoreChanged(t *testing.T) {
	home, away := 1, 0
	tests := []struct {
		name string
		game models.Game
		ls   models.LiveScore
		want bool
	}{
		{"still scheduled", models.Game{Status: models.StatusScheduled}, models.LiveScore{Status: models.StatusScheduled}, false},
		{"first pitch", models.Game{Status: models.StatusScheduled}, models.LiveScore{Status: models.StatusLive}, true},
		{"same score", models.Game{Status: models.StatusLive, HomeScore: &home, AwayScore: &away}, models.LiveScore{Status: models.StatusLive, HomeScore: 1}, false},
		{"run scored", models.Game{Status: models.StatusLive, HomeScore: &home, AwayScore: &away}, models.LiveScore{Status: models.StatusLive, HomeScore: 1, AwayScore: 1}, true},
		{"period change", models.Game{Status: models.StatusLive, HomeScore: &home, AwayScore: &away, Period: "Q1"}, models.LiveScore{Status: models.StatusLive, HomeScore: 1, Period: "Q2"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreChanged(&tt.game, &tt.ls))
		})
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(testConfig(), Deps{Schedules: &fakeSchedules{}})
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
}

func TestStart_InvalidCron(t *testing.T) {
	cfg := testConfig()
	cfg.SyncCron = "not a cron"
	s := NewScheduler(cfg, Deps{})
	assert.Error(t, s.Start(context.Background()))
}
