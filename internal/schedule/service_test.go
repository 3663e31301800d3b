package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hitrivals/schedule/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls int32
	fn    func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error)
}

func (f *fakeFetcher) FetchSchedule(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(ctx, league, date)
}

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService(f Fetcher, mockMode bool) *Service {
	return NewService(f, Options{
		MockMode: mockMode,
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
}

func TestFetchScheduleForDate_API(t *testing.T) {
	var gotDate time.Time
	f := &fakeFetcher{fn: func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
		gotDate = date
		return []models.GameRecord{
			{GameID: "20240620_NYY@BOS", Home: "BOS", Away: "NYY", GameDate: "20240620", GameTime: "7:10p"},
		}, nil
	}}
	svc := newTestService(f, false)

	date := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	res := svc.FetchScheduleForDate(context.Background(), date, models.LeagueMLB)

	assert.Equal(t, SourceAPI, res.Source)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Warning)
	assert.Equal(t, models.LeagueMLB, res.League)
	assert.True(t, gotDate.Equal(date))
	require.Len(t, res.Games, 1)
	assert.Equal(t, "Boston Red Sox", res.Games[0].HomeTeam)
	assert.Equal(t, models.StatusScheduled, res.Games[0].Status)
}

func TestFetchScheduleForDate_FallbackOnError(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
		return nil, errors.New("upstream unavailable")
	}}
	svc := newTestService(f, false)

	res := svc.FetchScheduleForDate(context.Background(), time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), models.LeagueMLB)
	assert.Equal(t, SourceMock, res.Source)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackWarning, res.Warning)
	require.Len(t, res.Games, 3)
	assert.Equal(t, "New York Yankees", res.Games[0].HomeTeam)

	// Sample data is dated today, not on the requested day
	assert.Equal(t, fixedNow.Day(), res.Games[0].StartTime.Day())
	assert.Equal(t, 19, res.Games[0].StartTime.Hour())
}

func TestFetchScheduleForDate_FallbackOnEmpty(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
		return []models.GameRecord{}, nil
	}}
	svc := newTestService(f, false)

	res := svc.FetchTodaysSchedule(context.Background(), models.LeagueNBA)
	assert.True(t, res.Fallback)
	assert.Equal(t, SourceMock, res.Source)
	require.Len(t, res.Games, 3)
	assert.Equal(t, models.LeagueNBA, res.Games[0].SportType)
}

func TestFetchScheduleForDate_MockModeSkipsNetwork(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
		t.Fatal("fetcher must not be called in mock mode")
		return nil, nil
	}}
	svc := newTestService(f, true)
	assert.True(t, svc.MockMode())

	res := svc.FetchTodaysSchedule(context.Background(), models.LeagueMLB)
	assert.Equal(t, SourceMock, res.Source)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Warning)
	assert.Len(t, res.Games, 3)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.calls))
}

func TestGetMockGames(t *testing.T) {
	svc := newTestService(nil, false)
	first := svc.GetMockGames(models.LeagueMLB)
	second := svc.GetMockGames(models.LeagueMLB)
	assert.Equal(t, first, second)
	assert.Len(t, svc.GetMockGames(models.LeagueNBA), 3)
}

func TestFetchBoth_Independent(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
		if league == models.LeagueNBA {
			return nil, errors.New("nba down")
		}
		return []models.GameRecord{
			{GameID: "20240615_LAD@SF", Home: "SF", Away: "LAD", GameDate: "20240615"},
			{GameID: "20240615_NYY@BOS", Home: "BOS", Away: "NYY", GameDate: "20240615"},
		}, nil
	}}
	svc := newTestService(f, false)

	results := svc.FetchBoth(context.Background(), fixedNow)
	require.Len(t, results, 2)

	mlb := results[models.LeagueMLB]
	assert.Equal(t, SourceAPI, mlb.Source)
	assert.Len(t, mlb.Games, 2)

	nba := results[models.LeagueNBA]
	assert.True(t, nba.Fallback)
	assert.Len(t, nba.Games, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
}

func TestSelection_SupersededFetchIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	f := &fakeFetcher{fn: func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
		if date.Day() == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []models.GameRecord{{GameID: "20240602_NYY@BOS", Home: "BOS", Away: "NYY", GameDate: "20240602"}}, nil
	}}
	sel := newTestService(f, false).NewSelection()

	type outcome struct {
		res     Result
		current bool
	}
	first := make(chan outcome, 1)
	go func() {
		res, ok := sel.Fetch(context.Background(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), models.LeagueMLB)
		first <- outcome{res, ok}
	}()

	<-started
	res, ok := sel.Fetch(context.Background(), time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), models.LeagueMLB)
	assert.True(t, ok)
	assert.Equal(t, SourceAPI, res.Source)

	select {
	case out := <-first:
		assert.False(t, out.current, "superseded fetch must report false")
	case <-time.After(5 * time.Second):
		t.Fatal("superseded fetch was not cancelled")
	}
}

func TestSelection_Cancel(t *testing.T) {
	started := make(chan struct{})
	f := &fakeFetcher{fn: func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	sel := newTestService(f, false).NewSelection()

	done := make(chan bool, 1)
	go func() {
		_, ok := sel.Fetch(context.Background(), fixedNow, models.LeagueNBA)
		done <- ok
	}()

	<-started
	sel.Cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not abort the fetch")
	}
}

func TestSelection_SingleFetchIsCurrent(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
		return nil, errors.New("down")
	}}
	sel := newTestService(f, false).NewSelection()

	res, ok := sel.Fetch(context.Background(), fixedNow, models.LeagueMLB)
	assert.True(t, ok)
	assert.True(t, res.Fallback)
}
