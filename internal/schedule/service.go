// Package schedule composes the fetch, normalize and mock fallback steps into
// the calls the app uses to load a day's games.
package schedule

import (
	"context"
	"sync"
	"time"

	"hitrivals/schedule/internal/metrics"
	"hitrivals/schedule/internal/mock"
	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/normalizer"

	"github.com/rs/zerolog/log"
)

// FallbackWarning is the soft message shown alongside mock data
const FallbackWarning = "Couldn't fetch games for the selected date. Using sample data."

// Source tells where the games of a Result came from
type Source string

const (
	SourceAPI  Source = "api"
	SourceMock Source = "mock"
)

// Fetcher retrieves raw schedule records for one league and day
type Fetcher interface {
	FetchSchedule(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error)
}

// Result is the outcome of one schedule load. It always carries games.
type Result struct {
	League   models.League `json:"league"`
	Date     time.Time     `json:"date"`
	Games    []models.Game `json:"games"`
	Source   Source        `json:"source"`
	Fallback bool          `json:"fallback"`
	Warning  string        `json:"warning,omitempty"`
}

// Options configures a Service
type Options struct {
	// MockMode skips the network and always serves sample data
	MockMode bool
	Location *time.Location
	Now      func() time.Time
}

// Service loads schedules, falling back to sample data on any failure
type Service struct {
	fetcher    Fetcher
	normalizer *normalizer.Normalizer
	loc        *time.Location
	mockMode   bool
	now        func() time.Time
}

// NewService creates a new schedule service
func NewService(fetcher Fetcher, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		fetcher:    fetcher,
		normalizer: normalizer.New(opts.Location),
		loc:        opts.Location,
		mockMode:   opts.MockMode,
		now:        opts.Now,
	}
}

// MockMode reports whether the service never calls the network
func (s *Service) MockMode() bool {
	return s.mockMode
}

// Location returns the time zone calendar days are resolved in
func (s *Service) Location() *time.Location {
	return s.loc
}

// FetchTodaysSchedule loads today's games for league
func (s *Service) FetchTodaysSchedule(ctx context.Context, league models.League) Result {
	return s.FetchScheduleForDate(ctx, s.now(), league)
}

// FetchScheduleForDate loads the games of date's calendar day. Errors and empty
// schedules are answered with sample data and Fallback set.
func (s *Service) FetchScheduleForDate(ctx context.Context, date time.Time, league models.League) Result {
	day := date.In(s.loc)

	if s.mockMode || s.fetcher == nil {
		log.Debug().Str("league", league.String()).Msg("Mock mode enabled, serving sample schedule")
		return Result{
			League: league,
			Date:   day,
			Games:  s.GetMockGames(league),
			Source: SourceMock,
		}
	}

	records, err := s.fetcher.FetchSchedule(ctx, league, day)
	if err != nil {
		log.Warn().
			Err(err).
			Str("league", league.String()).
			Str("date", day.Format("2006-01-02")).
			Msg("Schedule fetch failed, using sample data")
		return s.fallback(league, day, "fetch_error")
	}
	if len(records) == 0 {
		log.Warn().
			Str("league", league.String()).
			Str("date", day.Format("2006-01-02")).
			Msg("Schedule is empty, using sample data")
		return s.fallback(league, day, "empty")
	}

	return Result{
		League: league,
		Date:   day,
		Games:  s.normalizer.Normalize(league, day, records),
		Source: SourceAPI,
	}
}

// GetMockGames returns today's sample games for league
func (s *Service) GetMockGames(league models.League) []models.Game {
	return mock.Games(league, s.now().In(s.loc))
}

func (s *Service) fallback(league models.League, day time.Time, reason string) Result {
	metrics.RecordFallback(league.String(), reason)
	return Result{
		League:   league,
		Date:     day,
		Games:    s.GetMockGames(league),
		Source:   SourceMock,
		Fallback: true,
		Warning:  FallbackWarning,
	}
}

// FetchBoth loads every league for date concurrently. Each league's result is
// independent of the others.
func (s *Service) FetchBoth(ctx context.Context, date time.Time) map[models.League]Result {
	results := make([]Result, len(models.Leagues))

	var wg sync.WaitGroup
	for i, league := range models.Leagues {
		wg.Add(1)
		go func(i int, league models.League) {
			defer wg.Done()
			results[i] = s.FetchScheduleForDate(ctx, date, league)
		}(i, league)
	}
	wg.Wait()

	out := make(map[models.League]Result, len(results))
	for i, league := range models.Leagues {
		out[league] = results[i]
	}
	return out
}
