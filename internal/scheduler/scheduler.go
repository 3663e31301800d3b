package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hitrivals/schedule/internal/metrics"
	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/schedule"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ScheduleSource loads a league's schedule for today
type ScheduleSource interface {
	FetchTodaysSchedule(ctx context.Context, league models.League) schedule.Result
}

// LiveScorer looks up the current score of one game
type LiveScorer interface {
	FetchLiveScore(ctx context.Context, league models.League, gameKey string) (*models.LiveScore, error)
}

// GameStore persists games and their live scores
type GameStore interface {
	UpsertMany(ctx context.Context, games []models.Game) (int, error)
	GetActiveGames(ctx context.Context, now time.Time) ([]*models.Game, error)
	UpdateLiveScore(ctx context.Context, id int, status models.Status, home, away int, period string, winner *models.Side) error
}

// VoteGrader marks votes once a game has a winner
type VoteGrader interface {
	GradeGame(ctx context.Context, gameID int, winner models.Side) (int64, error)
}

// ScheduleCache holds the schedule snapshots the API serves
type ScheduleCache interface {
	SetSchedule(ctx context.Context, league models.League, date time.Time, games []models.Game, ttl time.Duration) error
	InvalidateSchedule(ctx context.Context, league models.League, date time.Time) error
}

// Broadcaster pushes game updates to live subscribers
type Broadcaster interface {
	Broadcast(game models.Game)
}

// Config controls when the scheduler runs
type Config struct {
	SyncCron     string
	PollInterval time.Duration
	CacheTTL     time.Duration
	// Location is the zone schedule days are cached under. Defaults to time.Local.
	Location     *time.Location
}

// Deps are the collaborators of a Scheduler. Games, Votes, Cache and Hub are
// optional; the matching step is skipped when one is nil.
type Deps struct {
	Schedules ScheduleSource
	Scores    LiveScorer
	Games     GameStore
	Votes     VoteGrader
	Cache     ScheduleCache
	Hub       Broadcaster
}

// Scheduler manages background tasks:
// - Daily schedule sync into Postgres and Redis
// - Live score polling for games that have started
// - Vote grading when a game goes final
type Scheduler struct {
	cfg      Config
	deps     Deps
	cron     *cron.Cron
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg Config, deps Deps) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		cfg:      cfg,
		deps:     deps,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if s.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", s.cfg.PollInterval)
	}

	// Setup daily schedule sync cron job
	if _, err := s.cron.AddFunc(s.cfg.SyncCron, func() {
		log.Info().Msg("Running schedule sync...")
		if err := s.SyncSchedules(ctx); err != nil {
			log.Error().Err(err).Msg("Schedule sync failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	// Start cron scheduler
	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.SyncCron).
		Msg("Schedule sync scheduled")

	// Start live score polling ticker
	s.ticker = time.NewTicker(s.cfg.PollInterval)
	log.Info().
		Dur("interval", s.cfg.PollInterval).
		Msg("Live score polling started")

	go s.pollLoop(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Info().Msg("Stopping scheduler...")

		if s.cron != nil {
			<-s.cron.Stop().Done()
		}

		if s.ticker != nil {
			s.ticker.Stop()
		}

		close(s.stopChan)
		log.Info().Msg("Scheduler stopped")
	})
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping live score polling")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping live score polling")
			return
		case <-s.ticker.C:
			if err := s.PollLiveScores(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to poll live scores")
			}
		}
	}
}

// SyncSchedules loads today's schedule for every league and stores the real
// ones. Sample data from a fallback is never persisted or cached.
func (s *Scheduler) SyncSchedules(ctx context.Context) error {
	var errs []error
	for _, league := range models.Leagues {
		if err := s.syncLeague(ctx, league); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) syncLeague(ctx context.Context, league models.League) error {
	start := time.Now()
	syncType := "schedule_" + league.String()

	res := s.deps.Schedules.FetchTodaysSchedule(ctx, league)
	if res.Source != schedule.SourceAPI {
		log.Warn().
			Str("league", league.String()).
			Bool("fallback", res.Fallback).
			Msg("No real schedule available, skipping persistence")
		metrics.RecordSync(syncType, "skipped", time.Since(start).Seconds())
		return nil
	}

	saved := 0
	if s.deps.Games != nil {
		n, err := s.deps.Games.UpsertMany(ctx, res.Games)
		saved = n
		if err != nil {
			metrics.RecordSync(syncType, "error", time.Since(start).Seconds())
			metrics.RecordError("scheduler", "upsert_games")
			return fmt.Errorf("failed to save %s games: %w", league, err)
		}
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetSchedule(ctx, league, res.Date, res.Games, s.cfg.CacheTTL); err != nil {
			// The API falls back to the service on a miss
			log.Warn().Err(err).Str("league", league.String()).Msg("Failed to cache schedule")
		}
	}

	metrics.RecordSync(syncType, "success", time.Since(start).Seconds())
	log.Info().
		Str("league", league.String()).
		Int("games", len(res.Games)).
		Int("saved", saved).
		Dur("duration", time.Since(start)).
		Msg("Schedule sync complete")

	return nil
}

// PollLiveScores refreshes every game that has started and is not final
func (s *Scheduler) PollLiveScores(ctx context.Context) error {
	if s.deps.Games == nil || s.deps.Scores == nil {
		return nil
	}
	start := time.Now()

	activeGames, err := s.deps.Games.GetActiveGames(ctx, s.now())
	if err != nil {
		metrics.RecordSync("live_scores", "error", time.Since(start).Seconds())
		return fmt.Errorf("failed to get active games: %w", err)
	}

	if len(activeGames) == 0 {
		log.Debug().Msg("No active games found")
		return nil
	}

	log.Info().Int("count", len(activeGames)).Msg("Found active games")

	// Fetch and update live scores in parallel
	var wg sync.WaitGroup
	for _, game := range activeGames {
		wg.Add(1)
		go func(g *models.Game) {
			defer wg.Done()
			if err := s.updateGame(ctx, g); err != nil {
				metrics.RecordError("scheduler", "live_update")
				log.Error().Err(err).Int("game_id", g.ID).Str("key", g.Key).Msg("Failed to update game")
			}
		}(game)
	}

	wg.Wait()

	metrics.RecordSync("live_scores", "success", time.Since(start).Seconds())
	log.Info().
		Int("active_games", len(activeGames)).
		Dur("duration", time.Since(start)).
		Msg("Live score polling complete")

	return nil
}

// updateGame applies one live score lookup to g
func (s *Scheduler) updateGame(ctx context.Context, g *models.Game) error {
	ls, err := s.deps.Scores.FetchLiveScore(ctx, g.SportType, g.Key)
	if err != nil {
		return err
	}

	if !scoreChanged(g, ls) {
		return nil
	}

	g.ApplyLiveScore(ls)
	if err := s.deps.Games.UpdateLiveScore(ctx, g.ID, g.Status, *g.HomeScore, *g.AwayScore, g.Period, g.Winner); err != nil {
		return err
	}
	metrics.RecordLiveUpdate(g.SportType.String(), string(g.Status))

	log.Debug().
		Int("game_id", g.ID).
		Str("status", string(g.Status)).
		Int("home", *g.HomeScore).
		Int("away", *g.AwayScore).
		Msg("Live score updated")

	if g.IsFinal() && g.Winner != nil && s.deps.Votes != nil {
		graded, err := s.deps.Votes.GradeGame(ctx, g.ID, *g.Winner)
		if err != nil {
			return fmt.Errorf("failed to grade votes: %w", err)
		}
		metrics.RecordVotesGraded(graded)
	}

	if s.deps.Cache != nil {
		// Stored start times come back in the driver's zone, not the cache's
		if err := s.deps.Cache.InvalidateSchedule(ctx, g.SportType, g.StartTime.In(s.cfg.Location)); err != nil {
			log.Warn().Err(err).Int("game_id", g.ID).Msg("Failed to invalidate cached schedule")
		}
	}

	if s.deps.Hub != nil {
		s.deps.Hub.Broadcast(*g)
	}
	return nil
}

func scoreChanged(g *models.Game, ls *models.LiveScore) bool {
	if g.Status != ls.Status || g.Period != ls.Period {
		return true
	}
	if g.HomeScore == nil || g.AwayScore == nil {
		return ls.Status != models.StatusScheduled
	}
	return *g.HomeScore != ls.HomeScore || *g.AwayScore != ls.AwayScore
}
