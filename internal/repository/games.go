package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hitrivals/schedule/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// activeWindow bounds how far back a game that never reported final is
// still polled for live scores
const activeWindow = 12 * time.Hour

const gameColumns = `
	id, game_key, league, home_team, away_team, home_team_abbr, away_team_abbr,
	start_time, status, home_score, away_score, period, winner`

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	var (
		game           models.Game
		league, status string
		winner         *string
	)
	err := row.Scan(
		&game.ID, &game.Key, &league, &game.HomeTeam, &game.AwayTeam, &game.HomeTeamAbbr, &game.AwayTeamAbbr,
		&game.StartTime, &status, &game.HomeScore, &game.AwayScore, &game.Period, &winner,
	)
	if err != nil {
		return nil, err
	}

	game.SportType = models.League(league)
	game.Status = models.Status(status)
	if winner != nil {
		w := models.Side(*winner)
		game.Winner = &w
	}
	return &game, nil
}

func collectGames(rows pgx.Rows) ([]*models.Game, error) {
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return games, nil
}

// Upsert inserts a game or refreshes its schedule fields. Status, scores and
// winner of an existing row belong to the live refresh and are left alone.
// A row is only refreshed by the game it was created for.
func (r *GameRepository) Upsert(ctx context.Context, game *models.Game) (err error) {
	defer func(start time.Time) { observe("upsert", "games", start, err) }(time.Now())

	query := `
		INSERT INTO games (
			id, game_key, league, home_team, away_team, home_team_abbr, away_team_abbr,
			start_time, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			home_team_abbr = EXCLUDED.home_team_abbr,
			away_team_abbr = EXCLUDED.away_team_abbr,
			start_time = EXCLUDED.start_time,
			updated_at = NOW()
		WHERE games.league = EXCLUDED.league AND games.game_key = EXCLUDED.game_key
	`

	status := game.Status
	if status == "" {
		status = models.StatusScheduled
	}

	tag, err := r.db.Pool.Exec(
		ctx, query,
		game.ID, game.Key, string(game.SportType), game.HomeTeam, game.AwayTeam, game.HomeTeamAbbr, game.AwayTeamAbbr,
		game.StartTime, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}

	// The id is taken by a different game; its row and votes stay untouched
	if tag.RowsAffected() == 0 {
		log.Warn().
			Int("id", game.ID).
			Str("key", game.Key).
			Msg("Game id already belongs to another game")
		return fmt.Errorf("%w: id=%d key=%s", ErrGameConflict, game.ID, game.Key)
	}

	log.Debug().
		Int("id", game.ID).
		Str("key", game.Key).
		Str("league", game.SportType.String()).
		Msg("Game upserted")

	return nil
}

// UpsertMany upserts games in one batch. Games whose id belongs to another
// stored game are skipped.
func (r *GameRepository) UpsertMany(ctx context.Context, games []models.Game) (int, error) {
	n := 0
	for i := range games {
		if err := r.Upsert(ctx, &games[i]); err != nil {
			if errors.Is(err, ErrGameConflict) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// GetByID retrieves a game by id
func (r *GameRepository) GetByID(ctx context.Context, id int) (_ *models.Game, err error) {
	defer func(start time.Time) { observe("get", "games", start, err) }(time.Now())

	query := `SELECT` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: game id=%d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// ListByDate retrieves a league's games starting on day's calendar date, in
// day's location, ordered by start time
func (r *GameRepository) ListByDate(ctx context.Context, league models.League, day time.Time) (_ []*models.Game, err error) {
	defer func(start time.Time) { observe("list_by_date", "games", start, err) }(time.Now())

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	query := `SELECT` + gameColumns + `
		FROM games
		WHERE league = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time, id
	`

	rows, err := r.db.Pool.Query(ctx, query, string(league), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list games by date: %w", err)
	}

	return collectGames(rows)
}

// GetActiveGames retrieves games that should be polled for live scores: live
// games plus scheduled games whose start time has passed
func (r *GameRepository) GetActiveGames(ctx context.Context, now time.Time) (_ []*models.Game, err error) {
	defer func(start time.Time) { observe("get_active", "games", start, err) }(time.Now())

	query := `SELECT` + gameColumns + `
		FROM games
		WHERE status IN ('scheduled', 'live')
		  AND start_time <= $1
		  AND start_time >= $2
		ORDER BY start_time
	`

	rows, err := r.db.Pool.Query(ctx, query, now, now.Add(-activeWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to get active games: %w", err)
	}

	games, err := collectGames(rows)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("count", len(games)).Msg("Retrieved active games")
	return games, nil
}

// UpdateLiveScore stores the latest score of a game
func (r *GameRepository) UpdateLiveScore(ctx context.Context, id int, status models.Status, home, away int, period string, winner *models.Side) (err error) {
	defer func(start time.Time) { observe("update_live", "games", start, err) }(time.Now())

	query := `
		UPDATE games
		SET status = $2, home_score = $3, away_score = $4, period = $5, winner = $6, updated_at = NOW()
		WHERE id = $1
	`

	var w *string
	if winner != nil {
		s := string(*winner)
		w = &s
	}

	result, err := r.db.Pool.Exec(ctx, query, id, string(status), home, away, period, w)
	if err != nil {
		return fmt.Errorf("failed to update live score: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: game id=%d", ErrNotFound, id)
	}

	return nil
}

// Count returns the total number of games
func (r *GameRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM games`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}

	return count, nil
}
