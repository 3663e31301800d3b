package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hitrivals/schedule/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// VoteRepository handles the predictions table
type VoteRepository struct {
	db *Database
}

// Upsert records a user's pick, replacing an earlier pick for the same game.
// Picks are only accepted while the game is scheduled and has not started.
func (r *VoteRepository) Upsert(ctx context.Context, vote *models.Vote) (err error) {
	defer func(start time.Time) { observe("upsert", "predictions", start, err) }(time.Now())

	if vote == nil {
		return fmt.Errorf("vote cannot be nil")
	}

	query := `
		INSERT INTO predictions (user_id, game_id, prediction)
		SELECT $1::uuid, g.id, $3::text
		FROM games g
		WHERE g.id = $2 AND g.status = 'scheduled' AND g.start_time > NOW()
		ON CONFLICT (user_id, game_id) DO UPDATE SET
			prediction = EXCLUDED.prediction,
			is_correct = NULL,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query, vote.UserID, vote.GameID, string(vote.Choice)).
		Scan(&vote.ID, &vote.CreatedAt, &vote.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)`, vote.GameID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check game: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: game id=%d", ErrNotFound, vote.GameID)
		}
		return ErrVotingClosed
	}
	if err != nil {
		log.Error().Err(err).Int("game_id", vote.GameID).Msg("Failed to upsert vote")
		return fmt.Errorf("failed to upsert vote: %w", err)
	}

	log.Debug().
		Str("user_id", vote.UserID.String()).
		Int("game_id", vote.GameID).
		Str("choice", string(vote.Choice)).
		Msg("Vote recorded")
	return nil
}

// ListByUser returns a user's votes, newest first
func (r *VoteRepository) ListByUser(ctx context.Context, userID uuid.UUID) (_ []*models.Vote, err error) {
	defer func(start time.Time) { observe("list_by_user", "predictions", start, err) }(time.Now())

	query := `
		SELECT id, user_id, game_id, prediction, is_correct, created_at, updated_at
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*models.Vote
	for rows.Next() {
		var (
			v      models.Vote
			choice string
		)
		if err := rows.Scan(&v.ID, &v.UserID, &v.GameID, &choice, &v.IsCorrect, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.Choice = models.Side(choice)
		votes = append(votes, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}

// VotesForGames returns the user's pick for each of gameIDs that has one
func (r *VoteRepository) VotesForGames(ctx context.Context, userID uuid.UUID, gameIDs []int) (_ map[int]models.Side, err error) {
	defer func(start time.Time) { observe("votes_for_games", "predictions", start, err) }(time.Now())

	out := make(map[int]models.Side, len(gameIDs))
	if len(gameIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT game_id, prediction
		FROM predictions
		WHERE user_id = $1 AND game_id = ANY($2)
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, gameIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get votes for games: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			gameID int
			choice string
		)
		if err := rows.Scan(&gameID, &choice); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		out[gameID] = models.Side(choice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return out, nil
}

// GradeGame marks every vote on a game right or wrong. It returns how many
// votes changed.
func (r *VoteRepository) GradeGame(ctx context.Context, gameID int, winner models.Side) (_ int64, err error) {
	defer func(start time.Time) { observe("grade", "predictions", start, err) }(time.Now())

	query := `
		UPDATE predictions
		SET is_correct = (prediction = $2), updated_at = NOW()
		WHERE game_id = $1 AND is_correct IS DISTINCT FROM (prediction = $2)
	`

	result, err := r.db.Pool.Exec(ctx, query, gameID, string(winner))
	if err != nil {
		return 0, fmt.Errorf("failed to grade votes: %w", err)
	}

	log.Info().
		Int("game_id", gameID).
		Str("winner", string(winner)).
		Int64("graded", result.RowsAffected()).
		Msg("Votes graded")

	return result.RowsAffected(), nil
}

// HitRate summarizes a user's graded votes
func (r *VoteRepository) HitRate(ctx context.Context, userID uuid.UUID) (_ *models.HitRate, err error) {
	defer func(start time.Time) { observe("hit_rate", "predictions", start, err) }(time.Now())

	query := `
		SELECT
			COUNT(*),
			COUNT(is_correct),
			COUNT(*) FILTER (WHERE is_correct)
		FROM predictions
		WHERE user_id = $1
	`

	hr := &models.HitRate{UserID: userID}
	if err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&hr.Total, &hr.Graded, &hr.Correct); err != nil {
		return nil, fmt.Errorf("failed to compute hit rate: %w", err)
	}

	hr.ComputeRate()
	return hr, nil
}
