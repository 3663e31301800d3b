package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"hitrivals/schedule/internal/logos"
	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/repository"
	"hitrivals/schedule/internal/schedule"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const dateLayout = "20060102"

// ScheduleResponse is the body of the schedule endpoints
type ScheduleResponse struct {
	League   models.League   `json:"league"`
	Date     string          `json:"date"`
	Games    []models.Game   `json:"games"`
	Count    int             `json:"count"`
	Source   schedule.Source `json:"source"`
	Fallback bool            `json:"fallback"`
	Warning  string          `json:"warning,omitempty"`
	Cached   bool            `json:"cached"`
}

// HealthCheck returns the health status of the API
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK

	if s.deps.Database != nil {
		if err := s.deps.Database.Health(ctx); err != nil {
			checks["database"] = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "healthy"
		}
	}

	// Redis is an optimization, a failure only degrades
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Health(ctx); err != nil {
			checks["redis"] = "unhealthy"
		} else {
			checks["redis"] = "healthy"
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":    state,
		"checks":    checks,
		"mock_mode": s.deps.Schedule.MockMode(),
		"timestamp": s.now().UTC(),
	})
}

// GetSchedule returns a league's games for one day
// GET /api/v1/schedule/{league}?date=YYYYMMDD&user_id={uuid}
func (s *Server) GetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	league, err := models.ParseLeague(chi.URLParam(r, "league"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYYMMDD", nil)
		return
	}

	var userID uuid.UUID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err = uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "user_id must be a UUID", nil)
			return
		}
	}

	resp := s.loadSchedule(ctx, league, day)

	if userID != uuid.Nil && s.deps.Votes != nil && len(resp.Games) > 0 {
		s.tagUserVotes(ctx, userID, resp.Games)
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetMockSchedule returns today's sample games for a league
// GET /api/v1/schedule/{league}/mock
func (s *Server) GetMockSchedule(w http.ResponseWriter, r *http.Request) {
	league, err := models.ParseLeague(chi.URLParam(r, "league"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	games := s.deps.Schedule.GetMockGames(league)
	respondJSON(w, http.StatusOK, ScheduleResponse{
		League: league,
		Date:   s.now().In(s.deps.Schedule.Location()).Format("2006-01-02"),
		Games:  games,
		Count:  len(games),
		Source: schedule.SourceMock,
	})
}

// GetGame returns a stored game with its latest live state
// GET /api/v1/games/{id}
func (s *Server) GetGame(w http.ResponseWriter, r *http.Request) {
	if s.deps.Games == nil {
		respondError(w, http.StatusServiceUnavailable, "games are unavailable", nil)
		return
	}

	gameID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "game id must be an integer", nil)
		return
	}

	game, err := s.deps.Games.GetByID(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "game not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load game", err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

// CastVote records or changes a user's pick for a game
// POST /api/v1/games/{id}/votes
func (s *Server) CastVote(w http.ResponseWriter, r *http.Request) {
	if s.deps.Votes == nil {
		respondError(w, http.StatusServiceUnavailable, "voting is unavailable", nil)
		return
	}

	gameID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "game id must be an integer", nil)
		return
	}

	var input models.VoteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	vote, err := input.ToVote(gameID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := s.deps.Votes.Upsert(r.Context(), vote); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			respondError(w, http.StatusNotFound, "game not found", nil)
		case errors.Is(err, repository.ErrVotingClosed):
			respondError(w, http.StatusConflict, "voting is closed for this game", nil)
		default:
			respondError(w, http.StatusInternalServerError, "failed to save vote", err)
		}
		return
	}

	respondJSON(w, http.StatusCreated, vote)
}

// ListUserVotes returns a user's picks, newest first
// GET /api/v1/users/{id}/votes
func (s *Server) ListUserVotes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Votes == nil {
		respondError(w, http.StatusServiceUnavailable, "voting is unavailable", nil)
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "user id must be a UUID", nil)
		return
	}

	votes, err := s.deps.Votes.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list votes", err)
		return
	}
	if votes == nil {
		votes = []*models.Vote{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"votes": votes,
		"count": len(votes),
	})
}

// GetHitRate returns a user's share of correct picks
// GET /api/v1/users/{id}/hit-rate
func (s *Server) GetHitRate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Votes == nil {
		respondError(w, http.StatusServiceUnavailable, "hit rate is unavailable", nil)
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "user id must be a UUID", nil)
		return
	}

	rate, err := s.deps.Votes.HitRate(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute hit rate", err)
		return
	}

	respondJSON(w, http.StatusOK, rate)
}

// GetLogo serves a team logo
// GET /api/v1/logos/{league}/{abbr}
func (s *Server) GetLogo(w http.ResponseWriter, r *http.Request) {
	if s.deps.Logos == nil {
		respondError(w, http.StatusNotFound, "logos are not configured", nil)
		return
	}

	league, err := models.ParseLeague(chi.URLParam(r, "league"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	data, err := s.deps.Logos.Get(league, chi.URLParam(r, "abbr"))
	if err != nil {
		if errors.Is(err, logos.ErrNotFound) {
			respondError(w, http.StatusNotFound, "logo not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load logo", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// loadSchedule serves from the cache when it can and stores real results.
// Fresh upstream games carry the live state already persisted for them.
func (s *Server) loadSchedule(ctx context.Context, league models.League, day time.Time) ScheduleResponse {
	date := day.Format("2006-01-02")

	if s.deps.Cache != nil {
		games, ok, err := s.deps.Cache.GetSchedule(ctx, league, day)
		if err != nil {
			log.Warn().Err(err).Str("league", league.String()).Msg("Schedule cache read failed")
		}
		if ok {
			return ScheduleResponse{
				League: league,
				Date:   date,
				Games:  games,
				Count:  len(games),
				Source: schedule.SourceAPI,
				Cached: true,
			}
		}
	}

	res := s.deps.Schedule.FetchScheduleForDate(ctx, day, league)

	if s.deps.Games != nil && res.Source == schedule.SourceAPI && len(res.Games) > 0 {
		s.mergeStored(ctx, league, day, res.Games)
	}

	if s.deps.Cache != nil && res.Source == schedule.SourceAPI && !res.Fallback {
		if err := s.deps.Cache.SetSchedule(ctx, league, day, res.Games, s.deps.CacheTTL); err != nil {
			log.Warn().Err(err).Str("league", league.String()).Msg("Schedule cache write failed")
		}
	}

	return ScheduleResponse{
		League:   league,
		Date:     date,
		Games:    res.Games,
		Count:    len(res.Games),
		Source:   res.Source,
		Fallback: res.Fallback,
		Warning:  res.Warning,
	}
}

// mergeStored copies status, scores, period and winner from the stored rows
// onto games with the same id. Failures leave games as normalized.
func (s *Server) mergeStored(ctx context.Context, league models.League, day time.Time, games []models.Game) {
	stored, err := s.deps.Games.ListByDate(ctx, league, day)
	if err != nil {
		log.Warn().Err(err).Str("league", league.String()).Msg("Failed to load stored games")
		return
	}

	byID := make(map[int]*models.Game, len(stored))
	for _, g := range stored {
		byID[g.ID] = g
	}

	for i := range games {
		g, ok := byID[games[i].ID]
		if !ok {
			continue
		}
		games[i].Status = g.Status
		games[i].HomeScore = g.HomeScore
		games[i].AwayScore = g.AwayScore
		games[i].Period = g.Period
		games[i].Winner = g.Winner
	}
}

// tagUserVotes fills UserVote on games the user has picked. Failures leave
// the schedule untagged.
func (s *Server) tagUserVotes(ctx context.Context, userID uuid.UUID, games []models.Game) {
	ids := make([]int, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}

	votes, err := s.deps.Votes.VotesForGames(ctx, userID, ids)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to load user votes")
		return
	}

	for i := range games {
		if side, ok := votes[games[i].ID]; ok {
			side := side
			games[i].UserVote = &side
		}
	}
}

// parseDate reads a YYYYMMDD day in the service's zone. Empty means today.
func (s *Server) parseDate(raw string) (time.Time, error) {
	loc := s.deps.Schedule.Location()
	if raw == "" {
		now := s.now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation(dateLayout, raw, loc)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg(message)
	}
	respondJSON(w, status, map[string]string{"error": message})
}
